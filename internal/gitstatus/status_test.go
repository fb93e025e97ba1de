package gitstatus

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"pkt.systems/gitconsole/schema"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	root := t.TempDir()
	r, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return root, r
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func commitAll(t *testing.T, r *git.Repository, msg string) plumbing.Hash {
	t.Helper()
	wt, err := r.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := wt.AddGlob("."); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

func TestResolveOutsideRepository(t *testing.T) {
	p := NewProvider(time.Minute, nil)
	defer p.Close()
	dir := t.TempDir()
	repo := p.Resolve(context.Background(), dir)
	if repo.IsRepository || repo.WorkingDir != dir {
		t.Fatalf("unexpected repository context %#v", repo)
	}
	if got := p.StatusLine(context.Background(), repo); got != schema.NotRepositoryStatus {
		t.Fatalf("expected not-a-repository status, got %q", got)
	}
}

func TestResolveFromSubdirectory(t *testing.T) {
	root, _ := initRepo(t)
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := NewProvider(time.Minute, nil)
	defer p.Close()
	repo := p.Resolve(context.Background(), sub)
	if !repo.IsRepository || repo.Root != root || repo.WorkingDir != sub {
		t.Fatalf("unexpected repository context %#v", repo)
	}
}

func TestStatusLineCounts(t *testing.T) {
	root, r := initRepo(t)
	writeFile(t, filepath.Join(root, "tracked.txt"), "one\n")
	writeFile(t, filepath.Join(root, "staged.txt"), "one\n")
	commitAll(t, r, "initial")

	writeFile(t, filepath.Join(root, "tracked.txt"), "two\n")
	writeFile(t, filepath.Join(root, "new.txt"), "new\n")
	writeFile(t, filepath.Join(root, "staged.txt"), "two\n")
	wt, _ := r.Worktree()
	if _, err := wt.Add("staged.txt"); err != nil {
		t.Fatalf("add: %v", err)
	}

	p := NewProvider(time.Minute, nil)
	defer p.Close()
	repo := p.Resolve(context.Background(), root)
	if got := p.StatusLine(context.Background(), repo); got != "master +1 ~1 ?1" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestStatusLineUnbornBranch(t *testing.T) {
	root, _ := initRepo(t)
	p := NewProvider(time.Minute, nil)
	defer p.Close()
	repo := p.Resolve(context.Background(), root)
	if got := p.StatusLine(context.Background(), repo); got != "master" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestStatusLineDetachedHead(t *testing.T) {
	root, r := initRepo(t)
	writeFile(t, filepath.Join(root, "a.txt"), "a\n")
	hash := commitAll(t, r, "initial")
	if err := r.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, hash)); err != nil {
		t.Fatalf("detach: %v", err)
	}
	p := NewProvider(time.Minute, nil)
	defer p.Close()
	repo := p.Resolve(context.Background(), root)
	want := "(" + hash.String()[:7] + ")"
	if got := p.StatusLine(context.Background(), repo); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestStatusLineCachedUntilInvalidated(t *testing.T) {
	root, r := initRepo(t)
	writeFile(t, filepath.Join(root, "a.txt"), "a\n")
	commitAll(t, r, "initial")

	p := NewProvider(time.Minute, nil)
	defer p.Close()
	repo := p.Resolve(context.Background(), root)
	if got := p.StatusLine(context.Background(), repo); got != "master" {
		t.Fatalf("unexpected status %q", got)
	}
	writeFile(t, filepath.Join(root, "b.txt"), "b\n")
	if got := p.StatusLine(context.Background(), repo); got != "master" {
		t.Fatalf("expected cached status, got %q", got)
	}
	p.Invalidate(repo)
	if got := p.StatusLine(context.Background(), repo); got != "master ?1" {
		t.Fatalf("expected refreshed status, got %q", got)
	}
}

func TestBranchesAndRemotes(t *testing.T) {
	root, r := initRepo(t)
	writeFile(t, filepath.Join(root, "a.txt"), "a\n")
	hash := commitAll(t, r, "initial")
	if err := r.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("feature"), hash)); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if err := r.Storer.SetReference(plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), hash)); err != nil {
		t.Fatalf("remote ref: %v", err)
	}
	branches, err := Branches(root)
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	want := []string{"feature", "master", "origin/main"}
	slices.Sort(branches)
	if !reflect.DeepEqual(branches, want) {
		t.Fatalf("unexpected branches %v", branches)
	}
	remotes, err := Remotes(root)
	if err != nil {
		t.Fatalf("remotes: %v", err)
	}
	if len(remotes) != 0 {
		t.Fatalf("expected no configured remotes, got %v", remotes)
	}
}
