package gitcomplete

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/schema"
)

type fakeRefs struct {
	branches []string
	remotes  []string
	err      error
}

func (f fakeRefs) Branches(string) ([]string, error) { return f.branches, f.err }
func (f fakeRefs) Remotes(string) ([]string, error)  { return f.remotes, f.err }

var testRepo = schema.RepositoryContext{WorkingDir: "/repo", Root: "/repo", IsRepository: true}

func TestDefaultCatalogDecodes(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	for _, name := range []string{"status", "commit", "push", "checkout", "log"} {
		if _, ok := c.Commands[name]; !ok {
			t.Fatalf("expected %q in catalog", name)
		}
	}
	if !c.Commands["checkout"].Refs || !c.Commands["push"].Remotes {
		t.Fatalf("expected ref flags on checkout and push")
	}
	subs := c.Subcommands()
	if !slices.IsSorted(subs) {
		t.Fatalf("subcommands not sorted: %v", subs)
	}
}

func TestParseCatalogRejectsUnknownKeys(t *testing.T) {
	if _, err := ParseCatalog([]byte("[commands.status]\nflags = [\"-s\"]\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestOptions(t *testing.T) {
	p := NewProvider(Catalog{
		Global: []string{"--version"},
		Commands: map[string]Command{
			"status":   {Options: []string{"--short"}},
			"checkout": {Options: []string{"-b"}, Refs: true},
			"push":     {Options: []string{"--force"}, Refs: true, Remotes: true},
		},
	}, WithRefLister(fakeRefs{branches: []string{"main", "feature"}, remotes: []string{"origin"}}))
	src := p.ForRepository(testRepo)

	cases := []struct {
		prefix string
		want   []string
	}{
		{"git", []string{"checkout", "push", "status", "--version"}},
		{"GIT", []string{"checkout", "push", "status", "--version"}},
		{"git --no-pager", []string{"checkout", "push", "status", "--version"}},
		{"git status", []string{"--short"}},
		{"git status --short", []string{"--short"}},
		{"git checkout", []string{"-b", "main", "feature"}},
		{"git -C sub push", []string{"--force", "origin", "main", "feature"}},
		{"git frobnicate", nil},
		{"ls", nil},
		{"", nil},
	}
	for _, tc := range cases {
		t.Run(tc.prefix, func(t *testing.T) {
			got := src.Options(context.Background(), tc.prefix)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Options(%q) = %v, want %v", tc.prefix, got, tc.want)
			}
		})
	}
}

func TestOptionsOutsideRepositorySkipsRefs(t *testing.T) {
	p := NewProvider(Catalog{
		Commands: map[string]Command{"checkout": {Options: []string{"-b"}, Refs: true}},
	}, WithRefLister(fakeRefs{branches: []string{"main"}}))
	src := p.ForRepository(schema.RepositoryContext{WorkingDir: "/tmp"})
	if got := src.Options(context.Background(), "git checkout"); !reflect.DeepEqual(got, []string{"-b"}) {
		t.Fatalf("unexpected options %v", got)
	}
}

func TestOptionsRefLookupErrorIsIgnored(t *testing.T) {
	p := NewProvider(Catalog{
		Commands: map[string]Command{"checkout": {Options: []string{"-b"}, Refs: true}},
	}, WithRefLister(fakeRefs{err: errors.New("broken")}))
	src := p.ForRepository(testRepo)
	if got := src.Options(context.Background(), "git checkout"); !reflect.DeepEqual(got, []string{"-b"}) {
		t.Fatalf("unexpected options %v", got)
	}
}

func TestFilterCompletionWithCatalog(t *testing.T) {
	p, err := LoadProvider("", WithRefLister(fakeRefs{}))
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	ctx := core.FilterCompletion(context.Background(), "git stat", p.ForRepository(testRepo))
	if !ctx.Visible || len(ctx.Candidates) != 1 || ctx.Candidates[0] != "status" || ctx.Selected != 0 {
		t.Fatalf("unexpected completion %#v", ctx)
	}
}

func TestLoadProviderOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.toml")
	overlay := "[commands.lfs]\noptions = [\"install\", \"track\"]\n"
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	p, err := LoadProvider(path, WithRefLister(fakeRefs{}))
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	src := p.ForRepository(testRepo)
	if got := src.Options(context.Background(), "git lfs"); !reflect.DeepEqual(got, []string{"install", "track"}) {
		t.Fatalf("unexpected overlay options %v", got)
	}
	if got := src.Options(context.Background(), "git status"); len(got) == 0 {
		t.Fatalf("expected default commands to survive the overlay")
	}
}
