// Package gitstatus resolves repositories and renders the console prompt
// status from go-git, without shelling out to git.
package gitstatus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jellydator/ttlcache/v3"

	"pkt.systems/gitconsole/schema"
	"pkt.systems/pslog"
)

// DefaultStatusTTL bounds how long a status line is reused without a change signal.
const DefaultStatusTTL = 5 * time.Second

// Provider implements core.StatusProvider. Status lines are cached per
// repository root; Invalidate (or the watcher hook) drops them.
type Provider struct {
	cache *ttlcache.Cache[string, string]
	log   pslog.Logger
}

// NewProvider constructs a Provider and starts the cache expiry loop.
func NewProvider(ttl time.Duration, logger pslog.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &Provider{cache: c, log: logger}
}

// Close stops the cache expiry loop.
func (p *Provider) Close() {
	p.cache.Stop()
}

// Resolve reports whether dir is inside a repository worktree.
func (p *Provider) Resolve(_ context.Context, dir string) schema.RepositoryContext {
	repo := schema.RepositoryContext{WorkingDir: dir}
	root, err := WorktreeRoot(dir)
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			p.log.Debug("repository resolve failed", "dir", dir, "err", err)
		}
		return repo
	}
	repo.Root = root
	repo.IsRepository = true
	return repo
}

// StatusLine returns "<branch>[ +staged][ ~modified][ ?untracked][ !conflicts]".
func (p *Provider) StatusLine(_ context.Context, repo schema.RepositoryContext) string {
	if !repo.IsRepository {
		return schema.NotRepositoryStatus
	}
	if item := p.cache.Get(repo.Root); item != nil {
		return item.Value()
	}
	start := time.Now()
	line, err := computeStatus(repo.Root)
	if err != nil {
		p.log.Warn("repository status failed", "root", repo.Root, "err", err)
		return filepath.Base(repo.Root)
	}
	p.cache.Set(repo.Root, line, ttlcache.DefaultTTL)
	p.log.Trace("repository status ok", "root", repo.Root, "status", line, "duration_ms", time.Since(start).Milliseconds())
	return line
}

// Invalidate drops the cached status of repo.
func (p *Provider) Invalidate(repo schema.RepositoryContext) {
	p.InvalidateRoot(repo.Root)
}

// InvalidateRoot drops the cached status for a repository root.
func (p *Provider) InvalidateRoot(root string) {
	if root == "" {
		return
	}
	p.cache.Delete(root)
}

// WorktreeRoot returns the top-level worktree directory containing dir.
func WorktreeRoot(dir string) (string, error) {
	r, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := r.Worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}

func open(dir string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

func computeStatus(root string) (string, error) {
	r, err := open(root)
	if err != nil {
		return "", err
	}
	branch, err := headName(r)
	if err != nil {
		return "", err
	}
	wt, err := r.Worktree()
	if err != nil {
		return "", err
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("worktree status: %w", err)
	}

	var staged, modified, untracked, conflicts int
	for _, fs := range status {
		switch {
		case fs.Staging == git.UpdatedButUnmerged || fs.Worktree == git.UpdatedButUnmerged:
			conflicts++
		case fs.Worktree == git.Untracked:
			untracked++
		default:
			if fs.Staging != git.Unmodified {
				staged++
			}
			if fs.Worktree != git.Unmodified {
				modified++
			}
		}
	}

	var b strings.Builder
	b.WriteString(branch)
	appendCount(&b, '+', staged)
	appendCount(&b, '~', modified)
	appendCount(&b, '?', untracked)
	appendCount(&b, '!', conflicts)
	return b.String(), nil
}

func appendCount(b *strings.Builder, marker byte, n int) {
	if n == 0 {
		return
	}
	b.WriteByte(' ')
	b.WriteByte(marker)
	fmt.Fprintf(b, "%d", n)
}

// headName returns the checked-out branch, or the short commit when detached.
// An unborn branch still reports its name.
func headName(r *git.Repository) (string, error) {
	ref, err := r.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}
	hash := ref.Hash().String()
	if len(hash) > 7 {
		hash = hash[:7]
	}
	return "(" + hash + ")", nil
}

// Branches lists local branch names followed by remote-tracking names.
func Branches(dir string) ([]string, error) {
	r, err := open(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	refs, err := r.References()
	if err != nil {
		return nil, err
	}
	defer refs.Close()
	var remotes []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		switch {
		case name.IsBranch():
			names = append(names, name.Short())
		case name.IsRemote():
			if !strings.HasSuffix(name.String(), "/HEAD") {
				remotes = append(remotes, name.Short())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(names, remotes...), nil
}

// Remotes lists configured remote names.
func Remotes(dir string) ([]string, error) {
	r, err := open(dir)
	if err != nil {
		return nil, err
	}
	list, err := r.Remotes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for _, remote := range list {
		names = append(names, remote.Config().Name)
	}
	return names, nil
}
