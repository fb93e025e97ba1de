package gitcomplete

import (
	"context"
	"os"
	"strings"

	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/internal/gitstatus"
	"pkt.systems/gitconsole/schema"
	"pkt.systems/pslog"
)

// RefLister reads branch and remote names for a directory.
type RefLister interface {
	Branches(dir string) ([]string, error)
	Remotes(dir string) ([]string, error)
}

type goGitRefs struct{}

func (goGitRefs) Branches(dir string) ([]string, error) { return gitstatus.Branches(dir) }
func (goGitRefs) Remotes(dir string) ([]string, error)  { return gitstatus.Remotes(dir) }

// Provider implements core.OptionProvider.
type Provider struct {
	catalog Catalog
	refs    RefLister
	log     pslog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithRefLister replaces the go-git ref lookup.
func WithRefLister(refs RefLister) Option {
	return func(p *Provider) {
		if refs != nil {
			p.refs = refs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger pslog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.log = logger
		}
	}
}

// NewProvider builds a Provider over catalog.
func NewProvider(catalog Catalog, opts ...Option) *Provider {
	p := &Provider{
		catalog: catalog,
		refs:    goGitRefs{},
		log:     pslog.Ctx(context.Background()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadProvider builds a Provider from the embedded catalog, overlaid with
// the TOML file at overlayPath when it is set.
func LoadProvider(overlayPath string, opts ...Option) (*Provider, error) {
	catalog, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(overlayPath) != "" {
		data, err := os.ReadFile(overlayPath)
		if err != nil {
			return nil, err
		}
		overlay, err := ParseCatalog(data)
		if err != nil {
			return nil, err
		}
		catalog = catalog.Merge(overlay)
	}
	return NewProvider(catalog, opts...), nil
}

// ForRepository binds the catalog to repo.
func (p *Provider) ForRepository(repo schema.RepositoryContext) core.OptionSource {
	return &source{provider: p, repo: repo}
}

type source struct {
	provider *Provider
	repo     schema.RepositoryContext
}

// Options returns candidates for the word following prefix.
func (s *source) Options(_ context.Context, prefix string) []string {
	words := core.SplitArguments(prefix)
	if len(words) == 0 || !strings.EqualFold(words[0], "git") {
		return nil
	}
	sub, ok := subcommand(words[1:])
	if !ok {
		out := s.provider.catalog.Subcommands()
		return append(out, s.provider.catalog.Global...)
	}
	cmd, known := s.provider.catalog.Commands[sub]
	if !known {
		return nil
	}
	out := append([]string(nil), cmd.Options...)
	if cmd.Remotes {
		out = append(out, s.lookup("remotes", s.provider.refs.Remotes)...)
	}
	if cmd.Refs {
		out = append(out, s.lookup("branches", s.provider.refs.Branches)...)
	}
	return dedupe(out)
}

func (s *source) lookup(kind string, fn func(string) ([]string, error)) []string {
	if !s.repo.IsRepository {
		return nil
	}
	names, err := fn(s.repo.WorkingDir)
	if err != nil {
		s.provider.log.Debug("completion lookup failed", "kind", kind, "dir", s.repo.WorkingDir, "err", err)
		return nil
	}
	return names
}

// subcommand finds the first non-option word, skipping global options and
// the values of -C and -c.
func subcommand(words []string) (string, bool) {
	for i := 0; i < len(words); i++ {
		word := words[i]
		switch {
		case word == "-C" || word == "-c":
			i++
		case strings.HasPrefix(word, "-"):
		default:
			return word, true
		}
	}
	return "", false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
