package gitstatus

import (
	"context"

	"github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"

	"pkt.systems/pslog"
)

// CredentialChecker implements core.CredentialChecker by looking for a
// credential.helper in the repository, global and system git config.
type CredentialChecker struct {
	log pslog.Logger
}

// NewCredentialChecker constructs a CredentialChecker.
func NewCredentialChecker(logger pslog.Logger) *CredentialChecker {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &CredentialChecker{log: logger}
}

// HasCredentialHelper reports whether any config scope visible from dir
// names a credential helper, including URL-scoped [credential "<url>"] blocks.
func (c *CredentialChecker) HasCredentialHelper(_ context.Context, dir string) bool {
	if r, err := open(dir); err == nil {
		cfg, err := r.ConfigScoped(config.SystemScope)
		if err == nil {
			return hasHelper(cfg.Raw)
		}
		c.log.Debug("credential config load failed", "dir", dir, "err", err)
	}
	for _, scope := range []config.Scope{config.GlobalScope, config.SystemScope} {
		cfg, err := config.LoadConfig(scope)
		if err != nil {
			c.log.Debug("credential config load failed", "scope", scope, "err", err)
			continue
		}
		if hasHelper(cfg.Raw) {
			return true
		}
	}
	return false
}

func hasHelper(raw *format.Config) bool {
	if raw == nil {
		return false
	}
	for _, section := range raw.Sections {
		if !section.IsName("credential") {
			continue
		}
		if section.Option("helper") != "" {
			return true
		}
		for _, sub := range section.Subsections {
			if sub.Option("helper") != "" {
				return true
			}
		}
	}
	return false
}
