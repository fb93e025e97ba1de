package core

import (
	"context"

	"pkt.systems/gitconsole/schema"
	"pkt.systems/pslog"
)

// StatusProvider resolves working directories and supplies the prompt status line.
type StatusProvider interface {
	Resolve(ctx context.Context, dir string) schema.RepositoryContext
	StatusLine(ctx context.Context, repo schema.RepositoryContext) string
	// Invalidate drops cached status so the next StatusLine recomputes it.
	Invalidate(repo schema.RepositoryContext)
}

// OptionSource maps a command prefix to completion candidates.
type OptionSource interface {
	Options(ctx context.Context, prefix string) []string
}

// OptionProvider binds an OptionSource to a repository.
type OptionProvider interface {
	ForRepository(repo schema.RepositoryContext) OptionSource
}

// CredentialChecker reports whether git has a credential helper for dir.
type CredentialChecker interface {
	HasCredentialHelper(ctx context.Context, dir string) bool
}

// TerminalLauncher opens an external terminal window.
type TerminalLauncher interface {
	Open(ctx context.Context, dir string) error
}

// RepositoryWatcher signals when a repository's state may have changed.
// The returned stop func releases the subscription.
type RepositoryWatcher interface {
	Watch(root string) (<-chan struct{}, func())
}

// HistoryStore persists submitted commands across runs.
type HistoryStore interface {
	Load() ([]string, error)
	Append(entry string) error
}

// EngineDeps captures the engine's collaborators. Only Renderer is required.
type EngineDeps struct {
	Platform    Platform
	Status      StatusProvider
	Options     OptionProvider
	Credentials CredentialChecker
	Terminal    TerminalLauncher
	Watcher     RepositoryWatcher
	History     HistoryStore
	Renderer    Renderer
	Logger      pslog.Logger
}
