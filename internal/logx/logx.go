package logx

import (
	"context"
	"io"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"pkt.systems/gitconsole/internal/appconfig"
	"pkt.systems/pslog"
)

type contextKey int

const (
	userKey contextKey = iota
)

// New builds the application logger. With a log file configured, entries are
// structured JSON written through a rotating file; otherwise they go to
// fallback in console mode. The returned closer releases the file.
func New(cfg appconfig.LoggingConfig, fallback io.Writer) (pslog.Logger, io.Closer) {
	opts := pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.InfoLevel}
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "warn":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	if strings.TrimSpace(cfg.File) == "" {
		return pslog.NewWithOptions(fallback, opts), nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	opts.Mode = pslog.ModeStructured
	opts.NoColor = true
	opts.VerboseFields = true
	return pslog.NewWithOptions(file, opts), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithUser annotates the context logger with the remote user if present.
func WithUser(ctx context.Context, user string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if user != "" {
		if current, ok := ctx.Value(userKey).(string); ok && current == user {
			return log
		}
		log = log.With("user", user)
	}
	return log
}

// WithRemote annotates the logger with a peer address.
func WithRemote(log pslog.Logger, addr string) pslog.Logger {
	if addr != "" {
		log = log.With("remote", addr)
	}
	return log
}

// WithRepo annotates the logger with the worktree root when the directory is inside one.
func WithRepo(log pslog.Logger, root string) pslog.Logger {
	if root != "" {
		log = log.With("repo_root", root)
	}
	return log
}

// ContextWithUser stores the user marker on the context for log de-duplication.
func ContextWithUser(ctx context.Context, user string) context.Context {
	if ctx == nil || user == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey, user)
}

// ContextWithUserLogger attaches the logger and user marker to the context.
func ContextWithUserLogger(ctx context.Context, log pslog.Logger, user string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithUser(ctx, user)
}
