package schema

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ConsoleConfig defines defaults and limits for one console engine.
type ConsoleConfig struct {
	WorkingDir string
	// Shell wraps every command, e.g. ["sh", "-c"]. Empty runs the executable directly.
	Shell           []string
	Encoding        string
	HistoryMax      int
	MaxLines        int
	DrainTimeout    time.Duration
	CredentialCheck bool
	TerminalLiteral string
	Theme           ThemeName
}

const (
	// DefaultHistoryMax is the default number of retained commands.
	DefaultHistoryMax = 500
	// DefaultDrainTimeout bounds how long output is drained after a child exits.
	DefaultDrainTimeout = 2 * time.Second
	// DefaultTerminalLiteral is the bare command that opens an external terminal.
	DefaultTerminalLiteral = "git"
	// DefaultEncoding is the child stdio encoding.
	DefaultEncoding = "utf-8"
)

// NormalizeConsoleConfig applies defaults and validates the config.
func NormalizeConsoleConfig(cfg ConsoleConfig) (ConsoleConfig, error) {
	if strings.TrimSpace(cfg.WorkingDir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ConsoleConfig{}, err
		}
		cfg.WorkingDir = home
	}
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.MaxLines < 0 {
		return ConsoleConfig{}, fmt.Errorf("%w: max lines must not be negative", ErrInvalidConfig)
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if strings.TrimSpace(cfg.Encoding) == "" {
		cfg.Encoding = DefaultEncoding
	}
	cfg.TerminalLiteral = strings.ToLower(strings.TrimSpace(cfg.TerminalLiteral))
	if cfg.TerminalLiteral == "" {
		cfg.TerminalLiteral = DefaultTerminalLiteral
	}
	if strings.ContainsAny(cfg.TerminalLiteral, " \t") {
		return ConsoleConfig{}, fmt.Errorf("%w: terminal literal must be a single word", ErrInvalidConfig)
	}
	if len(cfg.Shell) > 0 && strings.TrimSpace(cfg.Shell[0]) == "" {
		return ConsoleConfig{}, fmt.Errorf("%w: shell wrapper needs an executable", ErrInvalidConfig)
	}
	if cfg.Theme == "" {
		cfg.Theme = DefaultTheme
	}
	if name, ok := NormalizeThemeName(string(cfg.Theme)); ok {
		cfg.Theme = name
	} else {
		return ConsoleConfig{}, fmt.Errorf("%w: unknown theme %q", ErrInvalidConfig, cfg.Theme)
	}
	return cfg, nil
}
