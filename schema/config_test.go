package schema

import (
	"errors"
	"testing"
)

func TestNormalizeConsoleConfigDefaults(t *testing.T) {
	cfg, err := NormalizeConsoleConfig(ConsoleConfig{WorkingDir: "/tmp"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.HistoryMax != DefaultHistoryMax {
		t.Fatalf("expected history max %d, got %d", DefaultHistoryMax, cfg.HistoryMax)
	}
	if cfg.DrainTimeout != DefaultDrainTimeout {
		t.Fatalf("expected drain timeout %s, got %s", DefaultDrainTimeout, cfg.DrainTimeout)
	}
	if cfg.TerminalLiteral != "git" {
		t.Fatalf("expected terminal literal git, got %q", cfg.TerminalLiteral)
	}
	if cfg.Encoding != DefaultEncoding {
		t.Fatalf("expected encoding %q, got %q", DefaultEncoding, cfg.Encoding)
	}
	if cfg.Theme != DefaultTheme {
		t.Fatalf("expected theme %q, got %q", DefaultTheme, cfg.Theme)
	}
}

func TestNormalizeConsoleConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  ConsoleConfig
	}{
		{name: "negative max lines", cfg: ConsoleConfig{WorkingDir: "/tmp", MaxLines: -1}},
		{name: "multi word literal", cfg: ConsoleConfig{WorkingDir: "/tmp", TerminalLiteral: "git bash"}},
		{name: "empty shell", cfg: ConsoleConfig{WorkingDir: "/tmp", Shell: []string{" ", "-c"}}},
		{name: "unknown theme", cfg: ConsoleConfig{WorkingDir: "/tmp", Theme: "neon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizeConsoleConfig(tc.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestFormatPromptAndStartFailure(t *testing.T) {
	if got := FormatPrompt(NotRepositoryStatus); got != "[Not a Git repository]>" {
		t.Fatalf("unexpected prompt %q", got)
	}
	want := `Failed to start process "doesnotexist123" with arguments ""`
	if got := StartFailureMessage("doesnotexist123", ""); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
