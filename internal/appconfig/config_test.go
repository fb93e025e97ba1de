package appconfig

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Console.WorkingDir != home {
		t.Fatalf("expected working dir %q, got %q", home, cfg.Console.WorkingDir)
	}
	if cfg.Console.MaxLines != 0 {
		t.Fatalf("expected unbounded scrollback by default")
	}
	if cfg.Logging.MaxSizeMB != 15 || cfg.Logging.MaxBackups != 3 {
		t.Fatalf("unexpected log rotation defaults %+v", cfg.Logging)
	}
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if path != filepath.Join(home, ".gitconsole", "config.yaml") {
		t.Fatalf("unexpected config path %q", path)
	}
}
