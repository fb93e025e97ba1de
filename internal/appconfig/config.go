package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/gitconsole/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Console       ConsoleConfig `mapstructure:"console" yaml:"console"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ConsoleConfig controls the console engine and its collaborators.
type ConsoleConfig struct {
	WorkingDir      string   `mapstructure:"working_dir" yaml:"working_dir"`
	Shell           []string `mapstructure:"shell" yaml:"shell"`
	Encoding        string   `mapstructure:"encoding" yaml:"encoding"`
	HistoryFile     string   `mapstructure:"history_file" yaml:"history_file"`
	HistoryMax      int      `mapstructure:"history_max" yaml:"history_max"`
	MaxLines        int      `mapstructure:"max_lines" yaml:"max_lines"`
	DrainTimeoutMS  int      `mapstructure:"drain_timeout_ms" yaml:"drain_timeout_ms"`
	CredentialCheck bool     `mapstructure:"credential_check" yaml:"credential_check"`
	TerminalLiteral string   `mapstructure:"terminal_literal" yaml:"terminal_literal"`
	TerminalCommand string   `mapstructure:"terminal_command" yaml:"terminal_command"`
	CompletionFile  string   `mapstructure:"completion_file" yaml:"completion_file"`
	Theme           string   `mapstructure:"theme" yaml:"theme"`
	StatusTTLMS     int      `mapstructure:"status_ttl_ms" yaml:"status_ttl_ms"`
	Watch           bool     `mapstructure:"watch" yaml:"watch"`
}

// SSHConfig configures the SSH console server.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeys     string `mapstructure:"authorized_keys" yaml:"authorized_keys"`
	TOTPSecret         string `mapstructure:"totp_secret" yaml:"totp_secret"`
	IdleTimeoutMinutes int    `mapstructure:"idle_timeout_minutes" yaml:"idle_timeout_minutes"`
}

// LoggingConfig controls log output. An empty File logs to stderr.
type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".gitconsole")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Console: ConsoleConfig{
			WorkingDir:      home,
			Shell:           []string{},
			Encoding:        schema.DefaultEncoding,
			HistoryFile:     filepath.Join(base, "history.json"),
			HistoryMax:      schema.DefaultHistoryMax,
			MaxLines:        0,
			DrainTimeoutMS:  int(schema.DefaultDrainTimeout / time.Millisecond),
			CredentialCheck: true,
			TerminalLiteral: schema.DefaultTerminalLiteral,
			TerminalCommand: "",
			CompletionFile:  "",
			Theme:           string(schema.DefaultTheme),
			StatusTTLMS:     5000,
			Watch:           true,
		},
		SSH: SSHConfig{
			Addr:               ":27522",
			HostKeyPath:        filepath.Join(base, "ssh_host_key"),
			AuthorizedKeys:     filepath.Join(home, ".ssh", "authorized_keys"),
			TOTPSecret:         "",
			IdleTimeoutMinutes: 60,
		},
		Logging: LoggingConfig{
			File:       filepath.Join(base, "gitconsole.log"),
			Level:      "info",
			MaxSizeMB:  15,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gitconsole", "config.yaml"), nil
}

// EngineConfig converts the console section into the engine's config.
func (c ConsoleConfig) EngineConfig() schema.ConsoleConfig {
	return schema.ConsoleConfig{
		WorkingDir:      c.WorkingDir,
		Shell:           append([]string(nil), c.Shell...),
		Encoding:        c.Encoding,
		HistoryMax:      c.HistoryMax,
		MaxLines:        c.MaxLines,
		DrainTimeout:    time.Duration(c.DrainTimeoutMS) * time.Millisecond,
		CredentialCheck: c.CredentialCheck,
		TerminalLiteral: c.TerminalLiteral,
		Theme:           schema.ThemeName(c.Theme),
	}
}

// StatusTTL returns the status cache lifetime.
func (c ConsoleConfig) StatusTTL() time.Duration {
	return time.Duration(c.StatusTTLMS) * time.Millisecond
}

// IdleTimeout returns the SSH idle timeout; zero disables it.
func (c SSHConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}
