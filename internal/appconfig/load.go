package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/gitconsole/schema"
)

// EnvPrefix prefixes environment overrides, e.g. GITCONSOLE_CONSOLE_THEME.
const EnvPrefix = "GITCONSOLE"

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("console.working_dir", cfg.Console.WorkingDir)
	v.SetDefault("console.shell", cfg.Console.Shell)
	v.SetDefault("console.encoding", cfg.Console.Encoding)
	v.SetDefault("console.history_file", cfg.Console.HistoryFile)
	v.SetDefault("console.history_max", cfg.Console.HistoryMax)
	v.SetDefault("console.max_lines", cfg.Console.MaxLines)
	v.SetDefault("console.drain_timeout_ms", cfg.Console.DrainTimeoutMS)
	v.SetDefault("console.credential_check", cfg.Console.CredentialCheck)
	v.SetDefault("console.terminal_literal", cfg.Console.TerminalLiteral)
	v.SetDefault("console.terminal_command", cfg.Console.TerminalCommand)
	v.SetDefault("console.completion_file", cfg.Console.CompletionFile)
	v.SetDefault("console.theme", cfg.Console.Theme)
	v.SetDefault("console.status_ttl_ms", cfg.Console.StatusTTLMS)
	v.SetDefault("console.watch", cfg.Console.Watch)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys", cfg.SSH.AuthorizedKeys)
	v.SetDefault("ssh.totp_secret", cfg.SSH.TOTPSecret)
	v.SetDefault("ssh.idle_timeout_minutes", cfg.SSH.IdleTimeoutMinutes)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	console := cfg.Console
	if console.HistoryMax < 0 {
		return fmt.Errorf("%w: console.history_max must not be negative", schema.ErrInvalidConfig)
	}
	if console.DrainTimeoutMS < 0 {
		return fmt.Errorf("%w: console.drain_timeout_ms must not be negative", schema.ErrInvalidConfig)
	}
	if console.StatusTTLMS < 0 {
		return fmt.Errorf("%w: console.status_ttl_ms must not be negative", schema.ErrInvalidConfig)
	}
	if _, err := schema.NormalizeConsoleConfig(console.EngineConfig()); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unsupported logging.level %q", schema.ErrInvalidConfig, cfg.Logging.Level)
	}
	if strings.TrimSpace(cfg.SSH.Addr) == "" {
		return fmt.Errorf("%w: ssh.addr is required", schema.ErrInvalidConfig)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Console.WorkingDir = expandEnv(cfg.Console.WorkingDir)
	cfg.Console.HistoryFile = expandEnv(cfg.Console.HistoryFile)
	cfg.Console.CompletionFile = expandEnv(cfg.Console.CompletionFile)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeys = expandEnv(cfg.SSH.AuthorizedKeys)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = home + value[1:]
		}
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
