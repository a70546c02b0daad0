// Package config loads and validates the liftlog configuration file
// (TOML). Durations are stored as strings ("5s", "250ms") and parsed
// during validation; the API token is resolved from the environment,
// never from the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvToken is the environment variable holding the bearer token for the
// remote service.
const EnvToken = "LIFTLOG_TOKEN"

// Default values applied by DefaultConfig.
const (
	defaultAPIBaseURL   = "https://api.liftlog.app"
	defaultTickInterval = "5s"
	defaultDebounce     = "250ms"
	defaultRetryCeiling = 5
	defaultUndoDepth    = 10
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
)

// Config is the full liftlog configuration.
type Config struct {
	APIBaseURL   string `toml:"api_base_url"`
	DBPath       string `toml:"db_path"`
	TickInterval string `toml:"tick_interval"`
	Debounce     string `toml:"debounce"`
	RetryCeiling int    `toml:"retry_ceiling"`
	UndoDepth    int    `toml:"undo_depth"`
	LogLevel     string `toml:"log_level"`  // debug, info, warn, error
	LogFormat    string `toml:"log_format"` // auto, text, json
}

// DefaultConfig returns a Config with every field populated.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:   defaultAPIBaseURL,
		DBPath:       defaultDBPath(),
		TickInterval: defaultTickInterval,
		Debounce:     defaultDebounce,
		RetryCeiling: defaultRetryCeiling,
		UndoDepth:    defaultUndoDepth,
		LogLevel:     defaultLogLevel,
		LogFormat:    defaultLogFormat,
	}
}

// defaultDBPath places the database under the user config directory,
// falling back to the working directory when none resolves.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "liftlog.db"
	}

	return filepath.Join(dir, "liftlog", "liftlog.db")
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error — defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field values and duration syntax.
func Validate(cfg *Config) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("config: api_base_url must not be empty")
	}

	if cfg.DBPath == "" {
		return fmt.Errorf("config: db_path must not be empty")
	}

	if _, err := cfg.ParsedTickInterval(); err != nil {
		return err
	}

	if _, err := cfg.ParsedDebounce(); err != nil {
		return err
	}

	if cfg.RetryCeiling < 1 {
		return fmt.Errorf("config: retry_ceiling must be at least 1, got %d", cfg.RetryCeiling)
	}

	if cfg.UndoDepth < 1 {
		return fmt.Errorf("config: undo_depth must be at least 1, got %d", cfg.UndoDepth)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("config: invalid log_format %q", cfg.LogFormat)
	}

	return nil
}

// ParsedTickInterval returns the tick interval as a duration.
func (c *Config) ParsedTickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("config: invalid tick_interval %q: %w", c.TickInterval, err)
	}

	return d, nil
}

// ParsedDebounce returns the enqueue debounce as a duration.
func (c *Config) ParsedDebounce() (time.Duration, error) {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("config: invalid debounce %q: %w", c.Debounce, err)
	}

	return d, nil
}

// Token returns the bearer token from the environment, or empty when
// unset (offline-only operation still works).
func Token() string {
	return os.Getenv(EnvToken)
}
