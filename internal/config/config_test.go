package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.liftlog.app", cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.RetryCeiling)
	assert.Equal(t, 10, cfg.UndoDepth)

	tick, err := cfg.ParsedTickInterval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, tick)

	debounce, err := cfg.ParsedDebounce()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, debounce)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "liftlog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url = "http://localhost:8080"
tick_interval = "1s"
retry_ceiling = 2
log_format = "json"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "1s", cfg.TickInterval)
	assert.Equal(t, 2, cfg.RetryCeiling)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10, cfg.UndoDepth, "unset keys keep defaults")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "liftlog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`sync_interval = "5s"`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.APIBaseURL = "" }, wantErr: true},
		{name: "empty db path", mutate: func(c *Config) { c.DBPath = "" }, wantErr: true},
		{name: "bad tick interval", mutate: func(c *Config) { c.TickInterval = "soon" }, wantErr: true},
		{name: "bad debounce", mutate: func(c *Config) { c.Debounce = "-" }, wantErr: true},
		{name: "zero retry ceiling", mutate: func(c *Config) { c.RetryCeiling = 0 }, wantErr: true},
		{name: "zero undo depth", mutate: func(c *Config) { c.UndoDepth = 0 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := Validate(cfg)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestToken(t *testing.T) {
	t.Setenv(EnvToken, "secret-token")
	assert.Equal(t, "secret-token", Token())
}
