// Command liftlog is a local-first workout logger: edits land in a
// durable local store immediately and reconcile with the remote service
// through a background-drained mutation outbox once connectivity allows.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/openlift/liftlog/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagVerbose    bool
)

// cfg holds the effective configuration loaded by PersistentPreRunE.
var cfg *config.Config

// httpClientTimeout bounds every remote call so a dead network surfaces
// as a connectivity-classified timeout instead of a hung drain.
const httpClientTimeout = 30 * time.Second

// newRootCmd builds the fully-assembled root command. Called once from
// main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "liftlog",
		Short:         "Local-first workout logger with background sync",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			loaded, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			cfg = loaded
			setupLogger(cfg)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newFinishCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newExerciseCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newUndoCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newRetryCmd())

	return cmd
}

// resolveConfigPath returns the --config flag value or the default
// location under the user config directory.
func resolveConfigPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "liftlog.toml"
	}

	return dir + "/liftlog/liftlog.toml"
}

// setupLogger installs the process-wide slog default. Format "auto"
// picks text on a terminal and JSON otherwise.
func setupLogger(cfg *config.Config) {
	level := parseLevel(cfg.LogLevel)
	if flagVerbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler

	format := cfg.LogFormat
	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel maps a config log level to slog.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}
