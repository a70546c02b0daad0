package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openlift/liftlog/internal/api"
	"github.com/openlift/liftlog/internal/config"
	"github.com/openlift/liftlog/internal/engine"
	"github.com/openlift/liftlog/internal/store"
	"github.com/openlift/liftlog/internal/tracker"
	"github.com/openlift/liftlog/internal/undo"
)

// syncAttemptTimeout bounds the best-effort drain that mutating commands
// run before exiting. Failures leave entries queued for a later sync.
const syncAttemptTimeout = 10 * time.Second

// app wires the store, outbox, undo stack, remote client, sync engine,
// and tracker together for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.DB
	sessions *store.SessionStore
	outbox   *store.Outbox
	undo     *undo.Stack
	client   *api.Client
	engine   *engine.Engine
	tracker  *tracker.Tracker
}

// openApp opens the database and constructs the component graph from the
// loaded configuration. The caller must Close.
func openApp(ctx context.Context) (*app, error) {
	logger := slog.Default()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := store.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	sessions := store.NewSessionStore(db)
	outbox := store.NewOutbox(db)
	undoStack := undo.NewStack(cfg.UndoDepth, logger)

	client := api.NewClient(cfg.APIBaseURL, defaultHTTPClient(),
		api.StaticToken(config.Token()), logger)

	// Durations were validated during config load.
	tick, _ := cfg.ParsedTickInterval()
	debounce, _ := cfg.ParsedDebounce()

	eng := engine.New(engine.Config{
		Queue:        outbox,
		Sender:       client,
		Sessions:     sessions,
		Logger:       logger,
		TickInterval: tick,
		Debounce:     debounce,
		RetryCeiling: cfg.RetryCeiling,
		StartOnline:  true,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
		outbox:   outbox,
		undo:     undoStack,
		client:   client,
		engine:   eng,
		tracker:  tracker.New(sessions, outbox, undoStack, eng, logger),
	}, nil
}

// Close releases the database.
func (a *app) Close() error {
	return a.db.Close()
}

// syncBestEffort runs one bounded drain attempt. Mutating commands call
// it so edits reach the service promptly when the network is up; when it
// is not, the outbox keeps the work and the command still succeeds.
func (a *app) syncBestEffort(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, syncAttemptTimeout)
	defer cancel()

	if _, err := a.outbox.ResetStuckProcessing(syncCtx); err != nil {
		a.logger.Error("recovering stuck outbox entries", slog.String("error", err.Error()))
		return
	}

	a.engine.TriggerSync(syncCtx)
}
