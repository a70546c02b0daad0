package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openlift/liftlog/internal/engine"
	"github.com/openlift/liftlog/internal/store"
)

func newSyncCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain the sync queue",
		Long: `Sync sends queued mutations to the service in the order they were
made. With --watch it keeps running, retrying failed entries on a
periodic tick until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if watch {
				return runWatch(cmd.Context(), app)
			}

			return runSyncOnce(cmd, app)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep syncing until interrupted")

	return cmd
}

// runSyncOnce probes connectivity, runs a single drain, and reports the
// resulting queue state.
func runSyncOnce(cmd *cobra.Command, app *app) error {
	ctx := cmd.Context()

	if _, err := app.outbox.ResetStuckProcessing(ctx); err != nil {
		return err
	}

	if err := app.client.Ping(ctx); err != nil {
		app.engine.SetOnline(ctx, false)
		fmt.Fprintln(cmd.OutOrStdout(), "Service unreachable; mutations remain queued")

		return nil
	}

	app.engine.TriggerSync(ctx)

	pending, err := app.outbox.PendingCount(ctx)
	if err != nil {
		return err
	}

	switch status := app.engine.Status(); status {
	case engine.StatusSynced:
		fmt.Fprintln(cmd.OutOrStdout(), "All mutations synced")
	case engine.StatusOffline:
		fmt.Fprintln(cmd.OutOrStdout(), "Connectivity lost mid-sync; mutations remain queued")
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Sync status %s, %d pending\n", status, pending)
	}

	return nil
}

// runWatch runs the engine scheduler until SIGINT/SIGTERM, probing the
// health endpoint each tick interval to detect connectivity returning.
func runWatch(parent context.Context, app *app) error {
	// A second concurrent watcher would double-drain the queue.
	cleanup, err := acquireWatchLock(watchLockPath(app.cfg.DBPath))
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tick, _ := app.cfg.ParsedTickInterval()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.engine.Run(ctx)
	})

	g.Go(func() error {
		return runConnectivityProbe(ctx, app, tick)
	})

	return g.Wait()
}

// runConnectivityProbe pings the health endpoint on the tick interval
// and feeds the result to the engine, so a watch session flips back from
// offline without waiting for a user action.
func runConnectivityProbe(ctx context.Context, app *app, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			online := app.client.Ping(ctx) == nil
			app.engine.SetOnline(ctx, online)

		case <-ctx.Done():
			return nil
		}
	}
}

func newRetryCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [ENTRY_ID]",
		Short: "Reset failed sync entries to pending",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify an entry id or --all")
			}

			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			if all {
				n, err := retryAllFailed(ctx, app)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d entries\n", n)
			} else {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid entry id %q", args[0])
				}

				if err := app.outbox.Retry(ctx, id); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Entry %d reset\n", id)
			}

			app.syncBestEffort(ctx)

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "retry every failed entry")

	return cmd
}

// retryAllFailed resets every failed outbox entry to pending.
func retryAllFailed(ctx context.Context, app *app) (int, error) {
	entries, err := app.outbox.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	var n int

	for _, e := range entries {
		if e.Status != store.StatusFailed {
			continue
		}

		if err := app.outbox.Retry(ctx, e.ID); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}
