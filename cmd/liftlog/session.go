package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlift/liftlog/internal/workout"
)

func newStartCmd() *cobra.Command {
	var (
		title       string
		splitID     string
		templateID  string
		notes       string
		constraints []string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a workout session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.tracker.StartSession(cmd.Context(), workout.StartOptions{
				Title:       title,
				SplitID:     splitID,
				TemplateID:  templateID,
				Notes:       notes,
				Constraints: constraints,
			})
			if err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			fmt.Fprintf(cmd.OutOrStdout(), "Started %q at %s\n",
				sess.Title, sess.StartedAt.Format(time.Kitchen))

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "Workout", "session title")
	cmd.Flags().StringVar(&splitID, "split", "", "split id")
	cmd.Flags().StringVar(&templateID, "template", "", "template id")
	cmd.Flags().StringVar(&notes, "notes", "", "session notes")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, "constraint tag (repeatable)")

	return cmd
}

func newFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "finish",
		Aliases: []string{"end"},
		Short:   "End the active session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tracker.EndSession(cmd.Context()); err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "Session ended")

			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session and sync queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()

			sess, err := app.tracker.Session(cmd.Context())
			switch {
			case errors.Is(err, workout.ErrNoActiveSession):
				fmt.Fprintln(out, "No active session")
			case err != nil:
				return err
			default:
				printSession(out, sess)
			}

			if pid := watcherPID(watchLockPath(app.cfg.DBPath)); pid > 0 {
				fmt.Fprintf(out, "Watcher running (pid %d)\n", pid)
			}

			entries, err := app.outbox.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "Sync queue: empty")
				return nil
			}

			fmt.Fprintf(out, "Sync queue: %d entries\n", len(entries))

			for _, e := range entries {
				line := fmt.Sprintf("  #%d %s [%s]", e.ID, e.Kind, e.Status)
				if e.RetryCount > 0 {
					line += fmt.Sprintf(" retries=%d", e.RetryCount)
				}

				if e.LastError != "" {
					line += " error=" + e.LastError
				}

				fmt.Fprintln(out, line)
			}

			return nil
		},
	}
}

// printSession renders the session with its exercises and sets.
func printSession(out io.Writer, sess *workout.Session) {
	fmt.Fprintf(out, "%s (started %s", sess.Title, sess.StartedAt.Format(time.Kitchen))

	if sess.RemoteID != "" {
		fmt.Fprintf(out, ", remote %s", sess.RemoteID)
	}

	fmt.Fprintln(out, ")")

	if sess.Notes != "" {
		fmt.Fprintf(out, "  notes: %s\n", sess.Notes)
	}

	for _, ex := range sess.Exercises {
		fmt.Fprintf(out, "  %d. %s [%s]\n", ex.OrderIndex+1, ex.Name, ex.ID)

		for _, set := range ex.Sets {
			fmt.Fprintf(out, "     %d) %s [%s]\n", set.SetIndex+1, formatSet(set), set.ID)
		}
	}
}

// formatSet renders one set on a single line.
func formatSet(set workout.Set) string {
	s := fmt.Sprintf("%.1fkg x %d", set.WeightKg, set.Reps)

	if set.RIR != nil {
		s += fmt.Sprintf(" @%d RIR", *set.RIR)
	}

	switch {
	case set.IsWarmup:
		s += " (warmup)"
	case set.IsBackoff:
		s += " (backoff)"
	case set.IsDropset:
		s += " (dropset)"
	case set.IsFailure:
		s += " (failure)"
	}

	if set.Notes != "" {
		s += " - " + set.Notes
	}

	return s
}
