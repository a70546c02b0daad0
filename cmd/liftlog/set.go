package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlift/liftlog/internal/workout"
)

// setFlags holds the shared flag set for `set log` and `set edit`.
type setFlags struct {
	weightKg float64
	reps     int
	rir      int
	warmup   bool
	backoff  bool
	dropset  bool
	failure  bool
	notes    string
}

func (f *setFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.weightKg, "weight", 0, "weight in kilograms")
	cmd.Flags().IntVar(&f.reps, "reps", 0, "repetitions performed")
	cmd.Flags().IntVar(&f.rir, "rir", 0, "reps in reserve")
	cmd.Flags().BoolVar(&f.warmup, "warmup", false, "mark as warmup set")
	cmd.Flags().BoolVar(&f.backoff, "backoff", false, "mark as backoff set")
	cmd.Flags().BoolVar(&f.dropset, "dropset", false, "mark as dropset")
	cmd.Flags().BoolVar(&f.failure, "failure", false, "mark as taken to failure")
	cmd.Flags().StringVar(&f.notes, "notes", "", "set notes")
}

// patch builds a SetPatch containing only the flags the user passed.
func (f *setFlags) patch(cmd *cobra.Command) workout.SetPatch {
	var p workout.SetPatch

	if cmd.Flags().Changed("weight") {
		p.WeightKg = &f.weightKg
	}

	if cmd.Flags().Changed("reps") {
		p.Reps = &f.reps
	}

	if cmd.Flags().Changed("rir") {
		p.RIR = &f.rir
	}

	if cmd.Flags().Changed("warmup") {
		p.IsWarmup = &f.warmup
	}

	if cmd.Flags().Changed("backoff") {
		p.IsBackoff = &f.backoff
	}

	if cmd.Flags().Changed("dropset") {
		p.IsDropset = &f.dropset
	}

	if cmd.Flags().Changed("failure") {
		p.IsFailure = &f.failure
	}

	if cmd.Flags().Changed("notes") {
		p.Notes = &f.notes
	}

	return p
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Log and edit sets in the active session",
	}

	cmd.AddCommand(newSetLogCmd())
	cmd.AddCommand(newSetEditCmd())
	cmd.AddCommand(newSetDeleteCmd())

	return cmd
}

func newSetLogCmd() *cobra.Command {
	var flags setFlags

	cmd := &cobra.Command{
		Use:   "log EXERCISE_ID",
		Short: "Log a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			set := workout.Set{
				WeightKg:  flags.weightKg,
				Reps:      flags.reps,
				IsWarmup:  flags.warmup,
				IsBackoff: flags.backoff,
				IsDropset: flags.dropset,
				IsFailure: flags.failure,
				Notes:     flags.notes,
			}

			if cmd.Flags().Changed("rir") {
				rir := flags.rir
				set.RIR = &rir
			}

			sess, err := app.tracker.LogSet(cmd.Context(), args[0], set)
			if err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			ex := sess.ExerciseByID(args[0])
			logged := ex.Sets[len(ex.Sets)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "Logged set %d: %s [%s]\n",
				logged.SetIndex+1, formatSet(logged), logged.ID)

			return nil
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("reps")

	return cmd
}

func newSetEditCmd() *cobra.Command {
	var flags setFlags

	cmd := &cobra.Command{
		Use:   "edit EXERCISE_ID SET_ID",
		Short: "Edit a logged set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.tracker.UpdateSet(cmd.Context(), args[0], args[1], flags.patch(cmd))
			if err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			updated := sess.ExerciseByID(args[0]).SetByID(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "Updated set %d: %s\n",
				updated.SetIndex+1, formatSet(*updated))

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newSetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete EXERCISE_ID SET_ID",
		Short: "Delete a logged set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.tracker.DeleteSet(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "Set deleted")

			return nil
		},
	}
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recent set edit in this run",
		Long: `Undo reverses the most recent set log, edit, or delete.

The undo history lives in memory for the duration of a run: it is
available to interactive sessions and embedding applications, and is
cleared when the session ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tracker.Undo(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Undone")

			return nil
		},
	}
}
