package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlift/liftlog/internal/workout"
)

func newExerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exercise",
		Aliases: []string{"ex"},
		Short:   "Manage exercises in the active session",
	}

	cmd.AddCommand(newExerciseAddCmd())
	cmd.AddCommand(newExerciseRemoveCmd())
	cmd.AddCommand(newExerciseEditCmd())
	cmd.AddCommand(newExerciseReorderCmd())

	return cmd
}

func newExerciseAddCmd() *cobra.Command {
	var (
		catalogID string
		notes     string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.tracker.AddExercise(cmd.Context(), workout.Exercise{
				CatalogID: catalogID,
				Name:      args[0],
				Notes:     notes,
			})
			if err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			added := sess.Exercises[len(sess.Exercises)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s]\n", added.Name, added.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&catalogID, "catalog", "", "exercise catalog id")
	cmd.Flags().StringVar(&notes, "notes", "", "exercise notes")

	return cmd
}

func newExerciseRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove EXERCISE_ID",
		Short: "Remove an exercise and its sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.tracker.RemoveExercise(cmd.Context(), args[0]); err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "Exercise removed")

			return nil
		},
	}
}

func newExerciseEditCmd() *cobra.Command {
	var (
		name  string
		notes string
	)

	cmd := &cobra.Command{
		Use:   "edit EXERCISE_ID",
		Short: "Edit exercise name or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			var patch workout.ExercisePatch

			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}

			if cmd.Flags().Changed("notes") {
				patch.Notes = &notes
			}

			if _, err := app.tracker.UpdateExercise(cmd.Context(), args[0], patch); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Exercise updated")

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new exercise name")
	cmd.Flags().StringVar(&notes, "notes", "", "new exercise notes")

	return cmd
}

func newExerciseReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder EXERCISE_ID...",
		Short: "Reorder exercises (must list every exercise id exactly once)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.tracker.ReorderExercises(cmd.Context(), args); err != nil {
				return err
			}

			app.syncBestEffort(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "Exercises reordered")

			return nil
		},
	}
}
