package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlift/liftlog/internal/workout"
)

func newTestOutbox(t *testing.T) *Outbox {
	t.Helper()

	return NewOutbox(newTestDB(t))
}

func TestOutbox_EnqueueListPendingOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	id1, err := outbox.Enqueue(ctx, workout.StartSession{Title: "Push Day", StartedAt: time.Now()})
	require.NoError(t, err)

	id2, err := outbox.Enqueue(ctx, workout.LogSet{SessionID: "r1", ExerciseID: "e1",
		Set: workout.Set{ID: "s1", WeightKg: 100, Reps: 5}})
	require.NoError(t, err)

	entries, err := outbox.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// FIFO by creation.
	assert.Equal(t, id1, entries[0].ID)
	assert.Equal(t, workout.KindStartSession, entries[0].Kind)
	assert.Equal(t, id2, entries[1].ID)
	assert.Equal(t, workout.KindLogSet, entries[1].Kind)

	// Payloads decode back to the typed mutation.
	logSet, ok := entries[1].Mutation.(workout.LogSet)
	require.True(t, ok)
	assert.Equal(t, 100.0, logSet.Set.WeightKg)
}

func TestOutbox_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	id, err := outbox.Enqueue(ctx, workout.EndSession{SessionID: "r1", EndedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, outbox.MarkProcessing(ctx, id))

	// A processing entry is no longer pending.
	pending, err := outbox.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// MarkProcessing is pending-only.
	require.Error(t, outbox.MarkProcessing(ctx, id))

	require.NoError(t, outbox.MarkFailed(ctx, id, "boom"))

	all, err := outbox.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusFailed, all[0].Status)
	assert.Equal(t, 1, all[0].RetryCount)
	assert.Equal(t, "boom", all[0].LastError)
}

func TestOutbox_RetryKeepsQueuePosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	first, err := outbox.Enqueue(ctx, workout.DeleteSet{SessionID: "r1", ExerciseID: "e1", SetID: "s1"})
	require.NoError(t, err)

	second, err := outbox.Enqueue(ctx, workout.DeleteSet{SessionID: "r1", ExerciseID: "e1", SetID: "s2"})
	require.NoError(t, err)

	require.NoError(t, outbox.MarkProcessing(ctx, first))
	require.NoError(t, outbox.MarkFailed(ctx, first, "rejected"))
	require.NoError(t, outbox.Retry(ctx, first))

	entries, err := outbox.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Retry preserves created_at, so the entry keeps its place in line.
	assert.Equal(t, first, entries[0].ID)
	assert.Equal(t, second, entries[1].ID)
	assert.Empty(t, entries[0].LastError, "retry clears the recorded error")
	assert.Equal(t, 1, entries[0].RetryCount, "retry count persists across retries")
}

func TestOutbox_RetryRequiresFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	id, err := outbox.Enqueue(ctx, workout.RemoveExercise{SessionID: "r1", ExerciseID: "e1"})
	require.NoError(t, err)

	require.Error(t, outbox.Retry(ctx, id), "pending entries cannot be retried")
}

func TestOutbox_RemoveIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	id, err := outbox.Enqueue(ctx, workout.AddExercise{SessionID: "r1",
		Exercise: workout.Exercise{ID: "e1", Name: "Bench"}})
	require.NoError(t, err)

	require.NoError(t, outbox.Remove(ctx, id))
	require.NoError(t, outbox.Remove(ctx, id), "second remove is a no-op")

	count, err := outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOutbox_ResetStuckProcessing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	id1, err := outbox.Enqueue(ctx, workout.ReorderExercises{SessionID: "r1", ExerciseIDs: []string{"e1"}})
	require.NoError(t, err)

	id2, err := outbox.Enqueue(ctx, workout.UpdateSet{SessionID: "r1", ExerciseID: "e1", SetID: "s1"})
	require.NoError(t, err)

	require.NoError(t, outbox.MarkProcessing(ctx, id1))

	// Simulates a crash mid-drain: the claimed entry must come back.
	n, err := outbox.ResetStuckProcessing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := outbox.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, id1, entries[0].ID, "reclaimed entry keeps its position")
	assert.Equal(t, id2, entries[1].ID)
}

func TestOutbox_MaxRetryCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := newTestOutbox(t)

	maxRetries, err := outbox.MaxRetryCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, maxRetries, "empty outbox")

	id, err := outbox.Enqueue(ctx, workout.UpdateSessionMetadata{SessionID: "r1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, outbox.MarkProcessing(ctx, id))
		require.NoError(t, outbox.MarkFailed(ctx, id, "rejected"))
		require.NoError(t, outbox.Retry(ctx, id))
	}

	maxRetries, err = outbox.MaxRetryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, maxRetries)
}
