// Package tracker is the orchestration layer behind the consumer
// adapter surface: it applies edits to the session store, captures undo
// pre-images, and enqueues the matching remote mutations for the sync
// engine to drain.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlift/liftlog/internal/store"
	"github.com/openlift/liftlog/internal/undo"
	"github.com/openlift/liftlog/internal/workout"
)

// Notifier wakes the sync engine after an enqueue. Satisfied by
// *engine.Engine.
type Notifier interface {
	NotifyEnqueued(ctx context.Context)
}

// Tracker coordinates the session store, the mutation outbox, and the
// undo stack. All methods are safe for concurrent use; the store
// serializes the underlying record mutations, and editMu serializes the
// operations that pair a record mutation with an undo stack change so
// stack order always matches apply order.
type Tracker struct {
	sessions *store.SessionStore
	outbox   *store.Outbox
	undo     *undo.Stack
	notifier Notifier
	logger   *slog.Logger

	// editMu covers store-write + undo-push/pop pairs.
	editMu sync.Mutex
}

// New creates a Tracker. notifier may be nil (e.g. in tests without a
// running engine).
func New(
	sessions *store.SessionStore,
	outbox *store.Outbox,
	undoStack *undo.Stack,
	notifier Notifier,
	logger *slog.Logger,
) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		sessions: sessions,
		outbox:   outbox,
		undo:     undoStack,
		notifier: notifier,
		logger:   logger,
	}
}

// StartSession creates the local session and enqueues the start-session
// mutation. start-session is the identity-creating operation, so it is
// the one mutation enqueued before a remote session id exists.
func (t *Tracker) StartSession(ctx context.Context, opts workout.StartOptions) (*workout.Session, error) {
	sess, err := t.sessions.Start(ctx, opts)
	if err != nil {
		return nil, err
	}

	t.enqueue(ctx, workout.StartSession{
		StartedAt:   sess.StartedAt,
		Title:       sess.Title,
		SplitID:     sess.SplitID,
		TemplateID:  sess.TemplateID,
		Notes:       sess.Notes,
		Constraints: sess.Constraints,
	})

	return sess, nil
}

// EndSession deletes the local record, enqueues the session-closing
// mutation, and clears the undo stack. The delete's existence check is
// the serialization point: of two racing calls only the one whose delete
// succeeds enqueues, so the service never sees a duplicate end-session.
// The outbox is untouched and keeps draining independently.
func (t *Tracker) EndSession(ctx context.Context) error {
	t.editMu.Lock()
	defer t.editMu.Unlock()

	sess, err := t.sessions.Get(ctx)
	if err != nil {
		return err
	}

	if err := t.sessions.End(ctx); err != nil {
		return err
	}

	if sess.RemoteID != "" {
		t.enqueue(ctx, workout.EndSession{
			SessionID: sess.RemoteID,
			EndedAt:   time.Now(),
			Notes:     sess.Notes,
		})
	}

	t.undo.Clear()

	return nil
}

// Session returns the active session.
func (t *Tracker) Session(ctx context.Context) (*workout.Session, error) {
	return t.sessions.Get(ctx)
}

// AddExercise appends an exercise. A missing local id is assigned here
// so callers can pass catalog data directly.
func (t *Tracker) AddExercise(ctx context.Context, ex workout.Exercise) (*workout.Session, error) {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}

	sess, err := t.sessions.AddExercise(ctx, ex)
	if err != nil {
		return nil, err
	}

	if sess.RemoteID != "" {
		added := sess.ExerciseByID(ex.ID)
		t.enqueue(ctx, workout.AddExercise{SessionID: sess.RemoteID, Exercise: *added})
	}

	return sess, nil
}

// RemoveExercise removes an exercise and recompacts ordering.
func (t *Tracker) RemoveExercise(ctx context.Context, exerciseID string) (*workout.Session, error) {
	sess, err := t.sessions.RemoveExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	if sess.RemoteID != "" {
		t.enqueue(ctx, workout.RemoveExercise{SessionID: sess.RemoteID, ExerciseID: exerciseID})
	}

	return sess, nil
}

// UpdateExercise merges a patch into an exercise. The remote service has
// no dedicated exercise-patch endpoint; metadata rides on the add/remove
// stream, so this is a local-only edit.
func (t *Tracker) UpdateExercise(ctx context.Context, exerciseID string, patch workout.ExercisePatch) (*workout.Session, error) {
	return t.sessions.UpdateExercise(ctx, exerciseID, patch)
}

// ReorderExercises applies a full permutation of exercise ids.
func (t *Tracker) ReorderExercises(ctx context.Context, orderedIDs []string) (*workout.Session, error) {
	sess, err := t.sessions.ReorderExercises(ctx, orderedIDs)
	if err != nil {
		return nil, err
	}

	if sess.RemoteID != "" {
		t.enqueue(ctx, workout.ReorderExercises{SessionID: sess.RemoteID, ExerciseIDs: orderedIDs})
	}

	return sess, nil
}

// LogSet appends a set, pushes its undo action, and enqueues the log-set
// mutation.
func (t *Tracker) LogSet(ctx context.Context, exerciseID string, set workout.Set) (*workout.Session, error) {
	t.editMu.Lock()
	defer t.editMu.Unlock()

	if set.ID == "" {
		set.ID = uuid.NewString()
	}

	if set.LoggedAt.IsZero() {
		set.LoggedAt = time.Now()
	}

	sess, err := t.sessions.AddSet(ctx, exerciseID, set)
	if err != nil {
		return nil, err
	}

	t.undo.Push(undo.SetLogged{ExerciseID: exerciseID, SetID: set.ID})

	if sess.RemoteID != "" {
		ex := sess.ExerciseByID(exerciseID)
		logged := ex.SetByID(set.ID)
		t.enqueue(ctx, workout.LogSet{SessionID: sess.RemoteID, ExerciseID: exerciseID, Set: *logged})
	}

	return sess, nil
}

// UpdateSet patches a set. The undo pre-image is captured by the store
// inside its serialized read-modify-write, so racing updates to the same
// set each record the true prior values rather than a shared stale read.
func (t *Tracker) UpdateSet(ctx context.Context, exerciseID, setID string, patch workout.SetPatch) (*workout.Session, error) {
	t.editMu.Lock()
	defer t.editMu.Unlock()

	sess, previous, err := t.sessions.UpdateSet(ctx, exerciseID, setID, patch)
	if err != nil {
		return nil, err
	}

	t.undo.Push(undo.SetUpdated{ExerciseID: exerciseID, Previous: previous})

	if sess.RemoteID != "" {
		t.enqueue(ctx, workout.UpdateSet{
			SessionID:  sess.RemoteID,
			ExerciseID: exerciseID,
			SetID:      setID,
			Patch:      patch,
		})
	}

	return sess, nil
}

// DeleteSet removes a set. The removed set and its position come back
// from the store's serialized read-modify-write, so the undo action
// always reinserts exactly what was removed.
func (t *Tracker) DeleteSet(ctx context.Context, exerciseID, setID string) (*workout.Session, error) {
	t.editMu.Lock()
	defer t.editMu.Unlock()

	sess, removed, err := t.sessions.RemoveSet(ctx, exerciseID, setID)
	if err != nil {
		return nil, err
	}

	t.undo.Push(undo.SetDeleted{ExerciseID: exerciseID, Set: removed, Index: removed.SetIndex})

	if sess.RemoteID != "" {
		t.enqueue(ctx, workout.DeleteSet{
			SessionID:  sess.RemoteID,
			ExerciseID: exerciseID,
			SetID:      setID,
		})
	}

	return sess, nil
}

// UpdateMetadata patches session-level fields.
func (t *Tracker) UpdateMetadata(ctx context.Context, patch workout.SessionPatch) (*workout.Session, error) {
	sess, err := t.sessions.UpdateMetadata(ctx, patch)
	if err != nil {
		return nil, err
	}

	if sess.RemoteID != "" {
		t.enqueue(ctx, workout.UpdateSessionMetadata{SessionID: sess.RemoteID, Patch: patch})
	}

	return sess, nil
}

// CanUndo reports whether an action is undoable.
func (t *Tracker) CanUndo() bool {
	return t.undo.HasActions()
}

// Undo pops the most recent action and applies its inverse to the local
// store. It deliberately does not enqueue a compensating remote
// mutation: undoing an already-acknowledged edit leaves local and remote
// state divergent (see DESIGN.md).
func (t *Tracker) Undo(ctx context.Context) error {
	t.editMu.Lock()
	defer t.editMu.Unlock()

	entry, ok := t.undo.Pop()
	if !ok {
		return undo.ErrNothingToUndo
	}

	switch action := entry.Action.(type) {
	case undo.SetLogged:
		_, _, err := t.sessions.RemoveSet(ctx, action.ExerciseID, action.SetID)
		return err

	case undo.SetUpdated:
		_, err := t.sessions.RestoreSet(ctx, action.ExerciseID, action.Previous)
		return err

	case undo.SetDeleted:
		_, err := t.sessions.InsertSetAt(ctx, action.ExerciseID, action.Set, action.Index)
		return err

	default:
		// Unreachable: Action is sealed to the three variants above.
		return undo.ErrNothingToUndo
	}
}

// enqueue appends a mutation to the outbox and wakes the engine.
// Enqueue failures are logged, never propagated: the local edit already
// succeeded and must not be rolled back by sync bookkeeping.
func (t *Tracker) enqueue(ctx context.Context, m workout.Mutation) {
	id, err := t.outbox.Enqueue(ctx, m)
	if err != nil {
		t.logger.Error("enqueueing mutation",
			slog.String("kind", string(m.Kind())),
			slog.String("error", err.Error()),
		)

		return
	}

	t.logger.Debug("mutation queued for sync",
		slog.Int64("id", id),
		slog.String("kind", string(m.Kind())),
	)

	if t.notifier != nil {
		t.notifier.NotifyEnqueued(ctx)
	}
}
