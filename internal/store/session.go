package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openlift/liftlog/internal/workout"
)

// SQL statements for the singleton session record.
const (
	sqlGetSession = `SELECT version, document FROM session WHERE id = ?`

	sqlInsertSession = `INSERT INTO session (id, version, document, started_at, updated_at)
		VALUES (?, 0, ?, ?, ?)`

	sqlUpdateSession = `UPDATE session
		SET document = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	sqlDeleteSession = `DELETE FROM session WHERE id = ?`
)

// casMaxAttempts bounds the optimistic-write retry loop. With the
// in-process mutex serializing writers this should never be exceeded;
// it guards against a second process sharing the database file.
const casMaxAttempts = 3

// SessionStore owns the singleton session record. Every mutating call is
// an atomic read-modify-write of the entire record: an in-process mutex
// serializes writers and a version counter (compare-and-swap on update)
// rejects stale writes, so interleaved edits can never clobber each other.
type SessionStore struct {
	db     *sql.DB
	logger *slog.Logger

	// writeMu serializes read-modify-write cycles within this process.
	writeMu sync.Mutex
}

// NewSessionStore creates a SessionStore over the shared database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db.db, logger: db.logger}
}

// Start creates the singleton session with an empty exercise list.
// Fails with workout.ErrSessionActive when a session already exists.
func (s *SessionStore) Start(ctx context.Context, opts workout.StartOptions) (*workout.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now()
	sess := &workout.Session{
		ID:          workout.SessionID,
		StartedAt:   now,
		SplitID:     opts.SplitID,
		TemplateID:  opts.TemplateID,
		Title:       opts.Title,
		Notes:       opts.Notes,
		Constraints: opts.Constraints,
		Exercises:   []workout.Exercise{},
		UpdatedAt:   now,
	}

	doc, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("store: encoding session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, sqlInsertSession,
		workout.SessionID, string(doc), now.UnixNano(), now.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, workout.ErrSessionActive
		}

		return nil, fmt.Errorf("store: inserting session: %w", err)
	}

	s.logger.Info("session started", slog.String("title", opts.Title))

	return sess, nil
}

// End deletes the session record. The caller is responsible for having
// already enqueued any session-closing mutation.
func (s *SessionStore) End(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, sqlDeleteSession, workout.SessionID)
	if err != nil {
		return fmt.Errorf("store: deleting session: %w", err)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("store: deleting session rows affected: %w", rowsErr)
	}

	if affected == 0 {
		return workout.ErrNoActiveSession
	}

	s.logger.Info("session ended")

	return nil
}

// Get returns the active session, or workout.ErrNoActiveSession.
func (s *SessionStore) Get(ctx context.Context) (*workout.Session, error) {
	sess, _, err := s.read(ctx)
	return sess, err
}

// read loads the session document and its current version.
func (s *SessionStore) read(ctx context.Context) (*workout.Session, int64, error) {
	var (
		version int64
		doc     string
	)

	err := s.db.QueryRowContext(ctx, sqlGetSession, workout.SessionID).Scan(&version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, workout.ErrNoActiveSession
	}

	if err != nil {
		return nil, 0, fmt.Errorf("store: reading session: %w", err)
	}

	sess := &workout.Session{}
	if err := json.Unmarshal([]byte(doc), sess); err != nil {
		return nil, 0, fmt.Errorf("store: decoding session document: %w", err)
	}

	return sess, version, nil
}

// mutate applies fn to the whole session record and writes it back.
// The version guard on the UPDATE rejects writes based on stale reads;
// on conflict the read-modify-write is retried from scratch.
func (s *SessionStore) mutate(ctx context.Context, fn func(*workout.Session) error) (*workout.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		sess, version, err := s.read(ctx)
		if err != nil {
			return nil, err
		}

		if err := fn(sess); err != nil {
			return nil, err
		}

		now := time.Now()
		sess.UpdatedAt = now

		doc, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("store: encoding session: %w", err)
		}

		result, err := s.db.ExecContext(ctx, sqlUpdateSession,
			string(doc), now.UnixNano(), workout.SessionID, version)
		if err != nil {
			return nil, fmt.Errorf("store: updating session: %w", err)
		}

		affected, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			return nil, fmt.Errorf("store: updating session rows affected: %w", rowsErr)
		}

		if affected == 1 {
			return sess, nil
		}

		s.logger.Warn("session version conflict, retrying mutation",
			slog.Int64("stale_version", version),
			slog.Int("attempt", attempt+1),
		)
	}

	return nil, fmt.Errorf("store: session mutation failed after %d version conflicts", casMaxAttempts)
}

// SetRemoteID records the remote session identity assigned by the
// start-session acknowledgement.
func (s *SessionStore) SetRemoteID(ctx context.Context, remoteID string) error {
	_, err := s.mutate(ctx, func(sess *workout.Session) error {
		sess.RemoteID = remoteID
		return nil
	})

	if err == nil {
		s.logger.Info("remote session bound", slog.String("remote_id", remoteID))
	}

	return err
}

// UpdateMetadata merges a session-level patch.
func (s *SessionStore) UpdateMetadata(ctx context.Context, patch workout.SessionPatch) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		patch.Apply(sess)
		return nil
	})
}

// AddExercise appends an exercise with OrderIndex = current length.
func (s *SessionStore) AddExercise(ctx context.Context, ex workout.Exercise) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		ex.OrderIndex = len(sess.Exercises)
		if ex.Sets == nil {
			ex.Sets = []workout.Set{}
		}

		sess.Exercises = append(sess.Exercises, ex)

		return nil
	})
}

// RemoveExercise removes the exercise and recompacts OrderIndex to a
// dense 0..n-1 sequence, preserving relative order.
func (s *SessionStore) RemoveExercise(ctx context.Context, exerciseID string) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		idx := -1
		for i := range sess.Exercises {
			if sess.Exercises[i].ID == exerciseID {
				idx = i
				break
			}
		}

		if idx < 0 {
			return workout.ErrExerciseNotFound
		}

		sess.Exercises = append(sess.Exercises[:idx], sess.Exercises[idx+1:]...)
		sess.RecompactExercises()

		return nil
	})
}

// UpdateExercise merges a patch into the exercise.
func (s *SessionStore) UpdateExercise(ctx context.Context, exerciseID string, patch workout.ExercisePatch) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		ex := sess.ExerciseByID(exerciseID)
		if ex == nil {
			return workout.ErrExerciseNotFound
		}

		patch.Apply(ex)

		return nil
	})
}

// ReorderExercises reassigns ordering from a full permutation of the
// existing exercise ids. Fails workout.ErrReorderMismatch when the id
// set does not match exactly.
func (s *SessionStore) ReorderExercises(ctx context.Context, orderedIDs []string) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		if len(orderedIDs) != len(sess.Exercises) {
			return workout.ErrReorderMismatch
		}

		byID := make(map[string]workout.Exercise, len(sess.Exercises))
		for _, ex := range sess.Exercises {
			byID[ex.ID] = ex
		}

		reordered := make([]workout.Exercise, 0, len(orderedIDs))

		for _, id := range orderedIDs {
			ex, ok := byID[id]
			if !ok {
				return workout.ErrReorderMismatch
			}

			delete(byID, id) // reject duplicate ids in the permutation
			reordered = append(reordered, ex)
		}

		sess.Exercises = reordered
		sess.RecompactExercises()

		return nil
	})
}

// AddSet appends a set to the exercise with SetIndex = current length.
func (s *SessionStore) AddSet(ctx context.Context, exerciseID string, set workout.Set) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		ex := sess.ExerciseByID(exerciseID)
		if ex == nil {
			return workout.ErrExerciseNotFound
		}

		set.SetIndex = len(ex.Sets)
		ex.Sets = append(ex.Sets, set)

		return nil
	})
}

// InsertSetAt reinserts a set at the given index, clamped to the current
// set list length, then recompacts SetIndex. Used by undo of a deletion.
func (s *SessionStore) InsertSetAt(ctx context.Context, exerciseID string, set workout.Set, index int) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		ex := sess.ExerciseByID(exerciseID)
		if ex == nil {
			return workout.ErrExerciseNotFound
		}

		if index < 0 {
			index = 0
		}

		if index > len(ex.Sets) {
			index = len(ex.Sets)
		}

		ex.Sets = append(ex.Sets, workout.Set{})
		copy(ex.Sets[index+1:], ex.Sets[index:])
		ex.Sets[index] = set
		ex.RecompactSets()

		return nil
	})
}

// UpdateSet merges a patch into the set. The returned pre-image is the
// set's field values immediately before this patch applied, captured
// inside the serialized read-modify-write so concurrent updates each see
// the true prior state.
func (s *SessionStore) UpdateSet(ctx context.Context, exerciseID, setID string, patch workout.SetPatch) (*workout.Session, workout.Set, error) {
	var previous workout.Set

	sess, err := s.mutate(ctx, func(sess *workout.Session) error {
		set, err := findSet(sess, exerciseID, setID)
		if err != nil {
			return err
		}

		previous = *set
		patch.Apply(set)

		return nil
	})
	if err != nil {
		return nil, workout.Set{}, err
	}

	return sess, previous, nil
}

// RestoreSet replaces a set's fields wholesale with a captured pre-image,
// keeping its current position. Used by undo of an update.
func (s *SessionStore) RestoreSet(ctx context.Context, exerciseID string, previous workout.Set) (*workout.Session, error) {
	return s.mutate(ctx, func(sess *workout.Session) error {
		set, err := findSet(sess, exerciseID, previous.ID)
		if err != nil {
			return err
		}

		index := set.SetIndex
		*set = previous
		set.SetIndex = index

		return nil
	})
}

// RemoveSet removes the set and recompacts SetIndex. The returned copy
// of the removed set carries its position at removal time in SetIndex,
// captured inside the serialized read-modify-write.
func (s *SessionStore) RemoveSet(ctx context.Context, exerciseID, setID string) (*workout.Session, workout.Set, error) {
	var removed workout.Set

	sess, err := s.mutate(ctx, func(sess *workout.Session) error {
		ex := sess.ExerciseByID(exerciseID)
		if ex == nil {
			return workout.ErrExerciseNotFound
		}

		idx := -1
		for i := range ex.Sets {
			if ex.Sets[i].ID == setID {
				idx = i
				break
			}
		}

		if idx < 0 {
			return workout.ErrSetNotFound
		}

		removed = ex.Sets[idx]
		ex.Sets = append(ex.Sets[:idx], ex.Sets[idx+1:]...)
		ex.RecompactSets()

		return nil
	})
	if err != nil {
		return nil, workout.Set{}, err
	}

	return sess, removed, nil
}

// findSet locates a set within the session, mapping missing parents to
// the matching domain error.
func findSet(sess *workout.Session, exerciseID, setID string) (*workout.Set, error) {
	ex := sess.ExerciseByID(exerciseID)
	if ex == nil {
		return nil, workout.ErrExerciseNotFound
	}

	set := ex.SetByID(setID)
	if set == nil {
		return nil, workout.ErrSetNotFound
	}

	return set, nil
}

// isUniqueViolation reports whether err is a primary-key conflict.
// The modernc driver surfaces SQLITE_CONSTRAINT in the error text; the
// session table's only constraint is its primary key.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
