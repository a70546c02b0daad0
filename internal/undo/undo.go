// Package undo holds a bounded, in-memory stack of reversible set edits.
// The stack is intentionally not persisted: it is cleared when the
// session ends and lost across restarts.
package undo

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlift/liftlog/internal/workout"
)

// DefaultCapacity is the number of most-recent actions kept undoable.
const DefaultCapacity = 10

// ErrNothingToUndo is returned when the stack is empty.
var ErrNothingToUndo = errors.New("undo: nothing to undo")

// Action is the sealed sum type of reversible edits. Each variant
// captures the pre-image needed to invert exactly one forward edit.
// The tracker's exhaustive switch over these variants is what applies
// the inverses.
type Action interface {
	sealedAction()
}

// SetLogged records that a set was appended. Inverse: remove the set.
type SetLogged struct {
	ExerciseID string
	SetID      string
}

// SetUpdated records a set's field values before a forward update.
// Inverse: restore Previous.
type SetUpdated struct {
	ExerciseID string
	Previous   workout.Set
}

// SetDeleted records a removed set and its original position. Inverse:
// reinsert at the captured index (clamped to current length).
type SetDeleted struct {
	ExerciseID string
	Set        workout.Set
	Index      int
}

func (SetLogged) sealedAction()  {}
func (SetUpdated) sealedAction() {}
func (SetDeleted) sealedAction() {}

// Entry is one stack element: an action plus bookkeeping identity.
type Entry struct {
	ID        string
	CreatedAt time.Time
	Action    Action
}

// Stack is a bounded LIFO of recent reversible edits. When capacity is
// exceeded the oldest entry is silently evicted, so it behaves as a ring
// of only the most recent N actions. Safe for concurrent use.
type Stack struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	logger   *slog.Logger
}

// NewStack creates a Stack with the given capacity. A capacity of zero
// or less falls back to DefaultCapacity.
func NewStack(capacity int, logger *slog.Logger) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Stack{capacity: capacity, logger: logger}
}

// Push appends an action, evicting the oldest entry beyond capacity.
func (s *Stack) Push(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Action:    action,
	})

	if len(s.entries) > s.capacity {
		evicted := len(s.entries) - s.capacity
		s.entries = append([]Entry(nil), s.entries[evicted:]...)

		s.logger.Debug("undo stack evicted oldest entries", slog.Int("evicted", evicted))
	}
}

// Pop removes and returns the most recent entry. The boolean is false
// when the stack is empty.
func (s *Stack) Pop() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Entry{}, false
	}

	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]

	return last, true
}

// Peek returns the most recent entry without removing it.
func (s *Stack) Peek() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Entry{}, false
	}

	return s.entries[len(s.entries)-1], true
}

// HasActions reports whether any action is undoable.
func (s *Stack) HasActions() bool {
	return s.Len() > 0
}

// Len returns the number of undoable actions.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Clear discards all entries. Invoked on session end.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
}
