package workout

import "errors"

// Domain errors for local invariant violations. These are synchronous,
// never retried, and surfaced directly to the caller.
// Use errors.Is(err, workout.ErrNoActiveSession) to check.
var (
	ErrSessionActive    = errors.New("workout: a session is already active")
	ErrNoActiveSession  = errors.New("workout: no active session")
	ErrExerciseNotFound = errors.New("workout: exercise not found")
	ErrSetNotFound      = errors.New("workout: set not found")
	ErrReorderMismatch  = errors.New("workout: reorder ids do not match existing exercises")
)
