package workout

import (
	"encoding/json"
	"fmt"
	"time"
)

// MutationKind identifies one of the nine remote operation kinds. The
// string values double as the outbox `kind` column.
type MutationKind string

// The closed set of mutation kinds. Adding a kind requires a new
// Mutation variant, a DecodeMutation case, and an api route — the
// exhaustive switches surface omissions at compile or decode time.
const (
	KindStartSession          MutationKind = "start-session"
	KindEndSession            MutationKind = "end-session"
	KindLogSet                MutationKind = "log-set"
	KindUpdateSet             MutationKind = "update-set"
	KindDeleteSet             MutationKind = "delete-set"
	KindAddExercise           MutationKind = "add-exercise"
	KindRemoveExercise        MutationKind = "remove-exercise"
	KindReorderExercises      MutationKind = "reorder-exercises"
	KindUpdateSessionMetadata MutationKind = "update-session-metadata"
)

// Mutation is the sealed sum type of remote operations. Exactly one
// struct implements it per MutationKind; the unexported method keeps the
// set closed to this package.
type Mutation interface {
	Kind() MutationKind
	sealedMutation()
}

// StartSession creates the remote session. It is the only mutation that
// carries no remote session id — the response assigns one.
type StartSession struct {
	StartedAt   time.Time `json:"started_at"`
	Title       string    `json:"title"`
	SplitID     string    `json:"split_id,omitempty"`
	TemplateID  string    `json:"template_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Constraints []string  `json:"constraints,omitempty"`
}

// EndSession closes the remote session.
type EndSession struct {
	SessionID string    `json:"session_id"`
	EndedAt   time.Time `json:"ended_at"`
	Notes     string    `json:"notes,omitempty"`
}

// LogSet records a new set under an exercise.
type LogSet struct {
	SessionID  string `json:"session_id"`
	ExerciseID string `json:"exercise_id"`
	Set        Set    `json:"set"`
}

// UpdateSet patches an existing set.
type UpdateSet struct {
	SessionID  string   `json:"session_id"`
	ExerciseID string   `json:"exercise_id"`
	SetID      string   `json:"set_id"`
	Patch      SetPatch `json:"patch"`
}

// DeleteSet removes a set.
type DeleteSet struct {
	SessionID  string `json:"session_id"`
	ExerciseID string `json:"exercise_id"`
	SetID      string `json:"set_id"`
}

// AddExercise appends an exercise to the session.
type AddExercise struct {
	SessionID string   `json:"session_id"`
	Exercise  Exercise `json:"exercise"`
}

// RemoveExercise removes an exercise and its sets.
type RemoveExercise struct {
	SessionID  string `json:"session_id"`
	ExerciseID string `json:"exercise_id"`
}

// ReorderExercises replaces the exercise ordering with the given full
// permutation of exercise ids.
type ReorderExercises struct {
	SessionID   string   `json:"session_id"`
	ExerciseIDs []string `json:"exercise_ids"`
}

// UpdateSessionMetadata patches session-level metadata.
type UpdateSessionMetadata struct {
	SessionID string       `json:"session_id"`
	Patch     SessionPatch `json:"patch"`
}

func (StartSession) Kind() MutationKind          { return KindStartSession }
func (EndSession) Kind() MutationKind            { return KindEndSession }
func (LogSet) Kind() MutationKind                { return KindLogSet }
func (UpdateSet) Kind() MutationKind             { return KindUpdateSet }
func (DeleteSet) Kind() MutationKind             { return KindDeleteSet }
func (AddExercise) Kind() MutationKind           { return KindAddExercise }
func (RemoveExercise) Kind() MutationKind        { return KindRemoveExercise }
func (ReorderExercises) Kind() MutationKind      { return KindReorderExercises }
func (UpdateSessionMetadata) Kind() MutationKind { return KindUpdateSessionMetadata }

func (StartSession) sealedMutation()          {}
func (EndSession) sealedMutation()            {}
func (LogSet) sealedMutation()                {}
func (UpdateSet) sealedMutation()             {}
func (DeleteSet) sealedMutation()             {}
func (AddExercise) sealedMutation()           {}
func (RemoveExercise) sealedMutation()        {}
func (ReorderExercises) sealedMutation()      {}
func (UpdateSessionMetadata) sealedMutation() {}

// EncodeMutation serializes a mutation to its outbox payload.
func EncodeMutation(m Mutation) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("workout: encoding %s mutation: %w", m.Kind(), err)
	}

	return b, nil
}

// DecodeMutation deserializes an outbox payload back into its typed
// variant. Unknown kinds are an error — the outbox never stores one.
func DecodeMutation(kind MutationKind, payload []byte) (Mutation, error) {
	var (
		m   Mutation
		err error
	)

	switch kind {
	case KindStartSession:
		m, err = decodeAs[StartSession](payload)
	case KindEndSession:
		m, err = decodeAs[EndSession](payload)
	case KindLogSet:
		m, err = decodeAs[LogSet](payload)
	case KindUpdateSet:
		m, err = decodeAs[UpdateSet](payload)
	case KindDeleteSet:
		m, err = decodeAs[DeleteSet](payload)
	case KindAddExercise:
		m, err = decodeAs[AddExercise](payload)
	case KindRemoveExercise:
		m, err = decodeAs[RemoveExercise](payload)
	case KindReorderExercises:
		m, err = decodeAs[ReorderExercises](payload)
	case KindUpdateSessionMetadata:
		m, err = decodeAs[UpdateSessionMetadata](payload)
	default:
		return nil, fmt.Errorf("workout: unknown mutation kind %q", kind)
	}

	if err != nil {
		return nil, fmt.Errorf("workout: decoding %s mutation: %w", kind, err)
	}

	return m, nil
}

// decodeAs unmarshals a payload into a concrete mutation variant.
func decodeAs[T Mutation](payload []byte) (Mutation, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}

	return v, nil
}
