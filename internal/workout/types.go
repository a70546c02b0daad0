// Package workout defines the domain model for an in-progress training
// session: the session record itself, its ordered exercises and sets, the
// closed set of remote mutations, and the domain errors shared by the
// store, tracker, and sync engine.
package workout

import (
	"time"
)

// SessionID is the fixed key of the singleton local session record.
// At most one session exists locally at any time.
const SessionID = "active"

// Session is the single in-progress workout held locally. RemoteID is
// empty until the remote service acknowledges the start-session mutation.
type Session struct {
	ID          string     `json:"id"`
	RemoteID    string     `json:"remote_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	SplitID     string     `json:"split_id,omitempty"`
	TemplateID  string     `json:"template_id,omitempty"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Constraints []string   `json:"constraints,omitempty"`
	Exercises   []Exercise `json:"exercises"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Exercise is one movement within a session. ID is a client-generated
// stable identifier; OrderIndex is dense (0..n-1) and recompacted on
// every add, remove, and reorder.
type Exercise struct {
	ID         string `json:"id"`
	CatalogID  string `json:"catalog_id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"order_index"`
	Notes      string `json:"notes,omitempty"`
	Sets       []Set  `json:"sets"`
}

// Set is one logged set within an exercise. SetIndex is dense (0..m-1)
// within its exercise. RIR (reps in reserve) is the optional effort
// rating; nil means not recorded.
type Set struct {
	ID        string    `json:"id"`
	SetIndex  int       `json:"set_index"`
	WeightKg  float64   `json:"weight_kg"`
	Reps      int       `json:"reps"`
	RIR       *int      `json:"rir,omitempty"`
	IsWarmup  bool      `json:"is_warmup"`
	IsBackoff bool      `json:"is_backoff"`
	IsDropset bool      `json:"is_dropset"`
	IsFailure bool      `json:"is_failure"`
	Notes     string    `json:"notes,omitempty"`
	LoggedAt  time.Time `json:"logged_at"`
}

// StartOptions carries the caller-supplied fields for a new session.
type StartOptions struct {
	Title       string
	SplitID     string
	TemplateID  string
	Notes       string
	Constraints []string
}

// SessionPatch is a partial update of session metadata. Nil fields are
// left unchanged.
type SessionPatch struct {
	Title       *string   `json:"title,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	Constraints *[]string `json:"constraints,omitempty"`
}

// ExercisePatch is a partial update of one exercise. Nil fields are left
// unchanged.
type ExercisePatch struct {
	Name  *string `json:"name,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// SetPatch is a partial update of one set. Nil fields are left unchanged.
type SetPatch struct {
	WeightKg  *float64 `json:"weight_kg,omitempty"`
	Reps      *int     `json:"reps,omitempty"`
	RIR       *int     `json:"rir,omitempty"`
	IsWarmup  *bool    `json:"is_warmup,omitempty"`
	IsBackoff *bool    `json:"is_backoff,omitempty"`
	IsDropset *bool    `json:"is_dropset,omitempty"`
	IsFailure *bool    `json:"is_failure,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// Apply merges the patch into the session in place and returns whether
// any field changed.
func (p *SessionPatch) Apply(s *Session) bool {
	changed := false

	if p.Title != nil && *p.Title != s.Title {
		s.Title = *p.Title
		changed = true
	}

	if p.Notes != nil && *p.Notes != s.Notes {
		s.Notes = *p.Notes
		changed = true
	}

	if p.Constraints != nil {
		s.Constraints = append([]string(nil), (*p.Constraints)...)
		changed = true
	}

	return changed
}

// Apply merges the patch into the exercise in place.
func (p *ExercisePatch) Apply(e *Exercise) {
	if p.Name != nil {
		e.Name = *p.Name
	}

	if p.Notes != nil {
		e.Notes = *p.Notes
	}
}

// Apply merges the patch into the set in place.
func (p *SetPatch) Apply(s *Set) {
	if p.WeightKg != nil {
		s.WeightKg = *p.WeightKg
	}

	if p.Reps != nil {
		s.Reps = *p.Reps
	}

	if p.RIR != nil {
		rir := *p.RIR
		s.RIR = &rir
	}

	if p.IsWarmup != nil {
		s.IsWarmup = *p.IsWarmup
	}

	if p.IsBackoff != nil {
		s.IsBackoff = *p.IsBackoff
	}

	if p.IsDropset != nil {
		s.IsDropset = *p.IsDropset
	}

	if p.IsFailure != nil {
		s.IsFailure = *p.IsFailure
	}

	if p.Notes != nil {
		s.Notes = *p.Notes
	}
}

// ExerciseByID returns a pointer into the session's exercise slice, or
// nil when no exercise has the given id.
func (s *Session) ExerciseByID(id string) *Exercise {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			return &s.Exercises[i]
		}
	}

	return nil
}

// SetByID returns a pointer into the exercise's set slice, or nil when
// no set has the given id.
func (e *Exercise) SetByID(id string) *Set {
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			return &e.Sets[i]
		}
	}

	return nil
}

// RecompactExercises reassigns OrderIndex to the dense sequence 0..n-1,
// preserving the current slice order.
func (s *Session) RecompactExercises() {
	for i := range s.Exercises {
		s.Exercises[i].OrderIndex = i
	}
}

// RecompactSets reassigns SetIndex to the dense sequence 0..m-1,
// preserving the current slice order.
func (e *Exercise) RecompactSets() {
	for i := range e.Sets {
		e.Sets[i].SetIndex = i
	}
}
