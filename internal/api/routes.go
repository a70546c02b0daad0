package api

import (
	"fmt"
	"time"

	"github.com/openlift/liftlog/internal/workout"
)

// request is a fully-resolved remote call: method, path relative to the
// base URL, and the JSON body (nil for bodyless calls). Path parameters
// are substituted from the mutation's fields and excluded from the body.
type request struct {
	method string
	path   string
	body   any
}

// buildRequest maps a mutation to its remote endpoint. The switch is
// exhaustive over the sealed Mutation type: a new variant fails here at
// the default branch during tests rather than silently on the wire.
func buildRequest(m workout.Mutation) (request, error) {
	switch v := m.(type) {
	case workout.StartSession:
		return request{method: "POST", path: "/v1/sessions", body: startSessionBody(v)}, nil

	case workout.EndSession:
		return request{
			method: "POST",
			path:   fmt.Sprintf("/v1/sessions/%s/end", v.SessionID),
			body: struct {
				EndedAt time.Time `json:"ended_at"`
				Notes   string    `json:"notes,omitempty"`
			}{v.EndedAt, v.Notes},
		}, nil

	case workout.LogSet:
		return request{
			method: "POST",
			path:   fmt.Sprintf("/v1/sessions/%s/exercises/%s/sets", v.SessionID, v.ExerciseID),
			body: struct {
				Set workout.Set `json:"set"`
			}{v.Set},
		}, nil

	case workout.UpdateSet:
		return request{
			method: "PATCH",
			path:   fmt.Sprintf("/v1/sessions/%s/exercises/%s/sets/%s", v.SessionID, v.ExerciseID, v.SetID),
			body:   v.Patch,
		}, nil

	case workout.DeleteSet:
		return request{
			method: "DELETE",
			path:   fmt.Sprintf("/v1/sessions/%s/exercises/%s/sets/%s", v.SessionID, v.ExerciseID, v.SetID),
		}, nil

	case workout.AddExercise:
		return request{
			method: "POST",
			path:   fmt.Sprintf("/v1/sessions/%s/exercises", v.SessionID),
			body: struct {
				Exercise workout.Exercise `json:"exercise"`
			}{v.Exercise},
		}, nil

	case workout.RemoveExercise:
		return request{
			method: "DELETE",
			path:   fmt.Sprintf("/v1/sessions/%s/exercises/%s", v.SessionID, v.ExerciseID),
		}, nil

	case workout.ReorderExercises:
		return request{
			method: "PUT",
			path:   fmt.Sprintf("/v1/sessions/%s/exercises/order", v.SessionID),
			body: struct {
				ExerciseIDs []string `json:"exercise_ids"`
			}{v.ExerciseIDs},
		}, nil

	case workout.UpdateSessionMetadata:
		return request{
			method: "PATCH",
			path:   fmt.Sprintf("/v1/sessions/%s", v.SessionID),
			body:   v.Patch,
		}, nil

	default:
		return request{}, fmt.Errorf("api: no route for mutation kind %q", m.Kind())
	}
}

// startSessionBody is the create payload; it is the mutation itself
// since start-session carries no path parameters.
func startSessionBody(v workout.StartSession) any {
	return struct {
		StartedAt   time.Time `json:"started_at"`
		Title       string    `json:"title"`
		SplitID     string    `json:"split_id,omitempty"`
		TemplateID  string    `json:"template_id,omitempty"`
		Notes       string    `json:"notes,omitempty"`
		Constraints []string  `json:"constraints,omitempty"`
	}{v.StartedAt, v.Title, v.SplitID, v.TemplateID, v.Notes, v.Constraints}
}
