package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPatch_Apply(t *testing.T) {
	t.Parallel()

	sess := &Session{Title: "Push Day", Notes: "felt strong"}

	patch := SessionPatch{Title: strPtr("Pull Day")}
	assert.True(t, patch.Apply(sess))
	assert.Equal(t, "Pull Day", sess.Title)
	assert.Equal(t, "felt strong", sess.Notes, "unset field untouched")

	// Applying identical values reports no change.
	same := SessionPatch{Title: strPtr("Pull Day")}
	assert.False(t, same.Apply(sess))
}

func TestSetPatch_Apply(t *testing.T) {
	t.Parallel()

	set := &Set{WeightKg: 100, Reps: 5, IsWarmup: true}

	patch := SetPatch{
		WeightKg: f64Ptr(102.5),
		RIR:      intPtr(1),
		IsWarmup: boolPtr(false),
	}
	patch.Apply(set)

	assert.Equal(t, 102.5, set.WeightKg)
	assert.Equal(t, 5, set.Reps, "unset field untouched")
	require.NotNil(t, set.RIR)
	assert.Equal(t, 1, *set.RIR)
	assert.False(t, set.IsWarmup)
}

func TestRecompact(t *testing.T) {
	t.Parallel()

	sess := &Session{Exercises: []Exercise{
		{ID: "a", OrderIndex: 3},
		{ID: "b", OrderIndex: 7},
	}}

	sess.RecompactExercises()
	assert.Equal(t, 0, sess.Exercises[0].OrderIndex)
	assert.Equal(t, 1, sess.Exercises[1].OrderIndex)

	ex := &Exercise{Sets: []Set{{ID: "s1", SetIndex: 5}, {ID: "s2", SetIndex: 0}}}
	ex.RecompactSets()
	assert.Equal(t, 0, ex.Sets[0].SetIndex)
	assert.Equal(t, 1, ex.Sets[1].SetIndex)
}

func TestLookupHelpers(t *testing.T) {
	t.Parallel()

	sess := &Session{Exercises: []Exercise{
		{ID: "e1", Sets: []Set{{ID: "s1"}}},
	}}

	assert.NotNil(t, sess.ExerciseByID("e1"))
	assert.Nil(t, sess.ExerciseByID("missing"))
	assert.NotNil(t, sess.ExerciseByID("e1").SetByID("s1"))
	assert.Nil(t, sess.ExerciseByID("e1").SetByID("missing"))
}
