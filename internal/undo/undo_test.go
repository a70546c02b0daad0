package undo

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_LIFO(t *testing.T) {
	t.Parallel()

	s := NewStack(10, slog.Default())

	s.Push(SetLogged{ExerciseID: "e1", SetID: "s1"})
	s.Push(SetLogged{ExerciseID: "e1", SetID: "s2"})

	entry, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, SetLogged{ExerciseID: "e1", SetID: "s2"}, entry.Action)

	entry, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, SetLogged{ExerciseID: "e1", SetID: "s1"}, entry.Action)

	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestStack_BoundedEviction(t *testing.T) {
	t.Parallel()

	s := NewStack(10, slog.Default())

	for i := 0; i < 15; i++ {
		s.Push(SetLogged{ExerciseID: "e1", SetID: fmt.Sprintf("s%d", i)})
	}

	assert.Equal(t, 10, s.Len(), "capacity bounds the stack")

	// The five oldest entries were evicted; popping drains s14 down to s5.
	for i := 14; i >= 5; i-- {
		entry, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("s%d", i), entry.Action.(SetLogged).SetID)
	}

	_, ok := s.Pop()
	assert.False(t, ok)
}

func TestStack_PeekDoesNotRemove(t *testing.T) {
	t.Parallel()

	s := NewStack(0, nil) // zero capacity falls back to the default

	_, ok := s.Peek()
	assert.False(t, ok)

	s.Push(SetDeleted{ExerciseID: "e1", Index: 2})

	entry, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 2, entry.Action.(SetDeleted).Index)
	assert.Equal(t, 1, s.Len())
}

func TestStack_Clear(t *testing.T) {
	t.Parallel()

	s := NewStack(10, slog.Default())
	s.Push(SetLogged{ExerciseID: "e1", SetID: "s1"})
	s.Push(SetUpdated{ExerciseID: "e1"})

	assert.True(t, s.HasActions())

	s.Clear()

	assert.False(t, s.HasActions())
	_, ok := s.Pop()
	assert.False(t, ok)
}

func TestStack_EntryIdentity(t *testing.T) {
	t.Parallel()

	s := NewStack(10, slog.Default())
	s.Push(SetLogged{ExerciseID: "e1", SetID: "s1"})

	entry, ok := s.Pop()
	require.True(t, ok)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}
