package fsm

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string

const (
	stateA state = "A"
	stateB state = "B"
	stateC state = "C"
)

type subject struct{ blocked bool }

func newTestMachine(guard Guard[state, *subject]) *Machine[state, *subject] {
	table := Table[state]{
		stateA: {stateB},
		stateB: {stateC},
	}
	return New("Widget", table, guard)
}

func TestTransition_Declared(t *testing.T) {
	m := newTestMachine(nil)

	require.NoError(t, m.Transition(context.Background(), &subject{}, stateA, stateB))
	require.NoError(t, m.Transition(context.Background(), &subject{}, stateB, stateC))
}

func TestTransition_Undeclared(t *testing.T) {
	m := newTestMachine(nil)

	pairs := []struct{ from, to state }{
		{stateA, stateC},
		{stateB, stateA},
		{stateC, stateA},
		{stateC, stateB},
		{stateA, stateA},
	}
	for _, p := range pairs {
		err := m.Transition(context.Background(), &subject{}, p.from, p.to)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr, "%s -> %s", p.from, p.to)
		assert.Equal(t, string(p.from), terr.From)
		assert.Equal(t, string(p.to), terr.To)
		assert.Equal(t, "Widget", terr.Machine)
	}
}

func TestTransition_GuardVeto(t *testing.T) {
	m := newTestMachine(func(_ context.Context, s *subject, _, _ state) (bool, error) {
		return !s.blocked, nil
	})

	require.NoError(t, m.Transition(context.Background(), &subject{}, stateA, stateB))

	err := m.Transition(context.Background(), &subject{blocked: true}, stateA, stateB)
	var verr *VetoError
	require.ErrorAs(t, err, &verr)
}

func TestTransition_GuardError(t *testing.T) {
	guardErr := errors.New("guard exploded")
	m := newTestMachine(func(_ context.Context, _ *subject, _, _ state) (bool, error) {
		return false, guardErr
	})

	err := m.Transition(context.Background(), &subject{}, stateA, stateB)
	require.ErrorIs(t, err, guardErr)
}

func TestCanAndAllowed(t *testing.T) {
	m := newTestMachine(nil)

	assert.True(t, m.Can(stateA, stateB))
	assert.False(t, m.Can(stateA, stateC))
	assert.Equal(t, []state{stateB}, m.Allowed(stateA))
	assert.Empty(t, m.Allowed(stateC))
}
