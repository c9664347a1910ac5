// Package fsm provides a small transition-table state machine used by the
// order, payment and refund lifecycles. Only explicitly declared transitions
// are legal; an optional guard runs before a transition commits and can veto
// it, leaving the subject in its prior state.
package fsm

import "context"

// Table declares the legal transitions: each state maps to the set of states
// reachable from it. States absent from the table have no outgoing
// transitions (terminal).
type Table[S ~string] map[S][]S

// Guard runs before a transition commits. Returning false or an error vetoes
// the transition; the caller must then leave the subject's state untouched
// and publish no event.
type Guard[S ~string, T any] func(ctx context.Context, subject T, from, to S) (bool, error)

// Machine validates transitions for one entity kind against its table.
type Machine[S ~string, T any] struct {
	name  string
	table Table[S]
	guard Guard[S, T]
}

// New creates a machine named for its entity kind (used in error messages).
// guard may be nil.
func New[S ~string, T any](name string, table Table[S], guard Guard[S, T]) *Machine[S, T] {
	return &Machine[S, T]{name: name, table: table, guard: guard}
}

// Can reports whether from -> to is a declared transition.
func (m *Machine[S, T]) Can(from, to S) bool {
	for _, s := range m.table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Allowed returns the states reachable from the given state.
func (m *Machine[S, T]) Allowed(from S) []S {
	allowed := m.table[from]
	out := make([]S, len(allowed))
	copy(out, allowed)
	return out
}

// Transition validates from -> to and runs the guard. On success the caller
// applies the new state and publishes exactly one state-transition event; on
// error the subject must remain in its prior state.
func (m *Machine[S, T]) Transition(ctx context.Context, subject T, from, to S) error {
	if !m.Can(from, to) {
		return &TransitionError{Machine: m.name, From: string(from), To: string(to)}
	}
	if m.guard != nil {
		ok, err := m.guard(ctx, subject, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return &VetoError{Machine: m.name, From: string(from), To: string(to)}
		}
	}
	return nil
}
