package fsm

import "fmt"

// TransitionError reports an attempt to perform a transition that is not in
// the declared table. Always a business-logic error, never silently ignored.
type TransitionError struct {
	Machine string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %q to %q", e.Machine, e.From, e.To)
}

// VetoError reports a declared transition that a guard refused.
type VetoError struct {
	Machine string
	From    string
	To      string
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("transition of %s from %q to %q was refused", e.Machine, e.From, e.To)
}
