package order

import (
	"context"

	"github.com/xenking/commerce-core/internal/fsm"
)

// State is the order lifecycle state.
type State string

const (
	StateAddingItems      State = "AddingItems"
	StateArrangingPayment State = "ArrangingPayment"
	StatePaymentAuthorized State = "PaymentAuthorized"
	StatePaymentSettled    State = "PaymentSettled"
	StatePartiallyShipped  State = "PartiallyShipped"
	StateShipped           State = "Shipped"
	StateDelivered         State = "Delivered"
	StateCancelled         State = "Cancelled"
	StateModifying         State = "Modifying"
)

// DefaultTransitions is the standard order lifecycle table. Deployments may
// extend it before constructing the machine.
func DefaultTransitions() fsm.Table[State] {
	return fsm.Table[State]{
		StateAddingItems:       {StateArrangingPayment, StateCancelled},
		StateArrangingPayment:  {StateAddingItems, StatePaymentAuthorized, StatePaymentSettled, StateCancelled},
		StatePaymentAuthorized: {StatePaymentSettled, StateModifying, StateCancelled},
		StatePaymentSettled:    {StatePartiallyShipped, StateShipped, StateModifying, StateCancelled},
		StatePartiallyShipped:  {StateShipped, StateCancelled},
		StateShipped:           {StateDelivered, StateCancelled},
		StateModifying:         {StatePaymentAuthorized, StatePaymentSettled},
	}
}

// LinesMutable reports whether line-item mutation operations are permitted in
// this state. Once payment is committed or the state is terminal, cart
// contents are frozen.
func (s State) LinesMutable() bool {
	return s == StateAddingItems || s == StateModifying
}

// PaymentCommitted reports whether a payment has been authorized or settled.
func (s State) PaymentCommitted() bool {
	switch s {
	case StatePaymentAuthorized, StatePaymentSettled, StatePartiallyShipped, StateShipped, StateDelivered:
		return true
	}
	return false
}

// Completed reports whether the order reached a post-payment state. Used for
// per-customer coupon usage counting.
func (s State) Completed() bool {
	return s.PaymentCommitted()
}

// IsTerminal reports whether the state has no outgoing transitions in the
// default table.
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateCancelled
}

// NewStateMachine builds the order state machine over the given table with
// the baseline guard: entering ArrangingPayment requires at least one
// non-cancelled unit. An extra guard may veto further transitions.
func NewStateMachine(table fsm.Table[State], extra fsm.Guard[State, *Order]) *fsm.Machine[State, *Order] {
	guard := func(ctx context.Context, o *Order, from, to State) (bool, error) {
		if to == StateArrangingPayment {
			total := 0
			for _, l := range o.Lines {
				total += LineQuantity(l)
			}
			if total == 0 {
				return false, ErrEmptyOrder
			}
		}
		if extra != nil {
			return extra(ctx, o, from, to)
		}
		return true, nil
	}
	return fsm.New("Order", table, guard)
}
