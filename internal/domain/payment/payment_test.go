package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/commerce-core/internal/fsm"
)

func TestPaymentTransitions(t *testing.T) {
	m := NewStateMachine(nil)
	ctx := context.Background()
	p := &Payment{ID: "pay-1", Amount: 1000, State: StateCreated}

	tests := []struct {
		from, to State
		legal    bool
	}{
		{StateCreated, StateAuthorized, true},
		{StateCreated, StateSettled, true},
		{StateCreated, StateDeclined, true},
		{StateCreated, StateError, true},
		{StateAuthorized, StateSettled, true},
		{StateAuthorized, StateCancelled, true},
		{StateSettled, StateCreated, false},
		{StateSettled, StateAuthorized, false},
		{StateDeclined, StateSettled, false},
		{StateError, StateSettled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			err := m.Transition(ctx, p, tt.from, tt.to)
			if tt.legal {
				require.NoError(t, err)
			} else {
				var terr *fsm.TransitionError
				require.ErrorAs(t, err, &terr)
				assert.Equal(t, "Payment", terr.Machine)
			}
		})
	}
}

func TestRefundTransitions(t *testing.T) {
	m := NewRefundStateMachine(nil)
	ctx := context.Background()
	r := &Refund{ID: "ref-1", Total: 500, State: RefundPending}

	require.NoError(t, m.Transition(ctx, r, RefundPending, RefundSettled))
	require.NoError(t, m.Transition(ctx, r, RefundPending, RefundFailed))

	var terr *fsm.TransitionError
	require.ErrorAs(t, m.Transition(ctx, r, RefundSettled, RefundPending), &terr)
	require.ErrorAs(t, m.Transition(ctx, r, RefundFailed, RefundSettled), &terr)
}

func TestCovering(t *testing.T) {
	assert.False(t, (&Payment{State: StateCreated}).Covering())
	assert.True(t, (&Payment{State: StateAuthorized}).Covering())
	assert.True(t, (&Payment{State: StateSettled}).Covering())
	assert.False(t, (&Payment{State: StateDeclined}).Covering())
	assert.False(t, (&Payment{State: StateError}).Covering())
}

func TestRefundableBalance(t *testing.T) {
	p := &Payment{ID: "pay-1", Amount: 1000, State: StateSettled}

	refunds := []*Refund{
		{ID: "r1", PaymentID: "pay-1", Total: 300, State: RefundSettled},
		{ID: "r2", PaymentID: "pay-1", Total: 200, State: RefundPending},
		{ID: "r3", PaymentID: "pay-1", Total: 400, State: RefundFailed},
		{ID: "r4", PaymentID: "pay-2", Total: 999, State: RefundSettled},
	}
	assert.Equal(t, int64(500), RefundableBalance(p, refunds),
		"failed refunds and other payments' refunds do not consume balance")
}

func TestValidateRefund(t *testing.T) {
	settled := &Payment{ID: "pay-1", Amount: 1000, State: StateSettled}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateRefund(settled, nil, 1000))
	})

	t.Run("zero or negative amount", func(t *testing.T) {
		assert.ErrorIs(t, ValidateRefund(settled, nil, 0), ErrInvalidAmount)
		assert.ErrorIs(t, ValidateRefund(settled, nil, -5), ErrInvalidAmount)
	})

	t.Run("not settled", func(t *testing.T) {
		authorized := &Payment{ID: "pay-1", Amount: 1000, State: StateAuthorized}
		assert.ErrorIs(t, ValidateRefund(authorized, nil, 100), ErrNotSettled)
	})

	t.Run("exceeds balance", func(t *testing.T) {
		refunds := []*Refund{{ID: "r1", PaymentID: "pay-1", Total: 900, State: RefundSettled}}
		assert.ErrorIs(t, ValidateRefund(settled, refunds, 200), ErrRefundExceedsPaid)
		require.NoError(t, ValidateRefund(settled, refunds, 100))
	})
}
