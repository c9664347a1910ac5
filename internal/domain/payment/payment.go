// Package payment defines payments and refunds against an order, each with
// its own lifecycle state machine. Payment state feeds the order state: the
// order service moves an order to PaymentAuthorized or PaymentSettled based
// on the aggregate state of its payments.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/commerce-core/internal/fsm"
)

// Sentinel errors surfaced to API callers.
var (
	ErrNotFound          = errors.New("payment not found")
	ErrRefundNotFound    = errors.New("refund not found")
	ErrNotSettled        = errors.New("payment is not settled")
	ErrRefundExceedsPaid = errors.New("refund amount exceeds the refundable balance")
	ErrInvalidAmount     = errors.New("amount must be greater than 0")
)

// State is the payment lifecycle state.
type State string

const (
	StateCreated    State = "Created"
	StateAuthorized State = "Authorized"
	StateSettled    State = "Settled"
	StateDeclined   State = "Declined"
	StateError      State = "Error"
	StateCancelled  State = "PaymentCancelled"
)

// RefundState is the refund lifecycle state.
type RefundState string

const (
	RefundPending RefundState = "Pending"
	RefundSettled RefundState = "RefundSettled"
	RefundFailed  RefundState = "Failed"
)

// Payment is one payment attempt against an order. Amount is in cents.
type Payment struct {
	ID            string
	OrderID       string
	Method        string
	Amount        int64
	State         State
	TransactionID string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Refund is a (partial) reversal of a settled payment. Total is in cents.
type Refund struct {
	ID            string
	PaymentID     string
	OrderID       string
	Total         int64
	Reason        string
	State         RefundState
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Settled reports whether the payment's funds are captured.
func (p *Payment) Settled() bool { return p.State == StateSettled }

// Covering reports whether the payment counts toward the order total:
// authorized or settled.
func (p *Payment) Covering() bool {
	return p.State == StateAuthorized || p.State == StateSettled
}

// DefaultTransitions is the standard payment lifecycle table.
func DefaultTransitions() fsm.Table[State] {
	return fsm.Table[State]{
		StateCreated:    {StateAuthorized, StateSettled, StateDeclined, StateError, StateCancelled},
		StateAuthorized: {StateSettled, StateError, StateCancelled},
	}
}

// DefaultRefundTransitions is the standard refund lifecycle table.
func DefaultRefundTransitions() fsm.Table[RefundState] {
	return fsm.Table[RefundState]{
		RefundPending: {RefundSettled, RefundFailed},
	}
}

// NewStateMachine builds the payment state machine.
func NewStateMachine(extra fsm.Guard[State, *Payment]) *fsm.Machine[State, *Payment] {
	return fsm.New("Payment", DefaultTransitions(), extra)
}

// NewRefundStateMachine builds the refund state machine.
func NewRefundStateMachine(extra fsm.Guard[RefundState, *Refund]) *fsm.Machine[RefundState, *Refund] {
	return fsm.New("Refund", DefaultRefundTransitions(), extra)
}

// RefundableBalance is the amount still refundable from a settled payment:
// its total minus all refunds that are pending or settled. Failed refunds do
// not consume balance.
func RefundableBalance(p *Payment, refunds []*Refund) int64 {
	balance := p.Amount
	for _, r := range refunds {
		if r.PaymentID != p.ID || r.State == RefundFailed {
			continue
		}
		balance -= r.Total
	}
	return balance
}

// ValidateRefund checks that a refund of amount can be raised against the
// payment given its existing refunds.
func ValidateRefund(p *Payment, refunds []*Refund, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !p.Settled() {
		return ErrNotSettled
	}
	if amount > RefundableBalance(p, refunds) {
		return ErrRefundExceedsPaid
	}
	return nil
}

// Repository defines persistence for payments and refunds.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Payment, error)
	Create(ctx context.Context, p *Payment) error
	Save(ctx context.Context, p *Payment) error

	GetRefundByID(ctx context.Context, id string) (*Refund, error)
	ListRefundsByOrder(ctx context.Context, orderID string) ([]*Refund, error)
	CreateRefund(ctx context.Context, r *Refund) error
	SaveRefund(ctx context.Context, r *Refund) error
}
