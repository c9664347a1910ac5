// Package eventbus publishes domain events raised by order, payment and
// refund state transitions. Exactly one event is published per committed
// transition; vetoed or illegal transitions publish nothing.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
)

// Event is a publishable domain event. Key is the partitioning key (the
// order id, so all events of one order stay ordered).
type Event interface {
	EventName() string
	Key() string
}

// Publisher delivers events to subscribers. Publish is called after the
// transaction carrying the state change has committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// OrderStateTransition is raised when an order moves between states.
type OrderStateTransition struct {
	OrderID    string      `json:"orderId"`
	OrderCode  string      `json:"orderCode"`
	From       order.State `json:"from"`
	To         order.State `json:"to"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func (e OrderStateTransition) EventName() string { return "order.state_transition" }
func (e OrderStateTransition) Key() string       { return e.OrderID }

// PaymentStateTransition is raised when a payment moves between states.
type PaymentStateTransition struct {
	PaymentID  string        `json:"paymentId"`
	OrderID    string        `json:"orderId"`
	From       payment.State `json:"from"`
	To         payment.State `json:"to"`
	Amount     int64         `json:"amount"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func (e PaymentStateTransition) EventName() string { return "payment.state_transition" }
func (e PaymentStateTransition) Key() string       { return e.OrderID }

// RefundStateTransition is raised when a refund moves between states.
type RefundStateTransition struct {
	RefundID   string              `json:"refundId"`
	PaymentID  string              `json:"paymentId"`
	OrderID    string              `json:"orderId"`
	From       payment.RefundState `json:"from"`
	To         payment.RefundState `json:"to"`
	Total      int64               `json:"total"`
	OccurredAt time.Time           `json:"occurredAt"`
}

func (e RefundStateTransition) EventName() string { return "refund.state_transition" }
func (e RefundStateTransition) Key() string       { return e.OrderID }

// MemoryBus is an in-process Publisher used in tests and single-node
// deployments. Published events are retained for inspection.
type MemoryBus struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *MemoryBus) Close() error { return nil }

// Events returns a snapshot of everything published so far.
func (b *MemoryBus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
