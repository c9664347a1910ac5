// Package service implements the order workflow: every mutation of an order
// runs inside one transaction, triggers a full price recompute, enforces the
// state machines, and publishes exactly one event per committed state
// transition.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/commerce-core/internal/calculator"
	"github.com/xenking/commerce-core/internal/domain/catalog"
	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
	"github.com/xenking/commerce-core/internal/domain/promotion"
	"github.com/xenking/commerce-core/internal/domain/shipping"
	"github.com/xenking/commerce-core/internal/eventbus"
	"github.com/xenking/commerce-core/internal/fsm"
	"github.com/xenking/commerce-core/internal/merge"
)

// Tx runs fn inside one database transaction. The repositories handed to fn
// are bound to that transaction, so every row fn writes commits or rolls
// back together with the order row.
type Tx interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, orders order.Repository, payments payment.Repository) error) error
}

// Deps holds the collaborators of the order service.
type Deps struct {
	Tx         Tx
	Orders     order.Repository
	Variants   catalog.Repository
	Promotions promotion.Repository
	Methods    shipping.Repository
	Calculator *calculator.Calculator
	Engine     *promotion.Engine
	Merger     merge.Strategy
	Bus        eventbus.Publisher
}

// OrderService coordinates order mutations, payments, refunds and merges.
type OrderService struct {
	tx         Tx
	orders     order.Repository
	variants   catalog.Repository
	promotions promotion.Repository
	methods    shipping.Repository
	calc       *calculator.Calculator
	engine     *promotion.Engine
	merger     merge.Strategy
	bus        eventbus.Publisher

	orderFSM  *fsm.Machine[order.State, *order.Order]
	payFSM    *fsm.Machine[payment.State, *payment.Payment]
	refundFSM *fsm.Machine[payment.RefundState, *payment.Refund]

	now   func() time.Time
	newID func() string
}

// New constructs the order service with the default state machines.
func New(d Deps) *OrderService {
	return &OrderService{
		tx:         d.Tx,
		orders:     d.Orders,
		variants:   d.Variants,
		promotions: d.Promotions,
		methods:    d.Methods,
		calc:       d.Calculator,
		engine:     d.Engine,
		merger:     d.Merger,
		bus:        d.Bus,
		orderFSM:   order.NewStateMachine(order.DefaultTransitions(), nil),
		payFSM:     payment.NewStateMachine(nil),
		refundFSM:  payment.NewRefundStateMachine(nil),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// GetOrder loads an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetActiveOrder loads the customer's active order, or order.ErrNotFound.
func (s *OrderService) GetActiveOrder(ctx context.Context, customerID string) (*order.Order, error) {
	return s.orders.GetActiveByCustomer(ctx, customerID)
}

// CreateOrder opens a new empty order in AddingItems. customerID may be
// empty for a guest cart.
func (s *OrderService) CreateOrder(ctx context.Context, customerID, currencyCode string) (*order.Order, error) {
	now := s.now()
	o := &order.Order{
		ID:           s.newID(),
		Code:         generateCode(),
		State:        order.StateAddingItems,
		CustomerID:   customerID,
		CurrencyCode: currencyCode,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// AddItem adds quantity units of a variant to the order, creating or growing
// its line, and recomputes.
func (s *OrderService) AddItem(ctx context.Context, orderID, variantID string, quantity int) (*order.Order, error) {
	if quantity <= 0 {
		return nil, order.ErrInvalidQuantity
	}
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		if !o.State.LinesMutable() {
			return nil, order.ErrNotModifiable
		}
		v, err := s.variants.GetByID(ctx, variantID)
		if err != nil {
			return nil, err
		}
		l := o.LineByVariant(variantID)
		if l == nil {
			l = &order.Line{
				ID:                   s.newID(),
				VariantID:            v.ID,
				VariantName:          v.Name,
				TaxCategory:          v.TaxCategory,
				ListPrice:            v.Price,
				ListPriceIncludesTax: v.PriceIncludesTax,
			}
			o.Lines = append(o.Lines, l)
		}
		s.growLine(l, quantity)
		return nil, s.recompute(ctx, o)
	})
}

// AdjustLine sets the quantity of an existing line. Zero removes the line;
// cancelled units are retained and do not count toward the quantity.
func (s *OrderService) AdjustLine(ctx context.Context, orderID, lineID string, quantity int) (*order.Order, error) {
	if quantity < 0 {
		return nil, order.ErrInvalidQuantity
	}
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		if !o.State.LinesMutable() {
			return nil, order.ErrNotModifiable
		}
		l, err := o.LineByID(lineID)
		if err != nil {
			return nil, err
		}
		if quantity == 0 {
			s.dropLine(o, lineID)
			return nil, s.recompute(ctx, o)
		}
		current := order.LineQuantity(l)
		switch {
		case quantity > current:
			s.growLine(l, quantity-current)
		case quantity < current:
			shrinkLine(l, current-quantity)
		}
		return nil, s.recompute(ctx, o)
	})
}

// RemoveLine removes a line entirely.
func (s *OrderService) RemoveLine(ctx context.Context, orderID, lineID string) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		if !o.State.LinesMutable() {
			return nil, order.ErrNotModifiable
		}
		if _, err := o.LineByID(lineID); err != nil {
			return nil, err
		}
		s.dropLine(o, lineID)
		return nil, s.recompute(ctx, o)
	})
}

// ApplyCouponCode validates the code against its promotion and the order's
// customer, applies it, and recomputes. Applying an already-applied code is
// a no-op that still recomputes.
func (s *OrderService) ApplyCouponCode(ctx context.Context, orderID, code string) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		p, err := s.promotions.FindByCouponCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := s.engine.CheckCoupon(ctx, p, o.CustomerID); err != nil {
			return nil, err
		}
		o.AddCouponCode(code)
		return nil, s.recompute(ctx, o)
	})
}

// RemoveCouponCode strips the code and recomputes. Removing a code that was
// never applied is a no-op.
func (s *OrderService) RemoveCouponCode(ctx context.Context, orderID, code string) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		o.RemoveCouponCode(code)
		return nil, s.recompute(ctx, o)
	})
}

// SetCustomer assigns the order to a customer. The recompute re-verifies
// applied coupon codes against the new identity, silently stripping any that
// exceed their per-customer limit.
func (s *OrderService) SetCustomer(ctx context.Context, orderID, customerID string) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		o.CustomerID = customerID
		return nil, s.recompute(ctx, o)
	})
}

// SetShippingAddress sets the destination and recomputes: the address
// country determines the tax zone.
func (s *OrderService) SetShippingAddress(ctx context.Context, orderID string, addr order.Address) (*order.Order, error) {
	if len(addr.CountryCode) != 2 {
		return nil, order.ErrShippingCountry
	}
	addr.CountryCode = strings.ToUpper(addr.CountryCode)
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		o.ShippingAddress = addr
		return nil, s.recompute(ctx, o)
	})
}

// SetShippingMethod selects a shipping method after checking its
// eligibility, then recomputes the charge.
func (s *OrderService) SetShippingMethod(ctx context.Context, orderID, methodID string) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		m, err := s.methods.GetByID(ctx, methodID)
		if err != nil {
			return nil, err
		}
		if err := s.calc.VerifyMethodEligible(ctx, o, m); err != nil {
			return nil, err
		}
		o.ShippingLine = &order.ShippingLine{MethodID: m.ID, MethodCode: m.Code}
		return nil, s.recompute(ctx, o)
	})
}

// EligibleShippingMethods lists the methods whose checkers accept the order.
func (s *OrderService) EligibleShippingMethods(ctx context.Context, orderID string) ([]*shipping.Method, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	all, err := s.methods.List(ctx)
	if err != nil {
		return nil, err
	}
	var eligible []*shipping.Method
	for _, m := range all {
		err := s.calc.VerifyMethodEligible(ctx, o, m)
		if errors.Is(err, shipping.ErrNotEligible) {
			continue
		}
		if err != nil {
			return nil, err
		}
		eligible = append(eligible, m)
	}
	return eligible, nil
}

// TransitionTo moves the order to the given state through the state machine.
// Entering ArrangingPayment additionally requires a selected shipping
// method.
func (s *OrderService) TransitionTo(ctx context.Context, orderID string, to order.State) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		if to == order.StateArrangingPayment && o.ShippingLine == nil {
			return nil, order.ErrNoShippingMethod
		}
		return s.transitionOrder(ctx, o, to)
	})
}

// AddPayment records a payment attempt against an order in ArrangingPayment
// and authorizes it. Once the covering payments reach the order total the
// order moves to PaymentAuthorized.
func (s *OrderService) AddPayment(ctx context.Context, orderID, method string, amount int64) (*payment.Payment, error) {
	if amount <= 0 {
		return nil, payment.ErrInvalidAmount
	}
	var p *payment.Payment
	_, err := s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, payments payment.Repository) ([]eventbus.Event, error) {
		if o.State != order.StateArrangingPayment {
			return nil, &fsm.TransitionError{Machine: "Order", From: string(o.State), To: string(order.StatePaymentAuthorized)}
		}
		now := s.now()
		p = &payment.Payment{
			ID:        s.newID(),
			OrderID:   o.ID,
			Method:    method,
			Amount:    amount,
			State:     payment.StateCreated,
			CreatedAt: now,
			UpdatedAt: now,
		}
		events, err := s.transitionPayment(ctx, p, payment.StateAuthorized)
		if err != nil {
			return nil, err
		}
		if err := payments.Create(ctx, p); err != nil {
			return nil, errors.Wrap(err, "create payment")
		}

		covered, err := coveredAmount(ctx, payments, o)
		if err != nil {
			return nil, err
		}
		if covered >= o.TotalWithTax {
			orderEvents, err := s.transitionOrder(ctx, o, order.StatePaymentAuthorized)
			if err != nil {
				return nil, err
			}
			events = append(events, orderEvents...)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SettlePayment captures an authorized payment. When every covering payment
// is settled and together they reach the order total, the order moves to
// PaymentSettled.
func (s *OrderService) SettlePayment(ctx context.Context, orderID, paymentID, transactionID string) (*payment.Payment, error) {
	var p *payment.Payment
	_, err := s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, payments payment.Repository) ([]eventbus.Event, error) {
		var err error
		p, err = payments.GetByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if p.OrderID != o.ID {
			return nil, payment.ErrNotFound
		}
		events, err := s.transitionPayment(ctx, p, payment.StateSettled)
		if err != nil {
			return nil, err
		}
		p.TransactionID = transactionID
		if err := payments.Save(ctx, p); err != nil {
			return nil, errors.Wrap(err, "save payment")
		}

		settled, err := settledAmount(ctx, payments, o)
		if err != nil {
			return nil, err
		}
		if settled >= o.TotalWithTax && o.State != order.StatePaymentSettled {
			orderEvents, err := s.transitionOrder(ctx, o, order.StatePaymentSettled)
			if err != nil {
				return nil, err
			}
			events = append(events, orderEvents...)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CancelOrder moves the order to Cancelled, marks every unit cancelled and
// deactivates the order.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return s.updateOrder(ctx, orderID, func(ctx context.Context, o *order.Order, _ payment.Repository) ([]eventbus.Event, error) {
		events, err := s.transitionOrder(ctx, o, order.StateCancelled)
		if err != nil {
			return nil, err
		}
		cancellationID := s.newID()
		for _, l := range o.Lines {
			for _, i := range l.Items {
				if !i.Cancelled() {
					i.CancellationID = cancellationID
				}
			}
		}
		o.Active = false
		o.UpdatedAt = s.now()
		return events, nil
	})
}

// RefundOrder raises a pending refund against a settled payment of the
// order. The amount must not exceed the payment's refundable balance.
func (s *OrderService) RefundOrder(ctx context.Context, orderID, paymentID string, amount int64, reason string) (*payment.Refund, error) {
	var r *payment.Refund
	err := s.tx.WithTx(ctx, func(ctx context.Context, orders order.Repository, payments payment.Repository) error {
		o, err := orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.State.PaymentCommitted() {
			return payment.ErrNotSettled
		}
		p, err := payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.OrderID != o.ID {
			return payment.ErrNotFound
		}
		refunds, err := payments.ListRefundsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := payment.ValidateRefund(p, refunds, amount); err != nil {
			return err
		}

		now := s.now()
		r = &payment.Refund{
			ID:        s.newID(),
			PaymentID: p.ID,
			OrderID:   o.ID,
			Total:     amount,
			Reason:    reason,
			State:     payment.RefundPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return errors.Wrap(payments.CreateRefund(ctx, r), "create refund")
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SettleRefund marks a pending refund settled.
func (s *OrderService) SettleRefund(ctx context.Context, refundID, transactionID string) (*payment.Refund, error) {
	return s.resolveRefund(ctx, refundID, payment.RefundSettled, transactionID)
}

// FailRefund marks a pending refund failed, releasing its balance.
func (s *OrderService) FailRefund(ctx context.Context, refundID string) (*payment.Refund, error) {
	return s.resolveRefund(ctx, refundID, payment.RefundFailed, "")
}

// MergeOrders resolves a guest cart against the customer's existing active
// order at sign-in. The merge strategy decides the surviving line set; the
// surviving order is the existing one when present, otherwise the guest
// order reassigned to the customer. The non-surviving order is deleted.
func (s *OrderService) MergeOrders(ctx context.Context, guestOrderID, customerID string) (*order.Order, error) {
	var result *order.Order
	err := s.tx.WithTx(ctx, func(ctx context.Context, repo order.Repository, _ payment.Repository) error {
		guest, err := repo.GetByID(ctx, guestOrderID)
		if err != nil {
			return err
		}
		if guest.CustomerID != "" && guest.CustomerID != customerID {
			return order.ErrCustomerMismatch
		}
		if !guest.Active || !guest.State.LinesMutable() {
			return order.ErrAlreadyMerged
		}

		existing, err := repo.GetActiveByCustomer(ctx, customerID)
		if err != nil && !errors.Is(err, order.ErrNotFound) {
			return err
		}
		if existing == nil || existing.ID == guest.ID {
			guest.CustomerID = customerID
			if err := s.recompute(ctx, guest); err != nil {
				return err
			}
			guest.Revision++
			if err := repo.Save(ctx, guest); err != nil {
				return err
			}
			result = guest
			return nil
		}

		lines := s.merger.Merge(ctx, guest, existing)
		if err := s.rebuildLines(ctx, existing, lines); err != nil {
			return err
		}
		if err := s.recompute(ctx, existing); err != nil {
			return err
		}
		existing.Revision++
		if err := repo.Save(ctx, existing); err != nil {
			return err
		}
		if err := repo.Delete(ctx, guest.ID); err != nil {
			return errors.Wrap(err, "delete guest order")
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// updateOrder runs fn on the loaded order inside one transaction, saves the
// result with a revision bump, and publishes fn's events after the commit.
// Payment writes made by fn go through the transaction-bound repository it
// receives, so a failed order save discards them too.
func (s *OrderService) updateOrder(
	ctx context.Context,
	orderID string,
	fn func(ctx context.Context, o *order.Order, payments payment.Repository) ([]eventbus.Event, error),
) (*order.Order, error) {
	var (
		result *order.Order
		events []eventbus.Event
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, orders order.Repository, payments payment.Repository) error {
		o, err := orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		events, err = fn(ctx, o, payments)
		if err != nil {
			return err
		}
		o.Revision++
		if err := orders.Save(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return result, nil
}

// recompute reloads the active promotions and rebuilds the order's
// adjustments and totals.
func (s *OrderService) recompute(ctx context.Context, o *order.Order) error {
	promos, err := s.promotions.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "list active promotions")
	}
	if err := s.calc.ApplyPriceAdjustments(ctx, o, promos); err != nil {
		return err
	}
	o.UpdatedAt = s.now()
	return nil
}

// transitionOrder validates and applies an order state change, returning the
// single event to publish after commit.
func (s *OrderService) transitionOrder(ctx context.Context, o *order.Order, to order.State) ([]eventbus.Event, error) {
	from := o.State
	if err := s.orderFSM.Transition(ctx, o, from, to); err != nil {
		return nil, err
	}
	o.State = to
	o.UpdatedAt = s.now()
	return []eventbus.Event{eventbus.OrderStateTransition{
		OrderID:    o.ID,
		OrderCode:  o.Code,
		From:       from,
		To:         to,
		OccurredAt: s.now(),
	}}, nil
}

func (s *OrderService) transitionPayment(ctx context.Context, p *payment.Payment, to payment.State) ([]eventbus.Event, error) {
	from := p.State
	if err := s.payFSM.Transition(ctx, p, from, to); err != nil {
		return nil, err
	}
	p.State = to
	p.UpdatedAt = s.now()
	return []eventbus.Event{eventbus.PaymentStateTransition{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		From:       from,
		To:         to,
		Amount:     p.Amount,
		OccurredAt: s.now(),
	}}, nil
}

func (s *OrderService) resolveRefund(ctx context.Context, refundID string, to payment.RefundState, transactionID string) (*payment.Refund, error) {
	var (
		r    *payment.Refund
		from payment.RefundState
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, _ order.Repository, payments payment.Repository) error {
		var err error
		r, err = payments.GetRefundByID(ctx, refundID)
		if err != nil {
			return err
		}
		from = r.State
		if err := s.refundFSM.Transition(ctx, r, from, to); err != nil {
			return err
		}
		r.State = to
		r.TransactionID = transactionID
		r.UpdatedAt = s.now()
		return errors.Wrap(payments.SaveRefund(ctx, r), "save refund")
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, []eventbus.Event{eventbus.RefundStateTransition{
		RefundID:   r.ID,
		PaymentID:  r.PaymentID,
		OrderID:    r.OrderID,
		From:       from,
		To:         to,
		Total:      r.Total,
		OccurredAt: s.now(),
	}})
	return r, nil
}

// coveredAmount sums authorized and settled payments against the order. The
// repository must be the transaction-bound one so a payment written earlier
// in the same transaction is counted.
func coveredAmount(ctx context.Context, payments payment.Repository, o *order.Order) (int64, error) {
	all, err := payments.ListByOrder(ctx, o.ID)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, p := range all {
		if p.Covering() {
			sum += p.Amount
		}
	}
	return sum, nil
}

// settledAmount sums settled payments against the order.
func settledAmount(ctx context.Context, payments payment.Repository, o *order.Order) (int64, error) {
	all, err := payments.ListByOrder(ctx, o.ID)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, p := range all {
		if p.Settled() {
			sum += p.Amount
		}
	}
	return sum, nil
}

// growLine appends n units priced from the line's list price.
func (s *OrderService) growLine(l *order.Line, n int) {
	for i := 0; i < n; i++ {
		l.Items = append(l.Items, &order.Item{
			ID:                   s.newID(),
			UnitPrice:            l.ListPrice,
			UnitPriceIncludesTax: l.ListPriceIncludesTax,
		})
	}
}

// shrinkLine removes n non-cancelled units from the end of the line.
// Cancelled units are retained.
func shrinkLine(l *order.Line, n int) {
	for idx := len(l.Items) - 1; idx >= 0 && n > 0; idx-- {
		if l.Items[idx].Cancelled() {
			continue
		}
		l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
		n--
	}
}

// dropLine removes the line unless it holds cancelled units, in which case
// only the live units are removed.
func (s *OrderService) dropLine(o *order.Order, lineID string) {
	for idx, l := range o.Lines {
		if l.ID != lineID {
			continue
		}
		var cancelled []*order.Item
		for _, i := range l.Items {
			if i.Cancelled() {
				cancelled = append(cancelled, i)
			}
		}
		if len(cancelled) == 0 {
			o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
		} else {
			l.Items = cancelled
		}
		return
	}
}

// rebuildLines replaces the order's lines with the given inputs, pricing
// each from the current variant record.
func (s *OrderService) rebuildLines(ctx context.Context, o *order.Order, inputs []merge.LineInput) error {
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = in.VariantID
	}
	variants, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]catalog.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	o.Lines = nil
	for _, in := range inputs {
		v, ok := byID[in.VariantID]
		if !ok {
			return catalog.ErrVariantNotFound
		}
		l := &order.Line{
			ID:                   s.newID(),
			VariantID:            v.ID,
			VariantName:          v.Name,
			TaxCategory:          v.TaxCategory,
			ListPrice:            v.Price,
			ListPriceIncludesTax: v.PriceIncludesTax,
		}
		s.growLine(l, in.Quantity)
		o.Lines = append(o.Lines, l)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, events []eventbus.Event) {
	if s.bus == nil {
		return
	}
	for _, e := range events {
		// Publish failures do not roll back the committed state change.
		_ = s.bus.Publish(ctx, e)
	}
}

// generateCode produces a short human-readable order code.
func generateCode() string {
	id := uuid.New()
	return "ORD-" + strings.ToUpper(id.String()[:8])
}
