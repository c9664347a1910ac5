package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/commerce-core/internal/calculator"
	"github.com/xenking/commerce-core/internal/domain/catalog"
	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
	"github.com/xenking/commerce-core/internal/domain/promotion"
	"github.com/xenking/commerce-core/internal/domain/shipping"
	"github.com/xenking/commerce-core/internal/domain/tax"
	"github.com/xenking/commerce-core/internal/eventbus"
	"github.com/xenking/commerce-core/internal/fsm"
	"github.com/xenking/commerce-core/internal/merge"
	"github.com/xenking/commerce-core/internal/operation"
)

type memOrderRepo struct {
	orders map[string]*order.Order

	failNextSave error // returned (once) by the next Save call
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*order.Order)}
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) GetActiveByCustomer(_ context.Context, customerID string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.Active && o.CustomerID == customerID {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memOrderRepo) Save(_ context.Context, o *order.Order) error {
	if r.failNextSave != nil {
		err := r.failNextSave
		r.failNextSave = nil
		return err
	}
	stored, ok := r.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if o != stored && o.Revision != stored.Revision+1 {
		return order.ErrStaleRevision
	}
	r.orders[o.ID] = o
	return nil
}

func (r *memOrderRepo) Delete(_ context.Context, id string) error {
	delete(r.orders, id)
	return nil
}

type memVariantRepo struct {
	variants map[string]catalog.Variant
}

func (r *memVariantRepo) GetByID(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := r.variants[id]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	return &v, nil
}

func (r *memVariantRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for _, id := range ids {
		if v, ok := r.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memVariantRepo) List(_ context.Context) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for _, v := range r.variants {
		out = append(out, v)
	}
	return out, nil
}

type memPromotionRepo struct {
	promos []*promotion.Promotion
	usage  map[string]int
}

func (r *memPromotionRepo) ListActive(_ context.Context) ([]*promotion.Promotion, error) {
	return r.promos, nil
}

func (r *memPromotionRepo) FindByCouponCode(_ context.Context, code string) (*promotion.Promotion, error) {
	for _, p := range r.promos {
		if p.CouponCode == code {
			return p, nil
		}
	}
	return nil, promotion.ErrCouponNotValid
}

func (r *memPromotionRepo) CountCouponUses(_ context.Context, customerID, code string) (int, error) {
	return r.usage[customerID+"/"+code], nil
}

type memPaymentRepo struct {
	payments map[string]*payment.Payment
	refunds  map[string]*payment.Refund
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{
		payments: make(map[string]*payment.Payment),
		refunds:  make(map[string]*payment.Refund),
	}
}

func (r *memPaymentRepo) GetByID(_ context.Context, id string) (*payment.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return p, nil
}

func (r *memPaymentRepo) ListByOrder(_ context.Context, orderID string) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	r.payments[p.ID] = p
	return nil
}

func (r *memPaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	r.payments[p.ID] = p
	return nil
}

func (r *memPaymentRepo) GetRefundByID(_ context.Context, id string) (*payment.Refund, error) {
	ref, ok := r.refunds[id]
	if !ok {
		return nil, payment.ErrRefundNotFound
	}
	return ref, nil
}

func (r *memPaymentRepo) ListRefundsByOrder(_ context.Context, orderID string) ([]*payment.Refund, error) {
	var out []*payment.Refund
	for _, ref := range r.refunds {
		if ref.OrderID == orderID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) CreateRefund(_ context.Context, ref *payment.Refund) error {
	r.refunds[ref.ID] = ref
	return nil
}

func (r *memPaymentRepo) SaveRefund(_ context.Context, ref *payment.Refund) error {
	r.refunds[ref.ID] = ref
	return nil
}

func (r *memPaymentRepo) clone() *memPaymentRepo {
	c := newMemPaymentRepo()
	for id, p := range r.payments {
		cp := *p
		c.payments[id] = &cp
	}
	for id, ref := range r.refunds {
		cr := *ref
		c.refunds[id] = &cr
	}
	return c
}

// memTx imitates the transactional repository binding: payment writes land
// in a staging copy that is committed only when fn succeeds, so a failed
// order save discards them like a rolled-back transaction would.
type memTx struct {
	orders   *memOrderRepo
	payments *memPaymentRepo
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context, orders order.Repository, payments payment.Repository) error) error {
	staged := t.payments.clone()
	if err := fn(ctx, t.orders, staged); err != nil {
		return err
	}
	t.payments.payments = staged.payments
	t.payments.refunds = staged.refunds
	return nil
}

type memShippingRepo struct {
	methods map[string]*shipping.Method
}

func (r *memShippingRepo) GetByID(_ context.Context, id string) (*shipping.Method, error) {
	m, ok := r.methods[id]
	if !ok {
		return nil, shipping.ErrMethodNotFound
	}
	return m, nil
}

func (r *memShippingRepo) GetByCode(_ context.Context, code string) (*shipping.Method, error) {
	for _, m := range r.methods {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, shipping.ErrMethodNotFound
}

func (r *memShippingRepo) List(_ context.Context) ([]*shipping.Method, error) {
	var out []*shipping.Method
	for _, m := range r.methods {
		out = append(out, m)
	}
	return out, nil
}

type fixture struct {
	svc      *OrderService
	orders   *memOrderRepo
	promos   *memPromotionRepo
	payments *memPaymentRepo
	bus      *eventbus.MemoryBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := newMemOrderRepo()
	variants := &memVariantRepo{variants: map[string]catalog.Variant{
		"var-1": {ID: "var-1", SKU: "SKU-1", Name: "Widget", Price: 6000, TaxCategory: "standard"},
		"var-2": {ID: "var-2", SKU: "SKU-2", Name: "Gadget", Price: 1500, TaxCategory: "standard"},
	}}
	promos := &memPromotionRepo{usage: make(map[string]int)}
	payments := newMemPaymentRepo()
	methods := &memShippingRepo{methods: map[string]*shipping.Method{
		"ship-1": {
			ID: "ship-1", Code: "standard", Description: "Standard shipping",
			Calculator: operation.Configured{
				Code: shipping.CalculatorFlatRate,
				Args: []operation.Arg{{Name: "rate", Value: "500"}, {Name: "taxRate", Value: "20"}},
			},
		},
	}}

	conditions := operation.MustRegistry(promotion.DefaultConditions()...)
	actions := operation.MustRegistry(promotion.DefaultActions()...)
	checkers := operation.MustRegistry(shipping.DefaultCheckers()...)
	calculators := operation.MustRegistry(shipping.DefaultCalculators()...)

	rates := tax.NewStaticProvider(
		tax.Rate{Zone: "GB", Category: "standard", Value: decimal.NewFromInt(20)},
	)
	engine := promotion.NewEngine(conditions, actions, promos)
	calc := calculator.New(rates, engine, methods, checkers, calculators, "GB")
	bus := eventbus.NewMemoryBus()

	svc := New(Deps{
		Tx:         &memTx{orders: orders, payments: payments},
		Orders:     orders,
		Variants:   variants,
		Promotions: promos,
		Methods:    methods,
		Calculator: calc,
		Engine:     engine,
		Merger:     merge.MergeLines{},
		Bus:        bus,
	})
	// Deterministic ids for assertions.
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}

	return &fixture{svc: svc, orders: orders, promos: promos, payments: payments, bus: bus}
}

func (f *fixture) openOrder(t *testing.T, customerID string) *order.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), customerID, "GBP")
	require.NoError(t, err)
	return o
}

func fullDiscountPromo(code string) *promotion.Promotion {
	return &promotion.Promotion{
		ID: "3", Name: "100% off order", CouponCode: code, Enabled: true,
		Actions: []operation.Configured{{
			Code: promotion.ActionOrderPercentage,
			Args: []operation.Arg{{Name: "discount", Value: "100"}},
		}},
	}
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")

	got, err := f.svc.AddItem(ctx, o.ID, "var-1", 2)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "var-1", got.Lines[0].VariantID)
	assert.Len(t, got.Lines[0].Items, 2)
	assert.Equal(t, int64(12000), got.SubTotal)
	assert.Equal(t, int64(14400), got.SubTotalWithTax)

	// Adding the same variant again grows the existing line.
	got, err = f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Len(t, got.Lines[0].Items, 3)

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, o.ID, "var-1", 0)
		assert.ErrorIs(t, err, order.ErrInvalidQuantity)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, o.ID, "nope", 1)
		assert.ErrorIs(t, err, catalog.ErrVariantNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, "nope", "var-1", 1)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})
}

func TestAdjustAndRemoveLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")

	got, err := f.svc.AddItem(ctx, o.ID, "var-1", 3)
	require.NoError(t, err)
	lineID := got.Lines[0].ID

	got, err = f.svc.AdjustLine(ctx, o.ID, lineID, 1)
	require.NoError(t, err)
	assert.Len(t, got.Lines[0].Items, 1)
	assert.Equal(t, int64(6000), got.SubTotal)

	got, err = f.svc.AdjustLine(ctx, o.ID, lineID, 4)
	require.NoError(t, err)
	assert.Len(t, got.Lines[0].Items, 4)

	t.Run("zero removes the line", func(t *testing.T) {
		got, err := f.svc.AdjustLine(ctx, o.ID, lineID, 0)
		require.NoError(t, err)
		assert.Empty(t, got.Lines)
		assert.Equal(t, int64(0), got.SubTotal)
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err := f.svc.RemoveLine(ctx, o.ID, "nope")
		assert.ErrorIs(t, err, order.ErrLineNotFound)
	})
}

func TestLineMutationFrozenAfterCheckoutStarts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")

	got, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)
	lineID := got.Lines[0].ID

	_, err = f.svc.SetShippingMethod(ctx, o.ID, "ship-1")
	require.NoError(t, err)
	_, err = f.svc.TransitionTo(ctx, o.ID, order.StateArrangingPayment)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, o.ID, "var-2", 1)
	assert.ErrorIs(t, err, order.ErrNotModifiable)
	_, err = f.svc.AdjustLine(ctx, o.ID, lineID, 5)
	assert.ErrorIs(t, err, order.ErrNotModifiable)
	_, err = f.svc.RemoveLine(ctx, o.ID, lineID)
	assert.ErrorIs(t, err, order.ErrNotModifiable)
}

func TestCouponLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.promos.promos = []*promotion.Promotion{fullDiscountPromo("TESTCOUPON")}

	o := f.openOrder(t, "cust-1")
	_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)

	t.Run("unknown code", func(t *testing.T) {
		_, err := f.svc.ApplyCouponCode(ctx, o.ID, "NOPE")
		assert.ErrorIs(t, err, promotion.ErrCouponNotValid)
	})

	t.Run("codes are case-sensitive", func(t *testing.T) {
		_, err := f.svc.ApplyCouponCode(ctx, o.ID, "testcoupon")
		assert.ErrorIs(t, err, promotion.ErrCouponNotValid)
	})

	got, err := f.svc.ApplyCouponCode(ctx, o.ID, "TESTCOUPON")
	require.NoError(t, err)
	assert.Equal(t, []string{"TESTCOUPON"}, got.CouponCodes)
	assert.Equal(t, int64(0), got.Total)
	assert.Equal(t, int64(0), got.TotalWithTax)
	require.Len(t, got.Adjustments, 1)
	assert.Equal(t, order.Adjustment{
		Source:      "Promotion:3",
		Type:        order.AdjustmentPromotion,
		Description: "100% off order",
		Amount:      -6000,
	}, got.Adjustments[0])

	t.Run("reapplying is a no-op", func(t *testing.T) {
		got, err := f.svc.ApplyCouponCode(ctx, o.ID, "TESTCOUPON")
		require.NoError(t, err)
		assert.Equal(t, []string{"TESTCOUPON"}, got.CouponCodes)
		assert.Len(t, got.Adjustments, 1)
	})

	t.Run("removal restores totals", func(t *testing.T) {
		got, err := f.svc.RemoveCouponCode(ctx, o.ID, "TESTCOUPON")
		require.NoError(t, err)
		assert.Empty(t, got.CouponCodes)
		assert.Empty(t, got.Adjustments)
		assert.Equal(t, int64(6000), got.Total)
		assert.Equal(t, int64(7200), got.TotalWithTax)
	})

	t.Run("removing an absent code is a no-op", func(t *testing.T) {
		_, err := f.svc.RemoveCouponCode(ctx, o.ID, "NEVER")
		require.NoError(t, err)
	})
}

func TestPerCustomerCouponLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := fullDiscountPromo("ONCE")
	p.PerCustomerUsageLimit = 1
	f.promos.promos = []*promotion.Promotion{p}
	f.promos.usage["cust-used/ONCE"] = 1

	t.Run("apply rejected at the limit", func(t *testing.T) {
		o := f.openOrder(t, "cust-used")
		_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
		require.NoError(t, err)
		_, err = f.svc.ApplyCouponCode(ctx, o.ID, "ONCE")
		assert.ErrorIs(t, err, promotion.ErrCouponLimitReached)
	})

	t.Run("identity change strips the code silently", func(t *testing.T) {
		o := f.openOrder(t, "")
		_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
		require.NoError(t, err)
		got, err := f.svc.ApplyCouponCode(ctx, o.ID, "ONCE")
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Total)

		got, err = f.svc.SetCustomer(ctx, o.ID, "cust-used")
		require.NoError(t, err)
		assert.Empty(t, got.CouponCodes, "code stripped after identity change")
		assert.Equal(t, int64(6000), got.Total, "discount gone with the code")
	})
}

func TestShippingMethodSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")
	_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)

	got, err := f.svc.SetShippingMethod(ctx, o.ID, "ship-1")
	require.NoError(t, err)
	require.NotNil(t, got.ShippingLine)
	assert.Equal(t, "standard", got.ShippingLine.MethodCode)
	assert.Equal(t, int64(500), got.Shipping)
	assert.Equal(t, int64(600), got.ShippingWithTax)
	assert.Equal(t, int64(6500), got.Total)

	t.Run("unknown method", func(t *testing.T) {
		_, err := f.svc.SetShippingMethod(ctx, o.ID, "nope")
		assert.ErrorIs(t, err, shipping.ErrMethodNotFound)
	})
}

func TestSetShippingAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")
	_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)

	t.Run("invalid country code", func(t *testing.T) {
		_, err := f.svc.SetShippingAddress(ctx, o.ID, order.Address{CountryCode: "GBR"})
		assert.ErrorIs(t, err, order.ErrShippingCountry)
	})

	t.Run("country determines tax zone", func(t *testing.T) {
		// "us" has no configured rate, so tax drops to zero.
		got, err := f.svc.SetShippingAddress(ctx, o.ID, order.Address{CountryCode: "us"})
		require.NoError(t, err)
		assert.Equal(t, "US", got.ShippingAddress.CountryCode)
		assert.Equal(t, int64(6000), got.SubTotal)
		assert.Equal(t, int64(6000), got.SubTotalWithTax)
	})
}

func TestTransitionTo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("empty order cannot start checkout", func(t *testing.T) {
		o := f.openOrder(t, "")
		_, err := f.svc.SetShippingMethod(ctx, o.ID, "ship-1")
		require.NoError(t, err)
		_, err = f.svc.TransitionTo(ctx, o.ID, order.StateArrangingPayment)
		assert.ErrorIs(t, err, order.ErrEmptyOrder)
	})

	t.Run("shipping method required for checkout", func(t *testing.T) {
		o := f.openOrder(t, "")
		_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
		require.NoError(t, err)
		_, err = f.svc.TransitionTo(ctx, o.ID, order.StateArrangingPayment)
		assert.ErrorIs(t, err, order.ErrNoShippingMethod)
	})

	t.Run("illegal transition", func(t *testing.T) {
		o := f.openOrder(t, "")
		_, err := f.svc.TransitionTo(ctx, o.ID, order.StateDelivered)
		var terr *fsm.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "AddingItems", terr.From)
		assert.Equal(t, "Delivered", terr.To)
	})

	t.Run("vetoed transition publishes no event", func(t *testing.T) {
		o := f.openOrder(t, "")
		before := len(f.bus.Events())
		_, err := f.svc.TransitionTo(ctx, o.ID, order.StateDelivered)
		require.Error(t, err)
		assert.Len(t, f.bus.Events(), before)

		got, err := f.svc.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StateAddingItems, got.State, "state unchanged after veto")
	})

	t.Run("committed transition publishes exactly one event", func(t *testing.T) {
		o := f.openOrder(t, "")
		_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
		require.NoError(t, err)
		_, err = f.svc.SetShippingMethod(ctx, o.ID, "ship-1")
		require.NoError(t, err)

		before := len(f.bus.Events())
		got, err := f.svc.TransitionTo(ctx, o.ID, order.StateArrangingPayment)
		require.NoError(t, err)
		assert.Equal(t, order.StateArrangingPayment, got.State)

		events := f.bus.Events()
		require.Len(t, events, before+1)
		e, ok := events[len(events)-1].(eventbus.OrderStateTransition)
		require.True(t, ok)
		assert.Equal(t, order.StateAddingItems, e.From)
		assert.Equal(t, order.StateArrangingPayment, e.To)
		assert.Equal(t, o.ID, e.OrderID)
	})
}

func checkoutOrder(t *testing.T, f *fixture) *order.Order {
	t.Helper()
	ctx := context.Background()
	o := f.openOrder(t, "cust-1")
	_, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)
	_, err = f.svc.SetShippingMethod(ctx, o.ID, "ship-1")
	require.NoError(t, err)
	got, err := f.svc.TransitionTo(ctx, o.ID, order.StateArrangingPayment)
	require.NoError(t, err)
	return got
}

func TestPaymentFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := checkoutOrder(t, f) // total with tax: 7200 + 600 shipping

	t.Run("partial payment leaves order arranging", func(t *testing.T) {
		p, err := f.svc.AddPayment(ctx, o.ID, "card", 2000)
		require.NoError(t, err)
		assert.Equal(t, payment.StateAuthorized, p.State)

		got, err := f.svc.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StateArrangingPayment, got.State)
	})

	t.Run("covering payment authorizes the order", func(t *testing.T) {
		_, err := f.svc.AddPayment(ctx, o.ID, "card", 5800)
		require.NoError(t, err)

		got, err := f.svc.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatePaymentAuthorized, got.State)
	})

	t.Run("settling all payments settles the order", func(t *testing.T) {
		payments, err := f.payments.ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		for _, p := range payments {
			_, err := f.svc.SettlePayment(ctx, o.ID, p.ID, "tx-"+p.ID)
			require.NoError(t, err)
		}
		got, err := f.svc.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatePaymentSettled, got.State)
	})

	t.Run("payment against a fresh order is rejected", func(t *testing.T) {
		fresh := f.openOrder(t, "")
		_, err := f.svc.AddPayment(ctx, fresh.ID, "card", 100)
		var terr *fsm.TransitionError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestFailedOrderSaveDiscardsPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := checkoutOrder(t, f)

	f.orders.failNextSave = order.ErrStaleRevision
	_, err := f.svc.AddPayment(ctx, o.ID, "card", 2000)
	require.ErrorIs(t, err, order.ErrStaleRevision)

	payments, err := f.payments.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, payments, "payment row must not outlive the failed order save")

	// The next attempt starts from a clean slate.
	p, err := f.svc.AddPayment(ctx, o.ID, "card", 2000)
	require.NoError(t, err)
	assert.Equal(t, payment.StateAuthorized, p.State)

	payments, err = f.payments.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestRefundFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := checkoutOrder(t, f)

	p, err := f.svc.AddPayment(ctx, o.ID, "card", 7800)
	require.NoError(t, err)
	_, err = f.svc.SettlePayment(ctx, o.ID, p.ID, "tx-1")
	require.NoError(t, err)

	t.Run("refund exceeding the payment is rejected", func(t *testing.T) {
		_, err := f.svc.RefundOrder(ctx, o.ID, p.ID, 9000, "damaged")
		assert.ErrorIs(t, err, payment.ErrRefundExceedsPaid)
	})

	r, err := f.svc.RefundOrder(ctx, o.ID, p.ID, 3000, "damaged")
	require.NoError(t, err)
	assert.Equal(t, payment.RefundPending, r.State)

	t.Run("pending refunds consume balance", func(t *testing.T) {
		_, err := f.svc.RefundOrder(ctx, o.ID, p.ID, 5000, "late")
		assert.ErrorIs(t, err, payment.ErrRefundExceedsPaid)
	})

	t.Run("settle publishes a refund event", func(t *testing.T) {
		before := len(f.bus.Events())
		got, err := f.svc.SettleRefund(ctx, r.ID, "tx-refund-1")
		require.NoError(t, err)
		assert.Equal(t, payment.RefundSettled, got.State)

		events := f.bus.Events()
		require.Len(t, events, before+1)
		e, ok := events[len(events)-1].(eventbus.RefundStateTransition)
		require.True(t, ok)
		assert.Equal(t, payment.RefundPending, e.From)
		assert.Equal(t, payment.RefundSettled, e.To)
	})

	t.Run("failed refund releases balance", func(t *testing.T) {
		r2, err := f.svc.RefundOrder(ctx, o.ID, p.ID, 4000, "late")
		require.NoError(t, err)
		_, err = f.svc.FailRefund(ctx, r2.ID)
		require.NoError(t, err)

		_, err = f.svc.RefundOrder(ctx, o.ID, p.ID, 4000, "retry")
		require.NoError(t, err)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")
	_, err := f.svc.AddItem(ctx, o.ID, "var-1", 2)
	require.NoError(t, err)

	got, err := f.svc.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StateCancelled, got.State)
	assert.False(t, got.Active)
	for _, i := range got.Lines[0].Items {
		assert.True(t, i.Cancelled())
	}

	t.Run("cancelling twice is illegal", func(t *testing.T) {
		_, err := f.svc.CancelOrder(ctx, o.ID)
		var terr *fsm.TransitionError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestMergeOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("guest cart merges into the existing active order", func(t *testing.T) {
		f := newFixture(t)

		existing := f.openOrder(t, "cust-1")
		_, err := f.svc.AddItem(ctx, existing.ID, "var-2", 3)
		require.NoError(t, err)

		guest := f.openOrder(t, "")
		_, err = f.svc.AddItem(ctx, guest.ID, "var-1", 1)
		require.NoError(t, err)
		_, err = f.svc.AddItem(ctx, guest.ID, "var-2", 1)
		require.NoError(t, err)

		got, err := f.svc.MergeOrders(ctx, guest.ID, "cust-1")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, got.ID)
		require.Len(t, got.Lines, 2)

		byVariant := map[string]int{}
		for _, l := range got.Lines {
			byVariant[l.VariantID] = order.LineQuantity(l)
		}
		// Guest quantity wins on overlap.
		assert.Equal(t, map[string]int{"var-1": 1, "var-2": 1}, byVariant)

		_, err = f.svc.GetOrder(ctx, guest.ID)
		assert.ErrorIs(t, err, order.ErrNotFound, "guest order deleted after merge")
	})

	t.Run("no existing order reassigns the guest cart", func(t *testing.T) {
		f := newFixture(t)
		guest := f.openOrder(t, "")
		_, err := f.svc.AddItem(ctx, guest.ID, "var-1", 1)
		require.NoError(t, err)

		got, err := f.svc.MergeOrders(ctx, guest.ID, "cust-9")
		require.NoError(t, err)
		assert.Equal(t, guest.ID, got.ID)
		assert.Equal(t, "cust-9", got.CustomerID)
	})

	t.Run("guest order of another customer is rejected", func(t *testing.T) {
		f := newFixture(t)
		o := f.openOrder(t, "cust-1")
		_, err := f.svc.MergeOrders(ctx, o.ID, "cust-2")
		assert.ErrorIs(t, err, order.ErrCustomerMismatch)
	})
}

func TestRevisionBumpsOnEveryMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.openOrder(t, "")
	assert.Equal(t, int64(0), o.Revision)

	got, err := f.svc.AddItem(ctx, o.ID, "var-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision)

	got, err = f.svc.SetShippingMethod(ctx, o.ID, "ship-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Revision)
}
