// Package calculator implements the order price adjustment pipeline: on every
// mutation the order's adjustments are discarded and rebuilt from scratch in
// a fixed pass order (tax, then promotions, then shipping), so recomputation
// is idempotent by construction.
package calculator

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/promotion"
	"github.com/xenking/commerce-core/internal/domain/shipping"
	"github.com/xenking/commerce-core/internal/domain/tax"
	"github.com/xenking/commerce-core/internal/money"
	"github.com/xenking/commerce-core/internal/operation"
)

// Calculator rebuilds an order's adjustments and totals. It is stateless:
// everything it needs arrives through the order and the injected
// collaborators.
type Calculator struct {
	rates       tax.RateProvider
	engine      *promotion.Engine
	methods     shipping.Repository
	checkers    *operation.Registry[shipping.EligibilityDef]
	calculators *operation.Registry[shipping.CalculatorDef]
	defaultZone string
}

// New constructs a Calculator.
func New(
	rates tax.RateProvider,
	engine *promotion.Engine,
	methods shipping.Repository,
	checkers *operation.Registry[shipping.EligibilityDef],
	calculators *operation.Registry[shipping.CalculatorDef],
	defaultZone string,
) *Calculator {
	return &Calculator{
		rates:       rates,
		engine:      engine,
		methods:     methods,
		checkers:    checkers,
		calculators: calculators,
		defaultZone: defaultZone,
	}
}

// ApplyPriceAdjustments is the single recompute entry point. Passes run in a
// fixed order:
//
//  1. discard all TAX and PROMOTION adjustments (SHIPPING charges are rebuilt
//     with the shipping pass),
//  2. resolve and apply tax rates per item,
//  3. verify applied coupon codes and select eligible promotions,
//  4. run item- and order-scoped promotion actions,
//  5. rebuild the shipping charge from the selected method,
//  6. run shipping-scoped promotion actions,
//  7. write the summed totals back onto the order.
//
// Cancelled items keep their historical adjustments and are excluded from
// every pass.
func (c *Calculator) ApplyPriceAdjustments(ctx context.Context, o *order.Order, promos []*promotion.Promotion) error {
	c.clearAdjustments(o)

	if err := c.applyTaxes(ctx, o); err != nil {
		return err
	}

	if err := c.engine.VerifyCouponCodes(ctx, o, promos); err != nil {
		return err
	}
	eligible, err := c.engine.Eligible(ctx, o, promos)
	if err != nil {
		return err
	}
	if err := c.engine.ApplyItemAndOrderActions(ctx, o, eligible); err != nil {
		return err
	}

	if err := c.applyShippingCharge(ctx, o); err != nil {
		return err
	}
	if err := c.engine.ApplyShippingActions(ctx, o, eligible); err != nil {
		return err
	}

	order.RecalculateTotals(o)
	return nil
}

// VerifyMethodEligible runs the method's eligibility checker against the
// order. Returns shipping.ErrNotEligible when the checker rejects it.
func (c *Calculator) VerifyMethodEligible(ctx context.Context, o *order.Order, m *shipping.Method) error {
	if m.Checker.Code == "" {
		return nil
	}
	def, args, err := c.checkers.CoerceArgs(m.Checker)
	if err != nil {
		return err
	}
	ok, err := def.Check(ctx, o, args)
	if err != nil {
		return errors.Wrapf(err, "checker %q", def.Code)
	}
	if !ok {
		return shipping.ErrNotEligible
	}
	return nil
}

func (c *Calculator) clearAdjustments(o *order.Order) {
	for _, l := range o.Lines {
		for _, i := range l.Items {
			if i.Cancelled() {
				continue
			}
			i.ClearAdjustments(order.AdjustmentTax, order.AdjustmentPromotion)
		}
	}
	kept := o.Adjustments[:0]
	for _, adj := range o.Adjustments {
		if adj.Type != order.AdjustmentPromotion {
			kept = append(kept, adj)
		}
	}
	o.Adjustments = kept
	if o.ShippingLine != nil {
		o.ShippingLine.Adjustments = nil
	}
}

// applyTaxes resolves the rate for each line from the order's tax zone and
// the line's tax category, stamps it on every live item, and records a TAX
// adjustment for traceability. The adjustment amount is the tax on the
// undiscounted net unit price; totals recompute tax on the discounted basis.
func (c *Calculator) applyTaxes(ctx context.Context, o *order.Order) error {
	zone := tax.ZoneForOrder(o, c.defaultZone)
	for _, l := range o.Lines {
		category := l.TaxCategory
		if category == "" {
			category = tax.DefaultCategory
		}
		rate, err := c.rates.RateFor(ctx, zone, category)
		if err != nil {
			return errors.Wrapf(err, "tax rate for zone %q category %q", zone, category)
		}
		for _, i := range l.Items {
			if i.Cancelled() {
				continue
			}
			i.TaxRate = rate.Value
			taxAmount := money.TaxOn(order.ItemNetUnitPrice(i), rate.Value)
			if taxAmount != 0 {
				i.Adjustments = append(i.Adjustments, order.Adjustment{
					Source:      rate.Source(),
					Type:        order.AdjustmentTax,
					Description: rate.Description(),
					Amount:      taxAmount,
				})
			}
		}
	}
	return nil
}

// applyShippingCharge re-quotes the selected method and records the charge as
// the shipping line's single SHIPPING adjustment. No shipping line, no
// charge.
func (c *Calculator) applyShippingCharge(ctx context.Context, o *order.Order) error {
	if o.ShippingLine == nil {
		return nil
	}
	m, err := c.methods.GetByID(ctx, o.ShippingLine.MethodID)
	if err != nil {
		return errors.Wrapf(err, "shipping method %q", o.ShippingLine.MethodID)
	}
	def, args, err := c.calculators.CoerceArgs(m.Calculator)
	if err != nil {
		return err
	}
	quote, err := def.Calculate(ctx, o, args)
	if err != nil {
		return errors.Wrapf(err, "calculator %q", def.Code)
	}

	o.ShippingLine.MethodCode = m.Code
	o.ShippingLine.TaxRate = quote.TaxRate
	o.ShippingLine.Adjustments = []order.Adjustment{{
		Source:      m.SourceID(),
		Type:        order.AdjustmentShipping,
		Description: m.Description,
		Amount:      quote.NetPrice(),
	}}
	return nil
}
