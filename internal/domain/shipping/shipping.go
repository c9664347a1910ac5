// Package shipping defines shipping methods as pairs of configurable
// operations: an eligibility checker and a price calculator.
package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/money"
	"github.com/xenking/commerce-core/internal/operation"
)

// Errors surfaced when selecting a method for an order.
var (
	ErrMethodNotFound = errors.New("shipping method not found")
	ErrNotEligible    = errors.New("shipping method not eligible for this order")
)

// Method is a configured shipping method.
type Method struct {
	ID          string
	Code        string
	Description string
	Checker     operation.Configured
	Calculator  operation.Configured
}

// SourceID is the adjustment source reference for this method.
func (m *Method) SourceID() string {
	return order.AdjustmentSource("ShippingMethod", m.ID)
}

// Repository provides shipping method lookup.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Method, error)
	GetByCode(ctx context.Context, code string) (*Method, error)
	List(ctx context.Context) ([]*Method, error)
}

// Quote is a calculator's result: the shipping price, whether it was quoted
// tax-inclusive, and the applicable tax rate.
type Quote struct {
	Price            int64
	PriceIncludesTax bool
	TaxRate          decimal.Decimal
}

// NetPrice normalizes the quote to a tax-exclusive charge.
func (q Quote) NetPrice() int64 {
	if q.PriceIncludesTax {
		return money.NetFromGross(q.Price, q.TaxRate)
	}
	return q.Price
}

// EligibilityDef is a registered eligibility checker.
type EligibilityDef struct {
	Code        string
	Description string
	Args        []operation.ArgSpec
	Check       func(ctx context.Context, o *order.Order, args operation.Args) (bool, error)
}

func (d EligibilityDef) OpCode() string                { return d.Code }
func (d EligibilityDef) ArgSpecs() []operation.ArgSpec { return d.Args }

// CalculatorDef is a registered price calculator.
type CalculatorDef struct {
	Code        string
	Description string
	Args        []operation.ArgSpec
	Calculate   func(ctx context.Context, o *order.Order, args operation.Args) (Quote, error)
}

func (d CalculatorDef) OpCode() string                { return d.Code }
func (d CalculatorDef) ArgSpecs() []operation.ArgSpec { return d.Args }

// Built-in operation codes.
const (
	CheckerMinimumSubtotal = "minimum_subtotal_eligibility"
	CheckerAlways          = "always_eligible"
	CalculatorFlatRate     = "flat_rate_calculator"
	CalculatorPercentage   = "order_percentage_calculator"
)

// DefaultCheckers returns the built-in eligibility checkers.
func DefaultCheckers() []EligibilityDef {
	return []EligibilityDef{
		{
			Code:        CheckerAlways,
			Description: "Eligible for every order",
			Check: func(_ context.Context, _ *order.Order, _ operation.Args) (bool, error) {
				return true, nil
			},
		},
		{
			Code:        CheckerMinimumSubtotal,
			Description: "Eligible once the order subtotal reaches a minimum",
			Args: []operation.ArgSpec{
				{Name: "minimum", Type: operation.ArgInt, Default: "0"},
			},
			Check: func(_ context.Context, o *order.Order, args operation.Args) (bool, error) {
				return order.SubTotal(o) >= int64(args.Int("minimum")), nil
			},
		},
	}
}

// DefaultCalculators returns the built-in price calculators.
func DefaultCalculators() []CalculatorDef {
	return []CalculatorDef{
		{
			Code:        CalculatorFlatRate,
			Description: "Fixed shipping charge",
			Args: []operation.ArgSpec{
				{Name: "rate", Type: operation.ArgInt, Default: "0"},
				{Name: "includesTax", Type: operation.ArgBoolean, Default: "false"},
				{Name: "taxRate", Type: operation.ArgFloat, Default: "0"},
			},
			Calculate: func(_ context.Context, _ *order.Order, args operation.Args) (Quote, error) {
				return Quote{
					Price:            int64(args.Int("rate")),
					PriceIncludesTax: args.Bool("includesTax"),
					TaxRate:          args.Decimal("taxRate"),
				}, nil
			},
		},
		{
			Code:        CalculatorPercentage,
			Description: "Charge a percentage of the order subtotal",
			Args: []operation.ArgSpec{
				{Name: "percentage", Type: operation.ArgFloat, Default: "0"},
				{Name: "taxRate", Type: operation.ArgFloat, Default: "0"},
			},
			Calculate: func(_ context.Context, o *order.Order, args operation.Args) (Quote, error) {
				price := money.Percentage(order.SubTotal(o), args.Decimal("percentage"))
				return Quote{Price: price, TaxRate: args.Decimal("taxRate")}, nil
			},
		},
	}
}
