// Package order defines the order aggregate: the Order record with its lines
// and per-unit items, the adjustments attached to them, and the order state
// machine. Entities are plain data records; every derived monetary value is
// computed by the pure functions in totals.go so that recomputation is
// mechanically idempotent.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced to API callers.
var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrNotModifiable     = errors.New("order contents can no longer be modified")
	ErrLineNotFound      = errors.New("order line not found")
	ErrStaleRevision     = errors.New("order was modified concurrently")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrNoShippingMethod  = errors.New("order has no shipping method set")
	ErrShippingCountry   = errors.New("invalid shipping country code")
	ErrAlreadyMerged     = errors.New("order has already been merged")
	ErrCustomerMismatch  = errors.New("order belongs to a different customer")
	ErrPaymentIncomplete = errors.New("payments do not cover the order total")
)

// Address holds the shipping destination used for tax zone determination.
type Address struct {
	FullName    string `json:"fullName,omitempty"`
	StreetLine1 string `json:"streetLine1,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode"`
}

// Order is the aggregate root. Totals are always recomputed from lines,
// adjustments and shipping, never mutated independently.
type Order struct {
	ID              string
	Code            string
	State           State
	CustomerID      string // empty while the order is anonymous
	CouponCodes     []string
	Lines           []*Line
	Adjustments     []Adjustment // order-scoped promotion adjustments
	ShippingLine    *ShippingLine
	ShippingAddress Address
	CurrencyCode    string

	SubTotal        int64
	SubTotalWithTax int64
	Shipping        int64
	ShippingWithTax int64
	Total           int64
	TotalWithTax    int64

	// Revision implements optimistic concurrency: a save with a stale
	// revision fails with ErrStaleRevision instead of last-write-wins.
	Revision  int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line groups the units of one product variant. Unit price, quantity, totals
// and adjustments are derived from its Items, not stored.
type Line struct {
	ID                   string
	VariantID            string
	VariantName          string
	TaxCategory          string
	ListPrice            int64
	ListPriceIncludesTax bool
	Items                []*Item
}

// Item is the smallest unit of purchase: one unit of one variant. UnitPrice
// is fixed at creation; TaxRate and Adjustments are rewritten on every
// recompute pass. The fulfillment, refund and cancellation references are
// mutually exclusive lifecycle markers.
type Item struct {
	ID                   string
	UnitPrice            int64
	UnitPriceIncludesTax bool
	TaxRate              decimal.Decimal
	Adjustments          []Adjustment
	FulfillmentID        string
	RefundID             string
	CancellationID       string
}

// Cancelled reports whether the unit was cancelled. Cancelled items are
// excluded from tax, promotion and shipping recomputation but retained on
// the line for history.
func (i *Item) Cancelled() bool { return i.CancellationID != "" }

// ClearAdjustments removes adjustments of the given types in place,
// preserving item identity.
func (i *Item) ClearAdjustments(types ...AdjustmentType) {
	kept := i.Adjustments[:0]
	for _, adj := range i.Adjustments {
		drop := false
		for _, t := range types {
			if adj.Type == t {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, adj)
		}
	}
	i.Adjustments = kept
}

// ShippingLine carries the selected shipping method's charge and any
// shipping-scoped promotion adjustments. The charge itself is the single
// SHIPPING-type adjustment.
type ShippingLine struct {
	MethodID    string
	MethodCode  string
	TaxRate     decimal.Decimal
	Adjustments []Adjustment
}

// LineByID returns the line with the given id, or ErrLineNotFound.
func (o *Order) LineByID(lineID string) (*Line, error) {
	for _, l := range o.Lines {
		if l.ID == lineID {
			return l, nil
		}
	}
	return nil, ErrLineNotFound
}

// LineByVariant returns the line for the given variant, or nil.
func (o *Order) LineByVariant(variantID string) *Line {
	for _, l := range o.Lines {
		if l.VariantID == variantID {
			return l
		}
	}
	return nil
}

// HasCouponCode reports whether code is currently applied. Codes are
// case-sensitive.
func (o *Order) HasCouponCode(code string) bool {
	for _, c := range o.CouponCodes {
		if c == code {
			return true
		}
	}
	return false
}

// AddCouponCode appends code unless already applied, preserving order.
func (o *Order) AddCouponCode(code string) {
	if !o.HasCouponCode(code) {
		o.CouponCodes = append(o.CouponCodes, code)
	}
}

// RemoveCouponCode strips code if applied. Removing a code that was never
// applied is a no-op.
func (o *Order) RemoveCouponCode(code string) {
	kept := o.CouponCodes[:0]
	for _, c := range o.CouponCodes {
		if c != code {
			kept = append(kept, c)
		}
	}
	o.CouponCodes = kept
}

// Repository defines persistence for the order graph. Save writes the whole
// graph (order, lines, items, shipping line) atomically and enforces the
// optimistic revision check.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
}
