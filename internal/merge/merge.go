// Package merge decides what happens to cart contents when a guest order and
// an existing active order for the same customer collide at sign-in. A
// strategy reduces the two orders to the desired line set; the order service
// rebuilds the surviving order from that set and recomputes it.
package merge

import (
	"context"

	"github.com/xenking/commerce-core/internal/domain/order"
)

// LineInput is one desired line of the merged order.
type LineInput struct {
	VariantID string
	Quantity  int
}

// Strategy produces the desired line set for the surviving order. Either
// input may be nil when that side has no order; strategies must treat a nil
// side as empty.
type Strategy interface {
	Merge(ctx context.Context, guest, existing *order.Order) []LineInput
}

// MergeLines combines both orders' lines. The guest order's quantity wins for
// variants present in both; existing-only variants are kept. This is the
// default strategy.
type MergeLines struct{}

func (MergeLines) Merge(_ context.Context, guest, existing *order.Order) []LineInput {
	out := linesOf(guest)
	seen := make(map[string]bool, len(out))
	for _, in := range out {
		seen[in.VariantID] = true
	}
	for _, in := range linesOf(existing) {
		if !seen[in.VariantID] {
			out = append(out, in)
		}
	}
	return out
}

// UseGuest discards the existing order's contents in favor of the guest cart.
type UseGuest struct{}

func (UseGuest) Merge(_ context.Context, guest, _ *order.Order) []LineInput {
	return linesOf(guest)
}

// UseExisting discards the guest cart in favor of the existing order.
type UseExisting struct{}

func (UseExisting) Merge(_ context.Context, _, existing *order.Order) []LineInput {
	return linesOf(existing)
}

// linesOf reduces an order to line inputs, skipping empty lines. Quantity
// counts only non-cancelled units.
func linesOf(o *order.Order) []LineInput {
	if o == nil {
		return nil
	}
	var out []LineInput
	for _, l := range o.Lines {
		if qty := order.LineQuantity(l); qty > 0 {
			out = append(out, LineInput{VariantID: l.VariantID, Quantity: qty})
		}
	}
	return out
}
