package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-core/internal/money"
)

// The functions in this file derive every monetary value of an order from
// the stored fields of its items. None of them mutate their input except
// RecalculateTotals, which writes the summed totals back onto the Order.

// ItemNetUnitPrice returns the tax-exclusive unit price: the stored price
// when entered tax-exclusive, or the stored price minus its implied tax when
// entered tax-inclusive.
func ItemNetUnitPrice(i *Item) int64 {
	if i.UnitPriceIncludesTax {
		return money.NetFromGross(i.UnitPrice, i.TaxRate)
	}
	return i.UnitPrice
}

// ItemTaxTotal sums the TAX adjustments attached to the item.
func ItemTaxTotal(i *Item) int64 {
	return sumAdjustments(i.Adjustments, AdjustmentTax)
}

// ItemPromotionTotal sums the PROMOTION adjustments attached to the item.
// Discounts are negative.
func ItemPromotionTotal(i *Item) int64 {
	return sumAdjustments(i.Adjustments, AdjustmentPromotion)
}

// ItemDiscountedNet is the tax-exclusive unit price after item-scoped
// promotions, floored at zero.
func ItemDiscountedNet(i *Item) int64 {
	return money.FloorAtZero(ItemNetUnitPrice(i) + ItemPromotionTotal(i))
}

// ItemTotal is the item's contribution to the order subtotal (net).
func ItemTotal(i *Item) int64 {
	return ItemDiscountedNet(i)
}

// ItemTotalWithTax is the tax-inclusive item total, with tax computed on the
// discounted basis.
func ItemTotalWithTax(i *Item) int64 {
	net := ItemDiscountedNet(i)
	return net + money.TaxOn(net, i.TaxRate)
}

// ItemUnitPriceWithTax is the undiscounted tax-inclusive unit price.
func ItemUnitPriceWithTax(i *Item) int64 {
	if i.UnitPriceIncludesTax {
		return i.UnitPrice
	}
	return money.GrossFrom(i.UnitPrice, i.TaxRate)
}

// ItemAdjustmentsWithTax returns the item's adjustments with PROMOTION
// amounts normalized to tax-inclusive display values. The stored adjustments
// are never modified.
func ItemAdjustmentsWithTax(i *Item) []Adjustment {
	out := make([]Adjustment, len(i.Adjustments))
	for idx, adj := range i.Adjustments {
		if adj.Type == AdjustmentPromotion {
			adj.Amount = money.GrossFrom(adj.Amount, i.TaxRate)
		}
		out[idx] = adj
	}
	return out
}

// LineQuantity counts the non-cancelled units of a line.
func LineQuantity(l *Line) int {
	n := 0
	for _, i := range l.Items {
		if !i.Cancelled() {
			n++
		}
	}
	return n
}

// LineTotal sums the net totals of the line's non-cancelled items.
func LineTotal(l *Line) int64 {
	var sum int64
	for _, i := range l.Items {
		if !i.Cancelled() {
			sum += ItemTotal(i)
		}
	}
	return sum
}

// LineTotalWithTax sums the tax-inclusive totals of the line's non-cancelled
// items.
func LineTotalWithTax(l *Line) int64 {
	var sum int64
	for _, i := range l.Items {
		if !i.Cancelled() {
			sum += ItemTotalWithTax(i)
		}
	}
	return sum
}

// LineAdjustments flattens the adjustments of the line's non-cancelled items.
func LineAdjustments(l *Line) []Adjustment {
	var out []Adjustment
	for _, i := range l.Items {
		if !i.Cancelled() {
			out = append(out, i.Adjustments...)
		}
	}
	return out
}

// SubTotal is the net sum of all line totals, including item-scoped
// promotion adjustments but excluding order-scoped ones.
func SubTotal(o *Order) int64 {
	var sum int64
	for _, l := range o.Lines {
		sum += LineTotal(l)
	}
	return sum
}

// SubTotalWithTax is the tax-inclusive sum of all line totals.
func SubTotalWithTax(o *Order) int64 {
	var sum int64
	for _, l := range o.Lines {
		sum += LineTotalWithTax(l)
	}
	return sum
}

// OrderPromotionTotal sums the order-scoped PROMOTION adjustments (negative).
func OrderPromotionTotal(o *Order) int64 {
	return sumAdjustments(o.Adjustments, AdjustmentPromotion)
}

// OrderAdjustmentsWithTax returns the order-scoped adjustments normalized to
// tax-inclusive display values. An order-scoped discount is stored against
// the net subtotal; its inclusive value scales by the order's effective tax
// ratio. Read-only normalization keeps the stored amounts untouched.
func OrderAdjustmentsWithTax(o *Order) []Adjustment {
	net := SubTotal(o)
	gross := SubTotalWithTax(o)
	out := make([]Adjustment, len(o.Adjustments))
	for idx, adj := range o.Adjustments {
		if adj.Type == AdjustmentPromotion && net > 0 {
			scaled := decimal.NewFromInt(adj.Amount).
				Mul(decimal.NewFromInt(gross)).
				Div(decimal.NewFromInt(net))
			adj.Amount = money.Round(scaled)
		}
		out[idx] = adj
	}
	return out
}

// ShippingTotal is the net shipping charge after shipping-scoped promotions,
// floored at zero. Zero when no shipping line is set.
func ShippingTotal(o *Order) int64 {
	if o.ShippingLine == nil {
		return 0
	}
	var sum int64
	for _, adj := range o.ShippingLine.Adjustments {
		sum += adj.Amount
	}
	return money.FloorAtZero(sum)
}

// ShippingTotalWithTax applies the shipping line's tax rate to the net
// shipping total.
func ShippingTotalWithTax(o *Order) int64 {
	if o.ShippingLine == nil {
		return 0
	}
	net := ShippingTotal(o)
	return net + money.TaxOn(net, o.ShippingLine.TaxRate)
}

// Total is the net order total: subtotal plus order-scoped promotions plus
// shipping, floored at zero.
func Total(o *Order) int64 {
	return money.FloorAtZero(SubTotal(o)+OrderPromotionTotal(o)) + ShippingTotal(o)
}

// TotalWithTax is the tax-inclusive order total, using the normalized
// order-scoped adjustment values.
func TotalWithTax(o *Order) int64 {
	var orderAdj int64
	for _, adj := range OrderAdjustmentsWithTax(o) {
		if adj.Type == AdjustmentPromotion {
			orderAdj += adj.Amount
		}
	}
	return money.FloorAtZero(SubTotalWithTax(o)+orderAdj) + ShippingTotalWithTax(o)
}

// RecalculateTotals writes the derived totals back onto the order record.
// Called at the end of every recompute pass before persisting.
func RecalculateTotals(o *Order) {
	o.SubTotal = SubTotal(o)
	o.SubTotalWithTax = SubTotalWithTax(o)
	o.Shipping = ShippingTotal(o)
	o.ShippingWithTax = ShippingTotalWithTax(o)
	o.Total = Total(o)
	o.TotalWithTax = TotalWithTax(o)
}

func sumAdjustments(adjustments []Adjustment, t AdjustmentType) int64 {
	var sum int64
	for _, adj := range adjustments {
		if adj.Type == t {
			sum += adj.Amount
		}
	}
	return sum
}
