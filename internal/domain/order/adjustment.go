package order

import "fmt"

// AdjustmentType discriminates the origin of a priced modification.
type AdjustmentType string

const (
	AdjustmentPromotion AdjustmentType = "PROMOTION"
	AdjustmentTax       AdjustmentType = "TAX"
	AdjustmentShipping  AdjustmentType = "SHIPPING"
)

// Adjustment is a value object describing a priced modification attached to
// an order item, the order itself, or the shipping line. Amounts are cents;
// discounts are negative. PROMOTION adjustments are stored tax-exclusive and
// normalized to tax-inclusive values only on read, so recomputation stays
// idempotent.
type Adjustment struct {
	Source      string         `json:"adjustmentSource"`
	Type        AdjustmentType `json:"type"`
	Description string         `json:"description"`
	Amount      int64          `json:"amount"`
}

// AdjustmentSource encodes the origin entity reference, e.g. "Promotion:3".
// It traces an adjustment back to its origin without a hard foreign key.
func AdjustmentSource(entityType, id string) string {
	return fmt.Sprintf("%s:%s", entityType, id)
}
