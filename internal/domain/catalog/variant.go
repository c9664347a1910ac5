// Package catalog exposes the read-side of the product catalog needed by the
// pricing pipeline: variants with their list prices and tax categories.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrVariantNotFound is returned when a requested variant does not exist.
var ErrVariantNotFound = errors.New("product variant not found")

// Variant is a purchasable product variant. Price is cents; whether it is
// tax-inclusive depends on how the catalog is priced for the channel.
type Variant struct {
	ID               string
	SKU              string
	Name             string
	Price            int64
	PriceIncludesTax bool
	TaxCategory      string
	CurrencyCode     string
}

// Repository defines read operations on the catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Variant, error)
	GetByIDs(ctx context.Context, ids []string) ([]Variant, error)
	List(ctx context.Context) ([]Variant, error)
}
