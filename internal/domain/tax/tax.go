// Package tax resolves the tax rate applicable to an order line from the
// order's tax zone and the variant's tax category.
package tax

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-core/internal/domain/order"
)

// DefaultCategory is the tax category assumed for variants without an
// explicit one.
const DefaultCategory = "standard"

// Rate is a configured tax rate: a percentage for one (zone, category) pair.
type Rate struct {
	Zone     string
	Category string
	Value    decimal.Decimal
}

// Source identifies the rate for adjustment traceability.
func (r Rate) Source() string {
	return order.AdjustmentSource("TaxRate", fmt.Sprintf("%s/%s", r.Zone, r.Category))
}

// Description is the human-readable adjustment description.
func (r Rate) Description() string {
	return fmt.Sprintf("Tax %s%% (%s)", r.Value.String(), r.Category)
}

// RateProvider resolves the rate for a zone and category. A missing rate is
// not an error: zero-rated zones are legitimate, so providers fall back to a
// zero rate rather than failing the recompute.
type RateProvider interface {
	RateFor(ctx context.Context, zone, category string) (Rate, error)
}

// ZoneForOrder determines the order's tax zone: the shipping address country
// code when present, otherwise the channel default.
func ZoneForOrder(o *order.Order, defaultZone string) string {
	if o.ShippingAddress.CountryCode != "" {
		return o.ShippingAddress.CountryCode
	}
	return defaultZone
}

// StaticProvider is an in-memory RateProvider used in tests and as a
// fallback. Keys are zone/category.
type StaticProvider struct {
	rates map[string]Rate
}

// NewStaticProvider builds a provider from the given rates.
func NewStaticProvider(rates ...Rate) *StaticProvider {
	m := make(map[string]Rate, len(rates))
	for _, r := range rates {
		m[r.Zone+"/"+r.Category] = r
	}
	return &StaticProvider{rates: m}
}

// RateFor returns the configured rate, falling back to the zone's default
// category and finally to a zero rate.
func (p *StaticProvider) RateFor(_ context.Context, zone, category string) (Rate, error) {
	if r, ok := p.rates[zone+"/"+category]; ok {
		return r, nil
	}
	if r, ok := p.rates[zone+"/"+DefaultCategory]; ok {
		return r, nil
	}
	return Rate{Zone: zone, Category: category, Value: decimal.Zero}, nil
}
