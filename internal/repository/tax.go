package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-core/internal/domain/tax"
)

const getTaxRateSQL = `SELECT zone, category, value FROM tax_rates
	WHERE zone = $1 AND category IN ($2, $3)
	ORDER BY category = $2 DESC LIMIT 1`

var _ tax.RateProvider = (*TaxRateRepository)(nil)

// TaxRateRepository implements tax.RateProvider backed by PostgreSQL. The
// rate value is a NUMERIC column scanned into a decimal so fractional rates
// stay exact.
type TaxRateRepository struct {
	pool *pgxpool.Pool
}

// NewTaxRateRepository returns a TaxRateRepository that uses the given pool.
func NewTaxRateRepository(pool *pgxpool.Pool) *TaxRateRepository {
	return &TaxRateRepository{pool: pool}
}

// RateFor resolves the rate for a zone and category, preferring the exact
// category and falling back to the zone's default category. A zone with no
// configured rates is zero-rated, not an error.
func (r *TaxRateRepository) RateFor(ctx context.Context, zone, category string) (tax.Rate, error) {
	var rate tax.Rate
	err := r.pool.QueryRow(ctx, getTaxRateSQL, zone, category, tax.DefaultCategory).
		Scan(&rate.Zone, &rate.Category, &rate.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tax.Rate{Zone: zone, Category: category, Value: decimal.Zero}, nil
		}
		return tax.Rate{}, errors.Wrapf(err, "tax rate for zone %q category %q", zone, category)
	}
	return rate, nil
}
