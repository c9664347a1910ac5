package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-core/internal/domain/catalog"
)

const (
	listVariantsSQL = `SELECT id, sku, name, price, price_includes_tax, tax_category, currency_code
		FROM product_variants ORDER BY id`

	getVariantByIDSQL = `SELECT id, sku, name, price, price_includes_tax, tax_category, currency_code
		FROM product_variants WHERE id = $1`

	getVariantsByIDsSQL = `SELECT id, sku, name, price, price_includes_tax, tax_category, currency_code
		FROM product_variants WHERE id = ANY($1)`
)

var _ catalog.Repository = (*VariantRepository)(nil)

// VariantRepository implements catalog.Repository backed by PostgreSQL.
type VariantRepository struct {
	pool *pgxpool.Pool
}

// NewVariantRepository returns a VariantRepository that uses the given pool.
func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// List returns all variants ordered by ID.
func (r *VariantRepository) List(ctx context.Context) ([]catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, listVariantsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing variants")
	}
	return pgx.CollectRows(rows, scanVariant)
}

// GetByID returns a single variant by its identifier.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting variant %q", id)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, errors.Wrapf(err, "getting variant %q", id)
	}
	return &v, nil
}

// GetByIDs returns variants matching any of the given IDs in one query.
func (r *VariantRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting variants by ids")
	}
	return pgx.CollectRows(rows, scanVariant)
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.SKU, &v.Name, &v.Price, &v.PriceIncludesTax,
		&v.TaxCategory, &v.CurrencyCode)
	return v, err
}
