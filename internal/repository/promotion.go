package repository

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-core/internal/domain/promotion"
	"github.com/xenking/commerce-core/internal/operation"
)

const (
	listActivePromotionsSQL = `SELECT id, name, coupon_code, enabled, starts_at, ends_at,
		per_customer_usage_limit, conditions, actions, created_at
		FROM promotions WHERE enabled = TRUE ORDER BY created_at`

	getPromotionByCouponSQL = `SELECT id, name, coupon_code, enabled, starts_at, ends_at,
		per_customer_usage_limit, conditions, actions, created_at
		FROM promotions WHERE coupon_code = $1`

	listCouponCodesSQL = `SELECT coupon_code FROM promotions WHERE coupon_code <> ''`

	countCouponUsesSQL = `SELECT COUNT(*) FROM orders
		WHERE customer_id = $1 AND $2 = ANY(coupon_codes)
		AND state IN ('PaymentAuthorized', 'PaymentSettled', 'PartiallyShipped', 'Shipped', 'Delivered')`

	updatePromotionOperationsSQL = `UPDATE promotions SET conditions = $2, actions = $3 WHERE id = $1`
)

// Coupon lookups are hit with arbitrary user input, so a bloom filter of the
// known codes answers most misses without touching the database. False
// positives fall through to the exact query.
const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

var _ promotion.Repository = (*PromotionRepository)(nil)
var _ promotion.UsageRepository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion lookup and coupon usage counting
// backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewPromotionRepository returns a PromotionRepository that uses the given
// pool. Call WarmCouponFilter at startup to enable the negative cache.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// WarmCouponFilter loads all coupon codes into the bloom filter. Safe to
// call periodically; the filter is swapped atomically.
func (r *PromotionRepository) WarmCouponFilter(ctx context.Context) error {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return errors.Wrap(err, "listing coupon codes")
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var code string
		err := row.Scan(&code)
		return code, err
	})
	if err != nil {
		return errors.Wrap(err, "listing coupon codes")
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, code := range codes {
		filter.AddString(code)
	}

	r.mu.Lock()
	r.filter = filter
	r.mu.Unlock()
	return nil
}

// AddCouponToFilter registers a newly created coupon code with the filter so
// it is findable before the next warm.
func (r *PromotionRepository) AddCouponToFilter(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filter != nil {
		r.filter.AddString(code)
	}
}

// ListActive returns all enabled promotions. Window checks happen in the
// engine so a promotion whose window opens mid-request is not missed.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing active promotions")
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// FindByCouponCode looks up the promotion carrying the code, matched
// case-sensitively. Returns promotion.ErrCouponNotValid when no promotion
// carries it.
func (r *PromotionRepository) FindByCouponCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	r.mu.RLock()
	filter := r.filter
	r.mu.RUnlock()
	if filter != nil && !filter.TestString(code) {
		return nil, promotion.ErrCouponNotValid
	}

	rows, err := r.pool.Query(ctx, getPromotionByCouponSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "finding promotion by coupon %q", code)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrCouponNotValid
		}
		return nil, errors.Wrapf(err, "finding promotion by coupon %q", code)
	}
	return p, nil
}

// CountCouponUses counts the customer's completed orders that carry the
// code. Completed means payment was committed.
func (r *PromotionRepository) CountCouponUses(ctx context.Context, customerID, couponCode string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countCouponUsesSQL, customerID, couponCode).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "counting uses of coupon %q", couponCode)
	}
	return count, nil
}

// UpdateOperations rewrites a promotion's stored condition and action
// configurations. The startup reconciliation pass uses it to persist argument
// lists hydrated against the current specs.
func (r *PromotionRepository) UpdateOperations(ctx context.Context, id string, conditions, actions []operation.Configured) error {
	_, err := r.pool.Exec(ctx, updatePromotionOperationsSQL, id,
		encodeConfigured(conditions), encodeConfigured(actions))
	return errors.Wrapf(err, "updating operations of promotion %q", id)
}

func scanPromotion(row pgx.CollectableRow) (*promotion.Promotion, error) {
	var (
		p          promotion.Promotion
		conditions []byte
		actions    []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.CouponCode, &p.Enabled, &p.StartsAt, &p.EndsAt,
		&p.PerCustomerUsageLimit, &conditions, &actions, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.Conditions, err = decodeConfigured(conditions); err != nil {
		return nil, err
	}
	if p.Actions, err = decodeConfigured(actions); err != nil {
		return nil, err
	}
	return &p, nil
}
