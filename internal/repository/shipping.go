package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-core/internal/domain/shipping"
	"github.com/xenking/commerce-core/internal/operation"
)

const (
	listShippingMethodsSQL = `SELECT id, code, description, checker, calculator
		FROM shipping_methods ORDER BY code`

	getShippingMethodByIDSQL = `SELECT id, code, description, checker, calculator
		FROM shipping_methods WHERE id = $1`

	getShippingMethodByCodeSQL = `SELECT id, code, description, checker, calculator
		FROM shipping_methods WHERE code = $1`

	updateShippingMethodOperationsSQL = `UPDATE shipping_methods
		SET checker = $2, calculator = $3 WHERE id = $1`
)

var _ shipping.Repository = (*ShippingMethodRepository)(nil)

// ShippingMethodRepository implements shipping.Repository backed by
// PostgreSQL. Checker and calculator configurations live in JSONB columns.
type ShippingMethodRepository struct {
	pool *pgxpool.Pool
}

// NewShippingMethodRepository returns a repository that uses the given pool.
func NewShippingMethodRepository(pool *pgxpool.Pool) *ShippingMethodRepository {
	return &ShippingMethodRepository{pool: pool}
}

// List returns all shipping methods ordered by code.
func (r *ShippingMethodRepository) List(ctx context.Context) ([]*shipping.Method, error) {
	rows, err := r.pool.Query(ctx, listShippingMethodsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing shipping methods")
	}
	return pgx.CollectRows(rows, scanShippingMethod)
}

// GetByID returns a single method by its identifier.
func (r *ShippingMethodRepository) GetByID(ctx context.Context, id string) (*shipping.Method, error) {
	return r.getOne(ctx, getShippingMethodByIDSQL, id)
}

// GetByCode returns a single method by its code.
func (r *ShippingMethodRepository) GetByCode(ctx context.Context, code string) (*shipping.Method, error) {
	return r.getOne(ctx, getShippingMethodByCodeSQL, code)
}

func (r *ShippingMethodRepository) getOne(ctx context.Context, sql, arg string) (*shipping.Method, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "getting shipping method %q", arg)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanShippingMethod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrMethodNotFound
		}
		return nil, errors.Wrapf(err, "getting shipping method %q", arg)
	}
	return m, nil
}

// UpdateOperations rewrites a method's stored checker and calculator
// configurations. The startup reconciliation pass uses it to persist argument
// lists hydrated against the current specs. An empty checker code keeps the
// column NULL.
func (r *ShippingMethodRepository) UpdateOperations(ctx context.Context, id string, checker, calculator operation.Configured) error {
	var checkerJSON []byte
	if checker.Code != "" {
		checkerJSON = encodeSingleConfigured(checker)
	}
	_, err := r.pool.Exec(ctx, updateShippingMethodOperationsSQL, id,
		checkerJSON, encodeSingleConfigured(calculator))
	return errors.Wrapf(err, "updating operations of shipping method %q", id)
}

func scanShippingMethod(row pgx.CollectableRow) (*shipping.Method, error) {
	var (
		m          shipping.Method
		checker    []byte
		calculator []byte
	)
	err := row.Scan(&m.ID, &m.Code, &m.Description, &checker, &calculator)
	if err != nil {
		return nil, err
	}
	if m.Checker, err = decodeSingleConfigured(checker); err != nil {
		return nil, err
	}
	if m.Calculator, err = decodeSingleConfigured(calculator); err != nil {
		return nil, err
	}
	return &m, nil
}
