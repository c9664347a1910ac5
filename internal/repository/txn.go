package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
)

// Txn runs order workflow mutations inside a single database transaction.
// The repositories handed to fn are bound to that transaction, so the order
// graph and its payment and refund rows commit or roll back as one unit.
type Txn struct {
	pool *pgxpool.Pool
}

// NewTxn returns a Txn over the given pool.
func NewTxn(pool *pgxpool.Pool) *Txn {
	return &Txn{pool: pool}
}

// WithTx begins a transaction, runs fn with transaction-bound repositories,
// and commits. Any error from fn rolls the whole transaction back.
func (t *Txn) WithTx(ctx context.Context, fn func(ctx context.Context, orders order.Repository, payments payment.Repository) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &OrderRepository{db: tx}, &PaymentRepository{db: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit transaction")
}
