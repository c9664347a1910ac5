package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/commerce-core/internal/domain/payment"
)

const (
	getPaymentSQL = `SELECT id, order_id, method, amount, state, transaction_id,
		error_message, created_at, updated_at
		FROM payments WHERE id = $1`

	listPaymentsByOrderSQL = `SELECT id, order_id, method, amount, state, transaction_id,
		error_message, created_at, updated_at
		FROM payments WHERE order_id = $1 ORDER BY created_at`

	insertPaymentSQL = `INSERT INTO payments (id, order_id, method, amount, state,
		transaction_id, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updatePaymentSQL = `UPDATE payments SET state = $2, transaction_id = $3,
		error_message = $4, updated_at = $5 WHERE id = $1`

	getRefundSQL = `SELECT id, payment_id, order_id, total, reason, state,
		transaction_id, created_at, updated_at
		FROM refunds WHERE id = $1`

	listRefundsByOrderSQL = `SELECT id, payment_id, order_id, total, reason, state,
		transaction_id, created_at, updated_at
		FROM refunds WHERE order_id = $1 ORDER BY created_at`

	insertRefundSQL = `INSERT INTO refunds (id, payment_id, order_id, total, reason,
		state, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateRefundSQL = `UPDATE refunds SET state = $2, transaction_id = $3,
		updated_at = $4 WHERE id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL. It
// is handed out transaction-bound by Txn, so payment and refund rows written
// during an order mutation commit and roll back with the order row.
type PaymentRepository struct {
	db DB
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	rows, err := r.db.Query(ctx, getPaymentSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting payment %q", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting payment %q", id)
	}
	return p, nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*payment.Payment, error) {
	rows, err := r.db.Query(ctx, listPaymentsByOrderSQL, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing payments of order %q", orderID)
	}
	return pgx.CollectRows(rows, scanPayment)
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.db.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Method, p.Amount, string(p.State),
		p.TransactionID, p.ErrorMessage, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrapf(err, "creating payment %q", p.ID)
}

func (r *PaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	_, err := r.db.Exec(ctx, updatePaymentSQL,
		p.ID, string(p.State), p.TransactionID, p.ErrorMessage, p.UpdatedAt,
	)
	return errors.Wrapf(err, "saving payment %q", p.ID)
}

func (r *PaymentRepository) GetRefundByID(ctx context.Context, id string) (*payment.Refund, error) {
	rows, err := r.db.Query(ctx, getRefundSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting refund %q", id)
	}
	ref, err := pgx.CollectExactlyOneRow(rows, scanRefund)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrRefundNotFound
		}
		return nil, errors.Wrapf(err, "getting refund %q", id)
	}
	return ref, nil
}

func (r *PaymentRepository) ListRefundsByOrder(ctx context.Context, orderID string) ([]*payment.Refund, error) {
	rows, err := r.db.Query(ctx, listRefundsByOrderSQL, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing refunds of order %q", orderID)
	}
	return pgx.CollectRows(rows, scanRefund)
}

func (r *PaymentRepository) CreateRefund(ctx context.Context, ref *payment.Refund) error {
	_, err := r.db.Exec(ctx, insertRefundSQL,
		ref.ID, ref.PaymentID, ref.OrderID, ref.Total, ref.Reason,
		string(ref.State), ref.TransactionID, ref.CreatedAt, ref.UpdatedAt,
	)
	return errors.Wrapf(err, "creating refund %q", ref.ID)
}

func (r *PaymentRepository) SaveRefund(ctx context.Context, ref *payment.Refund) error {
	_, err := r.db.Exec(ctx, updateRefundSQL,
		ref.ID, string(ref.State), ref.TransactionID, ref.UpdatedAt,
	)
	return errors.Wrapf(err, "saving refund %q", ref.ID)
}

func scanPayment(row pgx.CollectableRow) (*payment.Payment, error) {
	var (
		p     payment.Payment
		state string
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &state,
		&p.TransactionID, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt)
	p.State = payment.State(state)
	return &p, err
}

func scanRefund(row pgx.CollectableRow) (*payment.Refund, error) {
	var (
		ref   payment.Refund
		state string
	)
	err := row.Scan(&ref.ID, &ref.PaymentID, &ref.OrderID, &ref.Total, &ref.Reason,
		&state, &ref.TransactionID, &ref.CreatedAt, &ref.UpdatedAt)
	ref.State = payment.RefundState(state)
	return &ref, err
}
