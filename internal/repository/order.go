package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-core/internal/domain/order"
)

const (
	getOrderSQL = `SELECT id, code, state, customer_id, coupon_codes, adjustments,
		shipping_line, shipping_address, currency_code,
		sub_total, sub_total_with_tax, shipping, shipping_with_tax, total, total_with_tax,
		revision, active, created_at, updated_at
		FROM orders WHERE id = $1`

	getActiveOrderSQL = `SELECT id, code, state, customer_id, coupon_codes, adjustments,
		shipping_line, shipping_address, currency_code,
		sub_total, sub_total_with_tax, shipping, shipping_with_tax, total, total_with_tax,
		revision, active, created_at, updated_at
		FROM orders WHERE customer_id = $1 AND active = TRUE
		ORDER BY created_at DESC LIMIT 1`

	getOrderLinesSQL = `SELECT id, variant_id, variant_name, tax_category,
		list_price, list_price_includes_tax
		FROM order_lines WHERE order_id = $1 ORDER BY position`

	getOrderItemsSQL = `SELECT id, line_id, unit_price, unit_price_includes_tax,
		tax_rate, adjustments, fulfillment_id, refund_id, cancellation_id
		FROM order_items WHERE order_id = $1 ORDER BY position`

	insertOrderSQL = `INSERT INTO orders (id, code, state, customer_id, coupon_codes, adjustments,
		shipping_line, shipping_address, currency_code,
		sub_total, sub_total_with_tax, shipping, shipping_with_tax, total, total_with_tax,
		revision, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	updateOrderSQL = `UPDATE orders SET state = $2, customer_id = $3, coupon_codes = $4,
		adjustments = $5, shipping_line = $6, shipping_address = $7, currency_code = $8,
		sub_total = $9, sub_total_with_tax = $10, shipping = $11, shipping_with_tax = $12,
		total = $13, total_with_tax = $14, revision = $15, active = $16, updated_at = $17
		WHERE id = $1 AND revision = $18`

	deleteOrderLinesSQL = `DELETE FROM order_lines WHERE order_id = $1`

	insertOrderLineSQL = `INSERT INTO order_lines (id, order_id, variant_id, variant_name,
		tax_category, list_price, list_price_includes_tax, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertOrderItemSQL = `INSERT INTO order_items (id, line_id, order_id, unit_price,
		unit_price_includes_tax, tax_rate, adjustments,
		fulfillment_id, refund_id, cancellation_id, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// order graph (order, lines, items) is written atomically: the order row is
// updated with an optimistic revision check and the line/item rows are
// replaced wholesale, preserving their ids. Mutations run through Txn, which
// rebinds the repository to an open transaction.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

// GetByID loads the full order graph.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := r.scanOrder(r.db.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetActiveByCustomer loads the customer's most recent active order.
func (r *OrderRepository) GetActiveByCustomer(ctx context.Context, customerID string) (*order.Order, error) {
	o, err := r.scanOrder(r.db.QueryRow(ctx, getActiveOrderSQL, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get active order for customer %q", customerID)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts a new order graph.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID, o.Code, string(o.State), o.CustomerID, o.CouponCodes,
		encodeAdjustments(o.Adjustments), encodeShippingLine(o.ShippingLine),
		encodeAddress(o.ShippingAddress), o.CurrencyCode,
		o.SubTotal, o.SubTotalWithTax, o.Shipping, o.ShippingWithTax, o.Total, o.TotalWithTax,
		o.Revision, o.Active, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return r.writeLines(ctx, o)
}

// Save updates the order graph. The revision on the order must be exactly
// one ahead of the stored row; otherwise ErrStaleRevision.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	tag, err := r.db.Exec(ctx, updateOrderSQL,
		o.ID, string(o.State), o.CustomerID, o.CouponCodes,
		encodeAdjustments(o.Adjustments), encodeShippingLine(o.ShippingLine),
		encodeAddress(o.ShippingAddress), o.CurrencyCode,
		o.SubTotal, o.SubTotalWithTax, o.Shipping, o.ShippingWithTax, o.Total, o.TotalWithTax,
		o.Revision, o.Active, o.UpdatedAt,
		o.Revision-1,
	)
	if err != nil {
		return errors.Wrapf(err, "save order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return errors.Wrapf(err, "save order %q", o.ID)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrStaleRevision
	}

	if _, err := r.db.Exec(ctx, deleteOrderLinesSQL, o.ID); err != nil {
		return errors.Wrapf(err, "replace lines of order %q", o.ID)
	}
	return r.writeLines(ctx, o)
}

// Delete removes the order graph. Lines and items cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, deleteOrderSQL, id)
	return errors.Wrapf(err, "delete order %q", id)
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o               order.Order
		state           string
		adjustments     []byte
		shippingLine    []byte
		shippingAddress []byte
	)
	err := row.Scan(
		&o.ID, &o.Code, &state, &o.CustomerID, &o.CouponCodes, &adjustments,
		&shippingLine, &shippingAddress, &o.CurrencyCode,
		&o.SubTotal, &o.SubTotalWithTax, &o.Shipping, &o.ShippingWithTax, &o.Total, &o.TotalWithTax,
		&o.Revision, &o.Active, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.State = order.State(state)
	if o.Adjustments, err = decodeAdjustments(adjustments); err != nil {
		return nil, err
	}
	if o.ShippingLine, err = decodeShippingLine(shippingLine); err != nil {
		return nil, err
	}
	if o.ShippingAddress, err = decodeAddress(shippingAddress); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, o *order.Order) error {
	rows, err := r.db.Query(ctx, getOrderLinesSQL, o.ID)
	if err != nil {
		return errors.Wrapf(err, "load lines of order %q", o.ID)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*order.Line, error) {
		var l order.Line
		err := row.Scan(&l.ID, &l.VariantID, &l.VariantName, &l.TaxCategory,
			&l.ListPrice, &l.ListPriceIncludesTax)
		return &l, err
	})
	if err != nil {
		return errors.Wrapf(err, "load lines of order %q", o.ID)
	}
	byLine := make(map[string]*order.Line, len(lines))
	for _, l := range lines {
		byLine[l.ID] = l
	}

	itemRows, err := r.db.Query(ctx, getOrderItemsSQL, o.ID)
	if err != nil {
		return errors.Wrapf(err, "load items of order %q", o.ID)
	}
	type itemRow struct {
		lineID string
		item   *order.Item
	}
	items, err := pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (itemRow, error) {
		var (
			ir          itemRow
			i           order.Item
			adjustments []byte
		)
		err := row.Scan(&i.ID, &ir.lineID, &i.UnitPrice, &i.UnitPriceIncludesTax,
			&i.TaxRate, &adjustments, &i.FulfillmentID, &i.RefundID, &i.CancellationID)
		if err != nil {
			return ir, err
		}
		if i.Adjustments, err = decodeAdjustments(adjustments); err != nil {
			return ir, err
		}
		ir.item = &i
		return ir, nil
	})
	if err != nil {
		return errors.Wrapf(err, "load items of order %q", o.ID)
	}
	for _, ir := range items {
		if l, ok := byLine[ir.lineID]; ok {
			l.Items = append(l.Items, ir.item)
		}
	}
	o.Lines = lines
	return nil
}

func (r *OrderRepository) writeLines(ctx context.Context, o *order.Order) error {
	for pos, l := range o.Lines {
		_, err := r.db.Exec(ctx, insertOrderLineSQL,
			l.ID, o.ID, l.VariantID, l.VariantName, l.TaxCategory,
			l.ListPrice, l.ListPriceIncludesTax, pos,
		)
		if err != nil {
			return errors.Wrapf(err, "insert line %q", l.ID)
		}
		for ipos, i := range l.Items {
			_, err := r.db.Exec(ctx, insertOrderItemSQL,
				i.ID, l.ID, o.ID, i.UnitPrice, i.UnitPriceIncludesTax,
				i.TaxRate, encodeAdjustments(i.Adjustments),
				i.FulfillmentID, i.RefundID, i.CancellationID, ipos,
			)
			if err != nil {
				return errors.Wrapf(err, "insert item %q", i.ID)
			}
		}
	}
	return nil
}
