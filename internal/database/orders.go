package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, order_type, status, subtotal, discount_amount,
	discount_reason, surcharge_amount, total_amount, table_id, table_session_id,
	customer_id, voucher_id, voucher_code, note, created_by, created_at, paid_at,
	cancelled_at, cancelled_by, cancel_reason`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.OrderType, &o.Status, &o.Subtotal, &o.DiscountAmount,
		&o.DiscountReason, &o.SurchargeAmount, &o.TotalAmount, &o.TableID, &o.TableSessionID,
		&o.CustomerID, &o.VoucherID, &o.VoucherCode, &o.Note, &o.CreatedBy, &o.CreatedAt,
		&o.PaidAt, &o.CancelledAt, &o.CancelledBy, &o.CancelReason,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber     string
	OrderType       string
	Status          string
	Subtotal        pgtype.Numeric
	DiscountAmount  pgtype.Numeric
	DiscountReason  pgtype.Text
	SurchargeAmount pgtype.Numeric
	TotalAmount     pgtype.Numeric
	TableID         pgtype.UUID
	TableSessionID  pgtype.UUID
	CustomerID      pgtype.UUID
	Note            pgtype.Text
	CreatedBy       uuid.UUID
	PaidAt          pgtype.Timestamptz
}

const createOrder = `
INSERT INTO orders (
	order_number, order_type, status, subtotal, discount_amount, discount_reason,
	surcharge_amount, total_amount, table_id, table_session_id, customer_id, note,
	created_by, paid_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.OrderType, arg.Status, arg.Subtotal, arg.DiscountAmount,
		arg.DiscountReason, arg.SurchargeAmount, arg.TotalAmount, arg.TableID,
		arg.TableSessionID, arg.CustomerID, arg.Note, arg.CreatedBy, arg.PaidAt,
	))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// GetOrderForUpdate takes a row lock so concurrent settlement attempts on the
// same order serialize for the duration of the surrounding transaction.
const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const countNonTerminalOrdersBySession = `
SELECT COUNT(*) FROM orders
WHERE table_session_id = $1 AND status NOT IN ('PAID', 'CANCELLED')`

func (q *Queries) CountNonTerminalOrdersBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countNonTerminalOrdersBySession, sessionID).Scan(&n)
	return n, err
}

type UpdateOrderTotalsParams struct {
	ID       uuid.UUID
	Subtotal pgtype.Numeric
	Total    pgtype.Numeric
}

const updateOrderTotals = `
UPDATE orders SET subtotal = $2, total_amount = $3 WHERE id = $1
RETURNING ` + orderColumns

// UpdateOrderTotals persists a recomputed subtotal/total pair after an item
// mutation. Discount and surcharge are left as stored.
func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotals, arg.ID, arg.Subtotal, arg.Total))
}

type UpdateOrderDiscountParams struct {
	ID             uuid.UUID
	DiscountAmount pgtype.Numeric
	DiscountReason pgtype.Text
	Total          pgtype.Numeric
}

const updateOrderDiscount = `
UPDATE orders SET discount_amount = $2, discount_reason = $3, total_amount = $4
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderDiscount(ctx context.Context, arg UpdateOrderDiscountParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderDiscount,
		arg.ID, arg.DiscountAmount, arg.DiscountReason, arg.Total))
}

type MarkOrderPaidParams struct {
	ID             uuid.UUID
	DiscountAmount pgtype.Numeric
	DiscountReason pgtype.Text
	Total          pgtype.Numeric
	VoucherID      pgtype.UUID
	VoucherCode    pgtype.Text
	PaidAt         pgtype.Timestamptz
}

// markOrderPaid only fires while the order is still OPEN; zero rows means a
// concurrent settlement or cancellation won.
const markOrderPaid = `
UPDATE orders SET
	status = 'PAID', discount_amount = $2, discount_reason = $3, total_amount = $4,
	voucher_id = $5, voucher_code = $6, paid_at = $7
WHERE id = $1 AND status = 'OPEN'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPaid,
		arg.ID, arg.DiscountAmount, arg.DiscountReason, arg.Total,
		arg.VoucherID, arg.VoucherCode, arg.PaidAt))
}

type CancelOrderParams struct {
	ID           uuid.UUID
	CancelledBy  pgtype.UUID
	CancelReason pgtype.Text
}

const cancelOrder = `
UPDATE orders SET status = 'CANCELLED', cancelled_at = now(), cancelled_by = $2, cancel_reason = $3
WHERE id = $1 AND status = 'OPEN'
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.CancelledBy, arg.CancelReason))
}

const deleteOrder = `DELETE FROM orders WHERE id = $1`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrder, id)
	return tag.RowsAffected(), err
}

const nextOrderNumber = `
SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1
FROM orders
WHERE created_at::date = now()::date`

// NextOrderNumber returns the next daily sequence for display order numbers.
// Concurrent callers can race to the same value; the unique constraint on
// order_number plus a service-side retry resolves it.
func (q *Queries) NextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, nextOrderNumber).Scan(&n)
	return n, err
}
