package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, product_id, open_item_name, open_item_price,
	quantity, unit_price, display_in_kitchen, kitchen_status, note, created_at`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.OpenItemName, &it.OpenItemPrice,
		&it.Quantity, &it.UnitPrice, &it.DisplayInKitchen, &it.KitchenStatus,
		&it.Note, &it.CreatedAt,
	)
	return it, err
}

func (q *Queries) scanOrderItems(ctx context.Context, sql string, args ...any) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type CreateOrderItemParams struct {
	OrderID          uuid.UUID
	ProductID        pgtype.UUID
	OpenItemName     pgtype.Text
	OpenItemPrice    pgtype.Numeric
	Quantity         int32
	UnitPrice        pgtype.Numeric
	DisplayInKitchen bool
	KitchenStatus    string
	Note             pgtype.Text
}

const createOrderItem = `
INSERT INTO order_items (
	order_id, product_id, open_item_name, open_item_price, quantity, unit_price,
	display_in_kitchen, kitchen_status, note
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderItemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.OpenItemName, arg.OpenItemPrice,
		arg.Quantity, arg.UnitPrice, arg.DisplayInKitchen, arg.KitchenStatus, arg.Note,
	))
}

const getOrderItem = `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return q.scanOrderItems(ctx, listOrderItemsByOrder, orderID)
}

type UpdateOrderItemNoteParams struct {
	ID   uuid.UUID
	Note pgtype.Text
}

const updateOrderItemNote = `
UPDATE order_items SET note = $2 WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) UpdateOrderItemNote(ctx context.Context, arg UpdateOrderItemNoteParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemNote, arg.ID, arg.Note))
}

const deleteOrderItem = `DELETE FROM order_items WHERE id = $1`

func (q *Queries) DeleteOrderItem(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrderItem, id)
	return tag.RowsAffected(), err
}

type ReassignOrderItemsParams struct {
	IDs        []uuid.UUID
	NewOrderID uuid.UUID
}

const reassignOrderItems = `UPDATE order_items SET order_id = $2 WHERE id = ANY($1)`

// ReassignOrderItems moves items to another order. Items are moved, never
// duplicated; the paid snapshot and the remaining order never share a row.
func (q *Queries) ReassignOrderItems(ctx context.Context, arg ReassignOrderItemsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, reassignOrderItems, arg.IDs, arg.NewOrderID)
	return tag.RowsAffected(), err
}

// MarkPendingItemsPreparing is the single point where items become visible to
// the kitchen: every PENDING, kitchen-displayed item on the order moves to
// PREPARING in one statement and the moved rows come back for event fanout.
const markPendingItemsPreparing = `
UPDATE order_items SET kitchen_status = 'PREPARING'
WHERE order_id = $1 AND kitchen_status = 'PENDING' AND display_in_kitchen
RETURNING ` + orderItemColumns

func (q *Queries) MarkPendingItemsPreparing(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return q.scanOrderItems(ctx, markPendingItemsPreparing, orderID)
}

type UpdateKitchenStatusParams struct {
	ID     uuid.UUID
	Status string
}

const updateKitchenStatus = `
UPDATE order_items SET kitchen_status = $2 WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) UpdateKitchenStatus(ctx context.Context, arg UpdateKitchenStatusParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateKitchenStatus, arg.ID, arg.Status))
}

const cancelKitchenItemsByOrder = `
UPDATE order_items SET kitchen_status = 'CANCELLED'
WHERE order_id = $1 AND display_in_kitchen AND kitchen_status NOT IN ('SERVED', 'CANCELLED')`

func (q *Queries) CancelKitchenItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, cancelKitchenItemsByOrder, orderID)
	return tag.RowsAffected(), err
}
