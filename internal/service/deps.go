package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/warungpos/api/internal/auth"
)

// TxBeginner starts a new database transaction.
// Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Broadcaster delivers domain events to a named room. Delivery is
// fire-and-forget, at-most-once; it must never block or fail the caller.
// Satisfied by *ws.Hub. Injected at construction, never reached through
// global state.
type Broadcaster interface {
	Publish(room, eventName string, payload any)
}

// PinVerifier resolves a cashier-entered PIN to the staff member holding one
// of the allowed roles, or nil when the PIN matches nobody.
// Satisfied by *auth.PinVerifier.
type PinVerifier interface {
	VerifyPin(ctx context.Context, pin string, allowedRoles []string) (*auth.Staff, error)
}

// Event names published to the orders room.
const (
	EventOrderCreated     = "order:created"
	EventOrderPaid        = "order:paid"
	EventOrderCancelled   = "order:cancelled"
	EventOrderSplit       = "order:split"
	EventOrderPartialPaid = "order:partial_paid"
	EventOrderUpdated     = "order:updated"
	EventOrderItemUpdated = "order:item_updated"
	EventOrderItemRemoved = "order:item_removed"
	EventTableClosed      = "table:closed"
)

// Event names published to the kitchen room.
const (
	EventKitchenNewItem        = "kitchen:new_item"
	EventKitchenBatchUpdate    = "kitchen:batch_update"
	EventKitchenItemUpdated    = "kitchen:item_updated"
	EventKitchenItemCancelled  = "kitchen:item_cancelled"
	EventKitchenOrderCancelled = "kitchen:order_cancelled"
	EventKitchenSound          = "kitchen:sound"
)

// Event names published to the supervisor room.
const (
	EventAlertDiscount = "alert:discount"
)
