package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusOpen      = "OPEN"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
	// OrderStatusDebt is referenced by downstream consumers (deferred billing)
	// but is never written by this service.
	OrderStatusDebt = "DEBT"
)

const (
	KitchenStatusPending   = "PENDING"
	KitchenStatusPreparing = "PREPARING"
	KitchenStatusReady     = "READY"
	KitchenStatusServed    = "SERVED"
	KitchenStatusCancelled = "CANCELLED"
)

const (
	SessionStatusActive    = "ACTIVE"
	SessionStatusCompleted = "COMPLETED"
)

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
)

// ── Group B: Configurable labels ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeRetail   = "RETAIL"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	DiscountTypePercent = "PERCENT"
	DiscountTypeFixed   = "FIXED"
)

const (
	VoucherTypePercent = "PERCENT"
	VoucherTypeFixed   = "FIXED"
)

// IsKitchenTransition reports whether moving an item from one kitchen status
// to the next is allowed. CANCELLED is reachable only through item removal
// or order cancellation, never through kitchen staff updates.
func IsKitchenTransition(current, next string) bool {
	switch current {
	case KitchenStatusPending:
		return next == KitchenStatusPreparing
	case KitchenStatusPreparing:
		return next == KitchenStatusReady
	case KitchenStatusReady:
		return next == KitchenStatusServed
	}
	return false
}

// ElevatedRoles are the roles allowed to authorize PIN-gated actions:
// large discounts, removing dispatched items, order cancellation.
var ElevatedRoles = []string{UserRoleOwner, UserRoleManager}
