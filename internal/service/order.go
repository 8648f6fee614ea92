package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/money"
	"github.com/warungpos/api/internal/ws"
)

// orderNumberConstraint is the unique index on (order_number, created day).
// A violation means two creates raced to the same daily sequence.
const orderNumberConstraint = "orders_order_number_day_key"

const maxOrderNumberRetries = 3

// OrderStore defines the DB methods the order lifecycle needs.
// Satisfied by *database.Queries.
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error)
	NextOrderNumber(ctx context.Context) (int32, error)

	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderItemNote(ctx context.Context, arg database.UpdateOrderItemNoteParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id uuid.UUID) (int64, error)
	CancelKitchenItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)

	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)

	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	OccupyTable(ctx context.Context, arg database.OccupyTableParams) (database.Table, error)
	FreeTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetTableSession(ctx context.Context, id uuid.UUID) (database.TableSession, error)
	GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
	CreateTableSession(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService owns the order lifecycle: create, item mutations, delete-empty
// and cancel. Settlement lives in SettlementService.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	pins      PinVerifier
	audit     AuditLogger
	broadcast Broadcaster
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, pins PinVerifier, audit AuditLogger, broadcast Broadcaster) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, pins: pins, audit: audit, broadcast: broadcast}
}

// CatalogItem orders a product from the menu. Price is snapshotted from the
// product at insert time and never re-read afterwards.
type CatalogItem struct {
	ProductID uuid.UUID
	Quantity  int32
	Note      string
}

// AdHocItem is a free-form line with a cashier-entered name and price.
type AdHocItem struct {
	Name             string
	Price            decimal.Decimal
	Quantity         int32
	Note             string
	DisplayInKitchen bool
}

// ItemSpec is a tagged union: exactly one of Catalog or AdHoc must be set.
type ItemSpec struct {
	Catalog *CatalogItem
	AdHoc   *AdHocItem
}

func (s ItemSpec) validate() error {
	switch {
	case s.Catalog != nil && s.AdHoc != nil:
		return invalidRequest("item cannot be both catalog and ad-hoc")
	case s.Catalog != nil:
		if s.Catalog.Quantity <= 0 {
			return invalidRequest("item quantity must be positive")
		}
	case s.AdHoc != nil:
		if s.AdHoc.Quantity <= 0 {
			return invalidRequest("item quantity must be positive")
		}
		if s.AdHoc.Name == "" {
			return invalidRequest("ad-hoc item needs a name")
		}
		if s.AdHoc.Price.IsNegative() {
			return invalidRequest("ad-hoc item price must not be negative")
		}
	default:
		return invalidRequest("item must be either catalog or ad-hoc")
	}
	return nil
}

type CreateOrderRequest struct {
	OrderType  string
	TableID    *uuid.UUID
	SessionID  *uuid.UUID
	CustomerID *uuid.UUID
	Note       string
	Surcharge  decimal.Decimal
	Items      []ItemSpec
	ActorID    uuid.UUID
}

// OrderDetail bundles an order with its current item set. Payments are
// populated on reads only; mutations return the detail without them.
type OrderDetail struct {
	Order    database.Order
	Items    []database.OrderItem
	Payments []database.Payment
}

// Create opens a new order, inserting its initial items and, for dine-in,
// binding it to a table session (reusing the table's active session or
// starting one). The display order number is a per-day sequence; on a
// duplicate-number race the whole transaction is retried.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	switch req.OrderType {
	case enum.OrderTypeDineIn:
		if req.TableID == nil {
			return nil, invalidRequest("dine-in order needs a table")
		}
	case enum.OrderTypeTakeaway, enum.OrderTypeRetail:
	default:
		return nil, invalidRequest("invalid order type %q", req.OrderType)
	}
	if req.Surcharge.IsNegative() {
		return nil, invalidRequest("surcharge must not be negative")
	}
	for _, spec := range req.Items {
		if err := spec.validate(); err != nil {
			return nil, err
		}
	}

	var detail *OrderDetail
	var err error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		detail, err = s.create(ctx, req)
		if isUniqueViolation(err, orderNumberConstraint) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, AuditEntry{
		UserID:     req.ActorID,
		Action:     "order.create",
		TargetType: "order",
		TargetID:   detail.Order.ID.String(),
		NewValue:   orderEventPayload(detail.Order),
	})
	s.broadcast.Publish(ws.RoomOrders, EventOrderCreated, orderEventPayload(detail.Order))
	return detail, nil
}

func (s *OrderService) create(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	var tableID, sessionID pgtype.UUID
	if req.OrderType == enum.OrderTypeDineIn {
		tableID = pgtype.UUID{Bytes: *req.TableID, Valid: true}
		session, err := s.resolveSession(ctx, store, *req.TableID, req.SessionID)
		if err != nil {
			return nil, err
		}
		sessionID = pgtype.UUID{Bytes: session.ID, Valid: true}
	}

	seq, err := store.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	var customerID pgtype.UUID
	if req.CustomerID != nil {
		customerID = pgtype.UUID{Bytes: *req.CustomerID, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     fmt.Sprintf("WPS-%03d", seq),
		OrderType:       req.OrderType,
		Status:          enum.OrderStatusOpen,
		Subtotal:        money.ToNumeric(decimal.Zero),
		DiscountAmount:  money.ToNumeric(decimal.Zero),
		SurchargeAmount: money.ToNumeric(req.Surcharge),
		TotalAmount:     money.ToNumeric(req.Surcharge),
		TableID:         tableID,
		TableSessionID:  sessionID,
		CustomerID:      customerID,
		Note:            textParam(req.Note),
		CreatedBy:       req.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for _, spec := range req.Items {
		item, err := s.insertItem(ctx, store, order.ID, spec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	subtotal := Subtotal(items)
	total := orderTotal(subtotal, decimal.Zero, req.Surcharge)
	order, err = store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:       order.ID,
		Subtotal: money.ToNumeric(subtotal),
		Total:    money.ToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("update totals: %w", err)
	}

	if req.OrderType == enum.OrderTypeDineIn {
		if _, err := store.OccupyTable(ctx, database.OccupyTableParams{
			ID:             *req.TableID,
			CurrentOrderID: pgtype.UUID{Bytes: order.ID, Valid: true},
		}); err != nil {
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// resolveSession binds a dine-in order to a session: the explicitly requested
// one, else the table's active session, else a fresh one.
func (s *OrderService) resolveSession(ctx context.Context, store OrderStore, tableID uuid.UUID, sessionID *uuid.UUID) (database.TableSession, error) {
	if sessionID != nil {
		session, err := store.GetTableSession(ctx, *sessionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.TableSession{}, invalidRequest("table session not found")
			}
			return database.TableSession{}, fmt.Errorf("get session: %w", err)
		}
		if session.Status != enum.SessionStatusActive {
			return database.TableSession{}, invalidRequest("table session is not active")
		}
		return session, nil
	}

	session, err := store.GetActiveSessionByTable(ctx, tableID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.TableSession{}, fmt.Errorf("get active session: %w", err)
	}
	session, err = store.CreateTableSession(ctx, tableID)
	if err != nil {
		return database.TableSession{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// insertItem materializes one ItemSpec as a row, snapshotting the unit price.
func (s *OrderService) insertItem(ctx context.Context, store OrderStore, orderID uuid.UUID, spec ItemSpec) (database.OrderItem, error) {
	if spec.Catalog != nil {
		product, err := store.GetProduct(ctx, spec.Catalog.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.OrderItem{}, ErrProductNotFound
			}
			return database.OrderItem{}, fmt.Errorf("get product: %w", err)
		}
		if !product.IsAvailable {
			return database.OrderItem{}, ErrProductSoldOut
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:          orderID,
			ProductID:        pgtype.UUID{Bytes: product.ID, Valid: true},
			Quantity:         spec.Catalog.Quantity,
			UnitPrice:        product.Price,
			DisplayInKitchen: product.DisplayInKitchen,
			KitchenStatus:    enum.KitchenStatusPending,
			Note:             textParam(spec.Catalog.Note),
		})
		if err != nil {
			return database.OrderItem{}, fmt.Errorf("create item: %w", err)
		}
		return item, nil
	}

	item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID:          orderID,
		OpenItemName:     textParam(spec.AdHoc.Name),
		OpenItemPrice:    money.ToNumeric(spec.AdHoc.Price),
		Quantity:         spec.AdHoc.Quantity,
		UnitPrice:        money.ToNumeric(spec.AdHoc.Price),
		DisplayInKitchen: spec.AdHoc.DisplayInKitchen,
		KitchenStatus:    enum.KitchenStatusPending,
		Note:             textParam(spec.AdHoc.Note),
	})
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// Get returns one order with its items.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	store := s.newStore(nil)
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	payments, err := store.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &OrderDetail{Order: order, Items: items, Payments: payments}, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *OrderService) List(ctx context.Context, status string, limit, offset int32) ([]database.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	store := s.newStore(nil)
	return store.ListOrders(ctx, database.ListOrdersParams{
		Status: textParam(status),
		Limit:  limit,
		Offset: offset,
	})
}

// AddItem appends one item to an open order and recomputes its totals from
// the full item set.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, spec ItemSpec, actorID uuid.UUID) (*OrderDetail, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return nil, err
	}

	if _, err := s.insertItem(ctx, store, orderID, spec); err != nil {
		return nil, err
	}

	order, items, err := resumOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.broadcast.Publish(ws.RoomOrders, EventOrderUpdated, orderEventPayload(order))
	return &OrderDetail{Order: order, Items: items}, nil
}

// UpdateItemNote replaces an item's note. Items already sent to the kitchen
// get a kitchen-side update event so the display refreshes.
func (s *OrderService) UpdateItemNote(ctx context.Context, orderID, itemID uuid.UUID, note string) (database.OrderItem, error) {
	store := s.newStore(nil)

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrItemNotFound
		}
		return database.OrderItem{}, fmt.Errorf("get item: %w", err)
	}
	if item.OrderID != orderID {
		return database.OrderItem{}, ErrItemNotFound
	}

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return database.OrderItem{}, err
	}

	item, err = store.UpdateOrderItemNote(ctx, database.UpdateOrderItemNoteParams{
		ID:   itemID,
		Note: textParam(note),
	})
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("update note: %w", err)
	}

	s.broadcast.Publish(ws.RoomOrders, EventOrderItemUpdated, itemEventPayload(item))
	if item.DisplayInKitchen && item.KitchenStatus != enum.KitchenStatusPending {
		s.broadcast.Publish(ws.RoomKitchen, EventKitchenItemUpdated, itemEventPayload(item))
	}
	return item, nil
}

// RemoveItem deletes an item from an open order. Once an item has been
// dispatched to the kitchen, removal needs an elevated PIN; pending items
// come off freely. The reason is recorded in the audit trail.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, pin, reason string, actorID uuid.UUID) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return nil, err
	}

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item.OrderID != orderID {
		return nil, ErrItemNotFound
	}

	dispatched := item.DisplayInKitchen && item.KitchenStatus != enum.KitchenStatusPending
	var authorizedBy string
	if dispatched {
		if pin == "" {
			return nil, ErrPinRequired
		}
		staff, err := s.pins.VerifyPin(ctx, pin, enum.ElevatedRoles)
		if err != nil {
			return nil, fmt.Errorf("verify pin: %w", err)
		}
		if staff == nil {
			return nil, ErrInvalidPin
		}
		authorizedBy = staff.Name
	}

	if _, err := store.DeleteOrderItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}

	order, items, err := resumOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	entry := AuditEntry{
		UserID:     actorID,
		Action:     "order.item.remove",
		TargetType: "order_item",
		TargetID:   itemID.String(),
		OldValue:   itemEventPayload(item),
		Reason:     reason,
	}
	if authorizedBy != "" {
		entry.NewValue = map[string]any{"authorized_by": authorizedBy}
	}
	s.audit.Log(ctx, entry)
	s.broadcast.Publish(ws.RoomOrders, EventOrderItemRemoved, map[string]any{
		"order_id": orderID,
		"item_id":  itemID,
	})
	if dispatched {
		s.broadcast.Publish(ws.RoomKitchen, EventKitchenItemCancelled, itemEventPayload(item))
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// DeleteEmpty removes an open order that has no items left, freeing its table
// if the table still points at it. A second delete of the same order reports
// not-found, not success.
func (s *OrderService) DeleteEmpty(ctx context.Context, orderID, actorID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return err
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	if len(items) > 0 {
		return ErrOrderHasItems
	}

	if _, err := store.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err := releaseTable(ctx, store, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		UserID:     actorID,
		Action:     "order.delete",
		TargetType: "order",
		TargetID:   orderID.String(),
		OldValue:   orderEventPayload(order),
	})
	return nil
}

// Cancel voids an open order. Requires an elevated PIN; kitchen copies of its
// items are cancelled and the table freed, but the table session stays active
// for any sibling orders.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, reason, pin string, actorID uuid.UUID) (database.Order, error) {
	if pin == "" {
		return database.Order{}, ErrPinRequired
	}
	staff, err := s.pins.VerifyPin(ctx, pin, enum.ElevatedRoles)
	if err != nil {
		return database.Order{}, fmt.Errorf("verify pin: %w", err)
	}
	if staff == nil {
		return database.Order{}, ErrInvalidPin
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CancelOrder(ctx, database.CancelOrderParams{
		ID:           orderID,
		CancelledBy:  pgtype.UUID{Bytes: staff.ID, Valid: true},
		CancelReason: textParam(reason),
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("cancel order: %w", err)
		}
		// Conditional update missed: the order is gone or already terminal.
		existing, getErr := store.GetOrder(ctx, orderID)
		if getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return database.Order{}, ErrOrderNotFound
			}
			return database.Order{}, fmt.Errorf("get order: %w", getErr)
		}
		switch existing.Status {
		case enum.OrderStatusPaid:
			return database.Order{}, ErrAlreadyPaid
		case enum.OrderStatusCancelled:
			return database.Order{}, ErrAlreadyCancelled
		}
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	if _, err := store.CancelKitchenItemsByOrder(ctx, orderID); err != nil {
		return database.Order{}, fmt.Errorf("cancel kitchen items: %w", err)
	}
	if err := releaseTable(ctx, store, order); err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		UserID:     actorID,
		Action:     "order.cancel",
		TargetType: "order",
		TargetID:   orderID.String(),
		NewValue:   orderEventPayload(order),
		Reason:     reason,
	})
	s.broadcast.Publish(ws.RoomOrders, EventOrderCancelled, orderEventPayload(order))
	s.broadcast.Publish(ws.RoomKitchen, EventKitchenOrderCancelled, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return order, nil
}

// resumOrder recomputes subtotal and total from the order's full item set and
// persists them. Discount and surcharge are carried as stored.
func resumOrder(ctx context.Context, store OrderStore, order database.Order) (database.Order, []database.OrderItem, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("list items: %w", err)
	}
	subtotal := Subtotal(items)
	total := orderTotal(subtotal, money.FromNumeric(order.DiscountAmount), money.FromNumeric(order.SurchargeAmount))
	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:       order.ID,
		Subtotal: money.ToNumeric(subtotal),
		Total:    money.ToNumeric(total),
	})
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("update totals: %w", err)
	}
	return updated, items, nil
}

// releaseTable frees the order's table when the table still points at this
// order. A table already reassigned to a newer order is left alone.
func releaseTable(ctx context.Context, store OrderStore, order database.Order) error {
	if !order.TableID.Valid {
		return nil
	}
	table, err := store.GetTable(ctx, uuid.UUID(order.TableID.Bytes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: release table for order %s: table missing", order.ID)
			return nil
		}
		return fmt.Errorf("get table: %w", err)
	}
	if table.CurrentOrderID.Valid && uuid.UUID(table.CurrentOrderID.Bytes) == order.ID {
		if _, err := store.FreeTable(ctx, table.ID); err != nil {
			return fmt.Errorf("free table: %w", err)
		}
	}
	return nil
}

func textParam(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

// orderEventPayload is the wire shape shared by order events and audit rows.
func orderEventPayload(o database.Order) map[string]any {
	p := map[string]any{
		"id":               o.ID,
		"order_number":     o.OrderNumber,
		"order_type":       o.OrderType,
		"status":           o.Status,
		"subtotal":         money.FromNumeric(o.Subtotal).StringFixed(2),
		"discount_amount":  money.FromNumeric(o.DiscountAmount).StringFixed(2),
		"surcharge_amount": money.FromNumeric(o.SurchargeAmount).StringFixed(2),
		"total_amount":     money.FromNumeric(o.TotalAmount).StringFixed(2),
	}
	if o.TableID.Valid {
		p["table_id"] = uuid.UUID(o.TableID.Bytes)
	}
	if o.TableSessionID.Valid {
		p["table_session_id"] = uuid.UUID(o.TableSessionID.Bytes)
	}
	if o.VoucherCode.Valid {
		p["voucher_code"] = o.VoucherCode.String
	}
	if o.PaidAt.Valid {
		p["paid_at"] = o.PaidAt.Time
	}
	return p
}

func itemEventPayload(it database.OrderItem) map[string]any {
	p := map[string]any{
		"id":             it.ID,
		"order_id":       it.OrderID,
		"quantity":       it.Quantity,
		"unit_price":     money.FromNumeric(it.UnitPrice).StringFixed(2),
		"kitchen_status": it.KitchenStatus,
	}
	if it.ProductID.Valid {
		p["product_id"] = uuid.UUID(it.ProductID.Bytes)
	}
	if it.OpenItemName.Valid {
		p["name"] = it.OpenItemName.String
	}
	if it.Note.Valid {
		p["note"] = it.Note.String
	}
	return p
}
