package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/money"
	"github.com/warungpos/api/internal/ws"
)

// SettlementStore defines the DB methods settlement needs.
// Satisfied by *database.Queries.
type SettlementStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	NextOrderNumber(ctx context.Context) (int32, error)
	CountNonTerminalOrdersBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)

	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ReassignOrderItems(ctx context.Context, arg database.ReassignOrderItemsParams) (int64, error)

	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)

	GetVoucherByCode(ctx context.Context, code string) (database.Voucher, error)
	IncrementVoucherUsage(ctx context.Context, id uuid.UUID) (int64, error)

	GetTableSession(ctx context.Context, id uuid.UUID) (database.TableSession, error)
	CompleteTableSession(ctx context.Context, id uuid.UUID) (int64, error)
	FreeTable(ctx context.Context, id uuid.UUID) (database.Table, error)
}

// NewSettlementStore creates a SettlementStore from a DBTX (pool or tx).
type NewSettlementStore func(db database.DBTX) SettlementStore

// SettlementService takes orders from OPEN to PAID: full payment, partial
// payment by item selection, and bill splitting.
type SettlementService struct {
	pool      TxBeginner
	newStore  NewSettlementStore
	audit     AuditLogger
	broadcast Broadcaster
}

func NewSettlementService(pool TxBeginner, newStore NewSettlementStore, audit AuditLogger, broadcast Broadcaster) *SettlementService {
	return &SettlementService{pool: pool, newStore: newStore, audit: audit, broadcast: broadcast}
}

// PaymentInput is one tendered payment. ReceivedAmount matters for CASH only,
// where it drives the change computation.
type PaymentInput struct {
	Method         string
	Amount         decimal.Decimal
	ReceivedAmount decimal.Decimal
	Reference      string
}

func validPaymentMethod(m string) bool {
	switch m {
	case enum.PaymentMethodCash, enum.PaymentMethodQRIS, enum.PaymentMethodCard, enum.PaymentMethodTransfer:
		return true
	}
	return false
}

func validatePayments(payments []PaymentInput) (decimal.Decimal, error) {
	if len(payments) == 0 {
		return decimal.Zero, invalidRequest("at least one payment is required")
	}
	sum := decimal.Zero
	for _, p := range payments {
		if !validPaymentMethod(p.Method) {
			return decimal.Zero, invalidRequest("invalid payment method %q", p.Method)
		}
		if !p.Amount.IsPositive() {
			return decimal.Zero, invalidRequest("payment amount must be positive")
		}
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

// checkCovers enforces the rounding tolerance: the tendered sum may fall short
// of the total by at most the tolerance.
func checkCovers(paid, total decimal.Decimal) error {
	if paid.LessThan(total.Sub(money.PaymentTolerance)) {
		return insufficientPayment(total.Sub(paid))
	}
	return nil
}

func (s *SettlementService) insertPayments(ctx context.Context, store SettlementStore, orderID uuid.UUID, payments []PaymentInput, actorID uuid.UUID) error {
	for _, p := range payments {
		received := p.Amount
		change := decimal.Zero
		if p.Method == enum.PaymentMethodCash && p.ReceivedAmount.GreaterThan(p.Amount) {
			received = p.ReceivedAmount
			change = p.ReceivedAmount.Sub(p.Amount)
		}
		if _, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:         orderID,
			PaymentMethod:   p.Method,
			Amount:          money.ToNumeric(p.Amount),
			ReceivedAmount:  money.ToNumeric(received),
			ChangeAmount:    money.ToNumeric(change),
			ReferenceNumber: textParam(p.Reference),
			ProcessedBy:     actorID,
		}); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
	}
	return nil
}

type PayRequest struct {
	OrderID     uuid.UUID
	Payments    []PaymentInput
	VoucherCode string
	ActorID     uuid.UUID
}

// Pay settles the whole order. A voucher code replaces any manual discount;
// its usage slot is claimed inside the same transaction, so redeeming the last
// slot twice is impossible. The order row is only marked paid while still
// OPEN, which makes double payment a conflict, not a duplicate.
func (s *SettlementService) Pay(ctx context.Context, req PayRequest) (database.Order, error) {
	paid, err := validatePayments(req.Payments)
	if err != nil {
		return database.Order{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	switch order.Status {
	case enum.OrderStatusPaid:
		return database.Order{}, ErrAlreadyPaid
	case enum.OrderStatusCancelled:
		return database.Order{}, ErrOrderCancelled
	}

	subtotal := money.FromNumeric(order.Subtotal)
	discount := money.FromNumeric(order.DiscountAmount)
	discountReason := order.DiscountReason

	var voucherID pgtype.UUID
	var voucherCode pgtype.Text
	if req.VoucherCode != "" {
		quote, err := validateVoucher(ctx, store, req.VoucherCode, subtotal, time.Now())
		if err != nil {
			return database.Order{}, err
		}
		rows, err := store.IncrementVoucherUsage(ctx, quote.Voucher.ID)
		if err != nil {
			return database.Order{}, fmt.Errorf("increment voucher usage: %w", err)
		}
		if rows == 0 {
			return database.Order{}, ErrVoucherLimit
		}
		discount = quote.Discount
		discountReason = textParam("voucher " + quote.Voucher.Code)
		voucherID = pgtype.UUID{Bytes: quote.Voucher.ID, Valid: true}
		voucherCode = pgtype.Text{String: quote.Voucher.Code, Valid: true}
	}

	total := orderTotal(subtotal, discount, money.FromNumeric(order.SurchargeAmount))
	if err := checkCovers(paid, total); err != nil {
		return database.Order{}, err
	}

	if err := s.insertPayments(ctx, store, order.ID, req.Payments, req.ActorID); err != nil {
		return database.Order{}, err
	}

	order, err = store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
		ID:             order.ID,
		DiscountAmount: money.ToNumeric(discount),
		DiscountReason: discountReason,
		Total:          money.ToNumeric(total),
		VoucherID:      voucherID,
		VoucherCode:    voucherCode,
		PaidAt:         pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrAlreadyPaid
		}
		return database.Order{}, fmt.Errorf("mark paid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.closeout(ctx, order)
	s.audit.Log(ctx, AuditEntry{
		UserID:     req.ActorID,
		Action:     "order.pay",
		TargetType: "order",
		TargetID:   order.ID.String(),
		NewValue:   orderEventPayload(order),
	})
	s.broadcast.Publish(ws.RoomOrders, EventOrderPaid, orderEventPayload(order))
	return order, nil
}

type PayPartialRequest struct {
	OrderID  uuid.UUID
	ItemIDs  []uuid.UUID
	Payments []PaymentInput
	Discount decimal.Decimal
	Reason   string
	ActorID  uuid.UUID
}

// PayPartialResult reports both sides of a partial payment. Paid is the order
// the settled items ended up on (the original when every item was selected,
// otherwise a new paid snapshot), Remaining is the still-open original or nil.
type PayPartialResult struct {
	Paid      database.Order
	Remaining *database.Order
}

// PayPartial settles a selection of items. Selecting every item settles the
// order in place, with the given discount added on top of any stored one.
// A strict subset is moved onto a new order born PAID; the original keeps its
// discount and surcharge untouched and its totals are recomputed from what
// remains.
func (s *SettlementService) PayPartial(ctx context.Context, req PayPartialRequest) (*PayPartialResult, error) {
	if len(req.ItemIDs) == 0 {
		return nil, invalidRequest("no items selected")
	}
	if req.Discount.IsNegative() {
		return nil, invalidRequest("discount must not be negative")
	}
	paid, err := validatePayments(req.Payments)
	if err != nil {
		return nil, err
	}

	var result *PayPartialResult
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err = s.payPartial(ctx, req, paid)
		if isUniqueViolation(err, orderNumberConstraint) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	s.closeout(ctx, result.Paid)
	s.audit.Log(ctx, AuditEntry{
		UserID:     req.ActorID,
		Action:     "order.pay_partial",
		TargetType: "order",
		TargetID:   req.OrderID.String(),
		NewValue:   orderEventPayload(result.Paid),
		Reason:     req.Reason,
	})

	payload := map[string]any{
		"order_id":      req.OrderID,
		"paid_order_id": result.Paid.ID,
		"paid_total":    money.FromNumeric(result.Paid.TotalAmount).StringFixed(2),
	}
	if result.Remaining != nil {
		payload["remaining_total"] = money.FromNumeric(result.Remaining.TotalAmount).StringFixed(2)
		s.broadcast.Publish(ws.RoomOrders, EventOrderUpdated, orderEventPayload(*result.Remaining))
	}
	s.broadcast.Publish(ws.RoomOrders, EventOrderPartialPaid, payload)
	return result, nil
}

func (s *SettlementService) payPartial(ctx context.Context, req PayPartialRequest, paid decimal.Decimal) (*PayPartialResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	switch order.Status {
	case enum.OrderStatusPaid:
		return nil, ErrAlreadyPaid
	case enum.OrderStatusCancelled:
		return nil, ErrOrderCancelled
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	selected, err := selectItems(items, req.ItemIDs)
	if err != nil {
		return nil, err
	}

	// Every item selected: settle the order itself, stacking the requested
	// discount onto whatever is already stored.
	if len(selected) == len(items) {
		discount := money.FromNumeric(order.DiscountAmount).Add(req.Discount)
		total := orderTotal(money.FromNumeric(order.Subtotal), discount, money.FromNumeric(order.SurchargeAmount))
		if err := checkCovers(paid, total); err != nil {
			return nil, err
		}
		if err := s.insertPayments(ctx, store, order.ID, req.Payments, req.ActorID); err != nil {
			return nil, err
		}
		discountReason := order.DiscountReason
		if req.Reason != "" {
			discountReason = textParam(req.Reason)
		}
		order, err = store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
			ID:             order.ID,
			DiscountAmount: money.ToNumeric(discount),
			DiscountReason: discountReason,
			Total:          money.ToNumeric(total),
			VoucherID:      order.VoucherID,
			VoucherCode:    order.VoucherCode,
			PaidAt:         pgtype.Timestamptz{Time: time.Now(), Valid: true},
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAlreadyPaid
			}
			return nil, fmt.Errorf("mark paid: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return &PayPartialResult{Paid: order}, nil
	}

	// Strict subset: the settled items move onto a snapshot order born PAID.
	selectedSubtotal := Subtotal(selected)
	selectedTotal := selectedSubtotal.Sub(req.Discount)
	if err := checkCovers(paid, selectedTotal); err != nil {
		return nil, err
	}

	seq, err := store.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	paidOrder, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     fmt.Sprintf("WPS-%03d", seq),
		OrderType:       order.OrderType,
		Status:          enum.OrderStatusPaid,
		Subtotal:        money.ToNumeric(selectedSubtotal),
		DiscountAmount:  money.ToNumeric(req.Discount),
		DiscountReason:  textParam(req.Reason),
		SurchargeAmount: money.ToNumeric(decimal.Zero),
		TotalAmount:     money.ToNumeric(selectedTotal),
		TableID:         order.TableID,
		TableSessionID:  order.TableSessionID,
		CustomerID:      order.CustomerID,
		Note:            textParam("partial payment of " + order.OrderNumber),
		CreatedBy:       req.ActorID,
		PaidAt:          pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create paid order: %w", err)
	}

	if _, err := store.ReassignOrderItems(ctx, database.ReassignOrderItemsParams{
		IDs:        req.ItemIDs,
		NewOrderID: paidOrder.ID,
	}); err != nil {
		return nil, fmt.Errorf("reassign items: %w", err)
	}
	if err := s.insertPayments(ctx, store, paidOrder.ID, req.Payments, req.ActorID); err != nil {
		return nil, err
	}

	// The original keeps its discount and surcharge; only its subtotal shrinks.
	remainingSubtotal := Subtotal(without(items, req.ItemIDs))
	remainingTotal := orderTotal(remainingSubtotal, money.FromNumeric(order.DiscountAmount), money.FromNumeric(order.SurchargeAmount))
	remaining, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:       order.ID,
		Subtotal: money.ToNumeric(remainingSubtotal),
		Total:    money.ToNumeric(remainingTotal),
	})
	if err != nil {
		return nil, fmt.Errorf("update totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PayPartialResult{Paid: paidOrder, Remaining: &remaining}, nil
}

type SplitRequest struct {
	OrderID uuid.UUID
	ItemIDs []uuid.UUID
	ActorID uuid.UUID
}

// SplitResult holds both orders after a split; their subtotals sum exactly to
// the pre-split subtotal.
type SplitResult struct {
	Source database.Order
	New    database.Order
}

// Split moves a strict subset of items onto a new order that stays OPEN, for
// tables that want separate bills before anyone pays. Discount and surcharge
// stay with the source.
func (s *SettlementService) Split(ctx context.Context, req SplitRequest) (*SplitResult, error) {
	if len(req.ItemIDs) == 0 {
		return nil, invalidRequest("no items selected")
	}

	var result *SplitResult
	var err error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err = s.split(ctx, req)
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
		Action:     "order.split",
		TargetType: "order",
		TargetID:   req.OrderID.String(),
		NewValue: map[string]any{
			"new_order_id":     result.New.ID,
			"new_order_number": result.New.OrderNumber,
		},
	})
	s.broadcast.Publish(ws.RoomOrders, EventOrderSplit, map[string]any{
		"order_id":     result.Source.ID,
		"new_order_id": result.New.ID,
	})
	s.broadcast.Publish(ws.RoomOrders, EventOrderUpdated, orderEventPayload(result.Source))
	return result, nil
}

func (s *SettlementService) split(ctx context.Context, req SplitRequest) (*SplitResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return nil, err
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	selected, err := selectItems(items, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	if len(selected) == len(items) {
		return nil, invalidRequest("cannot split out every item")
	}

	selectedSubtotal := Subtotal(selected)
	seq, err := store.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	newOrder, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     fmt.Sprintf("WPS-%03d", seq),
		OrderType:       order.OrderType,
		Status:          enum.OrderStatusOpen,
		Subtotal:        money.ToNumeric(selectedSubtotal),
		DiscountAmount:  money.ToNumeric(decimal.Zero),
		SurchargeAmount: money.ToNumeric(decimal.Zero),
		TotalAmount:     money.ToNumeric(selectedSubtotal),
		TableID:         order.TableID,
		TableSessionID:  order.TableSessionID,
		CustomerID:      order.CustomerID,
		Note:            textParam("split from " + order.OrderNumber),
		CreatedBy:       req.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create split order: %w", err)
	}

	if _, err := store.ReassignOrderItems(ctx, database.ReassignOrderItemsParams{
		IDs:        req.ItemIDs,
		NewOrderID: newOrder.ID,
	}); err != nil {
		return nil, fmt.Errorf("reassign items: %w", err)
	}

	remainingSubtotal := Subtotal(without(items, req.ItemIDs))
	remainingTotal := orderTotal(remainingSubtotal, money.FromNumeric(order.DiscountAmount), money.FromNumeric(order.SurchargeAmount))
	source, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:       order.ID,
		Subtotal: money.ToNumeric(remainingSubtotal),
		Total:    money.ToNumeric(remainingTotal),
	})
	if err != nil {
		return nil, fmt.Errorf("update totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SplitResult{Source: source, New: newOrder}, nil
}

// closeout runs after a successful settlement commit: when the order's
// session has no open orders left, the session completes and the table frees.
// Best-effort and idempotent; a failure here never unwinds the payment.
func (s *SettlementService) closeout(ctx context.Context, order database.Order) {
	if !order.TableSessionID.Valid {
		return
	}
	sessionID := uuid.UUID(order.TableSessionID.Bytes)
	store := s.newStore(nil)

	open, err := store.CountNonTerminalOrdersBySession(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: closeout count session %s: %v", sessionID, err)
		return
	}
	if open > 0 {
		return
	}
	if _, err := store.CompleteTableSession(ctx, sessionID); err != nil {
		log.Printf("ERROR: closeout complete session %s: %v", sessionID, err)
		return
	}
	session, err := store.GetTableSession(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: closeout get session %s: %v", sessionID, err)
		return
	}
	if _, err := store.FreeTable(ctx, session.TableID); err != nil {
		log.Printf("ERROR: closeout free table %s: %v", session.TableID, err)
		return
	}
	s.broadcast.Publish(ws.RoomOrders, EventTableClosed, map[string]any{
		"table_id":   session.TableID,
		"session_id": sessionID,
	})
}

// selectItems resolves the requested ids against the order's items. Ids that
// do not belong to the order, or duplicates, reject the whole selection.
func selectItems(items []database.OrderItem, ids []uuid.UUID) ([]database.OrderItem, error) {
	byID := make(map[uuid.UUID]database.OrderItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	selected := make([]database.OrderItem, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok || seen[id] {
			return nil, ErrInvalidItems
		}
		seen[id] = true
		selected = append(selected, it)
	}
	return selected, nil
}

func without(items []database.OrderItem, ids []uuid.UUID) []database.OrderItem {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	rest := make([]database.OrderItem, 0, len(items))
	for _, it := range items {
		if !drop[it.ID] {
			rest = append(rest, it)
		}
	}
	return rest
}
