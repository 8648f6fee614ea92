package service

import (
	"context"
	"errors"
	"fmt"
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

// Percent discounts above this value need an elevated PIN.
var pinDiscountThreshold = decimal.NewFromInt(10)

// Discounts above this absolute amount raise a supervisory alert even when
// the percent value itself is small.
var alertAmountThreshold = decimal.NewFromInt(500)

// Subtotal is the authoritative resum: the sum of quantity x unit_price over
// the full item set, recomputed from scratch after every mutation.
func Subtotal(items []database.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(money.Line(money.FromNumeric(it.UnitPrice), it.Quantity))
	}
	return sum
}

// orderTotal applies the standing invariant:
// total = subtotal - discount + surcharge. Deliberately unclamped; a fixed
// discount larger than the subtotal drives the total negative (see tests).
func orderTotal(subtotal, discount, surcharge decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(surcharge)
}

// voucherDiscount validates a voucher against a subtotal and returns the
// discount it grants. Percent vouchers are capped by max_discount_amount.
func voucherDiscount(v database.Voucher, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !v.IsActive {
		return decimal.Zero, ErrVoucherNotActive
	}
	if now.Before(v.ValidFrom) || now.After(v.ValidUntil) {
		return decimal.Zero, ErrVoucherExpired
	}
	if v.UsageCount >= v.UsageLimit {
		return decimal.Zero, ErrVoucherLimit
	}
	if subtotal.LessThan(money.FromNumeric(v.MinOrderAmount)) {
		return decimal.Zero, ErrMinOrderAmount
	}

	value := money.FromNumeric(v.Value)
	if v.VoucherType == enum.VoucherTypePercent {
		discount := money.Percent(subtotal, value)
		if cap := money.FromNumeric(v.MaxDiscountAmount); cap.IsPositive() && discount.GreaterThan(cap) {
			discount = cap
		}
		return discount, nil
	}
	return value, nil
}

// PricingStore defines the DB methods the pricing engine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type PricingStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderDiscount(ctx context.Context, arg database.UpdateOrderDiscountParams) (database.Order, error)
	GetVoucherByCode(ctx context.Context, code string) (database.Voucher, error)
}

// NewPricingStore creates a PricingStore from a DBTX (pool or tx).
type NewPricingStore func(db database.DBTX) PricingStore

// PricingService owns discount and voucher math.
type PricingService struct {
	pool      TxBeginner
	newStore  NewPricingStore
	pins      PinVerifier
	audit     AuditLogger
	broadcast Broadcaster
}

func NewPricingService(pool TxBeginner, newStore NewPricingStore, pins PinVerifier, audit AuditLogger, broadcast Broadcaster) *PricingService {
	return &PricingService{pool: pool, newStore: newStore, pins: pins, audit: audit, broadcast: broadcast}
}

// ManualDiscountRequest applies a cashier-entered discount to an open order.
type ManualDiscountRequest struct {
	OrderID uuid.UUID
	Type    string // enum.DiscountTypePercent or enum.DiscountTypeFixed
	Value   decimal.Decimal
	Reason  string
	Pin     string
	ActorID uuid.UUID
}

// ApplyManualDiscount recomputes the order total with the given discount.
// Percent discounts over the threshold require an elevated PIN. Fixed
// discounts are taken as supplied, not clamped against the subtotal.
func (s *PricingService) ApplyManualDiscount(ctx context.Context, req ManualDiscountRequest) (database.Order, error) {
	if req.Value.IsNegative() {
		return database.Order{}, invalidRequest("discount value must not be negative")
	}

	var authorizedBy string
	switch req.Type {
	case enum.DiscountTypePercent:
		if req.Value.GreaterThan(pinDiscountThreshold) {
			if req.Pin == "" {
				return database.Order{}, ErrPinRequired
			}
			staff, err := s.pins.VerifyPin(ctx, req.Pin, enum.ElevatedRoles)
			if err != nil {
				return database.Order{}, fmt.Errorf("verify pin: %w", err)
			}
			if staff == nil {
				return database.Order{}, ErrAuthorization
			}
			authorizedBy = staff.Name
		}
	case enum.DiscountTypeFixed:
	default:
		return database.Order{}, invalidRequest("invalid discount type %q", req.Type)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return database.Order{}, err
	}

	subtotal := money.FromNumeric(order.Subtotal)
	surcharge := money.FromNumeric(order.SurchargeAmount)

	amount := req.Value
	if req.Type == enum.DiscountTypePercent {
		amount = money.Percent(subtotal, req.Value)
	}
	total := orderTotal(subtotal, amount, surcharge)

	reason := pgtype.Text{}
	if req.Reason != "" {
		reason = pgtype.Text{String: req.Reason, Valid: true}
	}
	updated, err := store.UpdateOrderDiscount(ctx, database.UpdateOrderDiscountParams{
		ID:             order.ID,
		DiscountAmount: money.ToNumeric(amount),
		DiscountReason: reason,
		Total:          money.ToNumeric(total),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update discount: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		UserID:     req.ActorID,
		Action:     "order.discount",
		TargetType: "order",
		TargetID:   order.ID.String(),
		OldValue:   map[string]string{"discount_amount": money.FromNumeric(order.DiscountAmount).StringFixed(2)},
		NewValue:   map[string]string{"discount_amount": amount.StringFixed(2), "type": req.Type, "value": req.Value.String()},
		Reason:     req.Reason,
	})

	// Large discounts additionally ping supervisors, independent of the
	// audit trail.
	if req.Value.GreaterThan(pinDiscountThreshold) || amount.GreaterThan(alertAmountThreshold) {
		s.broadcast.Publish(ws.RoomSupervisor, EventAlertDiscount, map[string]any{
			"order_id":      order.ID,
			"type":          req.Type,
			"value":         req.Value.String(),
			"amount":        amount.StringFixed(2),
			"reason":        req.Reason,
			"authorized_by": authorizedBy,
		})
	}

	s.broadcast.Publish(ws.RoomOrders, EventOrderUpdated, orderEventPayload(updated))
	return updated, nil
}

// VoucherQuote is the result of validating a voucher against a subtotal.
type VoucherQuote struct {
	Voucher  database.Voucher
	Discount decimal.Decimal
}

// ValidateVoucher checks a voucher code against a subtotal without redeeming
// it. Settlement re-runs the same validation under its own transaction.
func (s *PricingService) ValidateVoucher(ctx context.Context, code string, subtotal decimal.Decimal) (*VoucherQuote, error) {
	store := s.newStore(nil)
	return validateVoucher(ctx, store, code, subtotal, time.Now())
}

type voucherStore interface {
	GetVoucherByCode(ctx context.Context, code string) (database.Voucher, error)
}

func validateVoucher(ctx context.Context, store voucherStore, code string, subtotal decimal.Decimal, now time.Time) (*VoucherQuote, error) {
	v, err := store.GetVoucherByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidVoucher
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	discount, err := voucherDiscount(v, subtotal, now)
	if err != nil {
		return nil, err
	}
	return &VoucherQuote{Voucher: v, Discount: discount}, nil
}

// guardOpen rejects mutations against terminal orders.
func guardOpen(o database.Order) error {
	switch o.Status {
	case enum.OrderStatusPaid:
		return ErrOrderPaid
	case enum.OrderStatusCancelled:
		return ErrOrderCancelled
	}
	return nil
}
