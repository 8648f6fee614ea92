package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	PinHash      pgtype.Text
	Role         string
	CreatedAt    time.Time
}

type Product struct {
	ID               uuid.UUID
	Name             string
	Price            pgtype.Numeric
	IsAvailable      bool
	DisplayInKitchen bool
	CreatedAt        time.Time
}

type Table struct {
	ID             uuid.UUID
	Number         string
	Status         string
	CurrentOrderID pgtype.UUID
}

type TableSession struct {
	ID        uuid.UUID
	TableID   uuid.UUID
	Status    string
	StartedAt time.Time
	EndedAt   pgtype.Timestamptz
}

type Voucher struct {
	ID                uuid.UUID
	Code              string
	VoucherType       string
	Value             pgtype.Numeric
	MinOrderAmount    pgtype.Numeric
	MaxDiscountAmount pgtype.Numeric
	UsageCount        int32
	UsageLimit        int32
	ValidFrom         time.Time
	ValidUntil        time.Time
	IsActive          bool
}

type Order struct {
	ID              uuid.UUID
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
	VoucherID       pgtype.UUID
	VoucherCode     pgtype.Text
	Note            pgtype.Text
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	PaidAt          pgtype.Timestamptz
	CancelledAt     pgtype.Timestamptz
	CancelledBy     pgtype.UUID
	CancelReason    pgtype.Text
}

type OrderItem struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ProductID        pgtype.UUID
	OpenItemName     pgtype.Text
	OpenItemPrice    pgtype.Numeric
	Quantity         int32
	UnitPrice        pgtype.Numeric
	DisplayInKitchen bool
	KitchenStatus    string
	Note             pgtype.Text
	CreatedAt        time.Time
}

type Payment struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	PaymentMethod   string
	Amount          pgtype.Numeric
	ReceivedAmount  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
	ProcessedAt     time.Time
}

type AuditLog struct {
	ID         uuid.UUID
	UserID     pgtype.UUID
	Action     string
	TargetType string
	TargetID   pgtype.Text
	OldValue   []byte
	NewValue   []byte
	Reason     pgtype.Text
	CreatedAt  time.Time
}
