package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, payment_method, amount, received_amount,
	change_amount, reference_number, processed_by, processed_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount, &p.ReceivedAmount,
		&p.ChangeAmount, &p.ReferenceNumber, &p.ProcessedBy, &p.ProcessedAt,
	)
	return p, err
}

type CreatePaymentParams struct {
	OrderID         uuid.UUID
	PaymentMethod   string
	Amount          pgtype.Numeric
	ReceivedAmount  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
}

// Payments are append-only; there is no update or delete query on purpose.
const createPayment = `
INSERT INTO payments (
	order_id, payment_method, amount, received_amount, change_amount,
	reference_number, processed_by
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + paymentColumns

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment,
		arg.OrderID, arg.PaymentMethod, arg.Amount, arg.ReceivedAmount,
		arg.ChangeAmount, arg.ReferenceNumber, arg.ProcessedBy,
	))
}

const listPaymentsByOrder = `
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY processed_at`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
