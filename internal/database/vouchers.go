package database

import (
	"context"

	"github.com/google/uuid"
)

const voucherColumns = `id, code, voucher_type, value, min_order_amount,
	max_discount_amount, usage_count, usage_limit, valid_from, valid_until, is_active`

func scanVoucher(row interface{ Scan(dest ...any) error }) (Voucher, error) {
	var v Voucher
	err := row.Scan(
		&v.ID, &v.Code, &v.VoucherType, &v.Value, &v.MinOrderAmount,
		&v.MaxDiscountAmount, &v.UsageCount, &v.UsageLimit, &v.ValidFrom,
		&v.ValidUntil, &v.IsActive,
	)
	return v, err
}

const getVoucherByCode = `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`

func (q *Queries) GetVoucherByCode(ctx context.Context, code string) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, getVoucherByCode, code))
}

// IncrementVoucherUsage bumps usage_count only while it is below the limit, in
// a single write. Zero rows affected means a concurrent redemption took the
// last slot; the caller maps that to a limit-reached error.
const incrementVoucherUsage = `
UPDATE vouchers SET usage_count = usage_count + 1
WHERE id = $1 AND usage_count < usage_limit`

func (q *Queries) IncrementVoucherUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, incrementVoucherUsage, id)
	return tag.RowsAffected(), err
}
