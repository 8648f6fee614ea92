package money

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// PaymentTolerance is the rounding slack applied when comparing the sum of
// tendered payments against an order total. Cashiers round small change; a
// payment up to half a currency unit short still settles.
var PaymentTolerance = decimal.NewFromFloat(0.5)

// FromNumeric converts a pgtype.Numeric into a decimal. NULL or unreadable
// values collapse to zero so monetary math never sees a partial value.
func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ToNumeric converts a decimal into a pgtype.Numeric at two decimal places,
// the precision every monetary column is stored at.
func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// Percent returns base * pct / 100 without intermediate rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(decimal.NewFromInt(100))
}

// Line returns unitPrice * quantity.
func Line(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt32(quantity))
}
