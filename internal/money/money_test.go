package money

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestNumericRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("12345.67")
	if got := FromNumeric(ToNumeric(d)); !got.Equal(d) {
		t.Fatalf("round trip = %s, want %s", got, d)
	}
}

func TestFromNumericNull(t *testing.T) {
	if got := FromNumeric(pgtype.Numeric{}); !got.IsZero() {
		t.Fatalf("null numeric = %s, want 0", got)
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.RequireFromString("100000"), decimal.RequireFromString("12.5"))
	if !got.Equal(decimal.RequireFromString("12500")) {
		t.Fatalf("percent = %s, want 12500", got)
	}
}

func TestLine(t *testing.T) {
	got := Line(decimal.RequireFromString("33333.33"), 3)
	if !got.Equal(decimal.RequireFromString("99999.99")) {
		t.Fatalf("line = %s, want 99999.99", got)
	}
}

func TestPaymentTolerance(t *testing.T) {
	// The tolerance is half a currency unit; totals compare against it
	// exactly, so it must survive decimal conversion without drift.
	if !PaymentTolerance.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("tolerance = %s, want 0.5", PaymentTolerance)
	}
}
