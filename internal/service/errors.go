package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes surfaced to callers. Handlers map these onto HTTP statuses and
// show Message verbatim.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeOrderPaid             = "ORDER_PAID"
	CodeOrderCancelled        = "ORDER_CANCELLED"
	CodeAlreadyPaid           = "ALREADY_PAID"
	CodeAlreadyCancelled      = "ALREADY_CANCELLED"
	CodeOrderHasItems         = "ORDER_HAS_ITEMS"
	CodeProductNotFound       = "PRODUCT_NOT_FOUND"
	CodeProductSoldOut        = "PRODUCT_SOLD_OUT"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInvalidItems          = "INVALID_ITEMS"
	CodePinRequired           = "PIN_REQUIRED"
	CodeInvalidPin            = "INVALID_PIN"
	CodeAuthorizationRequired = "AUTHORIZATION_REQUIRED"
	CodeInsufficientPayment   = "INSUFFICIENT_PAYMENT"
	CodeInvalidVoucher        = "INVALID_VOUCHER"
	CodeVoucherNotActive      = "VOUCHER_NOT_ACTIVE"
	CodeVoucherExpired        = "VOUCHER_EXPIRED"
	CodeVoucherLimitReached   = "VOUCHER_LIMIT_REACHED"
	CodeMinOrderAmount        = "MIN_ORDER_AMOUNT"
)

// Error is the structured result every operation fails with. Any in-flight
// transaction is rolled back before one of these returns.
type Error struct {
	Code    string
	Message string

	// Shortfall is set on INSUFFICIENT_PAYMENT only: how much is still owed.
	Shortfall decimal.Decimal
}

func (e *Error) Error() string { return e.Message }

// Is matches on Code so sentinel comparisons via errors.Is work even for
// errors constructed with dynamic messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrOrderNotFound     = &Error{Code: CodeNotFound, Message: "order not found"}
	ErrItemNotFound      = &Error{Code: CodeNotFound, Message: "order item not found"}
	ErrOrderPaid         = &Error{Code: CodeOrderPaid, Message: "order is already paid"}
	ErrOrderCancelled    = &Error{Code: CodeOrderCancelled, Message: "order is cancelled"}
	ErrAlreadyPaid       = &Error{Code: CodeAlreadyPaid, Message: "order is already paid"}
	ErrAlreadyCancelled  = &Error{Code: CodeAlreadyCancelled, Message: "order is already cancelled"}
	ErrOrderHasItems     = &Error{Code: CodeOrderHasItems, Message: "order still has items"}
	ErrProductNotFound   = &Error{Code: CodeProductNotFound, Message: "product not found"}
	ErrProductSoldOut    = &Error{Code: CodeProductSoldOut, Message: "product is sold out"}
	ErrInvalidItems      = &Error{Code: CodeInvalidItems, Message: "one or more items do not belong to this order"}
	ErrPinRequired       = &Error{Code: CodePinRequired, Message: "supervisor PIN is required"}
	ErrInvalidPin        = &Error{Code: CodeInvalidPin, Message: "PIN not recognized"}
	ErrAuthorization     = &Error{Code: CodeAuthorizationRequired, Message: "discount requires supervisor authorization"}
	ErrInvalidVoucher    = &Error{Code: CodeInvalidVoucher, Message: "voucher not found"}
	ErrVoucherNotActive  = &Error{Code: CodeVoucherNotActive, Message: "voucher is not active"}
	ErrVoucherExpired    = &Error{Code: CodeVoucherExpired, Message: "voucher is outside its validity window"}
	ErrVoucherLimit      = &Error{Code: CodeVoucherLimitReached, Message: "voucher usage limit reached"}
	ErrMinOrderAmount    = &Error{Code: CodeMinOrderAmount, Message: "order subtotal below voucher minimum"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientPayment, Message: "payment does not cover order total"}
)

func invalidRequest(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func insufficientPayment(shortfall decimal.Decimal) *Error {
	return &Error{
		Code:      CodeInsufficientPayment,
		Message:   fmt.Sprintf("payment short by %s", shortfall.StringFixed(2)),
		Shortfall: shortfall,
	}
}
