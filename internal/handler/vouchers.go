package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/money"
	"github.com/warungpos/api/internal/service"
)

// VoucherServicer defines the service methods needed by voucher handlers.
// Satisfied by *service.PricingService.
type VoucherServicer interface {
	ValidateVoucher(ctx context.Context, code string, subtotal decimal.Decimal) (*service.VoucherQuote, error)
}

// VoucherHandler handles voucher validation. Redemption happens inside
// settlement, not here.
type VoucherHandler struct {
	svc VoucherServicer
}

func NewVoucherHandler(svc VoucherServicer) *VoucherHandler {
	return &VoucherHandler{svc: svc}
}

// RegisterRoutes registers voucher endpoints on the given Chi router.
func (h *VoucherHandler) RegisterRoutes(r chi.Router) {
	r.Post("/vouchers/validate", h.Validate)
}

type validateVoucherRequest struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
}

type validateVoucherResponse struct {
	Code        string `json:"code"`
	VoucherType string `json:"voucher_type"`
	Value       string `json:"value"`
	Discount    string `json:"discount"`
}

func (h *VoucherHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Code == "" {
		badRequest(w, "code is required")
		return
	}
	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		badRequest(w, "invalid subtotal")
		return
	}

	quote, err := h.svc.ValidateVoucher(r.Context(), req.Code, subtotal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateVoucherResponse{
		Code:        quote.Voucher.Code,
		VoucherType: quote.Voucher.VoucherType,
		Value:       money.FromNumeric(quote.Voucher.Value).StringFixed(2),
		Discount:    quote.Discount.StringFixed(2),
	})
}
