package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/service"
)

// SettlementServicer defines the service methods needed by settlement
// handlers. Satisfied by *service.SettlementService.
type SettlementServicer interface {
	Pay(ctx context.Context, req service.PayRequest) (database.Order, error)
	PayPartial(ctx context.Context, req service.PayPartialRequest) (*service.PayPartialResult, error)
	Split(ctx context.Context, req service.SplitRequest) (*service.SplitResult, error)
}

// SettlementHandler handles payment and split endpoints.
type SettlementHandler struct {
	svc SettlementServicer
}

func NewSettlementHandler(svc SettlementServicer) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

// RegisterRoutes registers settlement endpoints, mounted under /orders.
func (h *SettlementHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/pay", h.Pay)
	r.Post("/{id}/pay-partial", h.PayPartial)
	r.Post("/{id}/split", h.Split)
}

// --- Request / Response types ---

type paymentRequest struct {
	Method         string `json:"method"`
	Amount         string `json:"amount"`
	ReceivedAmount string `json:"received_amount"`
	Reference      string `json:"reference"`
}

type payRequest struct {
	Payments    []paymentRequest `json:"payments"`
	VoucherCode string           `json:"voucher_code"`
}

type payPartialRequest struct {
	ItemIDs  []string         `json:"item_ids"`
	Payments []paymentRequest `json:"payments"`
	Discount string           `json:"discount"`
	Reason   string           `json:"reason"`
}

type splitRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type payPartialResponse struct {
	Paid      orderResponse  `json:"paid"`
	Remaining *orderResponse `json:"remaining"`
}

type splitResponse struct {
	Source orderResponse `json:"source"`
	New    orderResponse `json:"new"`
}

func toPaymentInputs(reqs []paymentRequest) ([]service.PaymentInput, bool) {
	payments := make([]service.PaymentInput, 0, len(reqs))
	for _, p := range reqs {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, false
		}
		input := service.PaymentInput{
			Method:    p.Method,
			Amount:    amount,
			Reference: p.Reference,
		}
		if p.ReceivedAmount != "" {
			received, err := decimal.NewFromString(p.ReceivedAmount)
			if err != nil {
				return nil, false
			}
			input.ReceivedAmount = received
		}
		payments = append(payments, input)
	}
	return payments, true
}

func parseItemIDs(raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// --- Handlers ---

func (h *SettlementHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	payments, ok := toPaymentInputs(req.Payments)
	if !ok {
		badRequest(w, "invalid payment amount")
		return
	}

	order, err := h.svc.Pay(r.Context(), service.PayRequest{
		OrderID:     orderID,
		Payments:    payments,
		VoucherCode: req.VoucherCode,
		ActorID:     actorID(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *SettlementHandler) PayPartial(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req payPartialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	payments, ok := toPaymentInputs(req.Payments)
	if !ok {
		badRequest(w, "invalid payment amount")
		return
	}
	itemIDs, ok := parseItemIDs(req.ItemIDs)
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	discount := decimal.Zero
	if req.Discount != "" {
		var err error
		discount, err = decimal.NewFromString(req.Discount)
		if err != nil {
			badRequest(w, "invalid discount")
			return
		}
	}

	result, err := h.svc.PayPartial(r.Context(), service.PayPartialRequest{
		OrderID:  orderID,
		ItemIDs:  itemIDs,
		Payments: payments,
		Discount: discount,
		Reason:   req.Reason,
		ActorID:  actorID(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := payPartialResponse{Paid: toOrderResponse(result.Paid)}
	if result.Remaining != nil {
		remaining := toOrderResponse(*result.Remaining)
		resp.Remaining = &remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) Split(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	itemIDs, ok := parseItemIDs(req.ItemIDs)
	if !ok {
		badRequest(w, "invalid item id")
		return
	}

	result, err := h.svc.Split(r.Context(), service.SplitRequest{
		OrderID: orderID,
		ItemIDs: itemIDs,
		ActorID: actorID(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, splitResponse{
		Source: toOrderResponse(result.Source),
		New:    toOrderResponse(result.New),
	})
}
