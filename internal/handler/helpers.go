package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warungpos/api/internal/service"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Shortfall string `json:"shortfall,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    service.CodeInvalidRequest,
		Message: message,
	}})
}

// writeError maps a service error onto an HTTP status and a structured body.
// Anything that is not a *service.Error is an internal error and gets logged.
func writeError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		log.Printf("ERROR: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "INTERNAL",
			Message: "internal server error",
		}})
		return
	}

	status := http.StatusBadRequest
	switch svcErr.Code {
	case service.CodeNotFound, service.CodeProductNotFound, service.CodeInvalidVoucher:
		status = http.StatusNotFound
	case service.CodeOrderPaid, service.CodeOrderCancelled, service.CodeAlreadyPaid,
		service.CodeAlreadyCancelled, service.CodeOrderHasItems, service.CodeProductSoldOut,
		service.CodeVoucherLimitReached:
		status = http.StatusConflict
	case service.CodePinRequired, service.CodeInvalidPin, service.CodeAuthorizationRequired:
		status = http.StatusForbidden
	case service.CodeInsufficientPayment, service.CodeVoucherNotActive,
		service.CodeVoucherExpired, service.CodeMinOrderAmount:
		status = http.StatusUnprocessableEntity
	}

	body := errorBody{Code: svcErr.Code, Message: svcErr.Message}
	if svcErr.Code == service.CodeInsufficientPayment {
		body.Shortfall = svcErr.Shortfall.StringFixed(2)
	}
	writeJSON(w, status, errorResponse{Error: body})
}

// uuidParam parses a UUID path parameter, writing a 400 itself on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
