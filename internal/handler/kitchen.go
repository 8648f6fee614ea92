package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warungpos/api/internal/database"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
// Satisfied by *service.KitchenService.
type KitchenServicer interface {
	SendToKitchen(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, next string) (database.OrderItem, error)
}

// KitchenHandler handles kitchen dispatch endpoints.
type KitchenHandler struct {
	svc KitchenServicer
}

func NewKitchenHandler(svc KitchenServicer) *KitchenHandler {
	return &KitchenHandler{svc: svc}
}

// RegisterRoutes registers kitchen display endpoints on the given Chi router.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Patch("/kitchen/items/{itemID}/status", h.UpdateItemStatus)
}

// RegisterOrderRoutes registers dispatch endpoints, mounted under /orders.
func (h *KitchenHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/{id}/send-to-kitchen", h.Send)
}

type kitchenStatusRequest struct {
	Status string `json:"status"`
}

func (h *KitchenHandler) Send(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	dispatched, err := h.svc.SendToKitchen(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]orderItemResponse, 0, len(dispatched))
	for _, it := range dispatched {
		items = append(items, toOrderItemResponse(it))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dispatched": items})
}

func (h *KitchenHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}
	var req kitchenStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	item, err := h.svc.UpdateItemStatus(r.Context(), itemID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemResponse(item))
}
