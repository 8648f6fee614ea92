package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/money"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
}

// ProductHandler serves the read-only product catalog the cashier orders from.
type ProductHandler struct {
	store ProductStore
}

func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.List)
}

type productResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Price            string    `json:"price"`
	IsAvailable      bool      `json:"is_available"`
	DisplayInKitchen bool      `json:"display_in_kitchen"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse{
			ID:               p.ID,
			Name:             p.Name,
			Price:            money.FromNumeric(p.Price).StringFixed(2),
			IsAvailable:      p.IsAvailable,
			DisplayInKitchen: p.DisplayInKitchen,
			CreatedAt:        p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
