package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/middleware"
	"github.com/warungpos/api/internal/money"
	"github.com/warungpos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	Get(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error)
	List(ctx context.Context, status string, limit, offset int32) ([]database.Order, error)
	AddItem(ctx context.Context, orderID uuid.UUID, spec service.ItemSpec, actorID uuid.UUID) (*service.OrderDetail, error)
	UpdateItemNote(ctx context.Context, orderID, itemID uuid.UUID, note string) (database.OrderItem, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, pin, reason string, actorID uuid.UUID) (*service.OrderDetail, error)
	DeleteEmpty(ctx context.Context, orderID, actorID uuid.UUID) error
	Cancel(ctx context.Context, orderID uuid.UUID, reason, pin string, actorID uuid.UUID) (database.Order, error)
}

// PricingServicer defines the pricing methods needed by order handlers.
// Satisfied by *service.PricingService.
type PricingServicer interface {
	ApplyManualDiscount(ctx context.Context, req service.ManualDiscountRequest) (database.Order, error)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	svc     OrderServicer
	pricing PricingServicer
}

func NewOrderHandler(svc OrderServicer, pricing PricingServicer) *OrderHandler {
	return &OrderHandler{svc: svc, pricing: pricing}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.DeleteEmpty)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/discount", h.ApplyDiscount)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/{id}/items/{itemID}", h.UpdateItemNote)
	r.Delete("/{id}/items/{itemID}", h.RemoveItem)
}

// --- Request / Response types ---

type itemRequest struct {
	ProductID        string `json:"product_id"`
	Name             string `json:"name"`
	Price            string `json:"price"`
	Quantity         int32  `json:"quantity"`
	Note             string `json:"note"`
	DisplayInKitchen bool   `json:"display_in_kitchen"`
}

type createOrderRequest struct {
	OrderType  string        `json:"order_type"`
	TableID    string        `json:"table_id"`
	SessionID  string        `json:"session_id"`
	CustomerID string        `json:"customer_id"`
	Note       string        `json:"note"`
	Surcharge  string        `json:"surcharge"`
	Items      []itemRequest `json:"items"`
}

type discountRequest struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
	Pin    string `json:"pin"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
	Pin    string `json:"pin"`
}

type removeItemRequest struct {
	Pin    string `json:"pin"`
	Reason string `json:"reason"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type orderResponse struct {
	ID              uuid.UUID  `json:"id"`
	OrderNumber     string     `json:"order_number"`
	OrderType       string     `json:"order_type"`
	Status          string     `json:"status"`
	Subtotal        string     `json:"subtotal"`
	DiscountAmount  string     `json:"discount_amount"`
	DiscountReason  *string    `json:"discount_reason"`
	SurchargeAmount string     `json:"surcharge_amount"`
	TotalAmount     string     `json:"total_amount"`
	TableID         *uuid.UUID `json:"table_id"`
	TableSessionID  *uuid.UUID `json:"table_session_id"`
	VoucherCode     *string    `json:"voucher_code"`
	Note            *string    `json:"note"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at"`
	CancelledAt     *time.Time `json:"cancelled_at"`
	CancelReason    *string    `json:"cancel_reason"`
}

type orderItemResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrderID          uuid.UUID  `json:"order_id"`
	ProductID        *uuid.UUID `json:"product_id"`
	Name             *string    `json:"name"`
	Quantity         int32      `json:"quantity"`
	UnitPrice        string     `json:"unit_price"`
	LineTotal        string     `json:"line_total"`
	DisplayInKitchen bool       `json:"display_in_kitchen"`
	KitchenStatus    string     `json:"kitchen_status"`
	Note             *string    `json:"note"`
}

type orderDetailResponse struct {
	orderResponse
	Items    []orderItemResponse `json:"items"`
	Payments []paymentResponse   `json:"payments"`
}

type paymentResponse struct {
	ID             uuid.UUID `json:"id"`
	Method         string    `json:"method"`
	Amount         string    `json:"amount"`
	ReceivedAmount string    `json:"received_amount"`
	ChangeAmount   string    `json:"change_amount"`
	Reference      *string   `json:"reference"`
	ProcessedAt    time.Time `json:"processed_at"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		OrderType:       o.OrderType,
		Status:          o.Status,
		Subtotal:        money.FromNumeric(o.Subtotal).StringFixed(2),
		DiscountAmount:  money.FromNumeric(o.DiscountAmount).StringFixed(2),
		SurchargeAmount: money.FromNumeric(o.SurchargeAmount).StringFixed(2),
		TotalAmount:     money.FromNumeric(o.TotalAmount).StringFixed(2),
		CreatedAt:       o.CreatedAt,
	}
	if o.DiscountReason.Valid {
		resp.DiscountReason = &o.DiscountReason.String
	}
	if o.TableID.Valid {
		id := uuid.UUID(o.TableID.Bytes)
		resp.TableID = &id
	}
	if o.TableSessionID.Valid {
		id := uuid.UUID(o.TableSessionID.Bytes)
		resp.TableSessionID = &id
	}
	if o.VoucherCode.Valid {
		resp.VoucherCode = &o.VoucherCode.String
	}
	if o.Note.Valid {
		resp.Note = &o.Note.String
	}
	if o.PaidAt.Valid {
		resp.PaidAt = &o.PaidAt.Time
	}
	if o.CancelledAt.Valid {
		resp.CancelledAt = &o.CancelledAt.Time
	}
	if o.CancelReason.Valid {
		resp.CancelReason = &o.CancelReason.String
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	unit := money.FromNumeric(it.UnitPrice)
	resp := orderItemResponse{
		ID:               it.ID,
		OrderID:          it.OrderID,
		Quantity:         it.Quantity,
		UnitPrice:        unit.StringFixed(2),
		LineTotal:        money.Line(unit, it.Quantity).StringFixed(2),
		DisplayInKitchen: it.DisplayInKitchen,
		KitchenStatus:    it.KitchenStatus,
	}
	if it.ProductID.Valid {
		id := uuid.UUID(it.ProductID.Bytes)
		resp.ProductID = &id
	}
	if it.OpenItemName.Valid {
		resp.Name = &it.OpenItemName.String
	}
	if it.Note.Valid {
		resp.Note = &it.Note.String
	}
	return resp
}

func toPaymentResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:             p.ID,
		Method:         p.PaymentMethod,
		Amount:         money.FromNumeric(p.Amount).StringFixed(2),
		ReceivedAmount: money.FromNumeric(p.ReceivedAmount).StringFixed(2),
		ChangeAmount:   money.FromNumeric(p.ChangeAmount).StringFixed(2),
		ProcessedAt:    p.ProcessedAt,
	}
	if p.ReferenceNumber.Valid {
		resp.Reference = &p.ReferenceNumber.String
	}
	return resp
}

func toOrderDetailResponse(d *service.OrderDetail) orderDetailResponse {
	items := make([]orderItemResponse, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, toOrderItemResponse(it))
	}
	payments := make([]paymentResponse, 0, len(d.Payments))
	for _, p := range d.Payments {
		payments = append(payments, toPaymentResponse(p))
	}
	return orderDetailResponse{orderResponse: toOrderResponse(d.Order), Items: items, Payments: payments}
}

func toItemSpec(req itemRequest) (service.ItemSpec, error) {
	if req.ProductID != "" {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return service.ItemSpec{}, err
		}
		return service.ItemSpec{Catalog: &service.CatalogItem{
			ProductID: productID,
			Quantity:  req.Quantity,
			Note:      req.Note,
		}}, nil
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return service.ItemSpec{}, err
	}
	return service.ItemSpec{AdHoc: &service.AdHocItem{
		Name:             req.Name,
		Price:            price,
		Quantity:         req.Quantity,
		Note:             req.Note,
		DisplayInKitchen: req.DisplayInKitchen,
	}}, nil
}

func actorID(r *http.Request) uuid.UUID {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// --- Handlers ---

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	svcReq := service.CreateOrderRequest{
		OrderType: req.OrderType,
		Note:      req.Note,
		ActorID:   actorID(r),
	}
	if req.TableID != "" {
		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			badRequest(w, "invalid table_id")
			return
		}
		svcReq.TableID = &tableID
	}
	if req.SessionID != "" {
		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			badRequest(w, "invalid session_id")
			return
		}
		svcReq.SessionID = &sessionID
	}
	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			badRequest(w, "invalid customer_id")
			return
		}
		svcReq.CustomerID = &customerID
	}
	if req.Surcharge != "" {
		surcharge, err := decimal.NewFromString(req.Surcharge)
		if err != nil {
			badRequest(w, "invalid surcharge")
			return
		}
		svcReq.Surcharge = surcharge
	}
	for _, item := range req.Items {
		spec, err := toItemSpec(item)
		if err != nil {
			badRequest(w, "invalid item")
			return
		}
		svcReq.Items = append(svcReq.Items, spec)
	}

	detail, err := h.svc.Create(r.Context(), svcReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDetailResponse(detail))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32)
	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32)

	orders, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

func (h *OrderHandler) DeleteEmpty(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEmpty(r.Context(), orderID, actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	order, err := h.svc.Cancel(r.Context(), orderID, req.Reason, req.Pin, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		badRequest(w, "invalid discount value")
		return
	}

	order, err := h.pricing.ApplyManualDiscount(r.Context(), service.ManualDiscountRequest{
		OrderID: orderID,
		Type:    req.Type,
		Value:   value,
		Reason:  req.Reason,
		Pin:     req.Pin,
		ActorID: actorID(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	spec, err := toItemSpec(req)
	if err != nil {
		badRequest(w, "invalid item")
		return
	}

	detail, err := h.svc.AddItem(r.Context(), orderID, spec, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

func (h *OrderHandler) UpdateItemNote(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	item, err := h.svc.UpdateItemNote(r.Context(), orderID, itemID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemResponse(item))
}

func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID")
	if !ok {
		return
	}
	// Body is optional: only removals of dispatched items need a PIN.
	var req removeItemRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	detail, err := h.svc.RemoveItem(r.Context(), orderID, itemID, req.Pin, req.Reason, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}
