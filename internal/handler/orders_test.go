package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/service"
)

type mockOrderServicer struct {
	create         func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	get            func(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error)
	list           func(ctx context.Context, status string, limit, offset int32) ([]database.Order, error)
	addItem        func(ctx context.Context, orderID uuid.UUID, spec service.ItemSpec, actorID uuid.UUID) (*service.OrderDetail, error)
	updateItemNote func(ctx context.Context, orderID, itemID uuid.UUID, note string) (database.OrderItem, error)
	removeItem     func(ctx context.Context, orderID, itemID uuid.UUID, pin, reason string, actorID uuid.UUID) (*service.OrderDetail, error)
	deleteEmpty    func(ctx context.Context, orderID, actorID uuid.UUID) error
	cancel         func(ctx context.Context, orderID uuid.UUID, reason, pin string, actorID uuid.UUID) (database.Order, error)
}

func (m *mockOrderServicer) Create(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
	return m.create(ctx, req)
}
func (m *mockOrderServicer) Get(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error) {
	return m.get(ctx, orderID)
}
func (m *mockOrderServicer) List(ctx context.Context, status string, limit, offset int32) ([]database.Order, error) {
	return m.list(ctx, status, limit, offset)
}
func (m *mockOrderServicer) AddItem(ctx context.Context, orderID uuid.UUID, spec service.ItemSpec, actorID uuid.UUID) (*service.OrderDetail, error) {
	return m.addItem(ctx, orderID, spec, actorID)
}
func (m *mockOrderServicer) UpdateItemNote(ctx context.Context, orderID, itemID uuid.UUID, note string) (database.OrderItem, error) {
	return m.updateItemNote(ctx, orderID, itemID, note)
}
func (m *mockOrderServicer) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, pin, reason string, actorID uuid.UUID) (*service.OrderDetail, error) {
	return m.removeItem(ctx, orderID, itemID, pin, reason, actorID)
}
func (m *mockOrderServicer) DeleteEmpty(ctx context.Context, orderID, actorID uuid.UUID) error {
	return m.deleteEmpty(ctx, orderID, actorID)
}
func (m *mockOrderServicer) Cancel(ctx context.Context, orderID uuid.UUID, reason, pin string, actorID uuid.UUID) (database.Order, error) {
	return m.cancel(ctx, orderID, reason, pin, actorID)
}

type mockPricingServicer struct {
	applyManualDiscount func(ctx context.Context, req service.ManualDiscountRequest) (database.Order, error)
}

func (m *mockPricingServicer) ApplyManualDiscount(ctx context.Context, req service.ManualDiscountRequest) (database.Order, error) {
	return m.applyManualDiscount(ctx, req)
}

func orderRouter(svc OrderServicer, pricing PricingServicer) http.Handler {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		NewOrderHandler(svc, pricing).RegisterRoutes(r)
	})
	return r
}

func num(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}

func sampleOrder() database.Order {
	return database.Order{
		ID:          uuid.New(),
		OrderNumber: "WPS-001",
		OrderType:   enum.OrderTypeTakeaway,
		Status:      enum.OrderStatusOpen,
		Subtotal:    num("50000.00"),
		TotalAmount: num("50000.00"),
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	order := sampleOrder()
	svc := &mockOrderServicer{
		create: func(_ context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
			if req.OrderType != enum.OrderTypeTakeaway {
				t.Fatalf("order type = %s, want TAKEAWAY", req.OrderType)
			}
			if len(req.Items) != 1 || req.Items[0].Catalog == nil {
				t.Fatalf("items = %+v, want one catalog item", req.Items)
			}
			return &service.OrderDetail{Order: order}, nil
		},
	}
	router := orderRouter(svc, &mockPricingServicer{})

	body, _ := json.Marshal(map[string]any{
		"order_type": "TAKEAWAY",
		"items": []map[string]any{
			{"product_id": uuid.New().String(), "quantity": 2},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var resp orderDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderNumber != "WPS-001" {
		t.Fatalf("order number = %s, want WPS-001", resp.OrderNumber)
	}
}

func TestCreateOrderBadBody(t *testing.T) {
	router := orderRouter(&mockOrderServicer{}, &mockPricingServicer{})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"already paid", service.ErrAlreadyPaid, http.StatusConflict},
		{"has items", service.ErrOrderHasItems, http.StatusConflict},
		{"pin required", service.ErrPinRequired, http.StatusForbidden},
		{"invalid pin", service.ErrInvalidPin, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockOrderServicer{
				deleteEmpty: func(context.Context, uuid.UUID, uuid.UUID) error { return tc.err },
			}
			router := orderRouter(svc, &mockPricingServicer{})
			req := httptest.NewRequest(http.MethodDelete, "/orders/"+uuid.New().String(), nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error.Code == "" {
				t.Fatal("missing error code in body")
			}
		})
	}
}

func TestDiscountEndpointPassesPin(t *testing.T) {
	order := sampleOrder()
	pricing := &mockPricingServicer{
		applyManualDiscount: func(_ context.Context, req service.ManualDiscountRequest) (database.Order, error) {
			if req.Type != enum.DiscountTypePercent {
				t.Fatalf("type = %s, want PERCENT", req.Type)
			}
			if !req.Value.Equal(decimal.RequireFromString("15")) {
				t.Fatalf("value = %s, want 15", req.Value)
			}
			if req.Pin != "1234" {
				t.Fatalf("pin = %q, want 1234", req.Pin)
			}
			return order, nil
		},
	}
	router := orderRouter(&mockOrderServicer{}, pricing)

	body, _ := json.Marshal(map[string]string{
		"type":   "PERCENT",
		"value":  "15",
		"reason": "regular",
		"pin":    "1234",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/"+order.ID.String()+"/discount", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestInsufficientPaymentBody(t *testing.T) {
	shortErr := &service.Error{
		Code:      service.CodeInsufficientPayment,
		Message:   "payment short by 0.51",
		Shortfall: decimal.RequireFromString("0.51"),
	}
	svc := &mockSettlementServicer{
		pay: func(context.Context, service.PayRequest) (database.Order, error) {
			return database.Order{}, shortErr
		},
	}
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		NewSettlementHandler(svc).RegisterRoutes(r)
	})

	body, _ := json.Marshal(map[string]any{
		"payments": []map[string]string{{"method": "CASH", "amount": "99.49"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.New().String()+"/pay", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Shortfall != "0.51" {
		t.Fatalf("shortfall = %q, want 0.51", resp.Error.Shortfall)
	}
}

type mockSettlementServicer struct {
	pay        func(ctx context.Context, req service.PayRequest) (database.Order, error)
	payPartial func(ctx context.Context, req service.PayPartialRequest) (*service.PayPartialResult, error)
	split      func(ctx context.Context, req service.SplitRequest) (*service.SplitResult, error)
}

func (m *mockSettlementServicer) Pay(ctx context.Context, req service.PayRequest) (database.Order, error) {
	return m.pay(ctx, req)
}
func (m *mockSettlementServicer) PayPartial(ctx context.Context, req service.PayPartialRequest) (*service.PayPartialResult, error) {
	return m.payPartial(ctx, req)
}
func (m *mockSettlementServicer) Split(ctx context.Context, req service.SplitRequest) (*service.SplitResult, error) {
	return m.split(ctx, req)
}
