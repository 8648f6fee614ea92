package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warungpos/api/internal/auth"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/money"
)

type mockOrderStore struct {
	createOrder       func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrder          func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderForUpdate func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrders        func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	updateOrderTotals func(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	cancelOrder       func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	deleteOrder       func(ctx context.Context, id uuid.UUID) (int64, error)
	nextOrderNumber   func(ctx context.Context) (int32, error)

	createOrderItem           func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderItem              func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	listOrderItemsByOrder     func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	updateOrderItemNote       func(ctx context.Context, arg database.UpdateOrderItemNoteParams) (database.OrderItem, error)
	deleteOrderItem           func(ctx context.Context, id uuid.UUID) (int64, error)
	cancelKitchenItemsByOrder func(ctx context.Context, orderID uuid.UUID) (int64, error)
	listPaymentsByOrder       func(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)

	getProduct              func(ctx context.Context, id uuid.UUID) (database.Product, error)
	getTable                func(ctx context.Context, id uuid.UUID) (database.Table, error)
	occupyTable             func(ctx context.Context, arg database.OccupyTableParams) (database.Table, error)
	freeTable               func(ctx context.Context, id uuid.UUID) (database.Table, error)
	getTableSession         func(ctx context.Context, id uuid.UUID) (database.TableSession, error)
	getActiveSessionByTable func(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
	createTableSession      func(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrder(ctx, arg)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrder(ctx, id)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdate(ctx, id)
}
func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrders(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	return m.updateOrderTotals(ctx, arg)
}
func (m *mockOrderStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	return m.cancelOrder(ctx, arg)
}
func (m *mockOrderStore) DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error) {
	return m.deleteOrder(ctx, id)
}
func (m *mockOrderStore) NextOrderNumber(ctx context.Context) (int32, error) {
	return m.nextOrderNumber(ctx)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItem(ctx, arg)
}
func (m *mockOrderStore) GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.getOrderItem(ctx, id)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrder(ctx, orderID)
}
func (m *mockOrderStore) UpdateOrderItemNote(ctx context.Context, arg database.UpdateOrderItemNoteParams) (database.OrderItem, error) {
	return m.updateOrderItemNote(ctx, arg)
}
func (m *mockOrderStore) DeleteOrderItem(ctx context.Context, id uuid.UUID) (int64, error) {
	return m.deleteOrderItem(ctx, id)
}
func (m *mockOrderStore) CancelKitchenItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.cancelKitchenItemsByOrder(ctx, orderID)
}
func (m *mockOrderStore) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	return m.listPaymentsByOrder(ctx, orderID)
}
func (m *mockOrderStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProduct(ctx, id)
}
func (m *mockOrderStore) GetTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.getTable(ctx, id)
}
func (m *mockOrderStore) OccupyTable(ctx context.Context, arg database.OccupyTableParams) (database.Table, error) {
	return m.occupyTable(ctx, arg)
}
func (m *mockOrderStore) FreeTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.freeTable(ctx, id)
}
func (m *mockOrderStore) GetTableSession(ctx context.Context, id uuid.UUID) (database.TableSession, error) {
	return m.getTableSession(ctx, id)
}
func (m *mockOrderStore) GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (database.TableSession, error) {
	return m.getActiveSessionByTable(ctx, tableID)
}
func (m *mockOrderStore) CreateTableSession(ctx context.Context, tableID uuid.UUID) (database.TableSession, error) {
	return m.createTableSession(ctx, tableID)
}

func newOrderService(store *mockOrderStore, pins PinVerifier, broadcast *mockBroadcaster) (*OrderService, *mockTxBeginner) {
	pool := &mockTxBeginner{}
	if pins == nil {
		pins = &mockPins{verifyPin: func(context.Context, string, []string) (*auth.Staff, error) { return nil, nil }}
	}
	svc := NewOrderService(pool, func(database.DBTX) OrderStore { return store }, pins, &mockAudit{}, broadcast)
	return svc, pool
}

func TestCreateDineInRequiresTable(t *testing.T) {
	svc, _ := newOrderService(&mockOrderStore{}, nil, &mockBroadcaster{})
	_, err := svc.Create(context.Background(), CreateOrderRequest{OrderType: enum.OrderTypeDineIn})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != CodeInvalidRequest {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestCreateTakeawayOrder(t *testing.T) {
	productID := uuid.New()
	orderID := uuid.New()
	created := database.Order{ID: orderID, OrderNumber: "WPS-007", Status: enum.OrderStatusOpen}

	store := &mockOrderStore{
		nextOrderNumber: func(context.Context) (int32, error) { return 7, nil },
		createOrder: func(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
			if arg.OrderNumber != "WPS-007" {
				t.Fatalf("order number = %s, want WPS-007", arg.OrderNumber)
			}
			if arg.Status != enum.OrderStatusOpen {
				t.Fatalf("status = %s, want OPEN", arg.Status)
			}
			return created, nil
		},
		getProduct: func(_ context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{ID: productID, Price: num("25000.00"), IsAvailable: true, DisplayInKitchen: true}, nil
		},
		createOrderItem: func(_ context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			if arg.KitchenStatus != enum.KitchenStatusPending {
				t.Fatalf("kitchen status = %s, want PENDING", arg.KitchenStatus)
			}
			return database.OrderItem{
				ID: uuid.New(), OrderID: orderID, ProductID: arg.ProductID,
				Quantity: arg.Quantity, UnitPrice: arg.UnitPrice,
				DisplayInKitchen: arg.DisplayInKitchen, KitchenStatus: arg.KitchenStatus,
			}, nil
		},
		updateOrderTotals: func(_ context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
			if got := money.FromNumeric(arg.Subtotal); !got.Equal(dec("50000")) {
				t.Fatalf("subtotal = %s, want 50000", got)
			}
			if got := money.FromNumeric(arg.Total); !got.Equal(dec("50000")) {
				t.Fatalf("total = %s, want 50000", got)
			}
			created.Subtotal = arg.Subtotal
			created.TotalAmount = arg.Total
			return created, nil
		},
	}
	broadcast := &mockBroadcaster{}
	svc, pool := newOrderService(store, nil, broadcast)

	detail, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderType: enum.OrderTypeTakeaway,
		Items: []ItemSpec{
			{Catalog: &CatalogItem{ProductID: productID, Quantity: 2}},
		},
		ActorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detail.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(detail.Items))
	}
	if !pool.lastTx().committed {
		t.Fatal("transaction not committed")
	}
	if !broadcast.has(EventOrderCreated) {
		t.Fatal("missing order:created event")
	}
}

func TestCreateSoldOutProduct(t *testing.T) {
	productID := uuid.New()
	store := &mockOrderStore{
		nextOrderNumber: func(context.Context) (int32, error) { return 1, nil },
		createOrder: func(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber}, nil
		},
		getProduct: func(context.Context, uuid.UUID) (database.Product, error) {
			return database.Product{ID: productID, Price: num("10000.00"), IsAvailable: false}, nil
		},
	}
	svc, pool := newOrderService(store, nil, &mockBroadcaster{})

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderType: enum.OrderTypeRetail,
		Items:     []ItemSpec{{Catalog: &CatalogItem{ProductID: productID, Quantity: 1}}},
	})
	if !errors.Is(err, ErrProductSoldOut) {
		t.Fatalf("err = %v, want ErrProductSoldOut", err)
	}
	if !pool.lastTx().rolledBack {
		t.Fatal("transaction not rolled back")
	}
}

func TestItemSpecValidation(t *testing.T) {
	cases := []struct {
		name string
		spec ItemSpec
		want string
	}{
		{"neither", ItemSpec{}, "item must be either"},
		{"both", ItemSpec{Catalog: &CatalogItem{}, AdHoc: &AdHocItem{}}, "cannot be both"},
		{"zero quantity", ItemSpec{Catalog: &CatalogItem{ProductID: uuid.New()}}, "quantity"},
		{"unnamed ad-hoc", ItemSpec{AdHoc: &AdHocItem{Quantity: 1}}, "name"},
		{"negative price", ItemSpec{AdHoc: &AdHocItem{Name: "x", Quantity: 1, Price: dec("-1")}}, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want message containing %q", err, tc.want)
			}
		})
	}
}

func TestAddItemToPaidOrder(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	order.Status = enum.OrderStatusPaid
	store := &mockOrderStore{
		getOrderForUpdate: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
	}
	svc, _ := newOrderService(store, nil, &mockBroadcaster{})

	_, err := svc.AddItem(context.Background(), order.ID, ItemSpec{
		AdHoc: &AdHocItem{Name: "extra rice", Price: dec("5000"), Quantity: 1},
	}, uuid.New())
	if !errors.Is(err, ErrOrderPaid) {
		t.Fatalf("err = %v, want ErrOrderPaid", err)
	}
}

func TestRemoveDispatchedItemNeedsPin(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	item := testItem(order.ID, "25000.00", 1)
	item.DisplayInKitchen = true
	item.KitchenStatus = enum.KitchenStatusPreparing

	remaining := []database.OrderItem{testItem(order.ID, "25000.00", 1)}
	store := &mockOrderStore{
		getOrderForUpdate: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
		getOrderItem:      func(context.Context, uuid.UUID) (database.OrderItem, error) { return item, nil },
		deleteOrderItem:   func(context.Context, uuid.UUID) (int64, error) { return 1, nil },
		listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			return remaining, nil
		},
		updateOrderTotals: func(_ context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
			order.Subtotal = arg.Subtotal
			order.TotalAmount = arg.Total
			return order, nil
		},
	}

	t.Run("missing pin", func(t *testing.T) {
		svc, _ := newOrderService(store, nil, &mockBroadcaster{})
		_, err := svc.RemoveItem(context.Background(), order.ID, item.ID, "", "", uuid.New())
		if !errors.Is(err, ErrPinRequired) {
			t.Fatalf("err = %v, want ErrPinRequired", err)
		}
	})

	t.Run("wrong pin", func(t *testing.T) {
		svc, _ := newOrderService(store, pinAccepts("1234", auth.Staff{Name: "Boss"}), &mockBroadcaster{})
		_, err := svc.RemoveItem(context.Background(), order.ID, item.ID, "0000", "", uuid.New())
		if !errors.Is(err, ErrInvalidPin) {
			t.Fatalf("err = %v, want ErrInvalidPin", err)
		}
	})

	t.Run("valid pin removes and notifies kitchen", func(t *testing.T) {
		broadcast := &mockBroadcaster{}
		svc, _ := newOrderService(store, pinAccepts("1234", auth.Staff{Name: "Boss"}), broadcast)
		detail, err := svc.RemoveItem(context.Background(), order.ID, item.ID, "1234", "", uuid.New())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := money.FromNumeric(detail.Order.Subtotal); !got.Equal(dec("25000")) {
			t.Fatalf("subtotal = %s, want 25000", got)
		}
		if !broadcast.has(EventKitchenItemCancelled) {
			t.Fatal("missing kitchen:item_cancelled event")
		}
	})

	t.Run("reason lands in the audit trail", func(t *testing.T) {
		audit := &mockAudit{}
		pool := &mockTxBeginner{}
		svc := NewOrderService(pool, func(database.DBTX) OrderStore { return store },
			pinAccepts("1234", auth.Staff{Name: "Boss"}), audit, &mockBroadcaster{})
		if _, err := svc.RemoveItem(context.Background(), order.ID, item.ID, "1234", "wrong dish", uuid.New()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(audit.entries) != 1 {
			t.Fatalf("audit entries = %d, want 1", len(audit.entries))
		}
		if audit.entries[0].Reason != "wrong dish" {
			t.Fatalf("audit reason = %q, want wrong dish", audit.entries[0].Reason)
		}
	})
}

func TestUpdateItemNote(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	newNote := func(item database.OrderItem) *mockOrderStore {
		return &mockOrderStore{
			getOrderItem: func(context.Context, uuid.UUID) (database.OrderItem, error) { return item, nil },
			getOrder:     func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
			updateOrderItemNote: func(_ context.Context, arg database.UpdateOrderItemNoteParams) (database.OrderItem, error) {
				item.Note = arg.Note
				return item, nil
			},
		}
	}

	t.Run("pending item updates quietly", func(t *testing.T) {
		item := testItem(order.ID, "25000.00", 1)
		item.DisplayInKitchen = true
		item.KitchenStatus = enum.KitchenStatusPending
		broadcast := &mockBroadcaster{}
		svc, _ := newOrderService(newNote(item), nil, broadcast)

		updated, err := svc.UpdateItemNote(context.Background(), order.ID, item.ID, "no onions")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated.Note.Valid || updated.Note.String != "no onions" {
			t.Fatalf("note = %v, want no onions", updated.Note)
		}
		if !broadcast.has(EventOrderItemUpdated) {
			t.Fatal("missing order:item_updated event")
		}
		if broadcast.has(EventKitchenItemUpdated) {
			t.Fatal("pending item must not reach the kitchen display")
		}
	})

	t.Run("dispatched item refreshes the kitchen display", func(t *testing.T) {
		item := testItem(order.ID, "25000.00", 1)
		item.DisplayInKitchen = true
		item.KitchenStatus = enum.KitchenStatusPreparing
		broadcast := &mockBroadcaster{}
		svc, _ := newOrderService(newNote(item), nil, broadcast)

		if _, err := svc.UpdateItemNote(context.Background(), order.ID, item.ID, "extra spicy"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !broadcast.has(EventOrderItemUpdated) || !broadcast.has(EventKitchenItemUpdated) {
			t.Fatalf("events = %v, want order:item_updated and kitchen:item_updated", broadcast.eventTypes())
		}
	})

	t.Run("foreign item rejected", func(t *testing.T) {
		item := testItem(uuid.New(), "25000.00", 1)
		svc, _ := newOrderService(newNote(item), nil, &mockBroadcaster{})
		if _, err := svc.UpdateItemNote(context.Background(), order.ID, item.ID, "x"); !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("err = %v, want ErrItemNotFound", err)
		}
	})
}

func TestGetOrderIncludesPayments(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	order.Status = enum.OrderStatusPaid
	store := &mockOrderStore{
		getOrder: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
		listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{testItem(order.ID, "50000.00", 1)}, nil
		},
		listPaymentsByOrder: func(context.Context, uuid.UUID) ([]database.Payment, error) {
			return []database.Payment{{ID: uuid.New(), OrderID: order.ID, PaymentMethod: enum.PaymentMethodCash, Amount: num("50000.00")}}, nil
		},
	}
	svc, _ := newOrderService(store, nil, &mockBroadcaster{})

	detail, err := svc.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detail.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(detail.Payments))
	}
	if got := money.FromNumeric(detail.Payments[0].Amount); !got.Equal(dec("50000")) {
		t.Fatalf("payment amount = %s, want 50000", got)
	}
}

func TestRemovePendingItemNoPin(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	item := testItem(order.ID, "25000.00", 1)
	item.DisplayInKitchen = true
	item.KitchenStatus = enum.KitchenStatusPending

	store := &mockOrderStore{
		getOrderForUpdate: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
		getOrderItem:      func(context.Context, uuid.UUID) (database.OrderItem, error) { return item, nil },
		deleteOrderItem:   func(context.Context, uuid.UUID) (int64, error) { return 1, nil },
		listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			return nil, nil
		},
		updateOrderTotals: func(_ context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
			order.Subtotal = arg.Subtotal
			order.TotalAmount = arg.Total
			return order, nil
		},
	}
	broadcast := &mockBroadcaster{}
	svc, _ := newOrderService(store, nil, broadcast)

	if _, err := svc.RemoveItem(context.Background(), order.ID, item.ID, "", "", uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if broadcast.has(EventKitchenItemCancelled) {
		t.Fatal("unexpected kitchen event for pending item")
	}
}

func TestDeleteEmpty(t *testing.T) {
	t.Run("order with items", func(t *testing.T) {
		order := openOrder("50000.00", "0.00", "0.00")
		store := &mockOrderStore{
			getOrderForUpdate: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
			listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
				return []database.OrderItem{testItem(order.ID, "25000.00", 2)}, nil
			},
		}
		svc, _ := newOrderService(store, nil, &mockBroadcaster{})
		if err := svc.DeleteEmpty(context.Background(), order.ID, uuid.New()); !errors.Is(err, ErrOrderHasItems) {
			t.Fatalf("err = %v, want ErrOrderHasItems", err)
		}
	})

	t.Run("missing order", func(t *testing.T) {
		store := &mockOrderStore{
			getOrderForUpdate: func(context.Context, uuid.UUID) (database.Order, error) {
				return database.Order{}, pgx.ErrNoRows
			},
		}
		svc, _ := newOrderService(store, nil, &mockBroadcaster{})
		if err := svc.DeleteEmpty(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("err = %v, want ErrOrderNotFound", err)
		}
	})

	t.Run("frees the table it occupies", func(t *testing.T) {
		tableID := uuid.New()
		order := openOrder("0.00", "0.00", "0.00")
		order.TableID = pgUUID(tableID)
		freed := false
		store := &mockOrderStore{
			getOrderForUpdate:     func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
			listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) { return nil, nil },
			deleteOrder:           func(context.Context, uuid.UUID) (int64, error) { return 1, nil },
			getTable: func(context.Context, uuid.UUID) (database.Table, error) {
				return database.Table{ID: tableID, Status: enum.TableStatusOccupied, CurrentOrderID: pgUUID(order.ID)}, nil
			},
			freeTable: func(_ context.Context, id uuid.UUID) (database.Table, error) {
				freed = true
				return database.Table{ID: id, Status: enum.TableStatusAvailable}, nil
			},
		}
		svc, pool := newOrderService(store, nil, &mockBroadcaster{})
		if err := svc.DeleteEmpty(context.Background(), order.ID, uuid.New()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !freed {
			t.Fatal("table not freed")
		}
		if !pool.lastTx().committed {
			t.Fatal("transaction not committed")
		}
	})
}

func TestCancelOrder(t *testing.T) {
	boss := auth.Staff{ID: uuid.New(), Name: "Boss"}

	t.Run("requires pin", func(t *testing.T) {
		svc, _ := newOrderService(&mockOrderStore{}, nil, &mockBroadcaster{})
		if _, err := svc.Cancel(context.Background(), uuid.New(), "mistake", "", uuid.New()); !errors.Is(err, ErrPinRequired) {
			t.Fatalf("err = %v, want ErrPinRequired", err)
		}
	})

	t.Run("already paid", func(t *testing.T) {
		order := openOrder("50000.00", "0.00", "0.00")
		order.Status = enum.OrderStatusPaid
		store := &mockOrderStore{
			cancelOrder: func(context.Context, database.CancelOrderParams) (database.Order, error) {
				return database.Order{}, pgx.ErrNoRows
			},
			getOrder: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
		}
		svc, _ := newOrderService(store, pinAccepts("1234", boss), &mockBroadcaster{})
		if _, err := svc.Cancel(context.Background(), order.ID, "mistake", "1234", uuid.New()); !errors.Is(err, ErrAlreadyPaid) {
			t.Fatalf("err = %v, want ErrAlreadyPaid", err)
		}
	})

	t.Run("cancels and notifies kitchen", func(t *testing.T) {
		tableID := uuid.New()
		order := openOrder("50000.00", "0.00", "0.00")
		order.TableID = pgUUID(tableID)
		kitchenCancelled := false
		store := &mockOrderStore{
			cancelOrder: func(_ context.Context, arg database.CancelOrderParams) (database.Order, error) {
				if !arg.CancelledBy.Valid || uuid.UUID(arg.CancelledBy.Bytes) != boss.ID {
					t.Fatalf("cancelled_by = %v, want PIN holder", arg.CancelledBy)
				}
				order.Status = enum.OrderStatusCancelled
				return order, nil
			},
			cancelKitchenItemsByOrder: func(context.Context, uuid.UUID) (int64, error) {
				kitchenCancelled = true
				return 2, nil
			},
			getTable: func(context.Context, uuid.UUID) (database.Table, error) {
				return database.Table{ID: tableID, CurrentOrderID: pgUUID(order.ID)}, nil
			},
			freeTable: func(_ context.Context, id uuid.UUID) (database.Table, error) {
				return database.Table{ID: id}, nil
			},
		}
		broadcast := &mockBroadcaster{}
		svc, _ := newOrderService(store, pinAccepts("1234", boss), broadcast)

		cancelled, err := svc.Cancel(context.Background(), order.ID, "customer left", "1234", uuid.New())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cancelled.Status != enum.OrderStatusCancelled {
			t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
		}
		if !kitchenCancelled {
			t.Fatal("kitchen items not cancelled")
		}
		if !broadcast.has(EventOrderCancelled) || !broadcast.has(EventKitchenOrderCancelled) {
			t.Fatalf("events = %v, want order:cancelled and kitchen:order_cancelled", broadcast.eventTypes())
		}
	})
}
