package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
)

type mockKitchenStore struct {
	getOrder                  func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderItem              func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	markPendingItemsPreparing func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	updateKitchenStatus       func(ctx context.Context, arg database.UpdateKitchenStatusParams) (database.OrderItem, error)
}

func (m *mockKitchenStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrder(ctx, id)
}
func (m *mockKitchenStore) GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.getOrderItem(ctx, id)
}
func (m *mockKitchenStore) MarkPendingItemsPreparing(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.markPendingItemsPreparing(ctx, orderID)
}
func (m *mockKitchenStore) UpdateKitchenStatus(ctx context.Context, arg database.UpdateKitchenStatusParams) (database.OrderItem, error) {
	return m.updateKitchenStatus(ctx, arg)
}

func newKitchenService(store *mockKitchenStore, broadcast *mockBroadcaster) *KitchenService {
	return NewKitchenService(func(database.DBTX) KitchenStore { return store }, broadcast)
}

func TestSendToKitchen(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	dispatched := []database.OrderItem{
		testItem(order.ID, "25000.00", 1),
		testItem(order.ID, "25000.00", 1),
	}
	store := &mockKitchenStore{
		getOrder: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
		markPendingItemsPreparing: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			return dispatched, nil
		},
	}
	broadcast := &mockBroadcaster{}
	svc := newKitchenService(store, broadcast)

	items, err := svc.SendToKitchen(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("dispatched = %d, want 2", len(items))
	}

	// One new_item per item, then one batch update and one sound trigger.
	var newItems, batches, sounds int
	for _, typ := range broadcast.eventTypes() {
		switch typ {
		case EventKitchenNewItem:
			newItems++
		case EventKitchenBatchUpdate:
			batches++
		case EventKitchenSound:
			sounds++
		}
	}
	if newItems != 2 || batches != 1 || sounds != 1 {
		t.Fatalf("events = %v, want 2 new_item, 1 batch_update, 1 sound", broadcast.eventTypes())
	}
}

func TestSendToKitchenNothingPending(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	store := &mockKitchenStore{
		getOrder: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
		markPendingItemsPreparing: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			return nil, nil
		},
	}
	broadcast := &mockBroadcaster{}
	svc := newKitchenService(store, broadcast)

	if _, err := svc.SendToKitchen(context.Background(), order.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(broadcast.eventTypes()) != 0 {
		t.Fatalf("events = %v, want none when nothing dispatched", broadcast.eventTypes())
	}
}

func TestSendToKitchenTerminalOrder(t *testing.T) {
	order := openOrder("50000.00", "0.00", "0.00")
	order.Status = enum.OrderStatusCancelled
	store := &mockKitchenStore{
		getOrder: func(context.Context, uuid.UUID) (database.Order, error) { return order, nil },
	}
	svc := newKitchenService(store, &mockBroadcaster{})

	if _, err := svc.SendToKitchen(context.Background(), order.ID); !errors.Is(err, ErrOrderCancelled) {
		t.Fatalf("err = %v, want ErrOrderCancelled", err)
	}
}

func TestUpdateItemStatusTransitions(t *testing.T) {
	item := testItem(uuid.New(), "25000.00", 1)
	item.DisplayInKitchen = true
	item.KitchenStatus = enum.KitchenStatusPreparing

	store := &mockKitchenStore{
		getOrderItem: func(context.Context, uuid.UUID) (database.OrderItem, error) { return item, nil },
		updateKitchenStatus: func(_ context.Context, arg database.UpdateKitchenStatusParams) (database.OrderItem, error) {
			item.KitchenStatus = arg.Status
			return item, nil
		},
	}
	broadcast := &mockBroadcaster{}
	svc := newKitchenService(store, broadcast)

	updated, err := svc.UpdateItemStatus(context.Background(), item.ID, enum.KitchenStatusReady)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.KitchenStatus != enum.KitchenStatusReady {
		t.Fatalf("status = %s, want READY", updated.KitchenStatus)
	}
	if !broadcast.has(EventKitchenItemUpdated) || !broadcast.has(EventOrderItemUpdated) {
		t.Fatalf("events = %v, want kitchen and orders updates", broadcast.eventTypes())
	}

	// READY cannot jump back to PREPARING, and SERVED is terminal.
	if _, err := svc.UpdateItemStatus(context.Background(), item.ID, enum.KitchenStatusPreparing); err == nil {
		t.Fatal("expected error moving READY back to PREPARING")
	}
	item.KitchenStatus = enum.KitchenStatusServed
	if _, err := svc.UpdateItemStatus(context.Background(), item.ID, enum.KitchenStatusReady); err == nil {
		t.Fatal("expected error moving SERVED to READY")
	}
}

func TestUpdateItemStatusNonKitchenItem(t *testing.T) {
	item := testItem(uuid.New(), "5000.00", 1)
	item.DisplayInKitchen = false
	item.KitchenStatus = enum.KitchenStatusPending

	store := &mockKitchenStore{
		getOrderItem: func(context.Context, uuid.UUID) (database.OrderItem, error) { return item, nil },
	}
	svc := newKitchenService(store, &mockBroadcaster{})

	if _, err := svc.UpdateItemStatus(context.Background(), item.ID, enum.KitchenStatusPreparing); err == nil {
		t.Fatal("expected error for non-kitchen item")
	}
}
