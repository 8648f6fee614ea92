package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/ws"
)

// KitchenStore defines the DB methods kitchen dispatch needs.
// Satisfied by *database.Queries.
type KitchenStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	MarkPendingItemsPreparing(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateKitchenStatus(ctx context.Context, arg database.UpdateKitchenStatusParams) (database.OrderItem, error)
}

// NewKitchenStore creates a KitchenStore from a DBTX (pool or tx).
type NewKitchenStore func(db database.DBTX) KitchenStore

// KitchenService is the gateway between the cashier's order and the kitchen
// display. Nothing reaches the kitchen until explicitly sent.
type KitchenService struct {
	newStore  NewKitchenStore
	broadcast Broadcaster
}

func NewKitchenService(newStore NewKitchenStore, broadcast Broadcaster) *KitchenService {
	return &KitchenService{newStore: newStore, broadcast: broadcast}
}

// SendToKitchen dispatches every pending kitchen-visible item on the order:
// one new_item event per dispatched item, then a batch summary and a sound
// trigger. Items already dispatched are untouched, so resending an order only
// fires for what was added since.
func (s *KitchenService) SendToKitchen(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	store := s.newStore(nil)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := guardOpen(order); err != nil {
		return nil, err
	}

	dispatched, err := store.MarkPendingItemsPreparing(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("dispatch items: %w", err)
	}
	if len(dispatched) == 0 {
		return dispatched, nil
	}

	for _, it := range dispatched {
		payload := itemEventPayload(it)
		payload["order_number"] = order.OrderNumber
		s.broadcast.Publish(ws.RoomKitchen, EventKitchenNewItem, payload)
	}
	s.broadcast.Publish(ws.RoomKitchen, EventKitchenBatchUpdate, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"item_count":   len(dispatched),
	})
	s.broadcast.Publish(ws.RoomKitchen, EventKitchenSound, map[string]any{
		"order_number": order.OrderNumber,
	})
	return dispatched, nil
}

// UpdateItemStatus advances one item along the kitchen flow
// (PREPARING -> READY -> SERVED). Any other move is rejected; cancellation
// happens through item removal or order cancellation, not here.
func (s *KitchenService) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, next string) (database.OrderItem, error) {
	store := s.newStore(nil)

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrItemNotFound
		}
		return database.OrderItem{}, fmt.Errorf("get item: %w", err)
	}
	if !item.DisplayInKitchen {
		return database.OrderItem{}, invalidRequest("item is not a kitchen item")
	}
	if !enum.IsKitchenTransition(item.KitchenStatus, next) {
		return database.OrderItem{}, invalidRequest("cannot move item from %s to %s", item.KitchenStatus, next)
	}

	item, err = store.UpdateKitchenStatus(ctx, database.UpdateKitchenStatusParams{
		ID:     itemID,
		Status: next,
	})
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("update kitchen status: %w", err)
	}

	s.broadcast.Publish(ws.RoomKitchen, EventKitchenItemUpdated, itemEventPayload(item))
	s.broadcast.Publish(ws.RoomOrders, EventOrderItemUpdated, itemEventPayload(item))
	return item, nil
}
