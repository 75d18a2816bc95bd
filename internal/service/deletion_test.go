package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
)

func deletionStore(order database.Order, calls *[]string) *mockStore {
	record := func(name string) { *calls = append(*calls, name) }
	return &mockStore{
		getOrderForUpdateFn: func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
			if arg.ID == order.ID && arg.RestaurantID == order.RestaurantID {
				return order, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{{
				OrderID:      orderID,
				MenuItemName: "Margarita Pitsa",
				Quantity:     2,
				UnitPrice:    makeNumeric("24.99"),
				Subtotal:     makeNumeric("49.98"),
			}}, nil
		},
		createOrderDeletionFn: func(ctx context.Context, arg database.CreateOrderDeletionParams) (database.OrderDeletion, error) {
			record("audit")
			return database.OrderDeletion{
				ID:            uuid.New(),
				OrderID:       arg.OrderID,
				DeletedByName: arg.DeletedByName,
				Items:         arg.Items,
				Reason:        arg.Reason,
			}, nil
		},
		createAdminNotificationFn: func(ctx context.Context, arg database.CreateAdminNotificationParams) (database.AdminNotification, error) {
			record("notification")
			return database.AdminNotification{ID: uuid.New(), Type: arg.Type, Title: arg.Title}, nil
		},
		deleteOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) error {
			record("delete_items")
			return nil
		},
		deleteOrderFn: func(ctx context.Context, id uuid.UUID) error {
			record("delete_order")
			return nil
		},
		listOpenOrdersByTableFn: func(ctx context.Context, tableID uuid.UUID) ([]database.Order, error) {
			return nil, nil
		},
		updateTableProjectionFn: func(ctx context.Context, arg database.UpdateTableProjectionParams) (database.Table, error) {
			return database.Table{ID: arg.ID}, nil
		},
	}
}

func TestDeleteOrderWithAudit_WritesAuditBeforeDeleting(t *testing.T) {
	restaurantID, tableID := uuid.New(), uuid.New()
	order := openOrder(restaurantID, tableID)

	var calls []string
	store := deletionStore(order, &calls)
	svc, tx := newTestService(store, nil)

	deletion, err := svc.DeleteOrderWithAudit(context.Background(), DeleteOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		ActorID:      uuid.New(),
		ActorName:    "Aziz",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("transaction was not committed")
	}

	want := []string{"audit", "notification", "delete_items", "delete_order"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}

	if deletion.Reason != enum.OrderDeletionReason {
		t.Errorf("reason = %q, want the fixed audit reason", deletion.Reason)
	}
	if deletion.DeletedByName != "Aziz" {
		t.Errorf("deleted_by_name = %q, want actor name", deletion.DeletedByName)
	}

	var items []receiptItem
	if err := json.Unmarshal(deletion.Items, &items); err != nil {
		t.Fatalf("items snapshot is not valid JSON: %v", err)
	}
	if len(items) != 1 || items[0].MenuItemName != "Margarita Pitsa" || items[0].Quantity != 2 {
		t.Errorf("items snapshot = %+v", items)
	}
}

func TestDeleteOrderWithAudit_AuditFailureAbortsEverything(t *testing.T) {
	restaurantID, tableID := uuid.New(), uuid.New()
	order := openOrder(restaurantID, tableID)

	var calls []string
	store := deletionStore(order, &calls)
	store.createOrderDeletionFn = func(ctx context.Context, arg database.CreateOrderDeletionParams) (database.OrderDeletion, error) {
		return database.OrderDeletion{}, errors.New("audit insert failed")
	}
	store.deleteOrderFn = func(ctx context.Context, id uuid.UUID) error {
		t.Fatal("order deleted despite audit failure")
		return nil
	}

	svc, tx := newTestService(store, nil)
	_, err := svc.DeleteOrderWithAudit(context.Background(), DeleteOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		ActorID:      uuid.New(),
		ActorName:    "Aziz",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if tx.committed {
		t.Fatal("transaction must not commit when the audit write fails")
	}
}

func TestDeleteOrderWithAudit_OrderNotFound(t *testing.T) {
	var calls []string
	store := deletionStore(openOrder(uuid.New(), uuid.New()), &calls)
	svc, _ := newTestService(store, nil)

	_, err := svc.DeleteOrderWithAudit(context.Background(), DeleteOrderRequest{
		RestaurantID: uuid.New(),
		OrderID:      uuid.New(),
		ActorID:      uuid.New(),
		ActorName:    "Aziz",
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestDeleteOrderWithAudit_AllowsClosedOrders(t *testing.T) {
	// Closed checks are exactly what admins delete; status is not guarded.
	restaurantID, tableID := uuid.New(), uuid.New()
	order := openOrder(restaurantID, tableID)
	order.Status = enum.OrderStatusClosed
	order.CompletedAt = pgtype.Timestamptz{Valid: true}

	var calls []string
	store := deletionStore(order, &calls)
	svc, _ := newTestService(store, nil)

	if _, err := svc.DeleteOrderWithAudit(context.Background(), DeleteOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		ActorID:      uuid.New(),
		ActorName:    "Aziz",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteOrderWithAudit_NotificationContent(t *testing.T) {
	restaurantID, tableID := uuid.New(), uuid.New()
	order := openOrder(restaurantID, tableID)

	var notification database.CreateAdminNotificationParams
	var calls []string
	store := deletionStore(order, &calls)
	store.createAdminNotificationFn = func(ctx context.Context, arg database.CreateAdminNotificationParams) (database.AdminNotification, error) {
		notification = arg
		return database.AdminNotification{ID: uuid.New()}, nil
	}

	svc, _ := newTestService(store, nil)
	if _, err := svc.DeleteOrderWithAudit(context.Background(), DeleteOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		ActorID:      uuid.New(),
		ActorName:    "Aziz",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notification.Type != enum.NotificationTypeOrderDeleted {
		t.Errorf("type = %q, want order_deleted", notification.Type)
	}
	if notification.Title != "Chek o'chirildi" {
		t.Errorf("title = %q", notification.Title)
	}

	var payload map[string]any
	if err := json.Unmarshal(notification.Payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload["deleted_by"] != "Aziz" {
		t.Errorf("payload deleted_by = %v", payload["deleted_by"])
	}
}
