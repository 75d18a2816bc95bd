package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
)

// DeleteOrderRequest identifies the order to remove and the admin
// removing it.
type DeleteOrderRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	ActorID      uuid.UUID
	ActorName    string
}

// DeleteOrderWithAudit removes an order and its items after writing a
// full audit snapshot and an admin notification, all in one transaction.
// If the audit row cannot be written nothing is deleted. Works on any
// order regardless of status; the audit trail is the safety net, not a
// state check. No mirror fallback: when Postgres is down, deletion fails.
func (s *OrderService) DeleteOrderWithAudit(ctx context.Context, req DeleteOrderRequest) (*database.OrderDeletion, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Read the order and its items under the lock ---
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
		ID:           req.OrderID,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	snapshot, err := itemsSnapshot(items)
	if err != nil {
		return nil, fmt.Errorf("snapshot items: %w", err)
	}

	// --- Audit row first: its failure aborts the whole deletion ---
	deletion, err := store.CreateOrderDeletion(ctx, database.CreateOrderDeletionParams{
		OrderID:        order.ID,
		RestaurantID:   pgtype.UUID{Bytes: order.RestaurantID, Valid: true},
		DeletedByID:    pgtype.UUID{Bytes: req.ActorID, Valid: true},
		DeletedByName:  req.ActorName,
		TotalAmount:    order.TotalAmount,
		PaymentMethod:  order.PaymentMethod,
		CompletedAt:    order.CompletedAt,
		OrderCreatedAt: pgtype.Timestamptz{Time: order.CreatedAt, Valid: true},
		Items:          snapshot,
		Reason:         enum.OrderDeletionReason,
	})
	if err != nil {
		return nil, fmt.Errorf("create order deletion: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":     order.ID,
		"deleted_by":   req.ActorName,
		"total_amount": numericToDecimal(order.TotalAmount),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}

	if _, err := store.CreateAdminNotification(ctx, database.CreateAdminNotificationParams{
		RestaurantID: pgtype.UUID{Bytes: order.RestaurantID, Valid: true},
		Type:         enum.NotificationTypeOrderDeleted,
		Title:        "Chek o'chirildi",
		Message: fmt.Sprintf("%s chekni o'chirdi. Summa: %s",
			req.ActorName, numericToDecimal(order.TotalAmount).StringFixed(2)),
		Payload: payload,
	}); err != nil {
		return nil, fmt.Errorf("create admin notification: %w", err)
	}

	// --- Physical delete: items before order ---
	if err := store.DeleteOrderItemsByOrder(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}
	if err := store.DeleteOrder(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	// Post-commit: the table's cached state is eventually consistent.
	if err := reprojectTable(ctx, s.store, order.TableID); err != nil {
		log.Printf("ERROR: reproject table %s after audited delete: %v", order.TableID, err)
	}

	return &deletion, nil
}
