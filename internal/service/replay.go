package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/mirror"
)

// ReplayPending drains orders queued on the local mirror while Postgres
// was unreachable, inserting each through a regular transaction with its
// queued-at prices. Replay stops on the first connectivity error so the
// queue survives a flapping database. An order whose table no longer
// exists is dropped with a log line rather than blocking the queue.
// Returns the number of orders replayed.
func (s *OrderService) ReplayPending(ctx context.Context, restaurantID uuid.UUID) (int, error) {
	pending, err := s.mirror.PendingOrders(ctx, restaurantID)
	if err != nil {
		return 0, fmt.Errorf("read mirrored orders: %w", err)
	}

	replayed := 0
	for _, p := range pending {
		if err := s.replayOrderTx(ctx, p); err != nil {
			if IsConnectivityError(err) {
				return replayed, err
			}
			log.Printf("ERROR: replay queued order %s: %v (dropping)", p.ID, err)
		} else {
			replayed++
		}
		if err := s.mirror.DropOldestOrder(ctx, restaurantID); err != nil {
			return replayed, fmt.Errorf("drop replayed order: %w", err)
		}
	}
	return replayed, nil
}

// replayOrderTx inserts one queued order. Prices and names were
// snapshotted when the order was queued and are kept as-is.
func (s *OrderService) replayOrderTx(ctx context.Context, p mirror.PendingOrder) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetTable(ctx, database.GetTableParams{
		ID:           p.TableID,
		RestaurantID: p.RestaurantID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTableNotFound
		}
		return fmt.Errorf("get table: %w", err)
	}

	waiterID := pgtype.UUID{}
	if p.WaiterID != uuid.Nil {
		waiterID = pgtype.UUID{Bytes: p.WaiterID, Valid: true}
	}
	instructions := pgtype.Text{}
	if p.SpecialInstructions != "" {
		instructions = pgtype.Text{String: p.SpecialInstructions, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID:        p.RestaurantID,
		TableID:             p.TableID,
		WaiterID:            waiterID,
		TotalAmount:         decimalToNumeric(p.TotalAmount),
		SpecialInstructions: instructions,
	})
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for _, item := range p.Items {
		specialRequests := pgtype.Text{}
		if item.SpecialRequests != "" {
			specialRequests = pgtype.Text{String: item.SpecialRequests, Valid: true}
		}
		if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:         order.ID,
			MenuItemID:      pgtype.UUID{Bytes: item.MenuItemID, Valid: true},
			MenuItemName:    item.MenuItemName,
			Quantity:        item.Quantity,
			UnitPrice:       decimalToNumeric(item.UnitPrice),
			Subtotal:        decimalToNumeric(item.Subtotal),
			SpecialRequests: specialRequests,
		}); err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	if _, err := store.UpdateTableProjection(ctx, database.UpdateTableProjectionParams{
		ID:             p.TableID,
		Status:         enum.TableStatusOccupied,
		CurrentOrderID: pgtype.UUID{Bytes: order.ID, Valid: true},
	}); err != nil {
		return fmt.Errorf("project table: %w", err)
	}

	return tx.Commit(ctx)
}
