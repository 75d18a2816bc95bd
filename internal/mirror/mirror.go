// Package mirror is a Redis-backed shadow store used when PostgreSQL is
// unreachable. It holds per-restaurant JSON snapshots of read collections
// and append-only queues for orders and receipts written while degraded.
// Entries are per-terminal and unsynchronized; the mirror is a stopgap,
// not a replica.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrNotMirrored is returned when no snapshot exists for the requested
// collection.
var ErrNotMirrored = errors.New("collection not present in local mirror")

// Snapshot collections refreshed on successful reads.
const (
	CollectionTables    = "tables"
	CollectionMenuItems = "menu_items"
)

// PendingOrder is an order accepted while the database was unreachable.
// It carries everything needed to replay the insert later.
type PendingOrder struct {
	ID                  uuid.UUID       `json:"id"`
	RestaurantID        uuid.UUID       `json:"restaurant_id"`
	TableID             uuid.UUID       `json:"table_id"`
	WaiterID            uuid.UUID       `json:"waiter_id,omitempty"`
	Items               []PendingItem   `json:"items"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	QueuedAt            time.Time       `json:"queued_at"`
}

type PendingItem struct {
	MenuItemID      uuid.UUID       `json:"menu_item_id"`
	MenuItemName    string          `json:"menu_item_name"`
	Quantity        int32           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	SpecialRequests string          `json:"special_requests,omitempty"`
}

// Receipt is a closed-order record mirrored when the order_receipts
// insert fails after checkout.
type Receipt struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Items         json.RawMessage `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	CompletedAt   time.Time       `json:"completed_at"`
}

type Mirror struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Mirror {
	return &Mirror{rdb: rdb}
}

func key(restaurantID uuid.UUID, collection string) string {
	return fmt.Sprintf("mirror:%s:%s", restaurantID, collection)
}

// EnqueueOrder appends a degraded-mode order to the restaurant's queue.
func (m *Mirror) EnqueueOrder(ctx context.Context, restaurantID uuid.UUID, order PendingOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return m.rdb.RPush(ctx, key(restaurantID, "orders"), data).Err()
}

// PendingOrders returns queued orders oldest-first.
func (m *Mirror) PendingOrders(ctx context.Context, restaurantID uuid.UUID) ([]PendingOrder, error) {
	raw, err := m.rdb.LRange(ctx, key(restaurantID, "orders"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	orders := make([]PendingOrder, 0, len(raw))
	for _, item := range raw {
		var o PendingOrder
		if err := json.Unmarshal([]byte(item), &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// DropOldestOrder removes the head of the pending-order queue, called
// after that order has been replayed into the database.
func (m *Mirror) DropOldestOrder(ctx context.Context, restaurantID uuid.UUID) error {
	err := m.rdb.LPop(ctx, key(restaurantID, "orders")).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// AppendReceipt records a closed-order receipt that could not be written
// to the database.
func (m *Mirror) AppendReceipt(ctx context.Context, restaurantID uuid.UUID, receipt Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return m.rdb.RPush(ctx, key(restaurantID, "receipts"), data).Err()
}

func (m *Mirror) Receipts(ctx context.Context, restaurantID uuid.UUID) ([]Receipt, error) {
	raw, err := m.rdb.LRange(ctx, key(restaurantID, "receipts"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	receipts := make([]Receipt, 0, len(raw))
	for _, item := range raw {
		var r Receipt
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// SaveSnapshot overwrites the mirrored copy of a read collection.
func (m *Mirror) SaveSnapshot(ctx context.Context, restaurantID uuid.UUID, collection string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, key(restaurantID, collection), data, 0).Err()
}

// LoadSnapshot decodes the mirrored copy of a collection into dest.
// Returns ErrNotMirrored when the collection was never snapshotted.
func (m *Mirror) LoadSnapshot(ctx context.Context, restaurantID uuid.UUID, collection string, dest any) error {
	data, err := m.rdb.Get(ctx, key(restaurantID, collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotMirrored
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
