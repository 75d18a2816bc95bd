package service

import (
	"github.com/google/uuid"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
)

// TableView is a table with its status recomputed from open orders.
type TableView struct {
	ID             uuid.UUID  `json:"id"`
	Number         int32      `json:"number"`
	Seats          int32      `json:"seats"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty"`
}

// ProjectStatuses derives table statuses from the open orders, never from
// the cached columns alone. A table with an open order is occupied and
// carries that order as its current order. Pinned table numbers are
// forced to available when no open order references them, overriding any
// stale cached state; a real open order always wins over the pin.
// Tables without an open order and without a pin keep their stored
// status, so manually marked tables (maintenance, reservation) survive.
func ProjectStatuses(tables []database.Table, openOrders []database.Order, pinned []int32) []TableView {
	openByTable := make(map[uuid.UUID]database.Order, len(openOrders))
	for _, order := range openOrders {
		// Oldest open order wins as the table's current order.
		existing, ok := openByTable[order.TableID]
		if !ok || order.CreatedAt.Before(existing.CreatedAt) {
			openByTable[order.TableID] = order
		}
	}

	pinnedSet := make(map[int32]bool, len(pinned))
	for _, n := range pinned {
		pinnedSet[n] = true
	}

	views := make([]TableView, 0, len(tables))
	for _, table := range tables {
		view := TableView{
			ID:     table.ID,
			Number: table.Number,
			Seats:  table.Seats,
		}

		if order, ok := openByTable[table.ID]; ok {
			view.Status = enum.TableStatusOccupied
			orderID := order.ID
			view.CurrentOrderID = &orderID
		} else if pinnedSet[table.Number] {
			view.Status = enum.TableStatusAvailable
		} else {
			view.Status = table.Status
			if view.Status == enum.TableStatusOccupied {
				// Cached occupied with no open order is stale.
				view.Status = enum.TableStatusAvailable
			}
		}

		views = append(views, view)
	}
	return views
}
