package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/mirror"
)

const defaultTableCount = 50

// TableStore defines the DB methods the table service needs.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	ListOpenOrdersByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Order, error)
}

// TableService lists tables with their statuses recomputed from open
// orders, keeping a mirrored snapshot for degraded reads.
type TableService struct {
	store  TableStore
	mirror Mirror
	pinned []int32
}

func NewTableService(store TableStore, m Mirror, pinned []int32) *TableService {
	return &TableService{store: store, mirror: m, pinned: pinned}
}

// List returns projected table views. On a successful read the result is
// snapshotted to the mirror; when Postgres is unreachable the last
// snapshot is served instead (degraded=true).
func (s *TableService) List(ctx context.Context, restaurantID uuid.UUID) ([]TableView, bool, error) {
	tables, err := s.store.ListTables(ctx, restaurantID)
	if err != nil {
		return s.listFromMirror(ctx, restaurantID, err)
	}
	openOrders, err := s.store.ListOpenOrdersByRestaurant(ctx, restaurantID)
	if err != nil {
		return s.listFromMirror(ctx, restaurantID, err)
	}

	views := ProjectStatuses(tables, openOrders, s.pinned)

	if err := s.mirror.SaveSnapshot(ctx, restaurantID, mirror.CollectionTables, views); err != nil {
		log.Printf("ERROR: snapshot tables for %s: %v", restaurantID, err)
	}
	return views, false, nil
}

func (s *TableService) listFromMirror(ctx context.Context, restaurantID uuid.UUID, cause error) ([]TableView, bool, error) {
	if !IsConnectivityError(cause) {
		return nil, false, cause
	}
	log.Printf("ERROR: list tables: database unreachable, reading local mirror: %v", cause)

	var views []TableView
	if err := s.mirror.LoadSnapshot(ctx, restaurantID, mirror.CollectionTables, &views); err != nil {
		if errors.Is(err, mirror.ErrNotMirrored) {
			return nil, false, ErrDatabaseDegraded
		}
		return nil, false, fmt.Errorf("load tables snapshot: %w", err)
	}

	// Orders queued on the mirror are open orders the snapshot predates.
	// Overlay them so their tables never show available.
	pending, err := s.mirror.PendingOrders(ctx, restaurantID)
	if err != nil {
		return nil, false, fmt.Errorf("read mirrored orders: %w", err)
	}
	if len(pending) > 0 {
		queuedByTable := make(map[uuid.UUID]uuid.UUID, len(pending))
		for _, p := range pending {
			// Oldest queued order wins as the table's current order.
			if _, ok := queuedByTable[p.TableID]; !ok {
				queuedByTable[p.TableID] = p.ID
			}
		}
		for i := range views {
			if views[i].Status == enum.TableStatusOccupied {
				continue
			}
			if orderID, ok := queuedByTable[views[i].ID]; ok {
				views[i].Status = enum.TableStatusOccupied
				views[i].CurrentOrderID = &orderID
			}
		}
	}
	return views, true, nil
}

// BootstrapDefault creates the standard floor plan of 50 numbered tables
// with seat counts cycling through 2, 4, 6, and 8.
func (s *TableService) BootstrapDefault(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error) {
	seatBands := []int32{2, 4, 6, 8}

	tables := make([]database.Table, 0, defaultTableCount)
	for n := int32(1); n <= defaultTableCount; n++ {
		table, err := s.store.CreateTable(ctx, database.CreateTableParams{
			RestaurantID: restaurantID,
			Number:       n,
			Seats:        seatBands[(n-1)%int32(len(seatBands))],
		})
		if err != nil {
			return nil, fmt.Errorf("create table %d: %w", n, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}
