package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/mirror"
)

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidTableID    = errors.New("invalid table_id")
	ErrInvalidMenuItemID = errors.New("invalid menu_item_id")
	ErrTableNotFound     = errors.New("table not found in restaurant")
	ErrMenuItemNotFound  = errors.New("menu item not found or unavailable")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotOpen      = errors.New("order is not open")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrEmptyPayments     = errors.New("payments are required")
	ErrInvalidPayMethod  = errors.New("invalid payment method")
	ErrInvalidPayAmount  = errors.New("invalid payment amount")
	ErrDatabaseDegraded  = errors.New("database unreachable and no mirrored data available")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods the order lifecycle needs.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	SumOrderItemSubtotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	CloseOrder(ctx context.Context, arg database.CloseOrderParams) (database.Order, error)
	CreateOrderReceipt(ctx context.Context, arg database.CreateOrderReceiptParams) (database.OrderReceipt, error)
	ListOrderReceipts(ctx context.Context, arg database.ListOrderReceiptsParams) ([]database.OrderReceipt, error)
	CreateOrderDeletion(ctx context.Context, arg database.CreateOrderDeletionParams) (database.OrderDeletion, error)
	CreateAdminNotification(ctx context.Context, arg database.CreateAdminNotificationParams) (database.AdminNotification, error)
	ListOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]database.Order, error)
	ListOpenOrdersByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Order, error)
	UpdateTableProjection(ctx context.Context, arg database.UpdateTableProjectionParams) (database.Table, error)
}

// NewStore creates a Store from a DBTX (pool or tx). This allows the
// service to create store instances bound to transactions.
type NewStore func(db database.DBTX) Store

// Mirror is the degraded-mode shadow store. Satisfied by *mirror.Mirror.
type Mirror interface {
	EnqueueOrder(ctx context.Context, restaurantID uuid.UUID, order mirror.PendingOrder) error
	PendingOrders(ctx context.Context, restaurantID uuid.UUID) ([]mirror.PendingOrder, error)
	DropOldestOrder(ctx context.Context, restaurantID uuid.UUID) error
	AppendReceipt(ctx context.Context, restaurantID uuid.UUID, receipt mirror.Receipt) error
	Receipts(ctx context.Context, restaurantID uuid.UUID) ([]mirror.Receipt, error)
	SaveSnapshot(ctx context.Context, restaurantID uuid.UUID, collection string, v any) error
	LoadSnapshot(ctx context.Context, restaurantID uuid.UUID, collection string, dest any) error
}

// OrderService handles the order lifecycle: creation, item removal,
// checkout, and audited deletion. Checkout and audited deletion are
// strictly transactional; creation may degrade to the local mirror.
type OrderService struct {
	pool     TxBeginner
	store    Store
	newStore NewStore
	mirror   Mirror
}

func NewOrderService(pool TxBeginner, store Store, newStore NewStore, m Mirror) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, mirror: m}
}

// CreateOrderRequest is the validated input for opening an order.
type CreateOrderRequest struct {
	RestaurantID        uuid.UUID
	TableID             string
	WaiterID            uuid.UUID
	SpecialInstructions string
	Items               []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line item.
type CreateOrderItemRequest struct {
	MenuItemID      string
	Quantity        int32
	SpecialRequests string
}

// CreateOrderResult is the created order with its items. Degraded is set
// when the order was accepted into the local mirror instead of Postgres.
type CreateOrderResult struct {
	Order    database.Order
	Items    []database.OrderItem
	Degraded bool
}

// CreateOrder validates, snapshots menu prices, and creates the order,
// its items, and the table's occupied projection in one transaction.
// When Postgres is unreachable the order is queued on the local mirror
// instead; financial guarantees are weaker there and the caller is told.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return nil, ErrInvalidTableID
	}

	type parsedItem struct {
		menuItemID      uuid.UUID
		quantity        int32
		specialRequests string
	}
	parsed := make([]parsedItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		mid, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		parsed = append(parsed, parsedItem{
			menuItemID:      mid,
			quantity:        item.Quantity,
			specialRequests: item.SpecialRequests,
		})
	}

	result, err := s.createOrderTx(ctx, req, tableID)
	if err == nil {
		return result, nil
	}
	if !IsConnectivityError(err) {
		return nil, err
	}

	log.Printf("ERROR: create order: database unreachable, falling back to local mirror: %v", err)
	return s.createOrderMirror(ctx, req, tableID)
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, tableID uuid.UUID) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Table must exist in the restaurant ---
	if _, err := store.GetTable(ctx, database.GetTableParams{
		ID:           tableID,
		RestaurantID: req.RestaurantID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	// --- Snapshot menu names and prices, calculate total ---
	total := decimal.Zero
	var itemParams []database.CreateOrderItemParams

	for i, item := range req.Items {
		mid, _ := uuid.Parse(item.MenuItemID) // validated by caller

		menuItem, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:           mid,
			RestaurantID: req.RestaurantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}

		unitPrice := numericToDecimal(menuItem.Price)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(subtotal)

		specialRequests := pgtype.Text{}
		if item.SpecialRequests != "" {
			specialRequests = pgtype.Text{String: item.SpecialRequests, Valid: true}
		}

		itemParams = append(itemParams, database.CreateOrderItemParams{
			MenuItemID:      pgtype.UUID{Bytes: mid, Valid: true},
			MenuItemName:    menuItem.Name,
			Quantity:        item.Quantity,
			UnitPrice:       decimalToNumeric(unitPrice),
			Subtotal:        decimalToNumeric(subtotal),
			SpecialRequests: specialRequests,
		})
	}

	waiterID := pgtype.UUID{}
	if req.WaiterID != uuid.Nil {
		waiterID = pgtype.UUID{Bytes: req.WaiterID, Valid: true}
	}

	instructions := pgtype.Text{}
	if req.SpecialInstructions != "" {
		instructions = pgtype.Text{String: req.SpecialInstructions, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID:        req.RestaurantID,
		TableID:             tableID,
		WaiterID:            waiterID,
		TotalAmount:         decimalToNumeric(total),
		SpecialInstructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	var items []database.OrderItem
	for _, params := range itemParams {
		params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// --- Refresh the table's cached occupied state ---
	if _, err := store.UpdateTableProjection(ctx, database.UpdateTableProjectionParams{
		ID:             tableID,
		Status:         enum.TableStatusOccupied,
		CurrentOrderID: pgtype.UUID{Bytes: order.ID, Valid: true},
	}); err != nil {
		return nil, fmt.Errorf("project table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// createOrderMirror queues the order on the local mirror. Menu prices are
// resolved from the last mirrored menu snapshot; if no snapshot exists the
// order is rejected rather than accepted with unknown prices.
func (s *OrderService) createOrderMirror(ctx context.Context, req CreateOrderRequest, tableID uuid.UUID) (*CreateOrderResult, error) {
	var menu []database.MenuItem
	if err := s.mirror.LoadSnapshot(ctx, req.RestaurantID, mirror.CollectionMenuItems, &menu); err != nil {
		if errors.Is(err, mirror.ErrNotMirrored) {
			return nil, ErrDatabaseDegraded
		}
		return nil, fmt.Errorf("load menu snapshot: %w", err)
	}

	byID := make(map[uuid.UUID]database.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	now := time.Now().UTC()
	orderID := uuid.New()
	total := decimal.Zero

	pending := mirror.PendingOrder{
		ID:                  orderID,
		RestaurantID:        req.RestaurantID,
		TableID:             tableID,
		WaiterID:            req.WaiterID,
		SpecialInstructions: req.SpecialInstructions,
		QueuedAt:            now,
	}
	var items []database.OrderItem

	for i, item := range req.Items {
		mid, _ := uuid.Parse(item.MenuItemID)
		menuItem, ok := byID[mid]
		if !ok || !menuItem.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
		}

		unitPrice := numericToDecimal(menuItem.Price)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(subtotal)

		pending.Items = append(pending.Items, mirror.PendingItem{
			MenuItemID:      mid,
			MenuItemName:    menuItem.Name,
			Quantity:        item.Quantity,
			UnitPrice:       unitPrice,
			Subtotal:        subtotal,
			SpecialRequests: item.SpecialRequests,
		})

		specialRequests := pgtype.Text{}
		if item.SpecialRequests != "" {
			specialRequests = pgtype.Text{String: item.SpecialRequests, Valid: true}
		}
		items = append(items, database.OrderItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			MenuItemID:      pgtype.UUID{Bytes: mid, Valid: true},
			MenuItemName:    menuItem.Name,
			Quantity:        item.Quantity,
			UnitPrice:       decimalToNumeric(unitPrice),
			Subtotal:        decimalToNumeric(subtotal),
			SpecialRequests: specialRequests,
		})
	}
	pending.TotalAmount = total

	if err := s.mirror.EnqueueOrder(ctx, req.RestaurantID, pending); err != nil {
		return nil, fmt.Errorf("enqueue mirrored order: %w", err)
	}

	waiterID := pgtype.UUID{}
	if req.WaiterID != uuid.Nil {
		waiterID = pgtype.UUID{Bytes: req.WaiterID, Valid: true}
	}
	instructions := pgtype.Text{}
	if req.SpecialInstructions != "" {
		instructions = pgtype.Text{String: req.SpecialInstructions, Valid: true}
	}

	return &CreateOrderResult{
		Order: database.Order{
			ID:                  orderID,
			RestaurantID:        req.RestaurantID,
			TableID:             tableID,
			WaiterID:            waiterID,
			Status:              enum.OrderStatusOpen,
			TotalAmount:         decimalToNumeric(total),
			PaymentStatus:       enum.PaymentStatusUnpaid,
			SpecialInstructions: instructions,
			CreatedAt:           now,
		},
		Items:    items,
		Degraded: true,
	}, nil
}

// RemoveLineItemResult reports what happened to the order after the
// item was removed.
type RemoveLineItemResult struct {
	Order        *database.Order
	OrderDeleted bool
}

// RemoveLineItem deletes one line item and reconciles the order in the
// same transaction: remaining items recompute the total, an emptied
// order is deleted and its table re-projected. No reader can observe a
// non-empty order with zero items.
func (s *OrderService) RemoveLineItem(ctx context.Context, restaurantID, orderID, itemID uuid.UUID) (*RemoveLineItemResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	if err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: itemID, OrderID: orderID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	remaining, err := store.CountOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("count order items: %w", err)
	}

	result := &RemoveLineItemResult{}
	if remaining == 0 {
		if err := store.DeleteOrder(ctx, orderID); err != nil {
			return nil, fmt.Errorf("delete order: %w", err)
		}
		if err := reprojectTable(ctx, store, order.TableID); err != nil {
			return nil, fmt.Errorf("project table: %w", err)
		}
		result.OrderDeleted = true
	} else {
		sum, err := store.SumOrderItemSubtotals(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("sum order items: %w", err)
		}
		updated, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
			ID:          orderID,
			TotalAmount: sum,
		})
		if err != nil {
			return nil, fmt.Errorf("update order total: %w", err)
		}
		result.Order = &updated
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// OpenOrder is an open order with its items. Degraded marks orders read
// from the local mirror rather than Postgres.
type OpenOrder struct {
	Order    database.Order
	Items    []database.OrderItem
	Degraded bool
}

// ListOpenOrders lists a restaurant's open orders with their items,
// falling back to mirror-queued orders when Postgres is unreachable.
func (s *OrderService) ListOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]OpenOrder, error) {
	// Queued degraded orders are replayed first so terminals see them as
	// real rows as soon as the database returns.
	if n, err := s.ReplayPending(ctx, restaurantID); err != nil {
		if IsConnectivityError(err) {
			log.Printf("ERROR: list open orders: database unreachable, reading local mirror: %v", err)
			return s.listOpenOrdersMirror(ctx, restaurantID)
		}
		log.Printf("ERROR: replay queued orders: %v", err)
	} else if n > 0 {
		log.Printf("Replayed %d queued orders for restaurant %s", n, restaurantID)
	}

	orders, err := s.store.ListOpenOrdersByRestaurant(ctx, restaurantID)
	if err != nil {
		if !IsConnectivityError(err) {
			return nil, err
		}
		log.Printf("ERROR: list open orders: database unreachable, reading local mirror: %v", err)
		return s.listOpenOrdersMirror(ctx, restaurantID)
	}

	result := make([]OpenOrder, 0, len(orders))
	for _, order := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		result = append(result, OpenOrder{Order: order, Items: items})
	}
	return result, nil
}

func (s *OrderService) listOpenOrdersMirror(ctx context.Context, restaurantID uuid.UUID) ([]OpenOrder, error) {
	pending, err := s.mirror.PendingOrders(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("read mirrored orders: %w", err)
	}

	result := make([]OpenOrder, 0, len(pending))
	for _, p := range pending {
		waiterID := pgtype.UUID{}
		if p.WaiterID != uuid.Nil {
			waiterID = pgtype.UUID{Bytes: p.WaiterID, Valid: true}
		}
		instructions := pgtype.Text{}
		if p.SpecialInstructions != "" {
			instructions = pgtype.Text{String: p.SpecialInstructions, Valid: true}
		}
		order := database.Order{
			ID:                  p.ID,
			RestaurantID:        p.RestaurantID,
			TableID:             p.TableID,
			WaiterID:            waiterID,
			Status:              enum.OrderStatusOpen,
			TotalAmount:         decimalToNumeric(p.TotalAmount),
			PaymentStatus:       enum.PaymentStatusUnpaid,
			SpecialInstructions: instructions,
			CreatedAt:           p.QueuedAt,
		}
		var items []database.OrderItem
		for _, pi := range p.Items {
			specialRequests := pgtype.Text{}
			if pi.SpecialRequests != "" {
				specialRequests = pgtype.Text{String: pi.SpecialRequests, Valid: true}
			}
			items = append(items, database.OrderItem{
				OrderID:         p.ID,
				MenuItemID:      pgtype.UUID{Bytes: pi.MenuItemID, Valid: true},
				MenuItemName:    pi.MenuItemName,
				Quantity:        pi.Quantity,
				UnitPrice:       decimalToNumeric(pi.UnitPrice),
				Subtotal:        decimalToNumeric(pi.Subtotal),
				SpecialRequests: specialRequests,
			})
		}
		result = append(result, OpenOrder{Order: order, Items: items, Degraded: true})
	}
	return result, nil
}

// reprojectTable recomputes a table's cached state from its open orders.
// Called inside lifecycle transactions and after checkout commits.
func reprojectTable(ctx context.Context, store Store, tableID uuid.UUID) error {
	open, err := store.ListOpenOrdersByTable(ctx, tableID)
	if err != nil {
		return err
	}

	params := database.UpdateTableProjectionParams{
		ID:     tableID,
		Status: enum.TableStatusAvailable,
	}
	if len(open) > 0 {
		params.Status = enum.TableStatusOccupied
		params.CurrentOrderID = pgtype.UUID{Bytes: open[0].ID, Valid: true}
	}
	_, err = store.UpdateTableProjection(ctx, params)
	return err
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
