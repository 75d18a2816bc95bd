package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/middleware"
	"github.com/k-cafe/api/internal/service"
	"github.com/k-cafe/api/internal/ws"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the order lifecycle operations the handlers need.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	RemoveLineItem(ctx context.Context, restaurantID, orderID, itemID uuid.UUID) (*service.RemoveLineItemResult, error)
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	DeleteOrderWithAudit(ctx context.Context, req service.DeleteOrderRequest) (*database.OrderDeletion, error)
	ListOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]service.OpenOrder, error)
	ListReceipts(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]database.OrderReceipt, bool, error)
}

// OrderStore defines the read-only database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// Broadcaster pushes events to the restaurant's live terminals.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRestaurant(restaurantID uuid.UUID, event ws.Event)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the restaurant subrouter.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/open", h.ListOpen)
		r.Get("/{oid}", h.Get)
		r.Post("/{oid}/checkout", h.Checkout)
		r.Delete("/{oid}/items/{itemID}", h.RemoveItem)
	})
	r.Get("/receipts", h.ListReceipts)
}

// RegisterAdminRoutes registers endpoints restricted to admins. The caller
// wraps them with the role middleware.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/orders/{oid}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID             string                   `json:"table_id"`
	SpecialInstructions string                   `json:"special_instructions"`
	Items               []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID      string `json:"menu_item_id"`
	Quantity        int32  `json:"quantity"`
	SpecialRequests string `json:"special_requests"`
}

type checkoutRequest struct {
	Payments []paymentLegRequest `json:"payments"`
}

type paymentLegRequest struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
	ExtRef string `json:"ext_ref"`
}

type orderResponse struct {
	ID                  uuid.UUID  `json:"id"`
	TableID             uuid.UUID  `json:"table_id"`
	WaiterID            *uuid.UUID `json:"waiter_id,omitempty"`
	Status              string     `json:"status"`
	TotalAmount         string     `json:"total_amount"`
	PaymentStatus       string     `json:"payment_status"`
	PaymentMethod       string     `json:"payment_method,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

type orderItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	MenuItemID      *uuid.UUID `json:"menu_item_id,omitempty"`
	MenuItemName    string     `json:"menu_item_name"`
	Quantity        int32      `json:"quantity"`
	UnitPrice       string     `json:"unit_price"`
	Subtotal        string     `json:"subtotal"`
	SpecialRequests string     `json:"special_requests,omitempty"`
}

type paymentResponse struct {
	ID     uuid.UUID `json:"id"`
	Method string    `json:"method"`
	Amount string    `json:"amount"`
	ExtRef string    `json:"ext_ref,omitempty"`
	PaidAt time.Time `json:"paid_at"`
}

type orderDetailResponse struct {
	Order    orderResponse       `json:"order"`
	Items    []orderItemResponse `json:"items"`
	Payments []paymentResponse   `json:"payments,omitempty"`
	Degraded bool                `json:"degraded,omitempty"`
}

type receiptResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Items         json.RawMessage `json:"items"`
	TotalAmount   string          `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

type receiptListResponse struct {
	Receipts []receiptResponse `json:"receipts"`
	Degraded bool              `json:"degraded,omitempty"`
}

// --- Handlers ---

// Create opens a new order on a table. When the database is unreachable the
// order is queued on the local mirror and the response is 202 with a
// degraded flag instead of 201.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.CreateOrderItemRequest{
			MenuItemID:      it.MenuItemID,
			Quantity:        it.Quantity,
			SpecialRequests: it.SpecialRequests,
		})
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID:        restaurantID,
		TableID:             req.TableID,
		WaiterID:            claims.UserID,
		SpecialInstructions: req.SpecialInstructions,
		Items:               items,
	})
	if err != nil {
		respondOrderError(w, "create order", err)
		return
	}

	resp := orderDetailResponse{
		Order:    dbOrderToResponse(result.Order),
		Items:    dbOrderItemsToResponse(result.Items),
		Degraded: result.Degraded,
	}

	status := http.StatusCreated
	if result.Degraded {
		status = http.StatusAccepted
	} else {
		h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventOrderCreated, resp))
		h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventTableProjected, map[string]uuid.UUID{"table_id": result.Order.TableID}))
	}
	writeJSON(w, status, resp)
}

// List returns orders filtered by status, table, and creation date range.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	params := database.ListOrdersParams{
		RestaurantID: restaurantID,
		Status:       r.URL.Query().Get("status"),
		Limit:        parseLimit(r),
		Offset:       parseOffset(r),
	}

	if raw := r.URL.Query().Get("table_id"); raw != "" {
		tableID, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.UUID{Bytes: tableID, Valid: true}
	}

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date, use YYYY-MM-DD"})
			return
		}
		// Inclusive end date: filter below the next day's midnight.
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, dbOrderToResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": resp})
}

// ListOpen returns the restaurant's open orders with their items. Falls
// back to mirror-queued orders when the database is unreachable.
func (h *OrderHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	open, err := h.svc.ListOpenOrders(r.Context(), restaurantID)
	if err != nil {
		respondOrderError(w, "list open orders", err)
		return
	}

	resp := make([]orderDetailResponse, 0, len(open))
	degraded := false
	for _, o := range open {
		degraded = degraded || o.Degraded
		resp = append(resp, orderDetailResponse{
			Order:    dbOrderToResponse(o.Order),
			Items:    dbOrderItemsToResponse(o.Items),
			Degraded: o.Degraded,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": resp, "degraded": degraded})
}

// Get returns one order with its items and payments.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		Order:    dbOrderToResponse(order),
		Items:    dbOrderItemsToResponse(items),
		Payments: dbPaymentsToResponse(payments),
	})
}

// Checkout records the payment legs and closes the order atomically.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	legs := make([]service.PaymentLeg, 0, len(req.Payments))
	for _, p := range req.Payments {
		legs = append(legs, service.PaymentLeg{Method: p.Method, Amount: p.Amount, ExtRef: p.ExtRef})
	}

	result, err := h.svc.Checkout(r.Context(), service.CheckoutRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Payments:     legs,
	})
	if err != nil {
		respondOrderError(w, "checkout", err)
		return
	}

	resp := orderDetailResponse{
		Order:    dbOrderToResponse(result.Order),
		Payments: dbPaymentsToResponse(result.Payments),
	}
	h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventOrderClosed, resp))
	h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventTableProjected, map[string]uuid.UUID{"table_id": result.Order.TableID}))
	writeJSON(w, http.StatusOK, resp)
}

// RemoveItem deletes one line item. Removing the last item deletes the
// whole order.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	result, err := h.svc.RemoveLineItem(r.Context(), restaurantID, orderID, itemID)
	if err != nil {
		respondOrderError(w, "remove line item", err)
		return
	}

	if result.OrderDeleted {
		h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventOrderDeleted, map[string]uuid.UUID{"order_id": orderID}))
		writeJSON(w, http.StatusOK, map[string]interface{}{"order_deleted": true})
		return
	}

	resp := dbOrderToResponse(*result.Order)
	h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventOrderUpdated, resp))
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": resp, "order_deleted": false})
}

// Delete is the audited admin delete: the order vanishes but a full audit
// snapshot and an admin notification survive it.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	deletion, err := h.svc.DeleteOrderWithAudit(r.Context(), service.DeleteOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		ActorID:      claims.UserID,
		ActorName:    claims.FullName,
	})
	if err != nil {
		respondOrderError(w, "delete order", err)
		return
	}

	h.hub.BroadcastToRestaurant(restaurantID, ws.NewEvent(ws.EventOrderDeleted, map[string]uuid.UUID{"order_id": orderID}))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deletion_id": deletion.ID,
		"order_id":    deletion.OrderID,
		"reason":      deletion.Reason,
	})
}

// ListReceipts returns the append-only receipt log, newest first.
func (h *OrderHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	receipts, degraded, err := h.svc.ListReceipts(r.Context(), restaurantID, parseLimit(r), parseOffset(r))
	if err != nil {
		respondOrderError(w, "list receipts", err)
		return
	}

	resp := receiptListResponse{Receipts: make([]receiptResponse, 0, len(receipts)), Degraded: degraded}
	for _, rc := range receipts {
		resp.Receipts = append(resp.Receipts, receiptResponse{
			ID:            rc.ID,
			OrderID:       rc.OrderID,
			Items:         json.RawMessage(rc.Items),
			TotalAmount:   numericToString(rc.TotalAmount),
			PaymentMethod: rc.PaymentMethod.String,
			CompletedAt:   timestamptzPtr(rc.CompletedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func respondOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrOrderItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDatabaseDegraded):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidTableID) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrEmptyPayments) ||
		errors.Is(err, service.ErrInvalidPayMethod) ||
		errors.Is(err, service.ErrInvalidPayAmount)
}

func restaurantIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "rid"))
}

func parseLimit(r *http.Request) int32 {
	limit := int32(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = int32(n)
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

func parseOffset(r *http.Request) int32 {
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return int32(n)
		}
	}
	return 0
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timestamptzPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	return &ts.Time
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID,
		TableID:             o.TableID,
		WaiterID:            uuidPtr(o.WaiterID),
		Status:              o.Status,
		TotalAmount:         numericToString(o.TotalAmount),
		PaymentStatus:       o.PaymentStatus,
		PaymentMethod:       o.PaymentMethod.String,
		SpecialInstructions: o.SpecialInstructions.String,
		CreatedAt:           o.CreatedAt,
		CompletedAt:         timestamptzPtr(o.CompletedAt),
	}
}

func dbOrderItemsToResponse(items []database.OrderItem) []orderItemResponse {
	resp := make([]orderItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, orderItemResponse{
			ID:              it.ID,
			MenuItemID:      uuidPtr(it.MenuItemID),
			MenuItemName:    it.MenuItemName,
			Quantity:        it.Quantity,
			UnitPrice:       numericToString(it.UnitPrice),
			Subtotal:        numericToString(it.Subtotal),
			SpecialRequests: it.SpecialRequests.String,
		})
	}
	return resp
}

func dbPaymentsToResponse(payments []database.Payment) []paymentResponse {
	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, paymentResponse{
			ID:     p.ID,
			Method: p.Method,
			Amount: numericToString(p.Amount),
			ExtRef: p.ExtRef.String,
			PaidAt: p.PaidAt,
		})
	}
	return resp
}
