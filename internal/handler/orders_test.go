package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/k-cafe/api/internal/auth"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/handler"
	"github.com/k-cafe/api/internal/middleware"
	"github.com/k-cafe/api/internal/service"
	"github.com/k-cafe/api/internal/ws"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn       func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	removeItemFn   func(ctx context.Context, restaurantID, orderID, itemID uuid.UUID) (*service.RemoveLineItemResult, error)
	checkoutFn     func(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	deleteFn       func(ctx context.Context, req service.DeleteOrderRequest) (*database.OrderDeletion, error)
	listOpenFn     func(ctx context.Context, restaurantID uuid.UUID) ([]service.OpenOrder, error)
	listReceiptsFn func(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]database.OrderReceipt, bool, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

func (m *mockOrderService) RemoveLineItem(ctx context.Context, restaurantID, orderID, itemID uuid.UUID) (*service.RemoveLineItemResult, error) {
	return m.removeItemFn(ctx, restaurantID, orderID, itemID)
}

func (m *mockOrderService) Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	return m.checkoutFn(ctx, req)
}

func (m *mockOrderService) DeleteOrderWithAudit(ctx context.Context, req service.DeleteOrderRequest) (*database.OrderDeletion, error) {
	return m.deleteFn(ctx, req)
}

func (m *mockOrderService) ListOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]service.OpenOrder, error) {
	return m.listOpenFn(ctx, restaurantID)
}

func (m *mockOrderService) ListReceipts(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]database.OrderReceipt, bool, error) {
	return m.listReceiptsFn(ctx, restaurantID, limit, offset)
}

// --- Mock OrderStore ---

type mockOrderStore struct {
	listOrdersFn            func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	getOrderFn              func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listPaymentsByOrderFn   func(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrderFn(ctx, arg)
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}

func (m *mockOrderStore) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	return m.listPaymentsByOrderFn(ctx, orderID)
}

// --- Mock Broadcaster ---

type mockHub struct {
	events []ws.Event
}

func (m *mockHub) BroadcastToRestaurant(_ uuid.UUID, event ws.Event) {
	m.events = append(m.events, event)
}

// --- Test helpers ---

const testJWTSecret = "test-secret-for-orders"

func setupOrderRouter(svc *mockOrderService, store *mockOrderStore, hub *mockHub) *chi.Mux {
	if hub == nil {
		hub = &mockHub{}
	}
	h := handler.NewOrderHandler(svc, store, hub)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterAdminRoutes(r)
	})
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.RestaurantID, claims.FullName, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testClaims(restaurantID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		UserID:       uuid.New(),
		RestaurantID: restaurantID,
		FullName:     "Aziz Karimov",
		Role:         enum.UserRoleWaiter,
	}
}

func makeHandlerNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func testOrderResult(t *testing.T, restaurantID uuid.UUID) *service.CreateOrderResult {
	t.Helper()
	orderID := uuid.New()
	return &service.CreateOrderResult{
		Order: database.Order{
			ID:            orderID,
			RestaurantID:  restaurantID,
			TableID:       uuid.New(),
			Status:        enum.OrderStatusOpen,
			TotalAmount:   makeHandlerNumeric(t, "49.98"),
			PaymentStatus: enum.PaymentStatusUnpaid,
			CreatedAt:     time.Now(),
		},
		Items: []database.OrderItem{
			{
				ID:           uuid.New(),
				OrderID:      orderID,
				MenuItemName: "Margarita Pitsa",
				Quantity:     2,
				UnitPrice:    makeHandlerNumeric(t, "24.99"),
				Subtotal:     makeHandlerNumeric(t, "49.98"),
			},
		},
	}
}

// =====================
// Create
// =====================

func TestCreateOrderEndpoint_Success(t *testing.T) {
	restaurantID := uuid.New()
	claims := testClaims(restaurantID)
	result := testOrderResult(t, restaurantID)

	var gotReq service.CreateOrderRequest
	svc := &mockOrderService{
		createFn: func(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			gotReq = req
			return result, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, nil, hub)

	body := map[string]interface{}{
		"table_id": result.Order.TableID.String(),
		"items": []map[string]interface{}{
			{"menu_item_id": uuid.New().String(), "quantity": 2},
		},
	}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders", body, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotReq.WaiterID != claims.UserID {
		t.Errorf("waiter should come from the token, got %s", gotReq.WaiterID)
	}

	resp := decodeResponse(t, rr)
	order := resp["order"].(map[string]interface{})
	if order["total_amount"] != "49.98" {
		t.Errorf("expected total_amount 49.98, got %v", order["total_amount"])
	}
	if len(hub.events) != 2 {
		t.Fatalf("expected order_created and table_projected events, got %d", len(hub.events))
	}
	if hub.events[0].Type != ws.EventOrderCreated {
		t.Errorf("expected %s event, got %s", ws.EventOrderCreated, hub.events[0].Type)
	}
}

func TestCreateOrderEndpoint_DegradedReturns202(t *testing.T) {
	restaurantID := uuid.New()
	claims := testClaims(restaurantID)
	result := testOrderResult(t, restaurantID)
	result.Degraded = true

	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return result, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, nil, hub)

	body := map[string]interface{}{
		"table_id": result.Order.TableID.String(),
		"items":    []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 1}},
	}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders", body, claims)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for a mirror-queued order, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["degraded"] != true {
		t.Error("expected degraded flag in response")
	}
	if len(hub.events) != 0 {
		t.Error("degraded creates should not broadcast, terminals are offline anyway")
	}
}

func TestCreateOrderEndpoint_ValidationError(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrEmptyItems
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	body := map[string]interface{}{"table_id": uuid.New().String(), "items": []map[string]interface{}{}}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders", body, testClaims(restaurantID))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateOrderEndpoint_TableNotFound(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrTableNotFound
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	body := map[string]interface{}{
		"table_id": uuid.New().String(),
		"items":    []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 1}},
	}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders", body, testClaims(restaurantID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreateOrderEndpoint_MissingToken(t *testing.T) {
	restaurantID := uuid.New()
	router := setupOrderRouter(&mockOrderService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// =====================
// Checkout
// =====================

func TestCheckoutEndpoint_Success(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()
	tableID := uuid.New()

	svc := &mockOrderService{
		checkoutFn: func(_ context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
			if req.OrderID != orderID {
				t.Errorf("expected order %s, got %s", orderID, req.OrderID)
			}
			return &service.CheckoutResult{
				Order: database.Order{
					ID:            orderID,
					RestaurantID:  restaurantID,
					TableID:       tableID,
					Status:        enum.OrderStatusClosed,
					TotalAmount:   makeHandlerNumeric(t, "49.98"),
					PaymentStatus: enum.PaymentStatusPaid,
					PaymentMethod: pgtype.Text{String: enum.PaymentMethodCash, Valid: true},
					CreatedAt:     time.Now(),
					CompletedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
				},
				Payments: []database.Payment{
					{ID: uuid.New(), OrderID: orderID, Method: enum.PaymentMethodCash, Amount: makeHandlerNumeric(t, "49.98"), PaidAt: time.Now()},
				},
			}, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, nil, hub)

	body := map[string]interface{}{
		"payments": []map[string]interface{}{{"method": "cash", "amount": "49.98"}},
	}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders/"+orderID.String()+"/checkout", body, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	order := resp["order"].(map[string]interface{})
	if order["status"] != enum.OrderStatusClosed {
		t.Errorf("expected closed order, got %v", order["status"])
	}
	if order["payment_status"] != enum.PaymentStatusPaid {
		t.Errorf("expected paid order, got %v", order["payment_status"])
	}
	if len(hub.events) != 2 || hub.events[0].Type != ws.EventOrderClosed {
		t.Errorf("expected order_closed broadcast, got %+v", hub.events)
	}
}

func TestCheckoutEndpoint_AlreadyClosed(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		checkoutFn: func(_ context.Context, _ service.CheckoutRequest) (*service.CheckoutResult, error) {
			return nil, service.ErrOrderNotOpen
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	body := map[string]interface{}{"payments": []map[string]interface{}{{"method": "cash", "amount": "10.00"}}}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders/"+uuid.New().String()+"/checkout", body, testClaims(restaurantID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCheckoutEndpoint_InvalidMethod(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		checkoutFn: func(_ context.Context, _ service.CheckoutRequest) (*service.CheckoutResult, error) {
			return nil, service.ErrInvalidPayMethod
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	body := map[string]interface{}{"payments": []map[string]interface{}{{"method": "crypto", "amount": "10.00"}}}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/orders/"+uuid.New().String()+"/checkout", body, testClaims(restaurantID))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// =====================
// RemoveItem
// =====================

func TestRemoveItemEndpoint_OrderSurvives(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()

	svc := &mockOrderService{
		removeItemFn: func(_ context.Context, _, gotOrder, _ uuid.UUID) (*service.RemoveLineItemResult, error) {
			return &service.RemoveLineItemResult{
				Order: &database.Order{
					ID:            gotOrder,
					RestaurantID:  restaurantID,
					TableID:       uuid.New(),
					Status:        enum.OrderStatusOpen,
					TotalAmount:   makeHandlerNumeric(t, "24.99"),
					PaymentStatus: enum.PaymentStatusUnpaid,
					CreatedAt:     time.Now(),
				},
			}, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, nil, hub)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/orders/"+orderID.String()+"/items/"+uuid.New().String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["order_deleted"] != false {
		t.Error("order should survive when items remain")
	}
	if len(hub.events) != 1 || hub.events[0].Type != ws.EventOrderUpdated {
		t.Errorf("expected order_updated broadcast, got %+v", hub.events)
	}
}

func TestRemoveItemEndpoint_LastItemDeletesOrder(t *testing.T) {
	restaurantID := uuid.New()

	svc := &mockOrderService{
		removeItemFn: func(_ context.Context, _, _, _ uuid.UUID) (*service.RemoveLineItemResult, error) {
			return &service.RemoveLineItemResult{OrderDeleted: true}, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, nil, hub)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/orders/"+uuid.New().String()+"/items/"+uuid.New().String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["order_deleted"] != true {
		t.Error("expected order_deleted true")
	}
	if len(hub.events) != 1 || hub.events[0].Type != ws.EventOrderDeleted {
		t.Errorf("expected order_deleted broadcast, got %+v", hub.events)
	}
}

func TestRemoveItemEndpoint_ItemNotFound(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		removeItemFn: func(_ context.Context, _, _, _ uuid.UUID) (*service.RemoveLineItemResult, error) {
			return nil, service.ErrOrderItemNotFound
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/orders/"+uuid.New().String()+"/items/"+uuid.New().String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// =====================
// Delete (audited)
// =====================

func TestDeleteOrderEndpoint_Success(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()
	claims := testClaims(restaurantID)
	claims.Role = enum.UserRoleAdmin

	var gotReq service.DeleteOrderRequest
	svc := &mockOrderService{
		deleteFn: func(_ context.Context, req service.DeleteOrderRequest) (*database.OrderDeletion, error) {
			gotReq = req
			return &database.OrderDeletion{
				ID:      uuid.New(),
				OrderID: req.OrderID,
				Reason:  enum.OrderDeletionReason,
			}, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, nil, hub)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/orders/"+orderID.String(), nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotReq.ActorName != claims.FullName {
		t.Errorf("actor name should come from the token, got %q", gotReq.ActorName)
	}
	resp := decodeResponse(t, rr)
	if resp["reason"] != enum.OrderDeletionReason {
		t.Errorf("expected fixed deletion reason, got %v", resp["reason"])
	}
	if len(hub.events) != 1 || hub.events[0].Type != ws.EventOrderDeleted {
		t.Errorf("expected order_deleted broadcast, got %+v", hub.events)
	}
}

func TestDeleteOrderEndpoint_NotFound(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		deleteFn: func(_ context.Context, _ service.DeleteOrderRequest) (*database.OrderDeletion, error) {
			return nil, service.ErrOrderNotFound
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/orders/"+uuid.New().String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// =====================
// List / Get
// =====================

func TestListOrdersEndpoint_BadDate(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockOrderStore{
		listOrdersFn: func(_ context.Context, _ database.ListOrdersParams) ([]database.Order, error) {
			t.Fatal("store should not be consulted for an invalid date")
			return nil, nil
		},
	}
	router := setupOrderRouter(&mockOrderService{}, store, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/orders/?start_date=garbage", nil, testClaims(restaurantID))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListOrdersEndpoint_ForwardsFilters(t *testing.T) {
	restaurantID := uuid.New()
	var gotParams database.ListOrdersParams
	store := &mockOrderStore{
		listOrdersFn: func(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			gotParams = arg
			return nil, nil
		},
	}
	router := setupOrderRouter(&mockOrderService{}, store, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/orders/?status=closed&limit=500", nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotParams.Status != enum.OrderStatusClosed {
		t.Errorf("expected status filter closed, got %q", gotParams.Status)
	}
	if gotParams.Limit != 100 {
		t.Errorf("limit should be capped at 100, got %d", gotParams.Limit)
	}
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ database.GetOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	router := setupOrderRouter(&mockOrderService{}, store, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/orders/"+uuid.New().String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// =====================
// Receipts
// =====================

func TestListReceiptsEndpoint_Degraded(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockOrderService{
		listReceiptsFn: func(_ context.Context, _ uuid.UUID, _, _ int32) ([]database.OrderReceipt, bool, error) {
			return []database.OrderReceipt{
				{
					ID:            uuid.New(),
					OrderID:       uuid.New(),
					Items:         []byte(`[{"menu_item_name":"Lavash","quantity":1}]`),
					TotalAmount:   makeHandlerNumeric(t, "13.99"),
					PaymentMethod: pgtype.Text{String: enum.PaymentMethodCard, Valid: true},
				},
			}, true, nil
		},
	}
	router := setupOrderRouter(svc, nil, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/receipts", nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["degraded"] != true {
		t.Error("expected degraded flag on mirror-served receipts")
	}
	receipts := resp["receipts"].([]interface{})
	if len(receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(receipts))
	}
	if receipts[0].(map[string]interface{})["total_amount"] != "13.99" {
		t.Errorf("unexpected receipt total: %v", receipts[0])
	}
}
