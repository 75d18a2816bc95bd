package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/handler"
	"github.com/k-cafe/api/internal/middleware"
	"github.com/k-cafe/api/internal/service"
)

// --- Mocks ---

type mockTableService struct {
	listFn      func(ctx context.Context, restaurantID uuid.UUID) ([]service.TableView, bool, error)
	bootstrapFn func(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error)
}

func (m *mockTableService) List(ctx context.Context, restaurantID uuid.UUID) ([]service.TableView, bool, error) {
	return m.listFn(ctx, restaurantID)
}

func (m *mockTableService) BootstrapDefault(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error) {
	return m.bootstrapFn(ctx, restaurantID)
}

type mockTableStore struct {
	createTableFn            func(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	deleteTableFn            func(ctx context.Context, arg database.DeleteTableParams) error
	countOpenOrdersByTableFn func(ctx context.Context, tableID uuid.UUID) (int64, error)
}

func (m *mockTableStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
	return m.createTableFn(ctx, arg)
}

func (m *mockTableStore) DeleteTable(ctx context.Context, arg database.DeleteTableParams) error {
	return m.deleteTableFn(ctx, arg)
}

func (m *mockTableStore) CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	return m.countOpenOrdersByTableFn(ctx, tableID)
}

func setupTableRouter(svc *mockTableService, store *mockTableStore) *chi.Mux {
	h := handler.NewTableHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterAdminRoutes(r)
	})
	return r
}

// --- Tests ---

func TestListTablesEndpoint_ProjectionServed(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()
	svc := &mockTableService{
		listFn: func(_ context.Context, _ uuid.UUID) ([]service.TableView, bool, error) {
			return []service.TableView{
				{ID: uuid.New(), Number: 1, Seats: 2, Status: enum.TableStatusOccupied, CurrentOrderID: &orderID},
				{ID: uuid.New(), Number: 2, Seats: 4, Status: enum.TableStatusAvailable},
			}, false, nil
		},
	}
	router := setupTableRouter(svc, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/tables/", nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	tables := resp["tables"].([]interface{})
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	first := tables[0].(map[string]interface{})
	if first["status"] != enum.TableStatusOccupied {
		t.Errorf("expected occupied, got %v", first["status"])
	}
	if first["current_order_id"] != orderID.String() {
		t.Errorf("expected current order %s, got %v", orderID, first["current_order_id"])
	}
}

func TestListTablesEndpoint_DegradedFlag(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockTableService{
		listFn: func(_ context.Context, _ uuid.UUID) ([]service.TableView, bool, error) {
			return []service.TableView{{ID: uuid.New(), Number: 1, Seats: 2, Status: enum.TableStatusAvailable}}, true, nil
		},
	}
	router := setupTableRouter(svc, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/tables/", nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["degraded"] != true {
		t.Error("expected degraded flag on mirror-served tables")
	}
}

func TestListTablesEndpoint_NothingMirrored(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockTableService{
		listFn: func(_ context.Context, _ uuid.UUID) ([]service.TableView, bool, error) {
			return nil, false, service.ErrDatabaseDegraded
		},
	}
	router := setupTableRouter(svc, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/tables/", nil, testClaims(restaurantID))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCreateTableEndpoint_DuplicateNumber(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockTableStore{
		createTableFn: func(_ context.Context, _ database.CreateTableParams) (database.Table, error) {
			return database.Table{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		},
	}
	router := setupTableRouter(nil, store)

	body := map[string]interface{}{"number": 7, "seats": 4}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/tables", body, testClaims(restaurantID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCreateTableEndpoint_InvalidSeats(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockTableStore{
		createTableFn: func(_ context.Context, _ database.CreateTableParams) (database.Table, error) {
			t.Fatal("store should not be consulted for invalid input")
			return database.Table{}, nil
		},
	}
	router := setupTableRouter(nil, store)

	body := map[string]interface{}{"number": 7, "seats": 0}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/tables", body, testClaims(restaurantID))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteTableEndpoint_BlockedByOpenOrders(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockTableStore{
		countOpenOrdersByTableFn: func(_ context.Context, _ uuid.UUID) (int64, error) {
			return 2, nil
		},
		deleteTableFn: func(_ context.Context, _ database.DeleteTableParams) error {
			t.Fatal("a table with open orders must not be deleted")
			return nil
		},
	}
	router := setupTableRouter(nil, store)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/tables/"+uuid.New().String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestBootstrapTablesEndpoint(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockTableService{
		bootstrapFn: func(_ context.Context, rid uuid.UUID) ([]database.Table, error) {
			tables := make([]database.Table, 50)
			for i := range tables {
				tables[i] = database.Table{ID: uuid.New(), RestaurantID: rid, Number: int32(i + 1), Seats: 4, Status: enum.TableStatusAvailable}
			}
			return tables, nil
		},
	}
	router := setupTableRouter(svc, nil)

	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/tables/bootstrap", nil, testClaims(restaurantID))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if got := len(resp["tables"].([]interface{})); got != 50 {
		t.Errorf("expected 50 tables, got %d", got)
	}
}
