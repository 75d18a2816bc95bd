package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/handler"
	"github.com/k-cafe/api/internal/middleware"
)

// --- Mocks ---

type mockMenuService struct {
	listFn func(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, bool, error)
}

func (m *mockMenuService) List(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, bool, error) {
	return m.listFn(ctx, restaurantID)
}

type mockMenuStore struct {
	createFn func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	updateFn func(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	deleteFn func(ctx context.Context, arg database.DeleteMenuItemParams) error
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	return m.createFn(ctx, arg)
}

func (m *mockMenuStore) UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	return m.updateFn(ctx, arg)
}

func (m *mockMenuStore) DeleteMenuItem(ctx context.Context, arg database.DeleteMenuItemParams) error {
	return m.deleteFn(ctx, arg)
}

func setupMenuRouter(svc *mockMenuService, store *mockMenuStore) *chi.Mux {
	h := handler.NewMenuHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterAdminRoutes(r)
	})
	return r
}

// --- Tests ---

func TestListMenuEndpoint_PricesFormatted(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockMenuService{
		listFn: func(_ context.Context, _ uuid.UUID) ([]database.MenuItem, bool, error) {
			return []database.MenuItem{
				{ID: uuid.New(), Name: "Margarita Pitsa", Price: makeHandlerNumeric(t, "24.99"), Category: "Pitsa", IsAvailable: true},
			}, false, nil
		},
	}
	router := setupMenuRouter(svc, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/menu", nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["price"] != "24.99" {
		t.Errorf("expected price 24.99, got %v", item["price"])
	}
}

func TestListMenuEndpoint_DegradedFlag(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockMenuService{
		listFn: func(_ context.Context, _ uuid.UUID) ([]database.MenuItem, bool, error) {
			return []database.MenuItem{}, true, nil
		},
	}
	router := setupMenuRouter(svc, nil)

	rr := doAuthRequest(t, router, http.MethodGet, "/restaurants/"+restaurantID.String()+"/menu", nil, testClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["degraded"] != true {
		t.Error("expected degraded flag on mirror-served menu")
	}
}

func TestCreateMenuItemEndpoint_InvalidPrice(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockMenuStore{
		createFn: func(_ context.Context, _ database.CreateMenuItemParams) (database.MenuItem, error) {
			t.Fatal("store should not be consulted for invalid input")
			return database.MenuItem{}, nil
		},
	}
	router := setupMenuRouter(nil, store)

	body := map[string]interface{}{"name": "Osh", "category": "Milliy taomlar", "price": "-5.00"}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/menu", body, testClaims(restaurantID))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateMenuItemEndpoint_Success(t *testing.T) {
	restaurantID := uuid.New()
	var got database.CreateMenuItemParams
	store := &mockMenuStore{
		createFn: func(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
			got = arg
			return database.MenuItem{
				ID: uuid.New(), Name: arg.Name, Price: arg.Price,
				Category: arg.Category, IsAvailable: arg.IsAvailable,
			}, nil
		},
	}
	router := setupMenuRouter(nil, store)

	body := map[string]interface{}{"name": "Lavash", "category": "Fast food", "price": "13.99", "preparation_time": 10}
	rr := doAuthRequest(t, router, http.MethodPost, "/restaurants/"+restaurantID.String()+"/menu", body, testClaims(restaurantID))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.RestaurantID != restaurantID {
		t.Errorf("expected restaurant %s, got %s", restaurantID, got.RestaurantID)
	}
	if !got.IsAvailable {
		t.Error("availability should default to true")
	}
	resp := decodeResponse(t, rr)
	if resp["price"] != "13.99" {
		t.Errorf("expected price 13.99, got %v", resp["price"])
	}
}

func TestUpdateMenuItemEndpoint_NotFound(t *testing.T) {
	restaurantID := uuid.New()
	store := &mockMenuStore{
		updateFn: func(_ context.Context, _ database.UpdateMenuItemParams) (database.MenuItem, error) {
			return database.MenuItem{}, pgx.ErrNoRows
		},
	}
	router := setupMenuRouter(nil, store)

	body := map[string]interface{}{"name": "Choy", "category": "Ichimliklar", "price": "2.00"}
	rr := doAuthRequest(t, router, http.MethodPut, "/restaurants/"+restaurantID.String()+"/menu/"+uuid.New().String(), body, testClaims(restaurantID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteMenuItemEndpoint_Success(t *testing.T) {
	restaurantID := uuid.New()
	itemID := uuid.New()
	store := &mockMenuStore{
		deleteFn: func(_ context.Context, arg database.DeleteMenuItemParams) error {
			if arg.ID != itemID {
				t.Errorf("expected item %s, got %s", itemID, arg.ID)
			}
			return nil
		},
	}
	router := setupMenuRouter(nil, store)

	rr := doAuthRequest(t, router, http.MethodDelete, "/restaurants/"+restaurantID.String()+"/menu/"+itemID.String(), nil, testClaims(restaurantID))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
