package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/service"
	"github.com/shopspring/decimal"
)

// MenuServicer lists menu items with a mirror fallback. Satisfied by
// *service.MenuService.
type MenuServicer interface {
	List(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, bool, error)
}

// MenuWriteStore defines the database methods needed for menu admin.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuWriteStore interface {
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, arg database.DeleteMenuItemParams) error
}

// MenuHandler handles menu endpoints.
type MenuHandler struct {
	svc   MenuServicer
	store MenuWriteStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer, store MenuWriteStore) *MenuHandler {
	return &MenuHandler{svc: svc, store: store}
}

// RegisterRoutes registers menu endpoints on the restaurant subrouter.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.List)
}

// RegisterAdminRoutes registers endpoints restricted to admins.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/menu", h.Create)
	r.Put("/menu/{itemID}", h.Update)
	r.Delete("/menu/{itemID}", h.Delete)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           string   `json:"price"`
	Category        string   `json:"category"`
	Image           string   `json:"image"`
	Ingredients     []string `json:"ingredients"`
	IsAvailable     *bool    `json:"is_available"`
	PreparationTime int32    `json:"preparation_time"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Price           string    `json:"price"`
	Category        string    `json:"category"`
	Image           string    `json:"image,omitempty"`
	Ingredients     []string  `json:"ingredients,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	PreparationTime int32     `json:"preparation_time"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type menuListResponse struct {
	Items    []menuItemResponse `json:"items"`
	Degraded bool               `json:"degraded,omitempty"`
}

// --- Handlers ---

// List returns the menu. When the database is unreachable the last mirrored
// snapshot is served with a degraded flag.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	items, degraded, err := h.svc.List(r.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, service.ErrDatabaseDegraded) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := menuListResponse{Items: make([]menuItemResponse, 0, len(items)), Degraded: degraded}
	for _, it := range items {
		resp.Items = append(resp.Items, dbMenuItemToResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := menuItemParams(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}
	params.RestaurantID = restaurantID

	item, err := h.store.CreateMenuItem(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbMenuItemToResponse(item))
}

// Update replaces a menu item's fields.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item id"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := menuItemParams(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:              itemID,
		RestaurantID:    restaurantID,
		Name:            params.Name,
		Description:     params.Description,
		Price:           params.Price,
		Category:        params.Category,
		Image:           params.Image,
		Ingredients:     params.Ingredients,
		IsAvailable:     params.IsAvailable,
		PreparationTime: params.PreparationTime,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// Delete removes a menu item. Existing order lines keep their snapshotted
// name and price.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item id"})
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), database.DeleteMenuItemParams{ID: itemID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func menuItemParams(req menuItemRequest) (database.CreateMenuItemParams, string) {
	if req.Name == "" {
		return database.CreateMenuItemParams{}, "name is required"
	}
	if req.Category == "" {
		return database.CreateMenuItemParams{}, "category is required"
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		return database.CreateMenuItemParams{}, "price must be a positive decimal string"
	}

	var priceNum pgtype.Numeric
	if err := priceNum.Scan(price.StringFixed(2)); err != nil {
		return database.CreateMenuItemParams{}, "price must be a positive decimal string"
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	params := database.CreateMenuItemParams{
		Name:            req.Name,
		Price:           priceNum,
		Category:        req.Category,
		Ingredients:     req.Ingredients,
		IsAvailable:     available,
		PreparationTime: req.PreparationTime,
	}
	if req.Description != "" {
		params.Description = pgtype.Text{String: req.Description, Valid: true}
	}
	if req.Image != "" {
		params.Image = pgtype.Text{String: req.Image, Valid: true}
	}
	return params, ""
}

func dbMenuItemToResponse(it database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:              it.ID,
		Name:            it.Name,
		Description:     it.Description.String,
		Price:           numericToString(it.Price),
		Category:        it.Category,
		Image:           it.Image.String,
		Ingredients:     it.Ingredients,
		IsAvailable:     it.IsAvailable,
		PreparationTime: it.PreparationTime,
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}
