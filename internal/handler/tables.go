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
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/service"
)

// TableServicer projects live table statuses. Satisfied by
// *service.TableService.
type TableServicer interface {
	List(ctx context.Context, restaurantID uuid.UUID) ([]service.TableView, bool, error)
	BootstrapDefault(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error)
}

// TableWriteStore defines the database methods needed for table admin.
// Satisfied by *database.Queries; narrow interface for testability.
type TableWriteStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	DeleteTable(ctx context.Context, arg database.DeleteTableParams) error
	CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	svc   TableServicer
	store TableWriteStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer, store TableWriteStore) *TableHandler {
	return &TableHandler{svc: svc, store: store}
}

// RegisterRoutes registers table endpoints on the restaurant subrouter.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.List)
	})
}

// RegisterAdminRoutes registers endpoints restricted to admins.
func (h *TableHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/tables", h.Create)
	r.Post("/tables/bootstrap", h.Bootstrap)
	r.Delete("/tables/{tableID}", h.Delete)
}

// --- Request / Response types ---

type createTableRequest struct {
	Number int32 `json:"number"`
	Seats  int32 `json:"seats"`
}

type tableResponse struct {
	ID             uuid.UUID  `json:"id"`
	Number         int32      `json:"number"`
	Seats          int32      `json:"seats"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type tableListResponse struct {
	Tables   []service.TableView `json:"tables"`
	Degraded bool                `json:"degraded,omitempty"`
}

// --- Handlers ---

// List returns the projected table map. The statuses are derived from open
// orders on every read; when the database is unreachable the last mirrored
// snapshot is served with a degraded flag.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	tables, degraded, err := h.svc.List(r.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, service.ErrDatabaseDegraded) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tableListResponse{Tables: tables, Degraded: degraded})
}

// Create adds a single table.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Number <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "number must be positive"})
		return
	}
	if req.Seats <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seats must be positive"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		RestaurantID: restaurantID,
		Number:       req.Number,
		Seats:        req.Seats,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table number already exists"})
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbTableToResponse(table))
}

// Bootstrap creates the default floor layout for a new restaurant.
func (h *TableHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	tables, err := h.svc.BootstrapDefault(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: bootstrap tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, dbTableToResponse(t))
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"tables": resp})
}

// Delete removes a table. Tables with open orders cannot be removed.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	tableID, err := uuid.Parse(chi.URLParam(r, "tableID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return
	}

	open, err := h.store.CountOpenOrdersByTable(r.Context(), tableID)
	if err != nil {
		log.Printf("ERROR: count open orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if open > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "table has open orders"})
		return
	}

	if err := h.store.DeleteTable(r.Context(), database.DeleteTableParams{ID: tableID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func dbTableToResponse(t database.Table) tableResponse {
	return tableResponse{
		ID:             t.ID,
		Number:         t.Number,
		Seats:          t.Seats,
		Status:         t.Status,
		CurrentOrderID: uuidPtr(t.CurrentOrderID),
		CreatedAt:      t.CreatedAt,
	}
}
