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
	"github.com/k-cafe/api/internal/middleware"
)

// ExpenseStore defines the database methods needed by expense handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, restaurantID uuid.UUID) ([]database.Expense, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	DeleteExpense(ctx context.Context, arg database.DeleteExpenseParams) error
}

// ExpenseHandler handles the expense log.
type ExpenseHandler struct {
	store ExpenseStore
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(store ExpenseStore) *ExpenseHandler {
	return &ExpenseHandler{store: store}
}

// RegisterRoutes registers expense endpoints on the restaurant subrouter.
func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type createExpenseRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	ExpenseDate string `json:"expense_date"`
}

type expenseResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	ExpenseDate string    `json:"expense_date"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// List returns the restaurant's expenses, newest first.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	expenses, err := h.store.ListExpenses(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = dbExpenseToResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create records an expense, attributed to the logged-in user.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	amount, errMsg := parseAmount(req.Amount)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount " + errMsg})
		return
	}

	// Expenses default to today so the till does not have to pick a date.
	expenseDate := pgtype.Date{Time: time.Now(), Valid: true}
	if req.ExpenseDate != "" {
		t, err := time.Parse("2006-01-02", req.ExpenseDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense_date, use YYYY-MM-DD"})
			return
		}
		expenseDate = pgtype.Date{Time: t, Valid: true}
	}

	expense, err := h.store.CreateExpense(r.Context(), database.CreateExpenseParams{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Amount:       amount,
		ExpenseDate:  expenseDate,
		CreatedBy:    claims.FullName,
	})
	if err != nil {
		log.Printf("ERROR: create expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbExpenseToResponse(expense))
}

// Delete removes an expense entry.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	expenseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense id"})
		return
	}

	if err := h.store.DeleteExpense(r.Context(), database.DeleteExpenseParams{ID: expenseID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "expense not found"})
			return
		}
		log.Printf("ERROR: delete expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func dbExpenseToResponse(e database.Expense) expenseResponse {
	resp := expenseResponse{
		ID:        e.ID,
		Name:      e.Name,
		Amount:    numericToString(e.Amount),
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
	}
	if e.ExpenseDate.Valid {
		resp.ExpenseDate = e.ExpenseDate.Time.Format("2006-01-02")
	}
	return resp
}
