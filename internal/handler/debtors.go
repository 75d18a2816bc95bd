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

// DebtorStore defines the database methods needed by debtor handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DebtorStore interface {
	ListDebtors(ctx context.Context, restaurantID uuid.UUID) ([]database.Debtor, error)
	CreateDebtor(ctx context.Context, arg database.CreateDebtorParams) (database.Debtor, error)
	UpdateDebtor(ctx context.Context, arg database.UpdateDebtorParams) (database.Debtor, error)
	MarkDebtorPaid(ctx context.Context, arg database.MarkDebtorPaidParams) (database.Debtor, error)
	DeleteDebtor(ctx context.Context, arg database.DeleteDebtorParams) error
}

// DebtorHandler handles the debtor (nasiya) ledger.
type DebtorHandler struct {
	store DebtorStore
}

// NewDebtorHandler creates a new DebtorHandler.
func NewDebtorHandler(store DebtorStore) *DebtorHandler {
	return &DebtorHandler{store: store}
}

// RegisterRoutes registers debtor endpoints on the restaurant subrouter.
func (h *DebtorHandler) RegisterRoutes(r chi.Router) {
	r.Route("/debtors", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/pay", h.MarkPaid)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type debtorRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Amount  string `json:"amount"`
	DueDate string `json:"due_date"`
}

type debtorResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	Amount    string     `json:"amount"`
	DueDate   string     `json:"due_date,omitempty"`
	Paid      bool       `json:"paid"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// --- Handlers ---

// List returns the restaurant's debtors, unpaid first.
func (h *DebtorHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	debtors, err := h.store.ListDebtors(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list debtors: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]debtorResponse, len(debtors))
	for i, d := range debtors {
		resp[i] = dbDebtorToResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create records a new debt.
func (h *DebtorHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req debtorRequest
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

	dueDate, errMsg := parseDueDate(req.DueDate)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	phone := pgtype.Text{}
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	debtor, err := h.store.CreateDebtor(r.Context(), database.CreateDebtorParams{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Phone:        phone,
		Amount:       amount,
		DueDate:      dueDate,
		CreatedBy:    pgtype.UUID{Bytes: claims.UserID, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: create debtor: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbDebtorToResponse(debtor))
}

// Update modifies an unpaid debt.
func (h *DebtorHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	debtorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid debtor id"})
		return
	}

	var req debtorRequest
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

	dueDate, errMsg := parseDueDate(req.DueDate)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	phone := pgtype.Text{}
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	debtor, err := h.store.UpdateDebtor(r.Context(), database.UpdateDebtorParams{
		ID:           debtorID,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Phone:        phone,
		Amount:       amount,
		DueDate:      dueDate,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "debtor not found"})
			return
		}
		log.Printf("ERROR: update debtor: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbDebtorToResponse(debtor))
}

// MarkPaid settles a debt.
func (h *DebtorHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	debtorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid debtor id"})
		return
	}

	debtor, err := h.store.MarkDebtorPaid(r.Context(), database.MarkDebtorPaidParams{ID: debtorID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "debtor not found"})
			return
		}
		log.Printf("ERROR: mark debtor paid: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbDebtorToResponse(debtor))
}

// Delete removes a debtor entry.
func (h *DebtorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	debtorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid debtor id"})
		return
	}

	if err := h.store.DeleteDebtor(r.Context(), database.DeleteDebtorParams{ID: debtorID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "debtor not found"})
			return
		}
		log.Printf("ERROR: delete debtor: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func parseDueDate(raw string) (pgtype.Date, string) {
	if raw == "" {
		return pgtype.Date{}, ""
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return pgtype.Date{}, "invalid due_date, use YYYY-MM-DD"
	}
	return pgtype.Date{Time: t, Valid: true}, ""
}

func dbDebtorToResponse(d database.Debtor) debtorResponse {
	resp := debtorResponse{
		ID:        d.ID,
		Name:      d.Name,
		Phone:     d.Phone.String,
		Amount:    numericToString(d.Amount),
		Paid:      d.Paid,
		PaidAt:    timestamptzPtr(d.PaidAt),
		CreatedAt: d.CreatedAt,
	}
	if d.DueDate.Valid {
		resp.DueDate = d.DueDate.Time.Format("2006-01-02")
	}
	return resp
}
