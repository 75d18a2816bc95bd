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
	"github.com/shopspring/decimal"
)

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaff(ctx context.Context, restaurantID uuid.UUID) ([]database.Staff, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	DeleteStaff(ctx context.Context, arg database.DeleteStaffParams) error
	ListWagePaymentsByStaff(ctx context.Context, staffID uuid.UUID) ([]database.WagePayment, error)
	CreateWagePayment(ctx context.Context, arg database.CreateWagePaymentParams) (database.WagePayment, error)
}

// StaffHandler handles the staff roster and wage payment log.
type StaffHandler struct {
	store StaffStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore) *StaffHandler {
	return &StaffHandler{store: store}
}

// RegisterRoutes registers staff endpoints on the restaurant subrouter.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/wages", h.ListWages)
		r.Post("/{id}/wages", h.PayWage)
	})
}

// --- Request / Response types ---

type staffRequest struct {
	Name      string `json:"name"`
	Login     string `json:"login"`
	Role      string `json:"role"`
	DailyWage string `json:"daily_wage"`
	IsActive  *bool  `json:"is_active"`
}

type staffResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Login     string    `json:"login"`
	Role      string    `json:"role"`
	DailyWage string    `json:"daily_wage"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type wagePaymentRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

type wagePaymentResponse struct {
	ID       uuid.UUID `json:"id"`
	StaffID  uuid.UUID `json:"staff_id"`
	Amount   string    `json:"amount"`
	Note     string    `json:"note,omitempty"`
	PaidBy   string    `json:"paid_by"`
	PaidDate time.Time `json:"paid_date"`
}

// --- Handlers ---

// List returns the staff roster.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	staff, err := h.store.ListStaff(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]staffResponse, len(staff))
	for i, s := range staff {
		resp[i] = dbStaffToResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff member to the roster.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	var req staffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Login == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, login, and role are required"})
		return
	}

	wage, errMsg := parseAmount(req.DailyWage)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "daily_wage " + errMsg})
		return
	}

	staff, err := h.store.CreateStaff(r.Context(), database.CreateStaffParams{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Login:        req.Login,
		Role:         req.Role,
		DailyWage:    wage,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "login already exists"})
			return
		}
		log.Printf("ERROR: create staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbStaffToResponse(staff))
}

// Update modifies a staff member.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	staffID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff id"})
		return
	}

	var req staffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and role are required"})
		return
	}

	wage, errMsg := parseAmount(req.DailyWage)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "daily_wage " + errMsg})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	staff, err := h.store.UpdateStaff(r.Context(), database.UpdateStaffParams{
		ID:           staffID,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Role:         req.Role,
		DailyWage:    wage,
		IsActive:     active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff member not found"})
			return
		}
		log.Printf("ERROR: update staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbStaffToResponse(staff))
}

// Delete removes a staff member from the roster.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	staffID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff id"})
		return
	}

	if err := h.store.DeleteStaff(r.Context(), database.DeleteStaffParams{ID: staffID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff member not found"})
			return
		}
		log.Printf("ERROR: delete staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListWages returns the wage payment history of one staff member.
func (h *StaffHandler) ListWages(w http.ResponseWriter, r *http.Request) {
	staffID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff id"})
		return
	}

	payments, err := h.store.ListWagePaymentsByStaff(r.Context(), staffID)
	if err != nil {
		log.Printf("ERROR: list wage payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]wagePaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dbWagePaymentToResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PayWage records a wage payment, attributed to the logged-in user.
func (h *StaffHandler) PayWage(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	staffID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff id"})
		return
	}

	var req wagePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amount, errMsg := parseAmount(req.Amount)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount " + errMsg})
		return
	}

	note := pgtype.Text{}
	if req.Note != "" {
		note = pgtype.Text{String: req.Note, Valid: true}
	}

	payment, err := h.store.CreateWagePayment(r.Context(), database.CreateWagePaymentParams{
		StaffID: staffID,
		Amount:  amount,
		Note:    note,
		PaidBy:  claims.FullName,
	})
	if err != nil {
		log.Printf("ERROR: create wage payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbWagePaymentToResponse(payment))
}

// --- Helpers ---

// parseAmount validates a positive decimal string and converts it for
// storage. The message comes back without a field name so callers can
// prefix their own.
func parseAmount(raw string) (pgtype.Numeric, string) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return pgtype.Numeric{}, "must be a positive decimal string"
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, "must be a positive decimal string"
	}
	return n, ""
}

func dbStaffToResponse(s database.Staff) staffResponse {
	return staffResponse{
		ID:        s.ID,
		Name:      s.Name,
		Login:     s.Login,
		Role:      s.Role,
		DailyWage: numericToString(s.DailyWage),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

func dbWagePaymentToResponse(p database.WagePayment) wagePaymentResponse {
	return wagePaymentResponse{
		ID:       p.ID,
		StaffID:  p.StaffID,
		Amount:   numericToString(p.Amount),
		Note:     p.Note.String,
		PaidBy:   p.PaidBy,
		PaidDate: p.PaidDate,
	}
}
