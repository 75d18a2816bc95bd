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
	qrcode "github.com/skip2/go-qrcode"
)

// SettingsStore defines the database methods needed by settings handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingsStore interface {
	GetRestaurantSettings(ctx context.Context, restaurantID uuid.UUID) (database.RestaurantSettings, error)
	UpsertRestaurantSettings(ctx context.Context, arg database.UpsertRestaurantSettingsParams) (database.RestaurantSettings, error)
}

// SettingsHandler handles the restaurant profile and the owner payment QR.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers settings endpoints on the restaurant subrouter.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Get("/settings/owner-qr.png", h.OwnerQR)
}

// RegisterAdminRoutes registers endpoints restricted to admins.
func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/settings", h.Update)
}

// --- Request / Response types ---

type settingsRequest struct {
	RestaurantName  string `json:"restaurant_name"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	OwnerCardNumber string `json:"owner_card_number"`
	OwnerQRPayload  string `json:"owner_qr_payload"`
}

type settingsResponse struct {
	RestaurantName  string    `json:"restaurant_name,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address,omitempty"`
	OwnerCardNumber string    `json:"owner_card_number,omitempty"`
	OwnerQRPayload  string    `json:"owner_qr_payload,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// --- Handlers ---

// Get returns the restaurant profile. A restaurant that never saved its
// settings gets an empty profile, not a 404.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	settings, err := h.store.GetRestaurantSettings(r.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, settingsResponse{})
			return
		}
		log.Printf("ERROR: get settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbSettingsToResponse(settings))
}

// Update upserts the restaurant profile.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	settings, err := h.store.UpsertRestaurantSettings(r.Context(), database.UpsertRestaurantSettingsParams{
		RestaurantID:    restaurantID,
		RestaurantName:  optionalText(req.RestaurantName),
		Phone:           optionalText(req.Phone),
		Address:         optionalText(req.Address),
		OwnerCardNumber: optionalText(req.OwnerCardNumber),
		OwnerQRPayload:  optionalText(req.OwnerQRPayload),
	})
	if err != nil {
		log.Printf("ERROR: upsert settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbSettingsToResponse(settings))
}

// OwnerQR renders the owner's payment payload as a PNG so the till can show
// it to customers paying by QR.
func (h *SettingsHandler) OwnerQR(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	settings, err := h.store.GetRestaurantSettings(r.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "owner QR not configured"})
			return
		}
		log.Printf("ERROR: get settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if !settings.OwnerQRPayload.Valid || settings.OwnerQRPayload.String == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "owner QR not configured"})
		return
	}

	png, err := qrcode.Encode(settings.OwnerQRPayload.String, qrcode.Medium, 256)
	if err != nil {
		log.Printf("ERROR: encode owner QR: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Printf("ERROR: write owner QR: %v", err)
	}
}

// --- Helpers ---

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func dbSettingsToResponse(s database.RestaurantSettings) settingsResponse {
	return settingsResponse{
		RestaurantName:  s.RestaurantName.String,
		Phone:           s.Phone.String,
		Address:         s.Address.String,
		OwnerCardNumber: s.OwnerCardNumber.String,
		OwnerQRPayload:  s.OwnerQRPayload.String,
		UpdatedAt:       s.UpdatedAt,
	}
}
