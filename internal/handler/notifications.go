package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/k-cafe/api/internal/database"
)

// NotificationStore defines the database methods needed by notification
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type NotificationStore interface {
	ListAdminNotifications(ctx context.Context, arg database.ListAdminNotificationsParams) ([]database.AdminNotification, error)
}

// NotificationHandler handles the admin notification feed.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// RegisterRoutes registers notification endpoints. The router restricts
// them to admins.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
}

type notificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// List returns admin notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	notifications, err := h.store.ListAdminNotifications(r.Context(), database.ListAdminNotificationsParams{
		RestaurantID: pgtype.UUID{Bytes: restaurantID, Valid: true},
		Limit:        parseLimit(r),
		Offset:       parseOffset(r),
	})
	if err != nil {
		log.Printf("ERROR: list notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = notificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Payload:   json.RawMessage(n.Payload),
			CreatedAt: n.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
