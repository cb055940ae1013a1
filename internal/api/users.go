package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// UsersHandler handles roommate listing and preferences.
type UsersHandler struct {
	DB *sql.DB
}

type notificationDaysRequest struct {
	UserID           int64 `json:"user_id"`
	NotificationDays *int  `json:"notification_days"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	roommates, err := store.ListRoommates(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if roommates == nil {
		roommates = []model.Roommate{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"users": roommates})
}

// UpdateNotificationDays handles PATCH /api/users/notification-days.
// Roommates may change their own lead time; admins may change anyone's.
func (h *UsersHandler) UpdateNotificationDays(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req notificationDaysRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NotificationDays == nil {
		jsonError(w, http.StatusBadRequest, "notification_days is required")
		return
	}
	if req.UserID == 0 {
		req.UserID = claims.UserID
	}

	if err := model.ValidateNotificationDays(*req.NotificationDays); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID != claims.UserID && !claims.IsAdmin {
		jsonError(w, http.StatusForbidden, "you may only change your own notification days")
		return
	}

	if err := store.UpdateNotificationDays(r.Context(), h.DB, req.UserID, *req.NotificationDays); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("notification days updated", "user", claims.Username, "target", req.UserID, "days", *req.NotificationDays)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification days updated"})
}
