package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)

	supplies, err := store.ListSupplies(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list supplies for settings", "error", err)
	}
	roommates, err := store.ListRoommates(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list roommates for settings", "error", err)
	}

	// Admins manage everyone's reminders, others only their own.
	if !claims.IsAdmin {
		own := roommates[:0]
		for _, rm := range roommates {
			if rm.ID == claims.UserID {
				own = append(own, rm)
			}
		}
		roommates = own
	}

	s.Templates.Render(w, "settings.html", &struct {
		PageData
		Supplies       []model.Supply
		Roommates      []model.Roommate
		MinDuration    int
		MaxDuration    int
		MaxLeadDays    int
		MinPasswordLen int
	}{
		PageData:       pageData(r, "Settings"),
		Supplies:       supplies,
		Roommates:      roommates,
		MinDuration:    model.MinDurationDays,
		MaxDuration:    model.MaxDurationDays,
		MaxLeadDays:    model.MaxNotificationDays,
		MinPasswordLen: model.MinPasswordLength,
	})
}

// DurationSubmit handles POST /settings/duration.
func (s *Server) DurationSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)

	supplyID, err := strconv.ParseInt(r.FormValue("supply_id"), 10, 64)
	if err != nil {
		redirectWith(w, r, "/settings", "error", "Unknown supply.")
		return
	}
	days, err := strconv.Atoi(r.FormValue("duration_days"))
	if err != nil {
		redirectWith(w, r, "/settings", "error", "Duration must be a number of days.")
		return
	}

	if err := store.UpdateDuration(r.Context(), s.DB, supplyID, days, s.Now()); err != nil {
		fail(w, r, "/settings", err)
		return
	}

	slog.Info("supply duration updated", "user", claims.Username, "supply", supplyID, "days", days)
	redirectWith(w, r, "/settings", "ok", "Duration saved.")
}

// NotificationDaysSubmit handles POST /settings/notifications.
func (s *Server) NotificationDaysSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)

	userID := claims.UserID
	if v := r.FormValue("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			redirectWith(w, r, "/settings", "error", "Unknown roommate.")
			return
		}
		userID = id
	}
	days, err := strconv.Atoi(r.FormValue("notification_days"))
	if err != nil {
		redirectWith(w, r, "/settings", "error", "Reminder lead time must be a number of days.")
		return
	}

	if err := model.ValidateNotificationDays(days); err != nil {
		fail(w, r, "/settings", err)
		return
	}
	if userID != claims.UserID && !claims.IsAdmin {
		fail(w, r, "/settings", model.Forbidden("you may only change your own notification days"))
		return
	}

	if err := store.UpdateNotificationDays(r.Context(), s.DB, userID, days); err != nil {
		fail(w, r, "/settings", err)
		return
	}

	slog.Info("notification days updated", "user", claims.Username, "target", userID, "days", days)
	redirectWith(w, r, "/settings", "ok", "Reminder settings saved.")
}

// PasswordSubmit handles POST /settings/password (change own password).
func (s *Server) PasswordSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if currentPassword == "" || newPassword == "" {
		redirectWith(w, r, "/settings", "error", "Enter your current and new password.")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		fail(w, r, "/settings", err)
		return
	}

	roommate, err := store.GetRoommate(r.Context(), s.DB, claims.UserID)
	if err != nil || roommate == nil {
		fail(w, r, "/settings", model.NotFound("your account no longer exists"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(roommate.PasswordHash), []byte(currentPassword)); err != nil {
		redirectWith(w, r, "/settings", "error", "Current password is incorrect.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(w, r, "/settings", err)
		return
	}
	if err := store.UpdatePassword(r.Context(), s.DB, claims.UserID, string(hash)); err != nil {
		fail(w, r, "/settings", err)
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	redirectWith(w, r, "/settings", "ok", "Password changed.")
}
