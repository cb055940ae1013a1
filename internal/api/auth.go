package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/piso3/piso/internal/auth"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB         *sql.DB
	JWTSecret  string
	SessionTTL time.Duration
	Now        func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type loginResponse struct {
	User  sessionUser `json:"user"`
	Token string      `json:"token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SetSessionCookie stores a session token in the http-only session cookie.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// CheckCredentials returns the roommate for a username and password, or nil
// when they do not match.
func CheckCredentials(r *http.Request, db *sql.DB, username, password string) (*model.Roommate, error) {
	roommate, err := store.GetRoommateByUsername(r.Context(), db, username)
	if err != nil {
		return nil, err
	}
	if roommate == nil {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(roommate.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		return nil, nil
	}
	return roommate, nil
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	roommate, err := CheckCredentials(r, h.DB, req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if roommate == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.SessionTTL, roommate.ID, roommate.Username, roommate.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	SetSessionCookie(w, r, token, h.SessionTTL)

	slog.Info("user logged in", "user", roommate.Username, "admin", roommate.IsAdmin)
	jsonResponse(w, http.StatusOK, loginResponse{
		User: sessionUser{
			ID:       roommate.ID,
			Name:     roommate.Name,
			Username: roommate.Username,
			IsAdmin:  roommate.IsAdmin,
		},
		Token: token,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if err := store.RevokeSession(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := store.PurgeRevokedSessions(r.Context(), h.DB, h.Now()); err != nil {
		slog.Warn("purging revoked sessions", "error", err)
	}
	ClearSessionCookie(w, r)

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	jsonResponse(w, http.StatusOK, map[string]any{
		"user_id":    claims.UserID,
		"username":   claims.Username,
		"is_admin":   claims.IsAdmin,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	roommate, err := store.GetRoommate(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if roommate == nil {
		writeError(w, r, model.NotFound("roommate %d not found", claims.UserID))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(roommate.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusForbidden, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdatePassword(r.Context(), h.DB, claims.UserID, string(hash)); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
