package web

import (
	"log/slog"
	"net/http"

	"github.com/piso3/piso/internal/api"
	"github.com/piso3/piso/internal/auth"
	"github.com/piso3/piso/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{Title: "Log in"})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Error: "Enter your username and password.",
		})
		return
	}

	roommate, err := api.CheckCredentials(r, s.DB, username, password)
	if err != nil {
		slog.Error("failed to check credentials", "error", err)
	}
	if roommate == nil {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Error: "Wrong username or password.",
		})
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, s.SessionTTL, roommate.ID, roommate.Username, roommate.IsAdmin)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Error: "Could not log you in.",
		})
		return
	}
	api.SetSessionCookie(w, r, token, s.SessionTTL)

	slog.Info("user logged in", "user", roommate.Username, "admin", roommate.IsAdmin)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. A still valid session is revoked so the
// token cannot be replayed.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(api.SessionCookie); err == nil && cookie.Value != "" {
		if claims, err := api.Authenticate(r.Context(), s.DB, s.JWTSecret, cookie.Value); err == nil {
			if err := store.RevokeSession(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
				slog.Error("failed to revoke session", "error", err)
			} else {
				slog.Info("user logged out", "user", claims.Username)
			}
		}
	}
	api.ClearSessionCookie(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
