package web

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/piso3/piso/internal/api"
	"github.com/piso3/piso/internal/auth"
	"github.com/piso3/piso/internal/model"
)

// CookieAuthMiddleware validates the session cookie, checks revocation, and
// adds claims to the context. Anything else is sent to the login page and an
// unusable cookie is cleared.
func CookieAuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(api.SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			claims, err := api.Authenticate(r.Context(), db, secret, cookie.Value)
			if err != nil {
				api.ClearSessionCookie(w, r)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(api.WithClaims(r.Context(), claims)))
		})
	}
}

// requireAdmin rejects page requests from non-admin sessions.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims := GetWebClaims(r); claims == nil || !claims.IsAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// GetWebClaims retrieves the session claims of a page request.
func GetWebClaims(r *http.Request) *auth.Claims {
	return api.GetClaims(r.Context())
}

// pageData fills the base page data, picking up flash messages carried in
// the query string by redirectWith.
func pageData(r *http.Request, title string) PageData {
	q := r.URL.Query()
	return PageData{
		Title:   title,
		User:    GetWebClaims(r),
		Error:   q.Get("error"),
		Success: q.Get("ok"),
	}
}

// redirectWith redirects to path carrying a flash message under key.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set(key, msg)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// fail redirects to path with a flash error. Client-visible errors are shown
// as is; anything else is logged and replaced by a generic message.
func fail(w http.ResponseWriter, r *http.Request, path string, err error) {
	msg := err.Error()
	var me *model.Error
	if !errors.As(err, &me) {
		slog.Error("page request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "Something went wrong, please try again."
	}
	redirectWith(w, r, path, "error", msg)
}
