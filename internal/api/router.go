package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/reminder"
)

// Options carries the dependencies of the API router.
type Options struct {
	DB         *sql.DB
	JWTSecret  string
	SessionTTL time.Duration
	CronSecret string
	Location   *time.Location
	Sweeper    *reminder.Sweeper
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret, SessionTTL: opts.SessionTTL, Now: opts.Now}
	suppliesHandler := &SuppliesHandler{DB: opts.DB, Metrics: opts.Metrics, Now: opts.Now}
	adminHandler := &AdminHandler{DB: opts.DB, Metrics: opts.Metrics, Now: opts.Now}
	dishesHandler := &DishesHandler{DB: opts.DB, Location: opts.Location, Now: opts.Now}
	usersHandler := &UsersHandler{DB: opts.DB}
	cronHandler := &CronHandler{Sweeper: opts.Sweeper, Now: opts.Now}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	admin := func(h http.HandlerFunc) http.Handler { return authMW(RequireAdmin(h)) }
	session := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", session(authHandler.Logout))
	mux.Handle("GET /api/auth/session", session(authHandler.Session))
	mux.Handle("PUT /api/auth/password", session(authHandler.ChangePassword))

	// Supplies.
	mux.Handle("GET /api/supplies", session(suppliesHandler.List))
	mux.Handle("POST /api/supplies/complete", session(suppliesHandler.Complete))
	mux.Handle("PATCH /api/supplies/duration", session(suppliesHandler.UpdateDuration))
	mux.Handle("GET /api/supplies/{id}/history", session(suppliesHandler.History))
	mux.Handle("PUT /api/supplies/{id}/image", session(suppliesHandler.UploadImage))
	mux.Handle("GET /api/supplies/{id}/image", session(suppliesHandler.GetImage))

	// Rotation overrides (admin only).
	mux.Handle("POST /api/admin/unlock", admin(adminHandler.Unlock))
	mux.Handle("POST /api/admin/block", admin(adminHandler.Block))

	// Dish log.
	mux.Handle("GET /api/dishes", session(dishesHandler.List))
	mux.Handle("POST /api/dishes", session(dishesHandler.Create))
	mux.Handle("DELETE /api/dishes", session(dishesHandler.Delete))

	// Roommates.
	mux.Handle("GET /api/users", session(usersHandler.List))
	mux.Handle("PATCH /api/users/notification-days", session(usersHandler.UpdateNotificationDays))

	// Reminder sweep, triggered by an external scheduler.
	if opts.Sweeper != nil {
		mux.Handle("GET /api/cron/notifications", RequireBearerSecret(opts.CronSecret, http.HandlerFunc(cronHandler.Notifications)))
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "not found")
	})

	return mux
}
