package web

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/piso3/piso/internal/metrics"
	webembed "github.com/piso3/piso/web"
)

// Options carries the dependencies of the page router.
type Options struct {
	DB         *sql.DB
	JWTSecret  string
	SessionTTL time.Duration
	Location   *time.Location
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	templates, err := LoadTemplates(opts.Location)
	if err != nil {
		return nil, err
	}

	static, err := webembed.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("opening static assets: %w", err)
	}

	s := &Server{
		DB:         opts.DB,
		Templates:  templates,
		JWTSecret:  opts.JWTSecret,
		SessionTTL: opts.SessionTTL,
		Location:   opts.Location,
		Metrics:    opts.Metrics,
		Now:        opts.Now,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(opts.JWTSecret, opts.DB)
	page := func(h http.HandlerFunc) http.Handler { return cookieAuth(h) }

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", page(s.Dashboard))

	mux.Handle("GET /supplies/{id}", page(s.SupplyPage))
	mux.Handle("POST /supplies/{id}/complete", page(s.CompleteSubmit))
	mux.Handle("POST /supplies/{id}/unlock", page(requireAdmin(s.UnlockSubmit)))
	mux.Handle("POST /supplies/{id}/block", page(requireAdmin(s.BlockSubmit)))
	mux.Handle("POST /supplies/{id}/image", page(s.SupplyImageSubmit))
	mux.Handle("GET /supplies/{id}/image", page(s.SupplyImageGet))

	mux.Handle("GET /dishes", page(s.DishesPage))
	mux.Handle("POST /dishes", page(s.DishCreateSubmit))
	mux.Handle("POST /dishes/{id}/delete", page(s.DishDeleteSubmit))

	mux.Handle("GET /settings", page(s.SettingsPage))
	mux.Handle("POST /settings/duration", page(s.DurationSubmit))
	mux.Handle("POST /settings/notifications", page(s.NotificationDaysSubmit))
	mux.Handle("POST /settings/password", page(s.PasswordSubmit))

	return mux, nil
}
