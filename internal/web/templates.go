package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/piso3/piso/internal/auth"
	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/rotation"
	webembed "github.com/piso3/piso/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map. Times are shown in loc.
func FuncMap(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			return t.In(loc).Format("Mon 2 Jan")
		},
		"datetime": func(t time.Time) string {
			return t.In(loc).Format("2 Jan 2006 15:04")
		},
		"maybeDate": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return t.In(loc).Format("2 Jan 2006")
		},
		"days": func(n *int) string {
			if n == nil {
				return "-"
			}
			if *n == 1 {
				return "1 day"
			}
			return fmt.Sprintf("%d days", *n)
		},
		"stateLabel": func(s rotation.State) string {
			switch s {
			case rotation.StateOK:
				return "OK"
			case rotation.StateWarning:
				return "Running low"
			case rotation.StateOverdue:
				return "Overdue"
			default:
				return string(s)
			}
		},
		"categoryLabel": func(c string) string {
			switch c {
			case model.CategoryWaterBottle:
				return "Water"
			case model.CategoryDishSoap:
				return "Dish soap"
			case model.CategoryCleaning:
				return "Cleaning"
			default:
				return "Other"
			}
		},
		"actionLabel": func(a string) string {
			switch a {
			case model.DishActionWash:
				return "Washed"
			case model.DishActionDry:
				return "Dried"
			case model.DishActionBoth:
				return "Washed and dried"
			default:
				return a
			}
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates(loc *time.Location) (*Templates, error) {
	tfs, err := webembed.TemplatesFS()
	if err != nil {
		return nil, fmt.Errorf("opening templates: %w", err)
	}

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"supply.html",
		"dishes.html",
		"settings.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap(loc))
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB         *sql.DB
	Templates  *Templates
	JWTSecret  string
	SessionTTL time.Duration
	Location   *time.Location
	Metrics    *metrics.Metrics
	Now        func() time.Time
}
