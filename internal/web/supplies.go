package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/piso3/piso/internal/api"
	"github.com/piso3/piso/internal/imaging"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	supplies, err := store.ListSupplies(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list supplies for dashboard", "error", err)
	}

	now := s.Now()
	views := make([]api.SupplyView, 0, len(supplies))
	for _, supply := range supplies {
		views = append(views, api.NewSupplyView(supply, now))
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Supplies []api.SupplyView
	}{
		PageData: pageData(r, "Supplies"),
		Supplies: views,
	})
}

// CompleteSubmit handles POST /supplies/{id}/complete.
func (s *Server) CompleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	supply, _, err := store.CompleteTurn(r.Context(), s.DB, id, claims.UserID, r.FormValue("note"), s.Now())
	if err != nil {
		fail(w, r, "/", err)
		return
	}
	s.Metrics.TurnCompleted()

	slog.Info("turn completed", "user", claims.Username, "supply", supply.Name, "next_holder", supply.HolderName)
	redirectWith(w, r, "/", "ok", fmt.Sprintf("Thanks! %s is up next for %s.", supply.HolderName, supply.Name))
}

// UnlockSubmit handles POST /supplies/{id}/unlock (admin only).
func (s *Server) UnlockSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	advance := r.FormValue("advance") == "true"

	supply, err := store.ForceAdvance(r.Context(), s.DB, id, advance, s.Now())
	if err != nil {
		fail(w, r, "/", err)
		return
	}
	s.Metrics.TurnForced()

	slog.Info("turn unlocked", "user", claims.Username, "supply", supply.Name, "advance", advance, "holder", supply.HolderName)
	redirectWith(w, r, "/", "ok", fmt.Sprintf("%s unlocked, %s holds the turn.", supply.Name, supply.HolderName))
}

// BlockSubmit handles POST /supplies/{id}/block (admin only).
func (s *Server) BlockSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	supply, err := store.BlockSupply(r.Context(), s.DB, id, s.Now())
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("turn blocked", "user", claims.Username, "supply", supply.Name)
	redirectWith(w, r, "/", "ok", fmt.Sprintf("%s locked until the turn is completed or unlocked.", supply.Name))
}

// SupplyPage handles GET /supplies/{id}.
func (s *Server) SupplyPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	supply, err := store.GetSupply(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get supply", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if supply == nil {
		http.NotFound(w, r)
		return
	}

	purchases, err := store.ListPurchases(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to list purchases", "supply", id, "error", err)
	}
	notifications, err := store.ListNotifications(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to list notifications", "supply", id, "error", err)
	}

	s.Templates.Render(w, "supply.html", &struct {
		PageData
		Supply        api.SupplyView
		Purchases     []model.Purchase
		Notifications []model.Notification
	}{
		PageData:      pageData(r, supply.Name),
		Supply:        api.NewSupplyView(*supply, s.Now()),
		Purchases:     purchases,
		Notifications: notifications,
	})
}

// SupplyImageSubmit handles POST /supplies/{id}/image.
func (s *Server) SupplyImageSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	back := fmt.Sprintf("/supplies/%d", id)

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		redirectWith(w, r, back, "error", "The photo is too large.")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		redirectWith(w, r, back, "error", "Choose a photo to upload.")
		return
	}
	defer file.Close()

	photo, err := imaging.SupplyPhoto(file)
	if err != nil {
		fail(w, r, back, err)
		return
	}
	if err := store.SetSupplyPhoto(r.Context(), s.DB, id, photo, s.Now()); err != nil {
		fail(w, r, back, err)
		return
	}

	slog.Info("supply photo uploaded", "user", GetWebClaims(r).Username, "supply", id, "bytes", len(photo))
	redirectWith(w, r, back, "ok", "Photo updated.")
}

// SupplyImageGet handles GET /supplies/{id}/image.
func (s *Server) SupplyImageGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, err := store.GetSupplyPhoto(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get supply photo", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
