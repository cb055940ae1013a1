package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/piso3/piso/internal/imaging"
	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/rotation"
	"github.com/piso3/piso/internal/store"
)

// SuppliesHandler handles the supply ledger and turn completion.
type SuppliesHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// SupplyView is a supply with its derived status at request time.
type SupplyView struct {
	model.Supply
	rotation.Status
}

// NewSupplyView computes the status of s at now.
func NewSupplyView(s model.Supply, now time.Time) SupplyView {
	return SupplyView{Supply: s, Status: rotation.StatusAt(s, now)}
}

type completeRequest struct {
	SupplyID int64  `json:"supply_id"`
	Note     string `json:"note"`
}

type durationRequest struct {
	SupplyID     int64 `json:"supply_id"`
	DurationDays int   `json:"duration_days"`
}

// List handles GET /api/supplies.
func (h *SuppliesHandler) List(w http.ResponseWriter, r *http.Request) {
	supplies, err := store.ListSupplies(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := h.Now()
	views := make([]SupplyView, 0, len(supplies))
	for _, s := range supplies {
		views = append(views, NewSupplyView(s, now))
	}
	jsonResponse(w, http.StatusOK, map[string]any{"supplies": views})
}

// Complete handles POST /api/supplies/complete.
func (h *SuppliesHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SupplyID == 0 {
		jsonError(w, http.StatusBadRequest, "supply_id is required")
		return
	}

	now := h.Now()
	supply, purchase, err := store.CompleteTurn(r.Context(), h.DB, req.SupplyID, claims.UserID, req.Note, now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.TurnCompleted()

	slog.Info("turn completed",
		"user", claims.Username,
		"supply", supply.Name,
		"next_holder", supply.HolderName,
	)
	jsonResponse(w, http.StatusOK, map[string]any{
		"supply":   NewSupplyView(*supply, now),
		"purchase": purchase,
	})
}

// UpdateDuration handles PATCH /api/supplies/duration.
func (h *SuppliesHandler) UpdateDuration(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req durationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SupplyID == 0 {
		jsonError(w, http.StatusBadRequest, "supply_id is required")
		return
	}

	if err := store.UpdateDuration(r.Context(), h.DB, req.SupplyID, req.DurationDays, h.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("supply duration updated", "user", claims.Username, "supply", req.SupplyID, "days", req.DurationDays)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "duration updated"})
}

// History handles GET /api/supplies/{id}/history.
func (h *SuppliesHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	supply, err := store.GetSupply(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if supply == nil {
		jsonError(w, http.StatusNotFound, "supply not found")
		return
	}

	purchases, err := store.ListPurchases(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notifications, err := store.ListNotifications(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"supply":        NewSupplyView(*supply, h.Now()),
		"purchases":     purchases,
		"notifications": notifications,
	})
}

// UploadImage handles PUT /api/supplies/{id}/image.
func (h *SuppliesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.SupplyPhoto(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetSupplyPhoto(r.Context(), h.DB, id, photo, h.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("supply photo uploaded", "user", GetClaims(r.Context()).Username, "supply", id, "bytes", len(photo))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/supplies/{id}/image.
func (h *SuppliesHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	data, err := store.GetSupplyPhoto(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
