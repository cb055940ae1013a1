package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/piso3/piso/internal/metrics"
	"github.com/piso3/piso/internal/store"
)

// AdminHandler handles administrative rotation overrides.
type AdminHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type unlockRequest struct {
	SupplyID int64 `json:"supply_id"`
	Advance  bool  `json:"advance"`
}

type blockRequest struct {
	SupplyID int64 `json:"supply_id"`
}

// Unlock handles POST /api/admin/unlock.
func (h *AdminHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req unlockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SupplyID == 0 {
		jsonError(w, http.StatusBadRequest, "supply_id is required")
		return
	}

	now := h.Now()
	supply, err := store.ForceAdvance(r.Context(), h.DB, req.SupplyID, req.Advance, now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.TurnForced()

	slog.Info("turn unlocked",
		"user", claims.Username,
		"supply", supply.Name,
		"advanced", req.Advance,
		"holder", supply.HolderName,
	)
	jsonResponse(w, http.StatusOK, map[string]any{"supply": NewSupplyView(*supply, now)})
}

// Block handles POST /api/admin/block.
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SupplyID == 0 {
		jsonError(w, http.StatusBadRequest, "supply_id is required")
		return
	}

	now := h.Now()
	supply, err := store.BlockSupply(r.Context(), h.DB, req.SupplyID, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("turn blocked", "user", claims.Username, "supply", supply.Name, "holder", supply.HolderName)
	jsonResponse(w, http.StatusOK, map[string]any{"supply": NewSupplyView(*supply, now)})
}
