package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// DishesHandler handles the dish-duty log.
type DishesHandler struct {
	DB       *sql.DB
	Location *time.Location
	Now      func() time.Time
}

type createDishRequest struct {
	RoommateID int64  `json:"roommate_id"`
	Date       string `json:"date"`
	Action     string `json:"action"`
	Note       string `json:"note"`
}

// List handles GET /api/dishes?week=YYYY-WW or ?date=YYYY-MM-DD.
func (h *DishesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := model.ResolveWeek(q.Get("week"), q.Get("date"), h.Now(), h.Location)
	if err != nil {
		writeError(w, r, err)
		return
	}

	from, to := start.Format(model.DateLayout), end.Format(model.DateLayout)
	records, err := store.ListDishRecords(r.Context(), h.DB, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.DishRecord{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"records":    records,
		"week_start": from,
		"week_end":   to,
	})
}

// Create handles POST /api/dishes. The actor defaults to the caller and the
// date to today.
func (h *DishesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createDishRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		jsonError(w, http.StatusBadRequest, "action is required")
		return
	}
	if req.RoommateID == 0 {
		req.RoommateID = claims.UserID
	}
	if req.Date == "" {
		req.Date = h.Now().In(h.Location).Format(model.DateLayout)
	}

	record, err := store.CreateDishRecord(r.Context(), h.DB, model.DishRecord{
		RoommateID: req.RoommateID,
		Date:       req.Date,
		Action:     req.Action,
		Note:       req.Note,
		CreatedBy:  claims.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("dish record created", "user", claims.Username, "roommate", record.RoommateName, "date", record.Date, "action", record.Action)
	jsonResponse(w, http.StatusCreated, record)
}

// Delete handles DELETE /api/dishes?id=X. Only the roommate who did the
// dishes, whoever logged it, or an admin may delete a record.
func (h *DishesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := DeleteDishRecord(r, h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("dish record deleted", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "record deleted"})
}

// DeleteDishRecord deletes a dish record on behalf of the session in r's
// context, enforcing who may delete it.
func DeleteDishRecord(r *http.Request, db *sql.DB, id int64) error {
	claims := GetClaims(r.Context())

	record, err := store.GetDishRecord(r.Context(), db, id)
	if err != nil {
		return err
	}
	if record == nil {
		return model.NotFound("dish record %d not found", id)
	}
	if !claims.IsAdmin && record.RoommateID != claims.UserID && record.CreatedBy != claims.UserID {
		return model.Forbidden("you may only delete your own records")
	}
	return store.DeleteDishRecord(r.Context(), db, id)
}
