package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/piso3/piso/internal/api"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// DishDay is one column of the weekly dish log.
type DishDay struct {
	Date    time.Time
	Today   bool
	Records []model.DishRecord
}

// DishTally counts how often a roommate washed and dried in a week. A
// record with both actions counts toward both.
type DishTally struct {
	Name   string
	Washed int
	Dried  int
}

// BuildWeek groups records by day of the week starting at start and tallies
// them per roommate, in roommate order.
func BuildWeek(start, today time.Time, records []model.DishRecord, roommates []model.Roommate) ([]DishDay, []DishTally) {
	days := make([]DishDay, 7)
	byDate := make(map[string]int, 7)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i] = DishDay{Date: d, Today: d.Format(model.DateLayout) == today.Format(model.DateLayout)}
		byDate[d.Format(model.DateLayout)] = i
	}

	counts := make(map[int64]*DishTally, len(roommates))
	tallies := make([]DishTally, len(roommates))
	for i, rm := range roommates {
		tallies[i] = DishTally{Name: rm.Name}
		counts[rm.ID] = &tallies[i]
	}

	for _, rec := range records {
		if i, ok := byDate[rec.Date]; ok {
			days[i].Records = append(days[i].Records, rec)
		}
		t, ok := counts[rec.RoommateID]
		if !ok {
			continue
		}
		if rec.Action == model.DishActionWash || rec.Action == model.DishActionBoth {
			t.Washed++
		}
		if rec.Action == model.DishActionDry || rec.Action == model.DishActionBoth {
			t.Dried++
		}
	}
	return days, tallies
}

// DishesPage handles GET /dishes?date=YYYY-MM-DD or ?week=YYYY-WW.
func (s *Server) DishesPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := s.Now().In(s.Location)

	start, end, err := model.ResolveWeek(q.Get("week"), q.Get("date"), now, s.Location)
	if err != nil {
		redirectWith(w, r, "/dishes", "error", err.Error())
		return
	}

	records, err := store.ListDishRecords(r.Context(), s.DB, start.Format(model.DateLayout), end.Format(model.DateLayout))
	if err != nil {
		slog.Error("failed to list dish records", "error", err)
	}
	roommates, err := store.ListRoommates(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list roommates", "error", err)
	}

	days, tallies := BuildWeek(start, now, records, roommates)
	year, week := start.ISOWeek()

	s.Templates.Render(w, "dishes.html", &struct {
		PageData
		WeekStart time.Time
		WeekEnd   time.Time
		WeekLabel string
		PrevDate  string
		NextDate  string
		Today     string
		Days      []DishDay
		Tallies   []DishTally
		Roommates []model.Roommate
	}{
		PageData:  pageData(r, "Dishes"),
		WeekStart: start,
		WeekEnd:   end,
		WeekLabel: fmt.Sprintf("%d-%02d", year, week),
		PrevDate:  start.AddDate(0, 0, -7).Format(model.DateLayout),
		NextDate:  start.AddDate(0, 0, 7).Format(model.DateLayout),
		Today:     now.Format(model.DateLayout),
		Days:      days,
		Tallies:   tallies,
		Roommates: roommates,
	})
}

// DishCreateSubmit handles POST /dishes.
func (s *Server) DishCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r)

	date := r.FormValue("date")
	if date == "" {
		date = s.Now().In(s.Location).Format(model.DateLayout)
	}
	back := dishesPath(date)

	roommateID := claims.UserID
	if v := r.FormValue("roommate_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			redirectWith(w, r, back, "error", "Pick who did the dishes.")
			return
		}
		roommateID = id
	}

	record, err := store.CreateDishRecord(r.Context(), s.DB, model.DishRecord{
		RoommateID: roommateID,
		Date:       date,
		Action:     r.FormValue("action"),
		Note:       r.FormValue("note"),
		CreatedBy:  claims.UserID,
	})
	if err != nil {
		fail(w, r, back, err)
		return
	}

	slog.Info("dish record created", "user", claims.Username, "roommate", record.RoommateName, "date", record.Date, "action", record.Action)
	redirectWith(w, r, back, "ok", "Record added.")
}

// DishDeleteSubmit handles POST /dishes/{id}/delete.
func (s *Server) DishDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	back := dishesPath(r.FormValue("date"))

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if err := api.DeleteDishRecord(r, s.DB, id); err != nil {
		fail(w, r, back, err)
		return
	}

	slog.Info("dish record deleted", "user", GetWebClaims(r).Username, "id", id)
	redirectWith(w, r, back, "ok", "Record deleted.")
}

// dishesPath returns the dish log URL for the day in date, if any.
func dishesPath(date string) string {
	if date == "" {
		return "/dishes"
	}
	return "/dishes?" + url.Values{"date": {date}}.Encode()
}
