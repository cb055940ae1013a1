package model

import (
	"strconv"
	"strings"
	"time"
)

// DishRecord logs who washed or dried dishes on a given day.
type DishRecord struct {
	ID         int64     `json:"id"`
	RoommateID int64     `json:"roommate_id"`
	Date       string    `json:"date"`
	Action     string    `json:"action"`
	Note       string    `json:"note,omitempty"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined fields (not always populated).
	RoommateName string `json:"roommate_name,omitempty"`
}

// Dish actions.
const (
	DishActionWash = "wash"
	DishActionDry  = "dry"
	DishActionBoth = "both"
)

// DateLayout is the calendar-date format used for dish records and
// notification days.
const DateLayout = "2006-01-02"

// ValidateDishAction checks that action is wash, dry or both.
func ValidateDishAction(action string) error {
	switch action {
	case DishActionWash, DishActionDry, DishActionBoth:
		return nil
	}
	return Validation("action must be one of: wash, dry, both")
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// WeekStart returns midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekRange returns the Monday and Sunday of the week containing t.
// Both ends are inclusive.
func WeekRange(t time.Time) (start, end time.Time) {
	start = WeekStart(t)
	return start, start.AddDate(0, 0, 6)
}

// ParseWeek parses an ISO week in YYYY-WW form and returns its Monday in loc.
func ParseWeek(s string, loc *time.Location) (time.Time, error) {
	yearStr, weekStr, ok := strings.Cut(s, "-")
	if !ok {
		return time.Time{}, Validation("invalid week %q, expected YYYY-WW", s)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, Validation("invalid week %q, expected YYYY-WW", s)
	}
	week, err := strconv.Atoi(weekStr)
	if err != nil || week < 1 || week > 53 {
		return time.Time{}, Validation("invalid week %q, expected YYYY-WW", s)
	}

	// January 4th always falls in ISO week 1.
	start := WeekStart(time.Date(year, time.January, 4, 0, 0, 0, 0, loc)).AddDate(0, 0, (week-1)*7)
	if y, w := start.ISOWeek(); y != year || w != week {
		return time.Time{}, Validation("year %d has no week %d", year, week)
	}
	return start, nil
}

// ResolveWeek picks the Monday-to-Sunday week to show: the ISO week when
// week is set, else the week containing date, else the week containing now.
func ResolveWeek(week, date string, now time.Time, loc *time.Location) (start, end time.Time, err error) {
	switch {
	case week != "":
		start, err = ParseWeek(week, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, start.AddDate(0, 0, 6), nil
	case date != "":
		d, err := ParseDate(date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start, end = WeekRange(d)
		return start, end, nil
	default:
		start, end = WeekRange(now.In(loc))
		return start, end, nil
	}
}
