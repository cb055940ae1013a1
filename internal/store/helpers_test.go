package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/piso3/piso/internal/model"
)

var testNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func mustRoommate(t *testing.T, database *sql.DB, username string) *model.Roommate {
	t.Helper()
	r, err := CreateRoommate(context.Background(), database, model.Roommate{
		Name:             username,
		Email:            username + "@example.com",
		Username:         username,
		PasswordHash:     "hash",
		NotificationDays: model.DefaultNotificationDays,
	})
	if err != nil {
		t.Fatalf("CreateRoommate(%s): %v", username, err)
	}
	return r
}

// mustWater creates a 7-day supply rotating through roster, held by roster[0].
func mustWater(t *testing.T, database *sql.DB, lastRestock *time.Time, roster ...*model.Roommate) *model.Supply {
	t.Helper()
	ids := make([]int64, len(roster))
	for i, r := range roster {
		ids[i] = r.ID
	}
	s, err := CreateSupply(context.Background(), database, model.Supply{
		Name:            "Water",
		Category:        model.CategoryWaterBottle,
		DurationDays:    7,
		Roster:          ids,
		CurrentHolderID: ids[0],
		LastRestock:     lastRestock,
	})
	if err != nil {
		t.Fatalf("CreateSupply: %v", err)
	}
	return s
}

func daysBefore(n int) *time.Time {
	t := testNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}
