package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piso3/piso/internal/model"
)

const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
)

var now = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func water() model.Supply {
	return model.Supply{
		ID:              7,
		Name:            "Water",
		Category:        model.CategoryWaterBottle,
		DurationDays:    7,
		Roster:          []int64{alice, bob, carol},
		CurrentHolderID: alice,
		LastRestock:     daysAgo(6),
	}
}

func TestStatusAt(t *testing.T) {
	tests := []struct {
		name      string
		restocked *time.Time
		duration  int
		wantDays  int
		wantState State
	}{
		{"never restocked", nil, 7, 7, StateOK},
		{"fresh", daysAgo(0), 7, 7, StateOK},
		{"three left", daysAgo(4), 7, 3, StateOK},
		{"two left", daysAgo(5), 7, 2, StateWarning},
		{"due today", daysAgo(7), 7, 0, StateWarning},
		{"one day late", daysAgo(8), 7, -1, StateOverdue},
		{"short duration never restocked", nil, 1, 1, StateWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := water()
			s.LastRestock = tt.restocked
			s.DurationDays = tt.duration

			st := StatusAt(s, now)
			assert.Equal(t, tt.wantDays, st.DaysRemaining)
			assert.Equal(t, tt.wantState, st.State)
			if tt.restocked == nil {
				assert.Nil(t, st.ExpiresAt)
			} else {
				require.NotNil(t, st.ExpiresAt)
				assert.Equal(t, tt.restocked.Add(time.Duration(tt.duration)*24*time.Hour), *st.ExpiresAt)
			}
		})
	}
}

func TestStatusDaysRemainingFormula(t *testing.T) {
	for elapsed := 0; elapsed < 20; elapsed++ {
		for _, duration := range []int{1, 7, 14} {
			s := water()
			s.DurationDays = duration
			s.LastRestock = daysAgo(elapsed)
			assert.Equal(t, duration-DaysSince(*s.LastRestock, now), StatusAt(s, now).DaysRemaining)
		}
	}
}

func TestDaysSinceTruncates(t *testing.T) {
	from := now.Add(-47 * time.Hour)
	assert.Equal(t, 1, DaysSince(from, now))
	assert.Equal(t, 0, DaysSince(now.Add(-23*time.Hour), now))
	assert.Equal(t, 0, DaysSince(now.Add(23*time.Hour), now))
}

func TestCompleteAdvancesRoster(t *testing.T) {
	s := water()

	updated, purchase, err := Complete(s, alice, now)
	require.NoError(t, err)

	assert.Equal(t, bob, updated.CurrentHolderID)
	assert.False(t, updated.Blocked)
	require.NotNil(t, updated.LastRestock)
	assert.Equal(t, now, *updated.LastRestock)

	assert.Equal(t, s.ID, purchase.SupplyID)
	assert.Equal(t, alice, purchase.PurchaserID)
	assert.Equal(t, now, purchase.PurchasedAt)
	require.NotNil(t, purchase.ObservedDays)
	assert.Equal(t, 6, *purchase.ObservedDays)

	// The input value is left untouched.
	assert.Equal(t, alice, s.CurrentHolderID)
}

func TestCompleteWrapsAround(t *testing.T) {
	s := water()
	s.CurrentHolderID = carol

	updated, _, err := Complete(s, carol, now)
	require.NoError(t, err)
	assert.Equal(t, alice, updated.CurrentHolderID)
}

func TestCompleteFirstPurchaseHasNoObservedDuration(t *testing.T) {
	s := water()
	s.LastRestock = nil

	_, purchase, err := Complete(s, alice, now)
	require.NoError(t, err)
	assert.Nil(t, purchase.ObservedDays)
}

func TestCompleteRejectsWrongActor(t *testing.T) {
	_, _, err := Complete(water(), bob, now)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
}

func TestCompleteRejectsBlockedTurn(t *testing.T) {
	s := Block(water(), now)

	_, _, err := Complete(s, alice, now)
	assert.ErrorIs(t, err, ErrTurnLocked)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestCompleteChecksActorBeforeBlock(t *testing.T) {
	s := Block(water(), now)

	_, _, err := Complete(s, bob, now)
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestCompleteRejectsHolderOutsideRoster(t *testing.T) {
	s := water()
	s.CurrentHolderID = 42

	_, _, err := Complete(s, 42, now)
	require.Error(t, err)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestForceAdvance(t *testing.T) {
	s := Block(water(), now)

	updated, err := ForceAdvance(s, true, now)
	require.NoError(t, err)
	assert.Equal(t, bob, updated.CurrentHolderID)
	assert.False(t, updated.Blocked)
	assert.Equal(t, now, *updated.LastRestock)
}

func TestForceAdvanceUnlockOnly(t *testing.T) {
	s := Block(water(), now)
	restocked := *s.LastRestock

	updated, err := ForceAdvance(s, false, now)
	require.NoError(t, err)
	assert.Equal(t, alice, updated.CurrentHolderID)
	assert.False(t, updated.Blocked)
	assert.Equal(t, restocked, *updated.LastRestock)
}

func TestForceAdvanceWrapsAround(t *testing.T) {
	s := water()
	s.CurrentHolderID = carol

	updated, err := ForceAdvance(s, true, now)
	require.NoError(t, err)
	assert.Equal(t, alice, updated.CurrentHolderID)
}

func TestNext(t *testing.T) {
	roster := []int64{alice, bob, carol}
	for holder, want := range map[int64]int64{alice: bob, bob: carol, carol: alice} {
		got, err := Next(roster, holder)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	single, err := Next([]int64{alice}, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, single)

	_, err = Next(nil, alice)
	assert.Error(t, err)
}
