// Package rotation implements the purchase-duty state machine of a supply:
// completing a turn, administratively forcing it forward, blocking it, and
// the derived expiry status. All functions are pure; persistence and
// atomicity live in the store.
package rotation

import (
	"time"

	"github.com/piso3/piso/internal/model"
)

// Errors returned by Complete.
var (
	ErrNotYourTurn = model.Forbidden("not your turn")
	ErrTurnLocked  = model.Conflict("turn is locked, predecessor must complete first")
)

// WarningDays is the remaining-days threshold at or below which a supply is
// flagged as running low.
const WarningDays = 2

// State is the coarse expiry status of a supply.
type State string

// Supply states.
const (
	StateOK      State = "ok"
	StateWarning State = "warning"
	StateOverdue State = "overdue"
)

// Status is the derived, side-effect free view of a supply at a point in time.
type Status struct {
	DaysRemaining int        `json:"days_remaining"`
	State         State      `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

const day = 24 * time.Hour

// DaysSince counts whole days elapsed between from and to, truncated toward zero.
func DaysSince(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

// StatusAt computes the supply's remaining days and state at now.
func StatusAt(s model.Supply, now time.Time) Status {
	st := Status{DaysRemaining: s.DurationDays}
	if s.LastRestock != nil {
		st.DaysRemaining = s.DurationDays - DaysSince(*s.LastRestock, now)
		expires := s.LastRestock.Add(time.Duration(s.DurationDays) * day)
		st.ExpiresAt = &expires
	}

	switch {
	case st.DaysRemaining < 0:
		st.State = StateOverdue
	case st.DaysRemaining <= WarningDays:
		st.State = StateWarning
	default:
		st.State = StateOK
	}
	return st
}

// Next returns the roommate after holder in roster, wrapping around.
func Next(roster []int64, holder int64) (int64, error) {
	for i, id := range roster {
		if id == holder {
			return roster[(i+1)%len(roster)], nil
		}
	}
	return 0, model.Conflict("holder %d is not in the roster", holder)
}

// Complete hands the turn to the next roommate after actorID bought the
// supply at now. The returned purchase has no ID yet.
func Complete(s model.Supply, actorID int64, now time.Time) (model.Supply, model.Purchase, error) {
	if s.CurrentHolderID != actorID {
		return s, model.Purchase{}, ErrNotYourTurn
	}
	if s.Blocked {
		return s, model.Purchase{}, ErrTurnLocked
	}

	next, err := Next(s.Roster, s.CurrentHolderID)
	if err != nil {
		return s, model.Purchase{}, err
	}

	p := model.Purchase{
		SupplyID:    s.ID,
		PurchaserID: actorID,
		PurchasedAt: now,
	}
	if s.LastRestock != nil {
		observed := DaysSince(*s.LastRestock, now)
		p.ObservedDays = &observed
	}

	s.CurrentHolderID = next
	s.LastRestock = &now
	s.Blocked = false
	s.UpdatedAt = now
	return s, p, nil
}

// ForceAdvance is the administrative recovery for a stuck rotation. It
// ignores who holds the turn and whether it is blocked, and never credits a
// purchase. With advance set the turn moves to the next roommate and the
// restock clock restarts at now; the block is always cleared.
func ForceAdvance(s model.Supply, advance bool, now time.Time) (model.Supply, error) {
	if advance {
		next, err := Next(s.Roster, s.CurrentHolderID)
		if err != nil {
			return s, err
		}
		s.CurrentHolderID = next
		s.LastRestock = &now
	}
	s.Blocked = false
	s.UpdatedAt = now
	return s, nil
}

// Block locks the current turn until an administrator clears it.
func Block(s model.Supply, now time.Time) model.Supply {
	s.Blocked = true
	s.UpdatedAt = now
	return s
}
