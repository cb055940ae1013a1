package model

import "time"

// Supply is a shared consumable whose purchase duty rotates through a roster.
type Supply struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	DurationDays    int        `json:"duration_days"`
	Roster          []int64    `json:"roster"`
	CurrentHolderID int64      `json:"current_holder_id"`
	LastRestock     *time.Time `json:"last_restock,omitempty"`
	Blocked         bool       `json:"blocked"`
	HasPhoto        bool       `json:"has_photo"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	HolderName string `json:"holder_name,omitempty"`
}

// Supply categories.
const (
	CategoryWaterBottle = "water_bottle"
	CategoryDishSoap    = "dish_soap"
	CategoryCleaning    = "cleaning"
	CategoryOther       = "other"
)

// Duration bounds for a supply's expected consumption period.
const (
	MinDurationDays = 1
	MaxDurationDays = 365
)

// ValidateDuration checks the consumption period bound.
func ValidateDuration(days int) error {
	if days < MinDurationDays || days > MaxDurationDays {
		return Validation("duration must be between %d and %d days", MinDurationDays, MaxDurationDays)
	}
	return nil
}

// ValidateCategory checks that category is one of the known tags.
func ValidateCategory(category string) error {
	switch category {
	case CategoryWaterBottle, CategoryDishSoap, CategoryCleaning, CategoryOther:
		return nil
	}
	return Validation("unknown supply category %q", category)
}

// Validate checks the supply's shape: a non-empty roster without
// duplicates that contains the current holder.
func (s *Supply) Validate() error {
	if s.Name == "" {
		return Validation("supply name is required")
	}
	if err := ValidateCategory(s.Category); err != nil {
		return err
	}
	if err := ValidateDuration(s.DurationDays); err != nil {
		return err
	}
	if len(s.Roster) == 0 {
		return Validation("roster for %q is empty", s.Name)
	}
	seen := make(map[int64]bool, len(s.Roster))
	for _, id := range s.Roster {
		if seen[id] {
			return Validation("roster for %q lists roommate %d twice", s.Name, id)
		}
		seen[id] = true
	}
	if !seen[s.CurrentHolderID] {
		return Validation("holder %d is not in the roster for %q", s.CurrentHolderID, s.Name)
	}
	return nil
}

// Purchase is an immutable record of a completed turn.
type Purchase struct {
	ID           int64     `json:"id"`
	SupplyID     int64     `json:"supply_id"`
	PurchaserID  int64     `json:"purchaser_id"`
	PurchasedAt  time.Time `json:"purchased_at"`
	ObservedDays *int      `json:"observed_days"`
	Note         string    `json:"note,omitempty"`

	// Joined fields (not always populated).
	PurchaserName string `json:"purchaser_name,omitempty"`
}
