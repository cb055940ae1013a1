package model

import "time"

// Notification is one row of the reminder dedup ledger. At most one row
// exists per supply, roommate, calendar day and kind.
type Notification struct {
	ID          int64      `json:"id"`
	SupplyID    int64      `json:"supply_id"`
	RoommateID  int64      `json:"roommate_id"`
	Kind        string     `json:"kind"`
	Day         string     `json:"day"`
	SentAt      time.Time  `json:"sent_at"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Notification kinds.
const (
	NotificationReminder = "reminder"
	NotificationOverdue  = "overdue"
)
