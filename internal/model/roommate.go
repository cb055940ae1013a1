package model

import (
	"net/mail"
	"strings"
	"time"
)

// Roommate is a household member who can log in and hold purchase turns.
type Roommate struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	IsAdmin          bool      `json:"is_admin"`
	NotificationDays int       `json:"notification_days"`
	CreatedAt        time.Time `json:"created_at"`
}

// Notification lead-time bounds, in days before expiry.
const (
	MinNotificationDays     = 0
	MaxNotificationDays     = 30
	DefaultNotificationDays = 2
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateNotificationDays checks the reminder lead-time bound.
func ValidateNotificationDays(days int) error {
	if days < MinNotificationDays || days > MaxNotificationDays {
		return Validation("notification days must be between %d and %d", MinNotificationDays, MaxNotificationDays)
	}
	return nil
}

// Validate checks a roommate record before it is stored.
func (r *Roommate) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Username) == "" {
		return Validation("name and username are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return Validation("invalid email address %q", r.Email)
	}
	return ValidateNotificationDays(r.NotificationDays)
}
