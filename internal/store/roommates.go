package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/piso3/piso/internal/model"
)

const roommateColumns = `id, name, email, username, password_hash, is_admin, notification_days, created_at`

func scanRoommate(row interface{ Scan(...any) error }, r *model.Roommate) error {
	return row.Scan(&r.ID, &r.Name, &r.Email, &r.Username, &r.PasswordHash, &r.IsAdmin, &r.NotificationDays, &r.CreatedAt)
}

// CreateRoommate provisions a new roommate.
func CreateRoommate(ctx context.Context, db *sql.DB, r model.Roommate) (*model.Roommate, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO roommates (name, email, username, password_hash, is_admin, notification_days)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Name, r.Email, r.Username, r.PasswordHash, r.IsAdmin, r.NotificationDays,
	)
	if err != nil {
		return nil, fmt.Errorf("creating roommate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting roommate id: %w", err)
	}

	return GetRoommate(ctx, db, id)
}

// GetRoommate returns a roommate by ID.
func GetRoommate(ctx context.Context, db *sql.DB, id int64) (*model.Roommate, error) {
	r := &model.Roommate{}
	err := scanRoommate(db.QueryRowContext(ctx,
		`SELECT `+roommateColumns+` FROM roommates WHERE id = ?`, id,
	), r)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting roommate: %w", err)
	}
	return r, nil
}

// GetRoommateByUsername returns a roommate by login handle.
func GetRoommateByUsername(ctx context.Context, db *sql.DB, username string) (*model.Roommate, error) {
	r := &model.Roommate{}
	err := scanRoommate(db.QueryRowContext(ctx,
		`SELECT `+roommateColumns+` FROM roommates WHERE username = ?`, username,
	), r)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting roommate by username: %w", err)
	}
	return r, nil
}

// ListRoommates returns every roommate ordered by name.
func ListRoommates(ctx context.Context, db *sql.DB) ([]model.Roommate, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+roommateColumns+` FROM roommates ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roommates: %w", err)
	}
	defer rows.Close()

	var roommates []model.Roommate
	for rows.Next() {
		var r model.Roommate
		if err := scanRoommate(rows, &r); err != nil {
			return nil, fmt.Errorf("scanning roommate: %w", err)
		}
		roommates = append(roommates, r)
	}
	return roommates, rows.Err()
}

// UpdateNotificationDays sets how many days before expiry a roommate is reminded.
func UpdateNotificationDays(ctx context.Context, db *sql.DB, id int64, days int) error {
	if err := model.ValidateNotificationDays(days); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE roommates SET notification_days = ? WHERE id = ?`, days, id,
	)
	if err != nil {
		return fmt.Errorf("updating notification days: %w", err)
	}
	return requireRow(result, "roommate %d not found", id)
}

// UpdatePassword replaces a roommate's password hash.
func UpdatePassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE roommates SET password_hash = ? WHERE id = ?`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireRow(result, "roommate %d not found", id)
}

// requireRow turns a zero-row update into a NotFound error.
func requireRow(result sql.Result, format string, args ...any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return model.NotFound(format, args...)
	}
	return nil
}
