package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/piso3/piso/internal/model"
)

// ClaimNotification inserts the ledger row for a send that is about to be
// attempted. It returns false when another sweep already holds the row.
func ClaimNotification(ctx context.Context, db *sql.DB, supplyID, roommateID int64, kind, day string, now time.Time) (int64, bool, error) {
	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (supply_id, roommate_id, kind, sent_on, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		supplyID, roommateID, kind, day, now.UTC(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("claiming notification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("checking notification claim: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("getting notification id: %w", err)
	}
	return id, true, nil
}

// FinishNotification records the outcome of the send attempt for a claimed row.
func FinishNotification(ctx context.Context, db *sql.DB, id int64, sendErr error, now time.Time) error {
	var errText any
	if sendErr != nil {
		errText = sendErr.Error()
	}
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET success = ?, error = ?, completed_at = ? WHERE id = ?`,
		sendErr == nil, errText, now.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("recording notification outcome: %w", err)
	}
	return nil
}

// ListNotifications returns the ledger rows of a supply, newest first.
func ListNotifications(ctx context.Context, db *sql.DB, supplyID int64) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, supply_id, roommate_id, kind, sent_on, sent_at, success, error, completed_at
		 FROM notifications WHERE supply_id = ?
		 ORDER BY sent_at DESC, id DESC`, supplyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var errText sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&n.ID, &n.SupplyID, &n.RoommateID, &n.Kind, &n.Day, &n.SentAt, &n.Success, &errText, &completed); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.Error = errText.String
		n.SentAt = n.SentAt.UTC()
		if completed.Valid {
			t := completed.Time.UTC()
			n.CompletedAt = &t
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
