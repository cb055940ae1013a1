package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/piso3/piso/internal/model"
)

const dishSelect = `SELECT d.id, d.roommate_id, d.record_date, d.action, d.note, d.created_by, d.created_at, r.name
  FROM dish_records d
  JOIN roommates r ON r.id = d.roommate_id`

func scanDishRecord(row interface{ Scan(...any) error }, d *model.DishRecord) error {
	var note sql.NullString
	if err := row.Scan(&d.ID, &d.RoommateID, &d.Date, &d.Action, &note, &d.CreatedBy, &d.CreatedAt, &d.RoommateName); err != nil {
		return err
	}
	d.Note = note.String
	d.CreatedAt = d.CreatedAt.UTC()
	return nil
}

// CreateDishRecord logs a wash or dry action.
func CreateDishRecord(ctx context.Context, db *sql.DB, d model.DishRecord) (*model.DishRecord, error) {
	if err := model.ValidateDishAction(d.Action); err != nil {
		return nil, err
	}
	if _, err := model.ParseDate(d.Date, time.UTC); err != nil {
		return nil, err
	}

	actor, err := GetRoommate(ctx, db, d.RoommateID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, model.NotFound("roommate %d not found", d.RoommateID)
	}

	var note any
	if d.Note != "" {
		note = d.Note
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO dish_records (roommate_id, record_date, action, note, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		d.RoommateID, d.Date, d.Action, note, d.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating dish record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting dish record id: %w", err)
	}
	return GetDishRecord(ctx, db, id)
}

// GetDishRecord returns a dish record by ID.
func GetDishRecord(ctx context.Context, db *sql.DB, id int64) (*model.DishRecord, error) {
	d := &model.DishRecord{}
	err := scanDishRecord(db.QueryRowContext(ctx, dishSelect+` WHERE d.id = ?`, id), d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting dish record: %w", err)
	}
	return d, nil
}

// ListDishRecords returns records dated between from and to inclusive
// (YYYY-MM-DD), newest first.
func ListDishRecords(ctx context.Context, db *sql.DB, from, to string) ([]model.DishRecord, error) {
	rows, err := db.QueryContext(ctx,
		dishSelect+` WHERE d.record_date >= ? AND d.record_date <= ?
		 ORDER BY d.record_date DESC, d.created_at DESC, d.id DESC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("listing dish records: %w", err)
	}
	defer rows.Close()

	var records []model.DishRecord
	for rows.Next() {
		var d model.DishRecord
		if err := scanDishRecord(rows, &d); err != nil {
			return nil, fmt.Errorf("scanning dish record: %w", err)
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

// DeleteDishRecord removes a dish record.
func DeleteDishRecord(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM dish_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting dish record: %w", err)
	}
	return requireRow(result, "dish record %d not found", id)
}
