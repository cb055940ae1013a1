package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/rotation"
)

const supplySelect = `SELECT s.id, s.name, s.category, s.duration_days, s.current_holder_id, s.last_restock,
       s.blocked, s.photo IS NOT NULL, s.created_at, s.updated_at, COALESCE(r.name, '')
  FROM supplies s
  LEFT JOIN roommates r ON r.id = s.current_holder_id`

func scanSupply(row interface{ Scan(...any) error }, s *model.Supply) error {
	var lastRestock sql.NullTime
	if err := row.Scan(&s.ID, &s.Name, &s.Category, &s.DurationDays, &s.CurrentHolderID, &lastRestock,
		&s.Blocked, &s.HasPhoto, &s.CreatedAt, &s.UpdatedAt, &s.HolderName); err != nil {
		return err
	}
	if lastRestock.Valid {
		t := lastRestock.Time.UTC()
		s.LastRestock = &t
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return nil
}

// nullTime maps an optional timestamp to a bind value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// CreateSupply provisions a supply with its rotation roster.
func CreateSupply(ctx context.Context, db *sql.DB, s model.Supply) (*model.Supply, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range s.Roster {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM roommates WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.Validation("roster for %q references unknown roommate %d", s.Name, id)
		}
		if err != nil {
			return nil, fmt.Errorf("checking roster member: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO supplies (name, category, duration_days, current_holder_id, last_restock, blocked)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.Category, s.DurationDays, s.CurrentHolderID, nullTime(s.LastRestock), s.Blocked,
	)
	if err != nil {
		return nil, fmt.Errorf("creating supply: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting supply id: %w", err)
	}

	for pos, roommateID := range s.Roster {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO supply_roster (supply_id, position, roommate_id) VALUES (?, ?, ?)`,
			id, pos, roommateID,
		); err != nil {
			return nil, fmt.Errorf("adding roster member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing supply: %w", err)
	}

	return GetSupply(ctx, db, id)
}

// GetSupply returns a supply with its roster by ID.
func GetSupply(ctx context.Context, db *sql.DB, id int64) (*model.Supply, error) {
	return getSupply(ctx, db, id)
}

func getSupply(ctx context.Context, q querier, id int64) (*model.Supply, error) {
	s := &model.Supply{}
	err := scanSupply(q.QueryRowContext(ctx, supplySelect+` WHERE s.id = ?`, id), s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT roommate_id FROM supply_roster WHERE supply_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting roster: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var roommateID int64
		if err := rows.Scan(&roommateID); err != nil {
			return nil, fmt.Errorf("scanning roster: %w", err)
		}
		s.Roster = append(s.Roster, roommateID)
	}
	return s, rows.Err()
}

// ListSupplies returns every supply with its roster, ordered by ID.
func ListSupplies(ctx context.Context, db *sql.DB) ([]model.Supply, error) {
	rows, err := db.QueryContext(ctx, supplySelect+` ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("listing supplies: %w", err)
	}

	var supplies []model.Supply
	index := make(map[int64]int)
	for rows.Next() {
		var s model.Supply
		if err := scanSupply(rows, &s); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning supply: %w", err)
		}
		index[s.ID] = len(supplies)
		supplies = append(supplies, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing supplies: %w", err)
	}
	rows.Close()

	rosters, err := db.QueryContext(ctx,
		`SELECT supply_id, roommate_id FROM supply_roster ORDER BY supply_id, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rosters: %w", err)
	}
	defer rosters.Close()

	for rosters.Next() {
		var supplyID, roommateID int64
		if err := rosters.Scan(&supplyID, &roommateID); err != nil {
			return nil, fmt.Errorf("scanning roster: %w", err)
		}
		if i, ok := index[supplyID]; ok {
			supplies[i].Roster = append(supplies[i].Roster, roommateID)
		}
	}
	return supplies, rosters.Err()
}

// CompleteTurn records that actorID bought the supply and passes the turn on.
// The read, the turn checks and both writes run in one transaction, and the
// state update is conditional on the holder and block flag that were checked.
func CompleteTurn(ctx context.Context, db *sql.DB, supplyID, actorID int64, note string, now time.Time) (*model.Supply, *model.Purchase, error) {
	var purchase model.Purchase
	s, err := transition(ctx, db, supplyID, func(tx *sql.Tx, current model.Supply) (model.Supply, error) {
		updated, p, err := rotation.Complete(current, actorID, now.UTC())
		if err != nil {
			return current, err
		}
		p.Note = note
		if p.ID, err = insertPurchase(ctx, tx, p); err != nil {
			return current, err
		}
		purchase = p
		return updated, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return s, &purchase, nil
}

// ForceAdvance clears a supply's block and, when advance is set, moves the
// turn to the next roommate without recording a purchase.
func ForceAdvance(ctx context.Context, db *sql.DB, supplyID int64, advance bool, now time.Time) (*model.Supply, error) {
	return transition(ctx, db, supplyID, func(_ *sql.Tx, current model.Supply) (model.Supply, error) {
		return rotation.ForceAdvance(current, advance, now.UTC())
	})
}

// BlockSupply locks the current turn of a supply.
func BlockSupply(ctx context.Context, db *sql.DB, supplyID int64, now time.Time) (*model.Supply, error) {
	return transition(ctx, db, supplyID, func(_ *sql.Tx, current model.Supply) (model.Supply, error) {
		return rotation.Block(current, now.UTC()), nil
	})
}

// transition applies a rotation state change to one supply row atomically.
func transition(ctx context.Context, db *sql.DB, supplyID int64, apply func(*sql.Tx, model.Supply) (model.Supply, error)) (*model.Supply, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getSupply(ctx, tx, supplyID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, model.NotFound("supply %d not found", supplyID)
	}

	updated, err := apply(tx, *current)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE supplies
		    SET current_holder_id = ?, last_restock = ?, blocked = ?, updated_at = ?
		  WHERE id = ? AND current_holder_id = ? AND blocked = ?`,
		updated.CurrentHolderID, nullTime(updated.LastRestock), updated.Blocked, updated.UpdatedAt.UTC(),
		supplyID, current.CurrentHolderID, current.Blocked,
	)
	if err != nil {
		return nil, fmt.Errorf("updating supply state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking supply update: %w", err)
	}
	if n == 0 {
		return nil, model.Conflict("supply %d changed concurrently, reload and try again", supplyID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing supply state: %w", err)
	}

	return GetSupply(ctx, db, supplyID)
}

// UpdateDuration changes a supply's expected consumption period.
func UpdateDuration(ctx context.Context, db *sql.DB, supplyID int64, days int, now time.Time) error {
	if err := model.ValidateDuration(days); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE supplies SET duration_days = ?, updated_at = ? WHERE id = ?`,
		days, now.UTC(), supplyID,
	)
	if err != nil {
		return fmt.Errorf("updating duration: %w", err)
	}
	return requireRow(result, "supply %d not found", supplyID)
}

// SetSupplyPhoto stores the reference photo of a supply.
func SetSupplyPhoto(ctx context.Context, db *sql.DB, supplyID int64, jpeg []byte, now time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE supplies SET photo = ?, updated_at = ? WHERE id = ?`,
		jpeg, now.UTC(), supplyID,
	)
	if err != nil {
		return fmt.Errorf("setting supply photo: %w", err)
	}
	return requireRow(result, "supply %d not found", supplyID)
}

// GetSupplyPhoto returns the stored JPEG of a supply, or nil if it has none.
func GetSupplyPhoto(ctx context.Context, db *sql.DB, supplyID int64) ([]byte, error) {
	var photo []byte
	err := db.QueryRowContext(ctx,
		`SELECT photo FROM supplies WHERE id = ?`, supplyID,
	).Scan(&photo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply photo: %w", err)
	}
	return photo, nil
}
