package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/piso3/piso/internal/model"
)

func insertPurchase(ctx context.Context, q querier, p model.Purchase) (int64, error) {
	var observed any
	if p.ObservedDays != nil {
		observed = *p.ObservedDays
	}
	var note any
	if p.Note != "" {
		note = p.Note
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO purchases (supply_id, purchaser_id, purchased_at, observed_days, note)
		 VALUES (?, ?, ?, ?, ?)`,
		p.SupplyID, p.PurchaserID, p.PurchasedAt.UTC(), observed, note,
	)
	if err != nil {
		return 0, fmt.Errorf("recording purchase: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting purchase id: %w", err)
	}
	return id, nil
}

// ListPurchases returns the purchase history of a supply, newest first.
func ListPurchases(ctx context.Context, db *sql.DB, supplyID int64) ([]model.Purchase, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT p.id, p.supply_id, p.purchaser_id, p.purchased_at, p.observed_days, p.note, r.name
		 FROM purchases p
		 JOIN roommates r ON r.id = p.purchaser_id
		 WHERE p.supply_id = ?
		 ORDER BY p.purchased_at DESC, p.id DESC`, supplyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var observed sql.NullInt64
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.SupplyID, &p.PurchaserID, &p.PurchasedAt, &observed, &note, &p.PurchaserName); err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		if observed.Valid {
			days := int(observed.Int64)
			p.ObservedDays = &days
		}
		p.Note = note.String
		p.PurchasedAt = p.PurchasedAt.UTC()
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
