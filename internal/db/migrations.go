package db

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order after schema creation and recorded in
// schema_migrations by their 1-based position. Append new migrations at the end.
var migrations = []string{
	// 1: dashboard and sweep look up a supply's roster by roommate.
	`CREATE INDEX IF NOT EXISTS idx_supply_roster_roommate ON supply_roster(roommate_id)`,
	// 2: expired revocations are purged by expiry.
	`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires ON revoked_tokens(expires_at)`,
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var applied int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := applied; i < len(migrations); i++ {
		version := i + 1
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("running migration %d: %w", version, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
	}

	return nil
}
