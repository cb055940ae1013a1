package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS roommates (
    id                INTEGER PRIMARY KEY,
    name              TEXT NOT NULL,
    email             TEXT NOT NULL,
    username          TEXT NOT NULL UNIQUE,
    password_hash     TEXT NOT NULL,
    is_admin          INTEGER NOT NULL DEFAULT 0,
    notification_days INTEGER NOT NULL DEFAULT 2 CHECK (notification_days BETWEEN 0 AND 30),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS supplies (
    id                INTEGER PRIMARY KEY,
    name              TEXT NOT NULL,
    category          TEXT NOT NULL CHECK (category IN ('water_bottle', 'dish_soap', 'cleaning', 'other')),
    duration_days     INTEGER NOT NULL CHECK (duration_days BETWEEN 1 AND 365),
    current_holder_id INTEGER NOT NULL REFERENCES roommates(id),
    last_restock      DATETIME,
    blocked           INTEGER NOT NULL DEFAULT 0,
    photo             BLOB,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS supply_roster (
    supply_id   INTEGER NOT NULL REFERENCES supplies(id),
    position    INTEGER NOT NULL,
    roommate_id INTEGER NOT NULL REFERENCES roommates(id),
    PRIMARY KEY (supply_id, position),
    UNIQUE (supply_id, roommate_id)
);

CREATE TABLE IF NOT EXISTS purchases (
    id            INTEGER PRIMARY KEY,
    supply_id     INTEGER NOT NULL REFERENCES supplies(id),
    purchaser_id  INTEGER NOT NULL REFERENCES roommates(id),
    purchased_at  DATETIME NOT NULL,
    observed_days INTEGER,
    note          TEXT
);

CREATE INDEX IF NOT EXISTS idx_purchases_supply ON purchases(supply_id, purchased_at);

CREATE TABLE IF NOT EXISTS dish_records (
    id          INTEGER PRIMARY KEY,
    roommate_id INTEGER NOT NULL REFERENCES roommates(id),
    record_date TEXT NOT NULL,
    action      TEXT NOT NULL CHECK (action IN ('wash', 'dry', 'both')),
    note        TEXT,
    created_by  INTEGER NOT NULL REFERENCES roommates(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_dish_records_date ON dish_records(record_date);

CREATE TABLE IF NOT EXISTS notifications (
    id           INTEGER PRIMARY KEY,
    supply_id    INTEGER NOT NULL REFERENCES supplies(id),
    roommate_id  INTEGER NOT NULL REFERENCES roommates(id),
    kind         TEXT NOT NULL CHECK (kind IN ('reminder', 'overdue')),
    sent_on      TEXT NOT NULL,
    sent_at      DATETIME NOT NULL,
    success      INTEGER NOT NULL DEFAULT 0,
    error        TEXT,
    completed_at DATETIME,
    UNIQUE (supply_id, roommate_id, sent_on, kind)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist
// and applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
