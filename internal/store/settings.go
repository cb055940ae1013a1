package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const sessionSecretKey = "session_secret"

// GetSessionSecret returns the session signing key stored in the database,
// generating and persisting one on first use. The insert-or-ignore followed
// by a read keeps concurrent first starts on the same key.
func GetSessionSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		sessionSecretKey, hex.EncodeToString(buf),
	); err != nil {
		return "", fmt.Errorf("storing session secret: %w", err)
	}

	var secret string
	if err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, sessionSecretKey,
	).Scan(&secret); err != nil {
		return "", fmt.Errorf("reading session secret: %w", err)
	}
	return secret, nil
}
