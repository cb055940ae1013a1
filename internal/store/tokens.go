package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeSession marks a session token ID as logged out until it expires.
func RevokeSession(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// IsSessionRevoked checks whether a session token ID was logged out.
func IsSessionRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("checking session revocation: %w", err)
	}
	return count > 0, nil
}

// PurgeRevokedSessions drops revocations of tokens that have expired anyway.
func PurgeRevokedSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging revoked sessions: %w", err)
	}
	return result.RowsAffected()
}
