package store

import (
	"context"
	"testing"

	"github.com/piso3/piso/internal/db"
)

func TestGetSessionSecret(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret, err := GetSessionSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetSessionSecret: %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(secret))
	}

	again, err := GetSessionSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetSessionSecret second call: %v", err)
	}
	if again != secret {
		t.Error("expected the stored secret to be reused")
	}
}
