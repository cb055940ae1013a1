package household

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/piso3/piso/internal/db"
	"github.com/piso3/piso/internal/store"
)

const sample = `
roommates:
  - name: Ana
    email: ana@example.com
    username: ana
    admin: true
  - name: Ben
    email: ben@example.com
    username: ben
    password: correct-horse
    notification_days: 0
supplies:
  - name: Water
    category: water_bottle
    duration_days: 7
    roster: [ana, ben]
  - name: Dish soap
    category: dish_soap
    duration_days: 14
    roster: [ana, ben]
    holder: ben
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "household.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAndApply(t *testing.T) {
	f, err := Load(writeFile(t, sample))
	require.NoError(t, err)

	database := db.NewTestDB(t)
	ctx := context.Background()

	creds, err := Apply(ctx, database, f)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.True(t, creds[0].Generated)
	assert.Len(t, creds[0].Password, 16)
	assert.False(t, creds[1].Generated)

	ana, err := store.GetRoommateByUsername(ctx, database, "ana")
	require.NoError(t, err)
	require.NotNil(t, ana)
	assert.True(t, ana.IsAdmin)
	assert.Equal(t, 2, ana.NotificationDays)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(ana.PasswordHash), []byte(creds[0].Password)))

	ben, err := store.GetRoommateByUsername(ctx, database, "ben")
	require.NoError(t, err)
	assert.Equal(t, 0, ben.NotificationDays)

	supplies, err := store.ListSupplies(ctx, database)
	require.NoError(t, err)
	require.Len(t, supplies, 2)
	assert.Equal(t, ana.ID, supplies[0].CurrentHolderID)
	assert.Equal(t, []int64{ana.ID, ben.ID}, supplies[0].Roster)
	assert.Equal(t, ben.ID, supplies[1].CurrentHolderID)
	assert.Nil(t, supplies[1].LastRestock)
}

func TestApplyUnknownRosterMember(t *testing.T) {
	f, err := Load(writeFile(t, `
roommates:
  - {name: Ana, email: ana@example.com, username: ana}
supplies:
  - {name: Water, category: water_bottle, duration_days: 7, roster: [ana, zoe]}
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), db.NewTestDB(t), f)
	assert.ErrorContains(t, err, `unknown roommate "zoe"`)
}

func TestApplyShortPassword(t *testing.T) {
	f, err := Load(writeFile(t, `
roommates:
  - {name: Ana, email: ana@example.com, username: ana, password: short}
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), db.NewTestDB(t), f)
	assert.Error(t, err)
}

func TestLoadRejectsEmptyHousehold(t *testing.T) {
	_, err := Load(writeFile(t, "supplies: []\n"))
	assert.Error(t, err)
}
