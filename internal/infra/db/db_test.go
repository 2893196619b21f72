package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAppliesMigrations(t *testing.T) {
	sqlDB, err := OpenSQLite(filepath.Join(t.TempDir(), "coffee.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Migrate(context.Background(), sqlDB, DialectSQLite, nil))
	// повторный прогон ничего не ломает
	require.NoError(t, Migrate(context.Background(), sqlDB, DialectSQLite, nil))

	for _, table := range []string{"subscriptions", "redemptions", "staff"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestMigrateUnknownDialect(t *testing.T) {
	sqlDB, err := OpenSQLite(filepath.Join(t.TempDir(), "coffee.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Error(t, Migrate(context.Background(), sqlDB, Dialect("oracle"), nil))
}

func TestRedemptionsAreAppendOnly(t *testing.T) {
	sqlDB, err := OpenSQLite(filepath.Join(t.TempDir(), "coffee.db"))
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, Migrate(context.Background(), sqlDB, DialectSQLite, nil))

	now := FormatTime(time.Now())
	_, err = sqlDB.Exec(`INSERT INTO subscriptions (id, user_id, daily_drinks_remaining, last_reset_date, created_at) VALUES ('s1','u1',3,?,?)`, now, now)
	require.NoError(t, err)
	_, err = sqlDB.Exec(`INSERT INTO redemptions (id, subscription_id, redeemed_by, created_at) VALUES ('r1','s1','u1',?)`, now)
	require.NoError(t, err)

	_, err = sqlDB.Exec(`UPDATE redemptions SET redeemed_by='x' WHERE id='r1'`)
	assert.Error(t, err)
	_, err = sqlDB.Exec(`DELETE FROM redemptions WHERE id='r1'`)
	assert.Error(t, err)
}

func TestQuotaCheckConstraint(t *testing.T) {
	sqlDB, err := OpenSQLite(filepath.Join(t.TempDir(), "coffee.db"))
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, Migrate(context.Background(), sqlDB, DialectSQLite, nil))

	now := FormatTime(time.Now())
	_, err = sqlDB.Exec(`INSERT INTO subscriptions (id, user_id, daily_drinks_remaining, last_reset_date, created_at) VALUES ('s1','u1',-1,?,?)`, now, now)
	assert.Error(t, err)
	_, err = sqlDB.Exec(`INSERT INTO subscriptions (id, user_id, daily_drinks_remaining, last_reset_date, created_at) VALUES ('s2','u2',4,?,?)`, now, now)
	assert.Error(t, err)
}

func TestTimeFormatSortsLexicographically(t *testing.T) {
	base := time.Date(2026, 10, 17, 8, 0, 5, 0, time.UTC)
	a := FormatTime(base)
	b := FormatTime(base.Add(100 * time.Millisecond))
	assert.Less(t, a, b)

	parsed, err := ParseTime(b)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(base.Add(100*time.Millisecond)))
}
