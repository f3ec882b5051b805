// Package dbtest provides a migrated sqlite database for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/config"
	"github.com/digkill/AIMultiverse/internal/database"
)

// Open returns a fresh database in the test's temp dir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Open(config.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db, config.DriverSQLite))
	return db
}
