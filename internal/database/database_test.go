package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/AIMultiverse/internal/config"
	"github.com/digkill/AIMultiverse/internal/database"
	"github.com/digkill/AIMultiverse/internal/database/dbtest"
)

func TestMigrateIsRepeatable(t *testing.T) {
	db := dbtest.Open(t)

	require.NoError(t, database.Migrate(context.Background(), db, config.DriverSQLite))

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		('accounts', 'usage_records', 'payment_requests', 'complaints', 'saved_files')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open("postgres", "whatever")
	require.Error(t, err)
}
