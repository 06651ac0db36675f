package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOpen(t *testing.T) {
	t.Run("opens database successfully", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		var mode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)
	})

	t.Run("opens with logger", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		logger := zaptest.NewLogger(t).Sugar()

		db, err := Open(dbPath, logger)
		require.NoError(t, err)
		defer db.Close()
	})
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, zaptest.NewLogger(t).Sugar()))

	// test_cases table exists after migration
	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='test_cases'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "test_cases", name)

	// Migrations are idempotent
	require.NoError(t, Migrate(db, nil))
}
