package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portops/portsim/internal/db"
)

// NewTestDB opens a fresh in-memory portsim store with every migration
// applied. It is closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err, "opening test store")
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// NewTestUoW is the unit of work production wiring uses, on database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

// CountRows returns the number of rows in table. Tests use it to check that
// a failed run or import left nothing behind.
func CountRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n), "counting %s", table)
	return n
}
