// Package dbtest opens throwaway migrated catalog databases for tests.
package dbtest

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"cinemax/internal/database"
)

// New returns an in-memory SQLite database with the catalog schema applied.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

// FailEpisodeInsert installs a trigger that aborts inserting the given episode number.
func FailEpisodeInsert(t testing.TB, db *database.DB, episodeNumber int) {
	t.Helper()
	_, err := db.Exec(`
		CREATE TRIGGER fail_episode BEFORE INSERT ON episodes
		WHEN NEW.episode_number = ` + strconv.Itoa(episodeNumber) + `
		BEGIN
			SELECT RAISE(ABORT, 'episode rejected');
		END`)
	require.NoError(t, err)
}

// CountRows returns the number of rows in a table.
func CountRows(t testing.TB, db *database.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM `+table).Scan(&n))
	return n
}

