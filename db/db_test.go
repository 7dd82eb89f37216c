package db

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "dmsg-test-*.db")
	require.NoError(t, err)
	tmpfile.Close()
	os.Remove(tmpfile.Name()) // SQLite recreates it

	database, err := New(tmpfile.Name())
	require.NoError(t, err)

	t.Cleanup(func() {
		database.Close()
		os.Remove(tmpfile.Name())
	})

	return database
}

func mustRegister(t *testing.T, database *DB, username, password string) {
	t.Helper()
	_, err := database.RegisterUser(username, password)
	require.NoError(t, err)
}

// setMessageTime rewrites a stored timestamp so ordering tests run
// against a controlled clock.
func setMessageTime(t *testing.T, database *DB, id int64, timestamp string) {
	t.Helper()
	_, err := database.conn.Exec("UPDATE messages SET timestamp = ? WHERE id = ?", timestamp, id)
	require.NoError(t, err)
}

func setLastSeen(t *testing.T, database *DB, username, timestamp string) {
	t.Helper()
	_, err := database.conn.Exec("UPDATE presence SET last_seen = ? WHERE username = ?", timestamp, username)
	require.NoError(t, err)
}
