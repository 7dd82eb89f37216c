package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatThenOnline(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	require.NoError(t, database.Heartbeat("alice"))

	online, err := database.IsOnline("alice", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, online)
}

func TestNeverSeenIsOffline(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")

	online, err := database.IsOnline("alice", time.Now().UTC())
	require.NoError(t, err)
	require.False(t, online)
}

func TestLivenessWindowEdges(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	require.NoError(t, database.Heartbeat("alice"))

	lastSeen := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	setLastSeen(t, database, "alice", lastSeen.Format(timeFormat))

	cases := []struct {
		name   string
		now    time.Time
		online bool
	}{
		{"inside window", lastSeen.Add(9 * time.Second), true},
		{"exactly at window", lastSeen.Add(LivenessWindow), false},
		{"past window", lastSeen.Add(11 * time.Second), false},
		{"same instant", lastSeen, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			online, err := database.IsOnline("alice", tc.now)
			require.NoError(t, err)
			require.Equal(t, tc.online, online)
		})
	}
}

func TestHeartbeatRefreshesWindow(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	require.NoError(t, database.Heartbeat("alice"))

	// Age the record out, then heartbeat again: the upsert must bring
	// the user back online.
	stale := time.Now().UTC().Add(-time.Minute)
	setLastSeen(t, database, "alice", stale.Format(timeFormat))

	online, err := database.IsOnline("alice", time.Now().UTC())
	require.NoError(t, err)
	require.False(t, online)

	require.NoError(t, database.Heartbeat("alice"))

	online, err = database.IsOnline("alice", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, online)
}

func TestGetPresence(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")

	presence, err := database.GetPresence("alice")
	require.NoError(t, err)
	require.Nil(t, presence)

	require.NoError(t, database.Heartbeat("alice"))

	presence, err = database.GetPresence("alice")
	require.NoError(t, err)
	require.NotNil(t, presence)
	require.Equal(t, "alice", presence.Username)
	require.WithinDuration(t, time.Now().UTC(), presence.LastSeen, 5*time.Second)
}

func TestClearPresence(t *testing.T) {
	database := newTestDB(t)

	mustRegister(t, database, "alice", "pass1")
	require.NoError(t, database.Heartbeat("alice"))

	require.NoError(t, database.ClearPresence("alice"))

	// Offline immediately, even though the window has not elapsed.
	online, err := database.IsOnline("alice", time.Now().UTC())
	require.NoError(t, err)
	require.False(t, online)

	// Clearing an absent record is fine.
	require.NoError(t, database.ClearPresence("alice"))
}
