package db

import (
	"database/sql"
	"time"

	"dmsg/models"
)

// LivenessWindow is how long after the last heartbeat a user still
// counts as online. Active clients heartbeat every two seconds or
// less, so the window holds through normal polling.
const LivenessWindow = 10 * time.Second

// Heartbeat upserts last_seen for the user. Repeated calls overwrite
// the previous record.
func (db *DB) Heartbeat(username string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO presence (username, last_seen) VALUES (?, ?)",
		username, now().Format(timeFormat),
	)
	if err != nil {
		return storageErr("heartbeat", err)
	}
	return nil
}

// ClearPresence deletes the presence record; this is the explicit
// logout signal.
func (db *DB) ClearPresence(username string) error {
	_, err := db.conn.Exec("DELETE FROM presence WHERE username = ?", username)
	if err != nil {
		return storageErr("clear presence", err)
	}
	return nil
}

// GetPresence returns the presence record, or nil when the user has
// never heartbeated (or logged out).
func (db *DB) GetPresence(username string) (*models.Presence, error) {
	var lastSeenStr string
	err := db.conn.QueryRow(
		"SELECT last_seen FROM presence WHERE username = ?", username,
	).Scan(&lastSeenStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load presence", err)
	}

	lastSeen, err := time.Parse(timeFormat, lastSeenStr)
	if err != nil {
		return nil, storageErr("parse presence timestamp", err)
	}

	return &models.Presence{Username: username, LastSeen: lastSeen}, nil
}

// IsOnline reports whether the user heartbeated within the liveness
// window before nowAt. A missing record short-circuits to offline
// before any clock arithmetic.
func (db *DB) IsOnline(username string, nowAt time.Time) (bool, error) {
	presence, err := db.GetPresence(username)
	if err != nil {
		return false, err
	}
	if presence == nil {
		return false, nil
	}

	return nowAt.Sub(presence.LastSeen) < LivenessWindow, nil
}
