package db

import (
	"database/sql"
	"time"

	"dmsg/models"
)

// Contacts returns every distinct counterpart the user has exchanged
// at least one message with, in either direction, username ascending.
func (db *DB) Contacts(username string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT CASE WHEN sender = ? THEN receiver ELSE sender END AS contact
		FROM messages
		WHERE sender = ? OR receiver = ?
		ORDER BY contact`,
		username, username, username,
	)
	if err != nil {
		return nil, storageErr("load contacts", err)
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var contact string
		if err := rows.Scan(&contact); err != nil {
			return nil, storageErr("load contacts", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load contacts", err)
	}

	return contacts, nil
}

// LastActivity returns the newest message timestamp between the pair.
// ok is false when the two have never exchanged a message, which
// keeps "no conversation" distinct from a conversation at epoch.
func (db *DB) LastActivity(userA, userB string) (time.Time, bool, error) {
	var last sql.NullString
	err := db.conn.QueryRow(`
		SELECT MAX(timestamp) FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)`,
		userA, userB, userB, userA,
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, storageErr("last activity", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}

	timestamp, err := time.Parse(timeFormat, last.String)
	if err != nil {
		return time.Time{}, false, storageErr("parse activity timestamp", err)
	}
	return timestamp, true, nil
}

// OrderedContacts lists the user's contacts by most recent activity,
// newest first. Equal timestamps order by username ascending, so the
// result is stable across calls.
func (db *DB) OrderedContacts(username string) ([]models.ContactActivity, error) {
	rows, err := db.conn.Query(`
		SELECT CASE WHEN sender = ? THEN receiver ELSE sender END AS contact,
		       MAX(timestamp) AS last
		FROM messages
		WHERE sender = ? OR receiver = ?
		GROUP BY contact
		ORDER BY last DESC, contact ASC`,
		username, username, username,
	)
	if err != nil {
		return nil, storageErr("order contacts", err)
	}
	defer rows.Close()

	var contacts []models.ContactActivity
	for rows.Next() {
		var c models.ContactActivity
		var lastStr string
		if err := rows.Scan(&c.Username, &lastStr); err != nil {
			return nil, storageErr("order contacts", err)
		}

		last, err := time.Parse(timeFormat, lastStr)
		if err != nil {
			return nil, storageErr("parse activity timestamp", err)
		}
		c.LastActivity = last

		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("order contacts", err)
	}

	return contacts, nil
}

// TotalUnread is the sum of unread counts across every contact, used
// for aggregate badges.
func (db *DB) TotalUnread(username string) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE receiver = ? AND read = 0",
		username,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("count total unread", err)
	}
	return count, nil
}
