package db

import (
	"strings"
	"time"

	"dmsg/models"
)

// SendMessage appends a message addressed to receiver with read=false
// and a server-assigned timestamp. Messages created within the same
// second keep their send order through the AUTOINCREMENT id.
// Self-messages are allowed.
func (db *DB) SendMessage(sender, receiver, content string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, ErrEmptyContent
	}

	for _, username := range []string{sender, receiver} {
		exists, err := db.UserExists(username)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrInvalidUser
		}
	}

	res, err := db.conn.Exec(
		"INSERT INTO messages (sender, receiver, content, timestamp, read) VALUES (?, ?, ?, ?, 0)",
		sender, receiver, content, now().Format(timeFormat),
	)
	if err != nil {
		return 0, storageErr("save message", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("save message", err)
	}
	return id, nil
}

// GetConversation returns every message between the two users, in
// either direction, ordered by (timestamp, id). The result is
// recomputed on each call; callers poll for updates.
func (db *DB) GetConversation(userA, userB string) ([]models.Message, error) {
	rows, err := db.conn.Query(`
		SELECT id, sender, receiver, content, timestamp, read
		FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
		ORDER BY timestamp ASC, id ASC`,
		userA, userB, userB, userA,
	)
	if err != nil {
		return nil, storageErr("load conversation", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var timestampStr string
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &timestampStr, &m.Read); err != nil {
			return nil, storageErr("load conversation", err)
		}

		timestamp, err := time.Parse(timeFormat, timestampStr)
		if err != nil {
			return nil, storageErr("parse message timestamp", err)
		}
		m.Timestamp = timestamp

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load conversation", err)
	}

	return messages, nil
}

// MarkRead flips every unread message from sender to receiver to
// read. The single UPDATE is atomic with respect to concurrent sends:
// a message landing after the statement's snapshot simply stays
// unread until the next call. Idempotent.
func (db *DB) MarkRead(receiver, sender string) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET read = 1 WHERE receiver = ? AND sender = ? AND read = 0",
		receiver, sender,
	)
	if err != nil {
		return storageErr("mark read", err)
	}
	return nil
}

// UnreadCount counts messages to receiver from sender that the
// receiver has not viewed. Read-state is directional.
func (db *DB) UnreadCount(receiver, sender string) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE receiver = ? AND sender = ? AND read = 0",
		receiver, sender,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("count unread", err)
	}
	return count, nil
}
