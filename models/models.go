package models

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message is immutable once stored, except for the Read flag which
// only ever transitions false to true.
type Message struct {
	ID        int64
	Sender    string
	Receiver  string
	Content   string
	Timestamp time.Time
	Read      bool
}

// Presence holds the last heartbeat for a user. Absence of a record
// means offline.
type Presence struct {
	Username string
	LastSeen time.Time
}

// ContactActivity pairs a contact with the timestamp of the newest
// message exchanged with them.
type ContactActivity struct {
	Username     string
	LastActivity time.Time
}
