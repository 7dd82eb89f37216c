package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timeFormat is the stored timestamp layout: UTC, second resolution.
// Lexicographic order of this layout matches chronological order, so
// ORDER BY on the column is a correct time sort.
const timeFormat = "2006-01-02T15:04:05Z"

type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, storageErr("open database", err)
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (sender) REFERENCES users(username),
			FOREIGN KEY (receiver) REFERENCES users(username)
		)`,
		`CREATE TABLE IF NOT EXISTS presence (
			username TEXT PRIMARY KEY,
			last_seen TEXT NOT NULL,
			FOREIGN KEY (username) REFERENCES users(username)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender, receiver, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver, sender, read)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return storageErr("init schema", err)
		}
	}

	return nil
}

// now is the server clock for all stored timestamps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
