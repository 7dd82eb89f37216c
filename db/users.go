package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"dmsg/models"
)

// Registration thresholds, enforced here so they are enforced exactly
// once.
const (
	MinUsernameLen = 3
	MinPasswordLen = 4
)

// RegisterUser creates an account with a bcrypt digest of the
// password. Uniqueness rides on the UNIQUE constraint, so a duplicate
// username comes back as ErrAlreadyExists even under a concurrent
// register for the same name.
func (db *DB) RegisterUser(username, password string) (int64, error) {
	if len(username) < MinUsernameLen || len(password) < MinPasswordLen {
		return 0, ErrInvalidInput
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, storageErr("hash password", err)
	}

	res, err := db.conn.Exec(
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, string(hashed), now().Format(timeFormat),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrAlreadyExists
		}
		return 0, storageErr("create user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create user", err)
	}
	return id, nil
}

// AuthenticateUser recomputes the digest and compares. An unknown
// username is a plain false, not an error.
func (db *DB) AuthenticateUser(username, password string) (bool, error) {
	var hash string
	err := db.conn.QueryRow(
		"SELECT password_hash FROM users WHERE username = ?", username,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("load password hash", err)
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// GetUser returns the stored user row, or nil when the username is
// unknown.
func (db *DB) GetUser(username string) (*models.User, error) {
	var u models.User
	var createdStr string
	err := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load user", err)
	}

	created, err := time.Parse(timeFormat, createdStr)
	if err != nil {
		return nil, storageErr("parse user timestamp", err)
	}
	u.CreatedAt = created

	return &u, nil
}

func (db *DB) UserExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM users WHERE username = ?", username,
	).Scan(&count)
	if err != nil {
		return false, storageErr("check user", err)
	}
	return count > 0, nil
}

// ListUsers returns every registered username, ascending.
func (db *DB) ListUsers() ([]string, error) {
	rows, err := db.conn.Query("SELECT username FROM users ORDER BY username")
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, storageErr("list users", err)
		}
		users = append(users, username)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}

	return users, nil
}
