package db

import "errors"

var (
	ErrAlreadyExists = errors.New("username already exists")
	ErrInvalidUser   = errors.New("user does not exist")
	ErrEmptyContent  = errors.New("message content is empty")
	ErrInvalidInput  = errors.New("invalid registration input")
)

// StorageError marks a datastore failure (I/O, corruption, driver
// error) as opposed to a domain error. Callers can tell the two apart
// with errors.As; the cause stays reachable through Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
