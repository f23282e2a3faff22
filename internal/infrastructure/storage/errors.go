package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("not found")

// PersistenceError wraps any failure of the underlying store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
