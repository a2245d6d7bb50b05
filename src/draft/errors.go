package draft

import (
	"errors"
	"fmt"
)

// ErrPersistence marks every storage read, write or parse failure
var ErrPersistence = errors.New("draft persistence failure")

// PersistenceError describes a failed persistence operation. The draft store
// has already fallen back to its in-memory record when this is returned.
type PersistenceError struct {
	Op  string // load, decode, encode, save, clear
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("draft %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
