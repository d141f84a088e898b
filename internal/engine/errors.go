package engine

import (
	"errors"
	"fmt"
)

// ErrLookupTimeout marks a lookup that did not answer within the lookup timeout.
var ErrLookupTimeout = errors.New("lookup timed out")

// LookupError is a lookup failure that could not be classified as absence.
// It is never treated as "not found".
type LookupError struct {
	Address string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup for %s failed: %v", e.Address, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ImportError is a failure to record an identifier in the state store.
type ImportError struct {
	Address string
	ID      string
	Err     error
}

func (e *ImportError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("import of %s failed: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("import of %s (id %s) failed: %v", e.Address, e.ID, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
