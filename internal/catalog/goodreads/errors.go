package goodreads

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound    = errors.New("goodreads: not found")
	ErrRateLimited = errors.New("goodreads: rate limited by server")
	ErrServer      = errors.New("goodreads: server error")
	ErrMalformed   = errors.New("goodreads: malformed response")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op         string // "search" or "fetch"
	ExternalID string // If applicable
	Err        error
}

func (e *Error) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("goodreads %s [%s]: %v", e.Op, e.ExternalID, e.Err)
	}
	return fmt.Sprintf("goodreads %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, externalID string, err error) error {
	return &Error{Op: op, ExternalID: externalID, Err: err}
}
