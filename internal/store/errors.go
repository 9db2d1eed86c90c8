package store

import "errors"

// Sentinel errors returned by store implementations. Callers match them with
// errors.Is; the service layer translates them into coded domain errors.
var (
	ErrBookNotFound       = errors.New("book not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrAlreadyMember      = errors.New("book already in collection")
	ErrNotMember          = errors.New("book not in collection")
	ErrAlreadyLiked       = errors.New("book already liked")
	ErrNotLiked           = errors.New("book not liked")
	ErrCounterUnderflow   = errors.New("counter would become negative")
)
