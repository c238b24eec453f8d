package models

import "errors"

// Domain error taxonomy. Background loops log and continue on these; the HTTP
// layer maps them to status codes.
var (
	// ErrValidation marks bad user input (hour out of range, non-finite or
	// negative price, locked bucket).
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthenticated marks operations that require an identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConflict marks a duplicate submission for the same (user, date).
	ErrConflict = errors.New("entry already exists")

	// ErrNotFound marks a missing ledger entry or user record.
	ErrNotFound = errors.New("not found")

	// ErrFetch marks an upstream price feed failure. It is never folded into
	// a zero-deviation actual.
	ErrFetch = errors.New("price feed unavailable")

	// ErrPersistence marks a store write failure; tally state must not
	// advance past one of these.
	ErrPersistence = errors.New("persistence failed")
)
