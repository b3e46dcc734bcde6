package userdb

import "errors"

// Sentinel errors for the user repository layer. Service layers decide how to
// map them into user-visible messages.
var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user record not found")

	// ErrNoRowsAffected indicates an UPDATE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)
