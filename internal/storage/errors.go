package storage

import "errors"

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken indicates a signup collided with an existing account.
	ErrEmailTaken = errors.New("email already registered")
)
