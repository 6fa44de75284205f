package models

import "errors"

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate unique field.
	ErrConflict = errors.New("already exists")
	// ErrUnauthorized indicates a missing or wrong credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream indicates a collaborator call failed.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalidQuantity is returned for cart quantities below one.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidOrExpired is returned for unknown, used or expired reset tokens.
	ErrInvalidOrExpired = errors.New("invalid or expired token")
)
