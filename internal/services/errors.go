package services

import "errors"

var (
	// ErrDuplicate is returned when a user with the same email already exists.
	ErrDuplicate = errors.New("duplicate email")

	// ErrUnknownUser is returned when a CV references a user that does not exist.
	ErrUnknownUser = errors.New("unknown user")
)
