package types

import "time"

// User represents a job seeker registered on the board.
type User struct {
	// ID is the v4 UUID assigned when the user is created.
	ID string `json:"id" db:"id"`

	// Email is the user's email address. It is unique across users.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewUser carries the fields accepted when creating a user.
type NewUser struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"required,max=255"`
}
