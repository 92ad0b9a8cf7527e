package types

import "time"

// MaxCVContentSize is the largest CV body accepted on upload, in bytes.
const MaxCVContentSize = 10 << 20

// CV represents a curriculum vitae uploaded by a user.
// The content is stored encrypted and only decrypted on single-CV reads.
type CV struct {
	// ID is the v4 UUID assigned when the CV is uploaded.
	ID string `json:"id" db:"id"`

	// UserID references the owning user.
	UserID string `json:"user_id" db:"user_id"`

	// Filename is the original name of the uploaded file.
	Filename string `json:"filename" db:"filename"`

	// Content is the plaintext CV body. It is empty in listings and in the
	// upload response.
	Content string `json:"content,omitempty" db:"content"`

	// UploadedAt is the timestamp when the CV was uploaded.
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// NewCV carries the fields accepted when uploading a CV.
type NewCV struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	Filename string `json:"filename" validate:"required,max=255"`
	Content  string `json:"content" validate:"required,max=10485760"`
}
