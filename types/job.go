package types

import "time"

// Job represents a job posting.
type Job struct {
	// ID is the v4 UUID assigned when the job is created.
	ID string `json:"id" db:"id"`

	// Title is the position name. Searches match against it.
	Title string `json:"title" db:"title"`

	// Company is the hiring company.
	Company string `json:"company" db:"company"`

	// Location is a free-form description of where the job is based.
	Location string `json:"location" db:"location"`

	// Salary is an optional free-form salary range.
	Salary *string `json:"salary" db:"salary"`

	// Description is the full posting text.
	Description string `json:"description" db:"description"`

	// Published controls whether the job appears in listings and searches.
	Published bool `json:"published" db:"published"`

	// CreatedAt is the timestamp when the job was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewJob carries the fields accepted when creating a job. Published defaults
// to true when omitted.
type NewJob struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Company     string  `json:"company" validate:"required,max=255"`
	Location    string  `json:"location" validate:"required,max=255"`
	Salary      *string `json:"salary" validate:"omitempty,max=100"`
	Description string  `json:"description" validate:"required"`
	Published   *bool   `json:"published"`
}

// JobPatch is a partial update of a job. Nil fields are left unchanged.
type JobPatch struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Company     *string `json:"company" validate:"omitempty,min=1,max=255"`
	Location    *string `json:"location" validate:"omitempty,min=1,max=255"`
	Salary      *string `json:"salary" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	Published   *bool   `json:"published"`
}

// Empty reports whether the patch changes nothing.
func (p JobPatch) Empty() bool {
	return p.Title == nil &&
		p.Company == nil &&
		p.Location == nil &&
		p.Salary == nil &&
		p.Description == nil &&
		p.Published == nil
}
