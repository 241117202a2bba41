package models

import "time"

// Semester models an academic term within the university calendar.
// Sequence is the chronological ordering key used by transcripts; at most
// one semester carries IsCurrent, an invariant owned by the scheduling
// administration, not this service.
type Semester struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	AcademicYear     string    `db:"academic_year" json:"academic_year"`
	Sequence         int       `db:"sequence" json:"sequence"`
	IsCurrent        bool      `db:"is_current" json:"is_current"`
	RegistrationOpen bool      `db:"registration_open" json:"registration_open"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SemesterFilter defines filters supported by list endpoints.
type SemesterFilter struct {
	AcademicYear string
	IsCurrent    *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
