package models

import "time"

// CourseOffering is a course scheduled within a specific semester.
// EnrolledCount counts seats held by IN_PROGRESS, COMPLETED and FAILED
// enrollments; it only moves through the conditional reserve/release
// updates so concurrent enrollment can never overshoot MaxStudents.
type CourseOffering struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Title          string    `db:"title" json:"title"`
	SemesterID     string    `db:"semester_id" json:"semester_id"`
	Credits        int       `db:"credits" json:"credits"`
	MaxStudents    int       `db:"max_students" json:"max_students"`
	EnrolledCount  int       `db:"enrolled_count" json:"enrolled_count"`
	MinGPA         float64   `db:"min_gpa" json:"min_gpa"`
	MinPassedHours int       `db:"min_passed_hours" json:"min_passed_hours"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseOfferingDetail enriches an offering with semester context.
// InProgressCount is the live teaching load (IN_PROGRESS only) as opposed to
// EnrolledCount, which also keeps graded enrollments against capacity; it is
// filled by the service, not scanned from the offering row.
type CourseOfferingDetail struct {
	CourseOffering
	SemesterName     string `db:"semester_name" json:"semester_name"`
	RegistrationOpen bool   `db:"registration_open" json:"registration_open"`
	InProgressCount  int    `db:"-" json:"in_progress_count"`
}

// CourseOfferingFilter provides filters for listing offerings.
type CourseOfferingFilter struct {
	SemesterID string
	Search     string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
