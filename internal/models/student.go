package models

import "time"

// Student represents a learner registered at the university.
// GPA and Percentage are derived projections maintained by the grading
// engine after every grade event; enrollments remain the source of truth.
type Student struct {
	ID            string    `db:"id" json:"id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FullName      string    `db:"full_name" json:"full_name"`
	DepartmentID  string    `db:"department_id" json:"department_id"`
	GPA           float64   `db:"gpa" json:"gpa"`
	Percentage    float64   `db:"percentage" json:"percentage"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	DepartmentID string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
