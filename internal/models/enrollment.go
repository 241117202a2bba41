package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. IN_PROGRESS is the only non-terminal state.
const (
	EnrollmentStatusInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusWithdrawn  EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusFailed     EnrollmentStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusWithdrawn || s == EnrollmentStatusFailed
}

// Enrollment captures a student's seat in a course offering. Rows are never
// deleted; withdrawal flips IsActive so transcripts keep the full history.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	OfferingID    string           `db:"offering_id" json:"offering_id"`
	EnrolledAt    time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Mark          *float64         `db:"mark" json:"mark,omitempty"`
	LetterGrade   *string          `db:"letter_grade" json:"letter_grade,omitempty"`
	QualityPoints *float64         `db:"quality_points" json:"quality_points,omitempty"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	IsActive      bool             `db:"is_active" json:"is_active"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and offering info.
type EnrollmentDetail struct {
	Enrollment
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
	Credits       int    `db:"credits" json:"credits"`
	SemesterID    string `db:"semester_id" json:"semester_id"`
	SemesterName  string `db:"semester_name" json:"semester_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID  string
	OfferingID string
	SemesterID string
	Status     EnrollmentStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// GradedEnrollment is the projection used by GPA and transcript aggregation:
// one row per enrollment with the offering's credit weight attached.
type GradedEnrollment struct {
	EnrollmentID  string           `db:"enrollment_id" json:"enrollment_id"`
	CourseCode    string           `db:"course_code" json:"course_code"`
	CourseTitle   string           `db:"course_title" json:"course_title"`
	Credits       int              `db:"credits" json:"credits"`
	SemesterID    string           `db:"semester_id" json:"semester_id"`
	Mark          *float64         `db:"mark" json:"mark,omitempty"`
	LetterGrade   *string          `db:"letter_grade" json:"letter_grade,omitempty"`
	QualityPoints *float64         `db:"quality_points" json:"quality_points,omitempty"`
	Status        EnrollmentStatus `db:"status" json:"status"`
}

// EligibilityResult reports the outcome of all eligibility checks at once so
// callers can surface every violated rule together.
type EligibilityResult struct {
	StudentID  string   `json:"student_id"`
	OfferingID string   `json:"offering_id"`
	Eligible   bool     `json:"eligible"`
	Reasons    []string `json:"reasons,omitempty"`
}
