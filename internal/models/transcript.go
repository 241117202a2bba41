package models

import "time"

// WithdrawnLetterGrade is shown on transcript lines for withdrawn
// enrollments; such lines never contribute to GPA.
const WithdrawnLetterGrade = "W"

// TranscriptLine is a single course row within a semester record.
type TranscriptLine struct {
	CourseCode    string           `json:"course_code"`
	CourseTitle   string           `json:"course_title"`
	Credits       int              `json:"credits"`
	Mark          *float64         `json:"mark,omitempty"`
	LetterGrade   string           `json:"letter_grade"`
	QualityPoints *float64         `json:"quality_points,omitempty"`
	Status        EnrollmentStatus `json:"status"`
}

// SemesterRecord groups a student's transcript lines for one semester.
type SemesterRecord struct {
	SemesterID   string           `json:"semester_id"`
	SemesterName string           `json:"semester_name"`
	AcademicYear string           `json:"academic_year"`
	Sequence     int              `json:"sequence"`
	Lines        []TranscriptLine `json:"lines"`
	GPA          float64          `json:"gpa"`
	CreditsTaken int              `json:"credits_taken"`
}

// Transcript is the full academic record of a student.
type Transcript struct {
	StudentID     string           `json:"student_id"`
	StudentNumber string           `json:"student_number"`
	StudentName   string           `json:"student_name"`
	Semesters     []SemesterRecord `json:"semesters"`
	CumulativeGPA float64          `json:"cumulative_gpa"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
