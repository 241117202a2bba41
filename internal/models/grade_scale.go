package models

import "time"

// GradeScaleBand maps an inclusive mark range to a letter grade and its
// quality-point value. The set of active bands must cover [0,100] without
// gap or overlap; the resolver validates this on load.
type GradeScaleBand struct {
	ID            string    `db:"id" json:"id"`
	MinMark       float64   `db:"min_mark" json:"min_mark"`
	MaxMark       float64   `db:"max_mark" json:"max_mark"`
	LetterGrade   string    `db:"letter_grade" json:"letter_grade"`
	QualityPoints float64   `db:"quality_points" json:"quality_points"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ResolvedGrade is the outcome of mapping a mark through the active scale.
type ResolvedGrade struct {
	Mark          float64 `json:"mark"`
	LetterGrade   string  `json:"letter_grade"`
	QualityPoints float64 `json:"quality_points"`
}
