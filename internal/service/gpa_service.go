package service

import (
	"context"
	"database/sql"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type gradedEnrollmentReader interface {
	ListGraded(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error)
}

type studentExistenceReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// GPAService computes credit-weighted GPA figures from graded enrollments.
// GPA is always recomputed from source rows; the cached value on the
// student record is a projection owned by the enrollment lifecycle.
type GPAService struct {
	enrollments gradedEnrollmentReader
	students    studentExistenceReader
	logger      *zap.Logger
}

// NewGPAService constructs GPAService.
func NewGPAService(enrollments gradedEnrollmentReader, students studentExistenceReader, logger *zap.Logger) *GPAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPAService{enrollments: enrollments, students: students, logger: logger}
}

// Calculate returns the GPA over COMPLETED and FAILED enrollments with a
// recorded quality-point value, scoped to one semester when semesterID is
// set. An empty record yields 0, not an error.
func (s *GPAService) Calculate(ctx context.Context, studentID, semesterID string) (float64, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, err := s.enrollments.ListGraded(ctx, studentID, semesterID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded enrollments")
	}

	return WeightedGPA(rows), nil
}

// WeightedGPA folds graded rows into Σ(points×credits)/Σ(credits). Rounding
// happens once at the end so per-course rounding error cannot compound.
func WeightedGPA(rows []models.GradedEnrollment) float64 {
	var weighted, credits float64
	for _, row := range rows {
		if row.QualityPoints == nil {
			continue
		}
		weighted += *row.QualityPoints * float64(row.Credits)
		credits += float64(row.Credits)
	}
	if credits == 0 {
		return 0
	}
	return roundHalfAway(weighted/credits, 2)
}

// roundHalfAway rounds half away from zero at the given number of decimals.
func roundHalfAway(v float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Round(v*shift) / shift
}
