package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

// reasonOfferingFull is the advisory capacity reason; the enrollment flow
// treats it as soft because the reservation transaction is authoritative.
const reasonOfferingFull = "course offering is full"

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	SumPassedCredits(ctx context.Context, studentID string) (int, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseOfferingDetail, error)
}

type enrollmentChecker interface {
	ExistsActive(ctx context.Context, studentID, offeringID string) (bool, error)
}

// EligibilityService decides whether a student may take a seat in an
// offering. Every rule is evaluated so the caller gets all violations at
// once; only missing entities are reported as errors.
type EligibilityService struct {
	students    studentReader
	offerings   offeringReader
	enrollments enrollmentChecker
	logger      *zap.Logger
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(students studentReader, offerings offeringReader, enrollments enrollmentChecker, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{students: students, offerings: offerings, enrollments: enrollments, logger: logger}
}

// Check evaluates all enrollment rules for the pair. The capacity rule here
// is advisory; the authoritative check is the conditional reservation inside
// the enrollment transaction.
func (s *EligibilityService) Check(ctx context.Context, studentID, offeringID string) (*models.EligibilityResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	offering, err := s.offerings.FindDetailByID(ctx, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}

	var reasons []string

	if !offering.Active {
		reasons = append(reasons, "course offering is not active")
	}
	if !offering.RegistrationOpen {
		reasons = append(reasons, "semester registration is closed")
	}

	exists, err := s.enrollments.ExistsActive(ctx, studentID, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		reasons = append(reasons, "student already has an active enrollment in this offering")
	}

	if student.GPA < offering.MinGPA {
		reasons = append(reasons, fmt.Sprintf("cumulative GPA %.2f below required %.2f", student.GPA, offering.MinGPA))
	}

	passed, err := s.students.SumPassedCredits(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum passed credits")
	}
	if passed < offering.MinPassedHours {
		reasons = append(reasons, fmt.Sprintf("passed credit-hours %d below required %d", passed, offering.MinPassedHours))
	}

	if offering.EnrolledCount >= offering.MaxStudents {
		reasons = append(reasons, reasonOfferingFull)
	}

	return &models.EligibilityResult{
		StudentID:  studentID,
		OfferingID: offeringID,
		Eligible:   len(reasons) == 0,
		Reasons:    reasons,
	}, nil
}
