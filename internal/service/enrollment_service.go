package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	"github.com/noah-isme/univ-adp-api/internal/repository"
	"github.com/noah-isme/univ-adp-api/pkg/config"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	CreateWithReservation(ctx context.Context, enrollment *models.Enrollment) error
	WithdrawAndRelease(ctx context.Context, id string) error
	UpdateGrade(ctx context.Context, id string, mark float64, letterGrade string, qualityPoints float64, status models.EnrollmentStatus) error
	ListGraded(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error)
}

type eligibilityChecker interface {
	Check(ctx context.Context, studentID, offeringID string) (*models.EligibilityResult, error)
}

type gradeResolver interface {
	Resolve(ctx context.Context, mark float64) (*models.ResolvedGrade, error)
}

type studentProjector interface {
	UpdateGPAProjection(ctx context.Context, id string, gpa, percentage float64) error
}

type transcriptInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// EnrollRequest describes enrollment creation payloads.
type EnrollRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	OfferingID string `json:"offering_id" validate:"required"`
}

// AssignGradeRequest carries the raw mark for a graded enrollment.
type AssignGradeRequest struct {
	Mark *float64 `json:"mark" validate:"required"`
}

// EnrollmentService owns the enrollment state machine: seat reservation on
// enroll, seat release on withdraw, and the graded transitions.
type EnrollmentService struct {
	repo        enrollmentRepository
	eligibility eligibilityChecker
	resolver    gradeResolver
	students    studentProjector
	transcripts transcriptInvalidator
	grading     config.GradingConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, eligibility eligibilityChecker, resolver gradeResolver, students studentProjector, transcripts transcriptInvalidator, grading config.GradingConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:        repo,
		eligibility: eligibility,
		resolver:    resolver,
		students:    students,
		transcripts: transcripts,
		grading:     grading,
		validator:   validate,
		logger:      logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Enroll reserves a seat for the student. Eligibility is evaluated up front
// for complete reasons, then re-validated inside the reservation transaction
// so a check-then-act race cannot overbook the offering.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	result, err := s.eligibility.Check(ctx, req.StudentID, req.OfferingID)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		// The capacity reason alone is advisory; the reservation below is
		// authoritative and reports the race precisely.
		if hard := withoutCapacityReason(result.Reasons); len(hard) > 0 {
			return nil, appErrors.Clone(appErrors.ErrNotEligible, strings.Join(hard, "; "))
		}
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, OfferingID: req.OfferingID}
	if err := s.repo.CreateWithReservation(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatUnavailable):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		case errors.Is(err, repository.ErrDuplicateActive):
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		case errors.Is(err, repository.ErrOfferingClosed):
			return nil, appErrors.Clone(appErrors.ErrNotEligible, "course offering is closed for registration")
		case errors.Is(err, repository.ErrRequirementsNotMet):
			return nil, appErrors.Clone(appErrors.ErrNotEligible, "gpa or passed-hours requirement no longer met")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student or offering not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("offering_id", req.OfferingID))

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Withdraw moves an IN_PROGRESS enrollment to WITHDRAWN and releases its
// seat. Terminal enrollments are rejected.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment already "+strings.ToLower(string(enrollment.Status)))
	}

	if err := s.repo.WithdrawAndRelease(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}

	if s.transcripts != nil {
		s.transcripts.InvalidateStudent(ctx, enrollment.StudentID)
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// AssignGrade records a mark for an IN_PROGRESS enrollment, resolves the
// letter grade and quality points through the active scale, and moves the
// enrollment to COMPLETED or FAILED against the passing threshold. The seat
// stays reserved. The student's cached GPA projection is refreshed after
// the write.
func (s *EnrollmentService) AssignGrade(ctx context.Context, id string, req AssignGradeRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	mark := *req.Mark
	if mark < markMin || mark > markMax {
		return nil, appErrors.Clone(appErrors.ErrInvalidMark, "")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment already "+strings.ToLower(string(enrollment.Status)))
	}

	resolved, err := s.resolver.Resolve(ctx, mark)
	if err != nil {
		return nil, err
	}

	status := models.EnrollmentStatusFailed
	if resolved.QualityPoints > s.grading.PassingQualityPoints {
		status = models.EnrollmentStatusCompleted
	}

	if err := s.repo.UpdateGrade(ctx, id, mark, resolved.LetterGrade, resolved.QualityPoints, status); err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.refreshProjection(ctx, enrollment.StudentID)
	if s.transcripts != nil {
		s.transcripts.InvalidateStudent(ctx, enrollment.StudentID)
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// refreshProjection recomputes the cached GPA and percentage after a grade
// event. A projection failure is logged, not surfaced: the grade itself is
// committed and the cache is advisory.
func (s *EnrollmentService) refreshProjection(ctx context.Context, studentID string) {
	rows, err := s.repo.ListGraded(ctx, studentID, "")
	if err != nil {
		s.logger.Warn("gpa projection read failed", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	gpa := WeightedGPA(rows)
	percentage := 0.0
	if s.grading.GPAScaleMax > 0 {
		percentage = roundHalfAway(gpa/s.grading.GPAScaleMax*100, 2)
	}
	if err := s.students.UpdateGPAProjection(ctx, studentID, gpa, percentage); err != nil {
		s.logger.Warn("gpa projection write failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func withoutCapacityReason(reasons []string) []string {
	var hard []string
	for _, reason := range reasons {
		if reason == reasonOfferingFull {
			continue
		}
		hard = append(hard, reason)
	}
	return hard
}
