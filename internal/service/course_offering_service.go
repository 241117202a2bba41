package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	"github.com/noah-isme/univ-adp-api/internal/repository"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type courseOfferingRepository interface {
	List(ctx context.Context, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseOfferingDetail, error)
	Create(ctx context.Context, offering *models.CourseOffering) error
	UpdateCapacity(ctx context.Context, id string, maxStudents int) error
	SetActive(ctx context.Context, id string, active bool) error
}

type offeringLoadReader interface {
	CountInProgress(ctx context.Context, offeringID string) (int, error)
}

// CreateOfferingRequest describes offering creation payloads.
type CreateOfferingRequest struct {
	Code           string  `json:"code" validate:"required"`
	Title          string  `json:"title" validate:"required"`
	SemesterID     string  `json:"semester_id" validate:"required"`
	Credits        int     `json:"credits" validate:"gt=0"`
	MaxStudents    int     `json:"max_students" validate:"gt=0"`
	MinGPA         float64 `json:"min_gpa" validate:"gte=0"`
	MinPassedHours int     `json:"min_passed_hours" validate:"gte=0"`
}

// AdjustCapacityRequest raises or lowers an offering's capacity.
type AdjustCapacityRequest struct {
	MaxStudents int `json:"max_students" validate:"gt=0"`
}

// CourseOfferingService manages offerings. Offerings with enrollments are
// immutable except for administrator capacity adjustments.
type CourseOfferingService struct {
	repo      courseOfferingRepository
	semesters semesterReader
	loads     offeringLoadReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseOfferingService constructs CourseOfferingService.
func NewCourseOfferingService(repo courseOfferingRepository, semesters semesterReader, loads offeringLoadReader, validate *validator.Validate, logger *zap.Logger) *CourseOfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseOfferingService{repo: repo, semesters: semesters, loads: loads, validator: validate, logger: logger}
}

// List returns offerings with pagination metadata.
func (s *CourseOfferingService) List(ctx context.Context, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one offering with semester context and its live teaching load.
func (s *CourseOfferingService) Get(ctx context.Context, id string) (*models.CourseOfferingDetail, error) {
	offering, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if s.loads != nil {
		inProgress, err := s.loads.CountInProgress(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count in-progress enrollments")
		}
		offering.InProgressCount = inProgress
	}
	return offering, nil
}

// Create schedules a course within a semester.
func (s *CourseOfferingService) Create(ctx context.Context, req CreateOfferingRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	offering := &models.CourseOffering{
		Code:           req.Code,
		Title:          req.Title,
		SemesterID:     req.SemesterID,
		Credits:        req.Credits,
		MaxStudents:    req.MaxStudents,
		MinGPA:         req.MinGPA,
		MinPassedHours: req.MinPassedHours,
		Active:         true,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}
	return offering, nil
}

// AdjustCapacity changes MaxStudents, never below the seats already taken.
func (s *CourseOfferingService) AdjustCapacity(ctx context.Context, id string, req AdjustCapacityRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capacity payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if err := s.repo.UpdateCapacity(ctx, id, req.MaxStudents); err != nil {
		if errors.Is(err, repository.ErrCapacityBelowEnrolled) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity cannot drop below enrolled count")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust capacity")
	}
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}

// SetActive opens or closes an offering for registration.
func (s *CourseOfferingService) SetActive(ctx context.Context, id string, active bool) (*models.CourseOffering, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update offering")
	}
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}
