package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

const (
	markMin = 0.0
	markMax = 100.0
)

type gradeScaleRepo interface {
	ListActive(ctx context.Context) ([]models.GradeScaleBand, error)
	List(ctx context.Context) ([]models.GradeScaleBand, error)
	Create(ctx context.Context, band *models.GradeScaleBand) error
	Update(ctx context.Context, band *models.GradeScaleBand) error
	Deactivate(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.GradeScaleBand, error)
}

// UpsertBandRequest describes grade-scale band payloads.
type UpsertBandRequest struct {
	MinMark       float64 `json:"min_mark" validate:"gte=0,lte=100"`
	MaxMark       float64 `json:"max_mark" validate:"gte=0,lte=100"`
	LetterGrade   string  `json:"letter_grade" validate:"required"`
	QualityPoints float64 `json:"quality_points" validate:"gte=0"`
	IsActive      bool    `json:"is_active"`
}

// GradeScaleService resolves numeric marks to letter grades through the
// configured scale. The active scale is validated once per load and cached;
// any band mutation invalidates the cache so the next resolve revalidates.
type GradeScaleService struct {
	repo      gradeScaleRepo
	validator *validator.Validate
	logger    *zap.Logger

	mu    sync.RWMutex
	scale []models.GradeScaleBand // validated, sorted by MinMark, nil until loaded
}

// NewGradeScaleService constructs GradeScaleService.
func NewGradeScaleService(repo gradeScaleRepo, validate *validator.Validate, logger *zap.Logger) *GradeScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeScaleService{repo: repo, validator: validate, logger: logger}
}

// Resolve maps a mark to its letter grade and quality points. Bands are
// scanned from the top and the first band whose MinMark does not exceed the
// mark wins: a mark on a shared boundary lands in the higher band, and a
// fractional mark inside an integer-adjacent seam (59.5 between 0-59 and
// 60-100) falls to the band below it.
func (s *GradeScaleService) Resolve(ctx context.Context, mark float64) (*models.ResolvedGrade, error) {
	if mark < markMin || mark > markMax {
		return nil, appErrors.Clone(appErrors.ErrInvalidMark, fmt.Sprintf("mark %.2f outside [0,100]", mark))
	}

	scale, err := s.activeScale(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(scale) - 1; i >= 0; i-- {
		band := scale[i]
		if mark >= band.MinMark {
			return &models.ResolvedGrade{Mark: mark, LetterGrade: band.LetterGrade, QualityPoints: band.QualityPoints}, nil
		}
	}

	// Unreachable for a validated scale; treated as configuration failure.
	return nil, appErrors.Clone(appErrors.ErrGradeScaleInvalid, fmt.Sprintf("no band resolves mark %.2f", mark))
}

// ListActiveBands exposes the validated scale for the registration UI.
func (s *GradeScaleService) ListActiveBands(ctx context.Context) ([]models.GradeScaleBand, error) {
	return s.activeScale(ctx)
}

// ListAllBands returns every configured band for administration screens.
func (s *GradeScaleService) ListAllBands(ctx context.Context) ([]models.GradeScaleBand, error) {
	bands, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade bands")
	}
	return bands, nil
}

// CreateBand adds a band and drops the cached scale.
func (s *GradeScaleService) CreateBand(ctx context.Context, req UpsertBandRequest) (*models.GradeScaleBand, error) {
	if err := s.validateBandPayload(req); err != nil {
		return nil, err
	}
	band := &models.GradeScaleBand{
		MinMark:       req.MinMark,
		MaxMark:       req.MaxMark,
		LetterGrade:   req.LetterGrade,
		QualityPoints: req.QualityPoints,
		IsActive:      req.IsActive,
	}
	if err := s.repo.Create(ctx, band); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade band")
	}
	s.Invalidate()
	return band, nil
}

// UpdateBand modifies a band and drops the cached scale.
func (s *GradeScaleService) UpdateBand(ctx context.Context, id string, req UpsertBandRequest) (*models.GradeScaleBand, error) {
	if err := s.validateBandPayload(req); err != nil {
		return nil, err
	}
	band, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade band not found")
	}
	band.MinMark = req.MinMark
	band.MaxMark = req.MaxMark
	band.LetterGrade = req.LetterGrade
	band.QualityPoints = req.QualityPoints
	band.IsActive = req.IsActive
	if err := s.repo.Update(ctx, band); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade band")
	}
	s.Invalidate()
	return band, nil
}

// DeactivateBand retires a band and drops the cached scale.
func (s *GradeScaleService) DeactivateBand(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "grade band not found")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate grade band")
	}
	s.Invalidate()
	return nil
}

// Invalidate drops the cached scale, forcing revalidation on next use.
func (s *GradeScaleService) Invalidate() {
	s.mu.Lock()
	s.scale = nil
	s.mu.Unlock()
}

func (s *GradeScaleService) validateBandPayload(req UpsertBandRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade band payload")
	}
	if req.MinMark > req.MaxMark {
		return appErrors.Clone(appErrors.ErrValidation, "min_mark must not exceed max_mark")
	}
	return nil
}

func (s *GradeScaleService) activeScale(ctx context.Context) ([]models.GradeScaleBand, error) {
	s.mu.RLock()
	scale := s.scale
	s.mu.RUnlock()
	if scale != nil {
		return scale, nil
	}

	bands, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scale")
	}
	if err := validateScale(bands); err != nil {
		s.logger.Error("grade scale configuration rejected", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrGradeScaleInvalid.Code, appErrors.ErrGradeScaleInvalid.Status, appErrors.ErrGradeScaleInvalid.Message)
	}

	s.mu.Lock()
	s.scale = bands
	s.mu.Unlock()
	return bands, nil
}

// validateScale enforces full [0,100] coverage without gap or overlap.
// Adjacent bands may share a boundary or sit one whole mark apart; a shared
// boundary resolves to the higher band, and any mark between integer-adjacent
// bands resolves to the lower one, so every mark in [0,100] has a band.
func validateScale(bands []models.GradeScaleBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("no active bands configured")
	}
	for _, band := range bands {
		if band.MinMark > band.MaxMark {
			return fmt.Errorf("band %s inverted: min %.2f > max %.2f", band.LetterGrade, band.MinMark, band.MaxMark)
		}
	}
	if bands[0].MinMark != markMin {
		return fmt.Errorf("scale starts at %.2f, expected %.2f", bands[0].MinMark, markMin)
	}
	if bands[len(bands)-1].MaxMark != markMax {
		return fmt.Errorf("scale ends at %.2f, expected %.2f", bands[len(bands)-1].MaxMark, markMax)
	}
	for i := 0; i < len(bands)-1; i++ {
		prev, next := bands[i], bands[i+1]
		if next.MinMark < prev.MaxMark {
			return fmt.Errorf("bands %s and %s overlap at %.2f", prev.LetterGrade, next.LetterGrade, next.MinMark)
		}
		if next.MinMark > prev.MaxMark+1 {
			return fmt.Errorf("gap between bands %s and %s: %.2f to %.2f", prev.LetterGrade, next.LetterGrade, prev.MaxMark, next.MinMark)
		}
	}
	return nil
}
