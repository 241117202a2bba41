package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-adp-api/internal/models"
)

// GradeScaleRepository handles persistence of grade scale bands.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository constructs the repository.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

const bandColumns = "id, min_mark, max_mark, letter_grade, quality_points, is_active, created_at, updated_at"

// ListActive returns the active bands sorted by MinMark ascending, the
// order the resolver validates against.
func (r *GradeScaleRepository) ListActive(ctx context.Context) ([]models.GradeScaleBand, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_scale_bands WHERE is_active = TRUE ORDER BY min_mark ASC", bandColumns)
	var bands []models.GradeScaleBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("list active bands: %w", err)
	}
	return bands, nil
}

// List returns every band including inactive ones, for administration.
func (r *GradeScaleRepository) List(ctx context.Context) ([]models.GradeScaleBand, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_scale_bands ORDER BY min_mark ASC", bandColumns)
	var bands []models.GradeScaleBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("list bands: %w", err)
	}
	return bands, nil
}

// FindByID returns a band by its ID.
func (r *GradeScaleRepository) FindByID(ctx context.Context, id string) (*models.GradeScaleBand, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_scale_bands WHERE id = $1", bandColumns)
	var band models.GradeScaleBand
	if err := r.db.GetContext(ctx, &band, query, id); err != nil {
		return nil, err
	}
	return &band, nil
}

// Create persists a new band.
func (r *GradeScaleRepository) Create(ctx context.Context, band *models.GradeScaleBand) error {
	if band.ID == "" {
		band.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if band.CreatedAt.IsZero() {
		band.CreatedAt = now
	}
	band.UpdatedAt = now
	const query = `INSERT INTO grade_scale_bands (id, min_mark, max_mark, letter_grade, quality_points, is_active, created_at, updated_at)
        VALUES (:id, :min_mark, :max_mark, :letter_grade, :quality_points, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, band); err != nil {
		return fmt.Errorf("create band: %w", err)
	}
	return nil
}

// Update persists band changes.
func (r *GradeScaleRepository) Update(ctx context.Context, band *models.GradeScaleBand) error {
	band.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_scale_bands SET min_mark = :min_mark, max_mark = :max_mark, letter_grade = :letter_grade, quality_points = :quality_points, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, band); err != nil {
		return fmt.Errorf("update band: %w", err)
	}
	return nil
}

// Deactivate retires a band without deleting historical configuration.
func (r *GradeScaleRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE grade_scale_bands SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate band: %w", err)
	}
	return nil
}
