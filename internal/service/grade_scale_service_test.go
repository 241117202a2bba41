package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type mockGradeScaleRepo struct {
	bands           []models.GradeScaleBand
	listActiveCalls int
}

func (m *mockGradeScaleRepo) ListActive(ctx context.Context) ([]models.GradeScaleBand, error) {
	m.listActiveCalls++
	var active []models.GradeScaleBand
	for _, b := range m.bands {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return active, nil
}

func (m *mockGradeScaleRepo) List(ctx context.Context) ([]models.GradeScaleBand, error) {
	return m.bands, nil
}

func (m *mockGradeScaleRepo) Create(ctx context.Context, band *models.GradeScaleBand) error {
	if band.ID == "" {
		band.ID = "band-new"
	}
	m.bands = append(m.bands, *band)
	return nil
}

func (m *mockGradeScaleRepo) Update(ctx context.Context, band *models.GradeScaleBand) error {
	for i := range m.bands {
		if m.bands[i].ID == band.ID {
			m.bands[i] = *band
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockGradeScaleRepo) Deactivate(ctx context.Context, id string) error {
	for i := range m.bands {
		if m.bands[i].ID == id {
			m.bands[i].IsActive = false
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockGradeScaleRepo) FindByID(ctx context.Context, id string) (*models.GradeScaleBand, error) {
	for i := range m.bands {
		if m.bands[i].ID == id {
			band := m.bands[i]
			return &band, nil
		}
	}
	return nil, sql.ErrNoRows
}

func standardScale() []models.GradeScaleBand {
	return []models.GradeScaleBand{
		{ID: "b1", MinMark: 0, MaxMark: 60, LetterGrade: "F", QualityPoints: 0, IsActive: true},
		{ID: "b2", MinMark: 60, MaxMark: 70, LetterGrade: "D", QualityPoints: 1, IsActive: true},
		{ID: "b3", MinMark: 70, MaxMark: 80, LetterGrade: "C", QualityPoints: 2, IsActive: true},
		{ID: "b4", MinMark: 80, MaxMark: 90, LetterGrade: "B", QualityPoints: 3, IsActive: true},
		{ID: "b5", MinMark: 90, MaxMark: 100, LetterGrade: "A", QualityPoints: 4, IsActive: true},
	}
}

func TestResolveMapsMarksToBands(t *testing.T) {
	svc := NewGradeScaleService(&mockGradeScaleRepo{bands: standardScale()}, nil, nil)

	cases := []struct {
		mark   float64
		letter string
		points float64
	}{
		{0, "F", 0},
		{59.9, "F", 0},
		{65, "D", 1},
		{92, "A", 4},
		{100, "A", 4},
	}
	for _, tc := range cases {
		resolved, err := svc.Resolve(context.Background(), tc.mark)
		require.NoError(t, err, "mark %.1f", tc.mark)
		assert.Equal(t, tc.letter, resolved.LetterGrade, "mark %.1f", tc.mark)
		assert.Equal(t, tc.points, resolved.QualityPoints, "mark %.1f", tc.mark)
	}
}

func TestResolveBoundaryGoesToHigherBand(t *testing.T) {
	svc := NewGradeScaleService(&mockGradeScaleRepo{bands: standardScale()}, nil, nil)

	for mark, letter := range map[float64]string{60: "D", 70: "C", 80: "B", 90: "A"} {
		resolved, err := svc.Resolve(context.Background(), mark)
		require.NoError(t, err)
		assert.Equal(t, letter, resolved.LetterGrade, "boundary mark %.0f", mark)
	}
}

func TestResolveRejectsOutOfRangeMark(t *testing.T) {
	svc := NewGradeScaleService(&mockGradeScaleRepo{bands: standardScale()}, nil, nil)

	for _, mark := range []float64{-0.1, 100.1} {
		_, err := svc.Resolve(context.Background(), mark)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidMark), "mark %.1f", mark)
	}
}

func TestResolveRejectsMisconfiguredScales(t *testing.T) {
	cases := map[string][]models.GradeScaleBand{
		"gap": {
			{ID: "b1", MinMark: 0, MaxMark: 50, LetterGrade: "F", IsActive: true},
			{ID: "b2", MinMark: 55, MaxMark: 100, LetterGrade: "P", IsActive: true},
		},
		"overlap": {
			{ID: "b1", MinMark: 0, MaxMark: 60, LetterGrade: "F", IsActive: true},
			{ID: "b2", MinMark: 55, MaxMark: 100, LetterGrade: "P", IsActive: true},
		},
		"does not start at zero": {
			{ID: "b1", MinMark: 10, MaxMark: 100, LetterGrade: "P", IsActive: true},
		},
		"does not end at hundred": {
			{ID: "b1", MinMark: 0, MaxMark: 95, LetterGrade: "P", IsActive: true},
		},
		"empty": {},
	}

	for name, bands := range cases {
		svc := NewGradeScaleService(&mockGradeScaleRepo{bands: bands}, nil, nil)
		_, err := svc.Resolve(context.Background(), 50)
		assert.True(t, errors.Is(err, appErrors.ErrGradeScaleInvalid), "case %s", name)
	}
}

func TestResolveAcceptsIntegerAdjacentBands(t *testing.T) {
	bands := []models.GradeScaleBand{
		{ID: "b1", MinMark: 0, MaxMark: 59, LetterGrade: "F", QualityPoints: 0, IsActive: true},
		{ID: "b2", MinMark: 60, MaxMark: 100, LetterGrade: "P", QualityPoints: 4, IsActive: true},
	}
	svc := NewGradeScaleService(&mockGradeScaleRepo{bands: bands}, nil, nil)

	resolved, err := svc.Resolve(context.Background(), 59)
	require.NoError(t, err)
	assert.Equal(t, "F", resolved.LetterGrade)

	resolved, err = svc.Resolve(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, "P", resolved.LetterGrade)
}

func TestResolveFractionalMarkInSeamFallsToLowerBand(t *testing.T) {
	bands := []models.GradeScaleBand{
		{ID: "b1", MinMark: 0, MaxMark: 59, LetterGrade: "F", QualityPoints: 0, IsActive: true},
		{ID: "b2", MinMark: 60, MaxMark: 100, LetterGrade: "P", QualityPoints: 4, IsActive: true},
	}
	svc := NewGradeScaleService(&mockGradeScaleRepo{bands: bands}, nil, nil)

	// 59.5 sits strictly between the two bands; it must still grade.
	resolved, err := svc.Resolve(context.Background(), 59.5)
	require.NoError(t, err)
	assert.Equal(t, "F", resolved.LetterGrade)
	assert.Equal(t, 0.0, resolved.QualityPoints)
}

func TestScaleCachedUntilMutation(t *testing.T) {
	repo := &mockGradeScaleRepo{bands: standardScale()}
	svc := NewGradeScaleService(repo, nil, nil)

	_, err := svc.Resolve(context.Background(), 75)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), 85)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listActiveCalls)

	_, err = svc.UpdateBand(context.Background(), "b5", UpsertBandRequest{
		MinMark: 90, MaxMark: 100, LetterGrade: "A", QualityPoints: 4, IsActive: true,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), 95)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listActiveCalls)
}

func TestCreateBandValidatesRange(t *testing.T) {
	svc := NewGradeScaleService(&mockGradeScaleRepo{}, nil, nil)

	_, err := svc.CreateBand(context.Background(), UpsertBandRequest{
		MinMark: 80, MaxMark: 70, LetterGrade: "X",
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
