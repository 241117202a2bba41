package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
)

func newGradeScaleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeScaleListActiveOrdersByMinMark(t *testing.T) {
	db, mock, cleanup := newGradeScaleRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "min_mark", "max_mark", "letter_grade", "quality_points", "is_active", "created_at", "updated_at"}).
		AddRow("b1", 0.0, 60.0, "F", 0.0, true, time.Now(), time.Now()).
		AddRow("b2", 60.0, 100.0, "P", 4.0, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, min_mark, max_mark, letter_grade, quality_points, is_active, created_at, updated_at FROM grade_scale_bands WHERE is_active = TRUE ORDER BY min_mark ASC").
		WillReturnRows(rows)

	bands, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, bands, 2)
	assert.Equal(t, "F", bands[0].LetterGrade)
	assert.Equal(t, "P", bands[1].LetterGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeScaleCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newGradeScaleRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	mock.ExpectExec("INSERT INTO grade_scale_bands").
		WillReturnResult(sqlmock.NewResult(0, 1))
	band := &models.GradeScaleBand{MinMark: 0, MaxMark: 100, LetterGrade: "P", QualityPoints: 4, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), band))
	assert.NotEmpty(t, band.ID)

	mock.ExpectExec("UPDATE grade_scale_bands SET is_active = FALSE").
		WithArgs("b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Deactivate(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
