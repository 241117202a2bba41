package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type mockGradedReader struct {
	rows       []models.GradedEnrollment
	semesterID string
}

func (m *mockGradedReader) ListGraded(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error) {
	m.semesterID = semesterID
	if semesterID == "" {
		return m.rows, nil
	}
	var scoped []models.GradedEnrollment
	for _, row := range m.rows {
		if row.SemesterID == semesterID {
			scoped = append(scoped, row)
		}
	}
	return scoped, nil
}

func gradedRow(id, semesterID string, credits int, points float64) models.GradedEnrollment {
	return models.GradedEnrollment{
		EnrollmentID:  id,
		SemesterID:    semesterID,
		Credits:       credits,
		QualityPoints: &points,
		Status:        models.EnrollmentStatusCompleted,
	}
}

func TestWeightedGPAIsCreditWeighted(t *testing.T) {
	rows := []models.GradedEnrollment{
		gradedRow("e1", "sem1", 3, 4.0),
		gradedRow("e2", "sem1", 4, 2.0),
	}
	// (4.0*3 + 2.0*4) / 7 = 20/7
	assert.Equal(t, 2.86, WeightedGPA(rows))
}

func TestWeightedGPAEmptyRecordIsZero(t *testing.T) {
	assert.Equal(t, 0.0, WeightedGPA(nil))
}

func TestWeightedGPASkipsRowsWithoutPoints(t *testing.T) {
	rows := []models.GradedEnrollment{
		gradedRow("e1", "sem1", 3, 3.0),
		{EnrollmentID: "e2", SemesterID: "sem1", Credits: 5, Status: models.EnrollmentStatusCompleted},
	}
	assert.Equal(t, 3.0, WeightedGPA(rows))
}

func TestWeightedGPARoundsHalfAwayFromZero(t *testing.T) {
	rows := []models.GradedEnrollment{gradedRow("e1", "sem1", 1, 0.125)}
	assert.Equal(t, 0.13, WeightedGPA(rows))
}

func TestWeightedGPACarriesFullPrecision(t *testing.T) {
	// Fractional quality points flow unrounded through the fold; only the
	// final quotient is rounded.
	rows := []models.GradedEnrollment{
		gradedRow("e1", "sem1", 3, 10.0/3),
		gradedRow("e2", "sem1", 3, 11.0/3),
	}
	assert.Equal(t, 3.5, WeightedGPA(rows))
}

func TestCalculateScopesToSemester(t *testing.T) {
	reader := &mockGradedReader{rows: []models.GradedEnrollment{
		gradedRow("e1", "sem1", 3, 4.0),
		gradedRow("e2", "sem2", 3, 2.0),
	}}
	students := &mockStudentReader{students: map[string]models.Student{"s1": {ID: "s1"}}}
	svc := NewGPAService(reader, students, nil)

	cumulative, err := svc.Calculate(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Equal(t, 3.0, cumulative)

	scoped, err := svc.Calculate(context.Background(), "s1", "sem2")
	require.NoError(t, err)
	assert.Equal(t, 2.0, scoped)
	assert.Equal(t, "sem2", reader.semesterID)
}

func TestCalculateMissingStudent(t *testing.T) {
	svc := NewGPAService(&mockGradedReader{}, &mockStudentReader{}, nil)

	_, err := svc.Calculate(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
