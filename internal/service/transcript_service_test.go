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

type mockTranscriptReader struct {
	rows []models.GradedEnrollment
}

func (m *mockTranscriptReader) ListForTranscript(ctx context.Context, studentID string) ([]models.GradedEnrollment, error) {
	return m.rows, nil
}

type mockSemesterReader struct {
	semesters map[string]models.Semester
}

func (m *mockSemesterReader) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	semester, ok := m.semesters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &semester, nil
}

func transcriptFixture() (*mockTranscriptReader, *mockStudentReader, *mockSemesterReader) {
	markA, markF, markW := 95.0, 40.0, 55.0
	gradeA, gradeF := "A", "F"
	pointsA, pointsF := 4.0, 0.0

	rows := []models.GradedEnrollment{
		{EnrollmentID: "e1", CourseCode: "CS101", CourseTitle: "Intro", Credits: 3, SemesterID: "sem1",
			Mark: &markA, LetterGrade: &gradeA, QualityPoints: &pointsA, Status: models.EnrollmentStatusCompleted},
		{EnrollmentID: "e2", CourseCode: "MA101", CourseTitle: "Calculus", Credits: 3, SemesterID: "sem1",
			Mark: &markW, Status: models.EnrollmentStatusWithdrawn},
		{EnrollmentID: "e3", CourseCode: "CS201", CourseTitle: "Data Structures", Credits: 4, SemesterID: "sem2",
			Mark: &markF, LetterGrade: &gradeF, QualityPoints: &pointsF, Status: models.EnrollmentStatusFailed},
	}

	students := &mockStudentReader{students: map[string]models.Student{
		"s1": {ID: "s1", StudentNumber: "2021001", FullName: "Student One"},
	}}
	semesters := &mockSemesterReader{semesters: map[string]models.Semester{
		"sem2": {ID: "sem2", Name: "Spring 2022", AcademicYear: "2021/2022", Sequence: 2},
		"sem1": {ID: "sem1", Name: "Fall 2021", AcademicYear: "2021/2022", Sequence: 1},
	}}
	return &mockTranscriptReader{rows: rows}, students, semesters
}

func TestBuildGroupsBySemesterInOrder(t *testing.T) {
	reader, students, semesters := transcriptFixture()
	cache := NewCacheService(nil, nil, 0, nil, false)
	svc := NewTranscriptService(reader, students, semesters, cache, 0, nil)

	transcript, err := svc.Build(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "2021001", transcript.StudentNumber)
	require.Len(t, transcript.Semesters, 2)
	assert.Equal(t, "Fall 2021", transcript.Semesters[0].SemesterName)
	assert.Equal(t, "Spring 2022", transcript.Semesters[1].SemesterName)
}

func TestBuildExcludesWithdrawnFromGPA(t *testing.T) {
	reader, students, semesters := transcriptFixture()
	cache := NewCacheService(nil, nil, 0, nil, false)
	svc := NewTranscriptService(reader, students, semesters, cache, 0, nil)

	transcript, err := svc.Build(context.Background(), "s1")
	require.NoError(t, err)

	fall := transcript.Semesters[0]
	require.Len(t, fall.Lines, 2)
	assert.Equal(t, 4.0, fall.GPA)
	assert.Equal(t, 3, fall.CreditsTaken)

	var withdrawnLine models.TranscriptLine
	for _, line := range fall.Lines {
		if line.Status == models.EnrollmentStatusWithdrawn {
			withdrawnLine = line
		}
	}
	assert.Equal(t, models.WithdrawnLetterGrade, withdrawnLine.LetterGrade)
	assert.Nil(t, withdrawnLine.QualityPoints)

	// Cumulative over graded rows only: (4.0*3 + 0.0*4) / 7.
	assert.Equal(t, 1.71, transcript.CumulativeGPA)
}

func TestBuildMissingStudent(t *testing.T) {
	reader, students, semesters := transcriptFixture()
	cache := NewCacheService(nil, nil, 0, nil, false)
	svc := NewTranscriptService(reader, students, semesters, cache, 0, nil)

	_, err := svc.Build(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
