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

type mockStudentReader struct {
	students      map[string]models.Student
	passedCredits map[string]int
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (m *mockStudentReader) SumPassedCredits(ctx context.Context, studentID string) (int, error) {
	return m.passedCredits[studentID], nil
}

type mockOfferingReader struct {
	offerings map[string]models.CourseOfferingDetail
}

func (m *mockOfferingReader) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	detail, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	offering := detail.CourseOffering
	return &offering, nil
}

func (m *mockOfferingReader) FindDetailByID(ctx context.Context, id string) (*models.CourseOfferingDetail, error) {
	detail, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

type mockEnrollmentChecker struct {
	active map[string]bool
}

func (m *mockEnrollmentChecker) ExistsActive(ctx context.Context, studentID, offeringID string) (bool, error) {
	return m.active[studentID+"/"+offeringID], nil
}

func eligibilityFixture() (*mockStudentReader, *mockOfferingReader, *mockEnrollmentChecker) {
	students := &mockStudentReader{
		students: map[string]models.Student{
			"s1": {ID: "s1", StudentNumber: "2021001", FullName: "Student One", GPA: 3.2, Active: true},
		},
		passedCredits: map[string]int{"s1": 60},
	}
	offerings := &mockOfferingReader{
		offerings: map[string]models.CourseOfferingDetail{
			"o1": {
				CourseOffering: models.CourseOffering{
					ID: "o1", Code: "CS301", Title: "Algorithms", Credits: 3,
					MaxStudents: 30, EnrolledCount: 10, MinGPA: 2.5, MinPassedHours: 45, Active: true,
				},
				RegistrationOpen: true,
			},
		},
	}
	enrollments := &mockEnrollmentChecker{active: map[string]bool{}}
	return students, offerings, enrollments
}

func TestCheckEligibleStudent(t *testing.T) {
	students, offerings, enrollments := eligibilityFixture()
	svc := NewEligibilityService(students, offerings, enrollments, nil)

	result, err := svc.Check(context.Background(), "s1", "o1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Empty(t, result.Reasons)
}

func TestCheckAccumulatesEveryViolation(t *testing.T) {
	students, offerings, enrollments := eligibilityFixture()
	offering := offerings.offerings["o1"]
	offering.Active = false
	offering.RegistrationOpen = false
	offering.EnrolledCount = offering.MaxStudents
	offering.MinGPA = 3.9
	offering.MinPassedHours = 90
	offerings.offerings["o1"] = offering
	enrollments.active["s1/o1"] = true

	svc := NewEligibilityService(students, offerings, enrollments, nil)
	result, err := svc.Check(context.Background(), "s1", "o1")
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Len(t, result.Reasons, 6)
	assert.Contains(t, result.Reasons, "course offering is not active")
	assert.Contains(t, result.Reasons, "semester registration is closed")
	assert.Contains(t, result.Reasons, "student already has an active enrollment in this offering")
	assert.Contains(t, result.Reasons, reasonOfferingFull)
}

func TestCheckBoundaryRequirementsPass(t *testing.T) {
	students, offerings, enrollments := eligibilityFixture()
	offering := offerings.offerings["o1"]
	offering.MinGPA = 3.2  // equal to the student's GPA
	offering.MinPassedHours = 60
	offerings.offerings["o1"] = offering

	svc := NewEligibilityService(students, offerings, enrollments, nil)
	result, err := svc.Check(context.Background(), "s1", "o1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
}

func TestCheckMissingEntities(t *testing.T) {
	students, offerings, enrollments := eligibilityFixture()
	svc := NewEligibilityService(students, offerings, enrollments, nil)

	_, err := svc.Check(context.Background(), "missing", "o1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Check(context.Background(), "s1", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
