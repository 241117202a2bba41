package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
	"github.com/noah-isme/univ-adp-api/internal/repository"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type mockOfferingStore struct {
	offerings map[string]models.CourseOfferingDetail
	capErr    error
}

func (m *mockOfferingStore) List(ctx context.Context, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, int, error) {
	var out []models.CourseOfferingDetail
	for _, o := range m.offerings {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockOfferingStore) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	detail, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	offering := detail.CourseOffering
	return &offering, nil
}

func (m *mockOfferingStore) FindDetailByID(ctx context.Context, id string) (*models.CourseOfferingDetail, error) {
	detail, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

func (m *mockOfferingStore) Create(ctx context.Context, offering *models.CourseOffering) error {
	offering.ID = "o-new"
	m.offerings[offering.ID] = models.CourseOfferingDetail{CourseOffering: *offering}
	return nil
}

func (m *mockOfferingStore) UpdateCapacity(ctx context.Context, id string, maxStudents int) error {
	if m.capErr != nil {
		return m.capErr
	}
	detail := m.offerings[id]
	detail.MaxStudents = maxStudents
	m.offerings[id] = detail
	return nil
}

func (m *mockOfferingStore) SetActive(ctx context.Context, id string, active bool) error {
	detail := m.offerings[id]
	detail.Active = active
	m.offerings[id] = detail
	return nil
}

type mockOfferingLoads struct {
	counts map[string]int
}

func (m *mockOfferingLoads) CountInProgress(ctx context.Context, offeringID string) (int, error) {
	return m.counts[offeringID], nil
}

func offeringServiceFixture() (*CourseOfferingService, *mockOfferingStore) {
	store := &mockOfferingStore{offerings: map[string]models.CourseOfferingDetail{
		"o1": {
			CourseOffering: models.CourseOffering{
				ID: "o1", Code: "CS301", Title: "Algorithms", SemesterID: "sem1",
				Credits: 3, MaxStudents: 30, EnrolledCount: 12, Active: true,
			},
			SemesterName:     "Fall 2021",
			RegistrationOpen: true,
		},
	}}
	loads := &mockOfferingLoads{counts: map[string]int{"o1": 9}}
	semesters := &mockSemesterReader{semesters: map[string]models.Semester{
		"sem1": {ID: "sem1", Name: "Fall 2021", AcademicYear: "2021/2022", Sequence: 1},
	}}
	return NewCourseOfferingService(store, semesters, loads, nil, nil), store
}

func TestGetOfferingIncludesLiveLoad(t *testing.T) {
	svc, _ := offeringServiceFixture()

	detail, err := svc.Get(context.Background(), "o1")
	require.NoError(t, err)
	// EnrolledCount keeps graded seats reserved; InProgressCount is the
	// current teaching load only.
	assert.Equal(t, 12, detail.EnrolledCount)
	assert.Equal(t, 9, detail.InProgressCount)
}

func TestGetOfferingMissing(t *testing.T) {
	svc, _ := offeringServiceFixture()

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAdjustCapacityMapsBelowEnrolled(t *testing.T) {
	svc, store := offeringServiceFixture()
	store.capErr = repository.ErrCapacityBelowEnrolled

	_, err := svc.AdjustCapacity(context.Background(), "o1", AdjustCapacityRequest{MaxStudents: 5})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
