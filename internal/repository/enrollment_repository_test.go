package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func expectReservationGates(mock sqlmock.Sqlmock, offeringID, studentID string) {
	mock.ExpectQuery("SELECT o.active, s.registration_open, o.min_gpa, o.min_passed_hours").
		WithArgs(offeringID).
		WillReturnRows(sqlmock.NewRows([]string{"active", "registration_open", "min_gpa", "min_passed_hours"}).
			AddRow(true, true, 2.0, 30))
	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs(studentID, offeringID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT gpa FROM students WHERE id = $1")).
		WithArgs(studentID).
		WillReturnRows(sqlmock.NewRows([]string{"gpa"}).AddRow(3.1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(o.credits), 0)")).
		WithArgs(studentID, string(models.EnrollmentStatusCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(60))
}

func TestCreateWithReservationTakesSeat(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectReservationGates(mock, "o1", "s1")
	mock.ExpectExec("UPDATE course_offerings").
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "s1", OfferingID: "o1"}
	require.NoError(t, repo.CreateWithReservation(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusInProgress, enrollment.Status)
	assert.True(t, enrollment.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithReservationLosesRace(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectReservationGates(mock, "o1", "s1")
	mock.ExpectExec("UPDATE course_offerings").
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateWithReservation(context.Background(), &models.Enrollment{StudentID: "s1", OfferingID: "o1"})
	assert.True(t, errors.Is(err, ErrSeatUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithReservationClosedOffering(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT o.active, s.registration_open, o.min_gpa, o.min_passed_hours").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "registration_open", "min_gpa", "min_passed_hours"}).
			AddRow(true, false, 0.0, 0))
	mock.ExpectRollback()

	err := repo.CreateWithReservation(context.Background(), &models.Enrollment{StudentID: "s1", OfferingID: "o1"})
	assert.True(t, errors.Is(err, ErrOfferingClosed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithReservationDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT o.active, s.registration_open, o.min_gpa, o.min_passed_hours").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "registration_open", "min_gpa", "min_passed_hours"}).
			AddRow(true, true, 0.0, 0))
	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs("s1", "o1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateWithReservation(context.Background(), &models.Enrollment{StudentID: "s1", OfferingID: "o1"})
	assert.True(t, errors.Is(err, ErrDuplicateActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithReservationRequirementsRechecked(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT o.active, s.registration_open, o.min_gpa, o.min_passed_hours").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"active", "registration_open", "min_gpa", "min_passed_hours"}).
			AddRow(true, true, 3.5, 90))
	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs("s1", "o1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT gpa FROM students WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"gpa"}).AddRow(3.1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(o.credits), 0)")).
		WithArgs("s1", string(models.EnrollmentStatusCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(60))
	mock.ExpectRollback()

	err := repo.CreateWithReservation(context.Background(), &models.Enrollment{StudentID: "s1", OfferingID: "o1"})
	assert.True(t, errors.Is(err, ErrRequirementsNotMet))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawAndReleaseFlipsStatusAndSeat(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE enrollments").
		WithArgs("e1", string(models.EnrollmentStatusWithdrawn), sqlmock.AnyArg(), string(models.EnrollmentStatusInProgress)).
		WillReturnRows(sqlmock.NewRows([]string{"offering_id"}).AddRow("o1"))
	mock.ExpectExec("UPDATE course_offerings").
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.WithdrawAndRelease(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawAndReleaseNotInProgress(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE enrollments").
		WithArgs("e1", string(models.EnrollmentStatusWithdrawn), sqlmock.AnyArg(), string(models.EnrollmentStatusInProgress)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.WithdrawAndRelease(context.Background(), "e1")
	assert.True(t, errors.Is(err, ErrNotInProgress))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGradeGuardsStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments").
		WithArgs("e1", 92.0, "A", 4.0, string(models.EnrollmentStatusCompleted), sqlmock.AnyArg(), string(models.EnrollmentStatusInProgress)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), "e1", 92, "A", 4, models.EnrollmentStatusCompleted))

	mock.ExpectExec("UPDATE enrollments").
		WithArgs("e1", 50.0, "F", 0.0, string(models.EnrollmentStatusFailed), sqlmock.AnyArg(), string(models.EnrollmentStatusInProgress)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrade(context.Background(), "e1", 50, "F", 0, models.EnrollmentStatusFailed)
	assert.True(t, errors.Is(err, ErrNotInProgress))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs("s1", "o1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	exists, err := repo.ExistsActive(context.Background(), "s1", "o1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs("s1", "o2").
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsActive(context.Background(), "s1", "o2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGradedScopesToSemester(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "course_code", "course_title", "credits", "semester_id", "mark", "letter_grade", "quality_points", "status"}).
		AddRow("e1", "CS101", "Intro", 3, "sem1", 95.0, "A", 4.0, "COMPLETED")
	mock.ExpectQuery("SELECT e.id AS enrollment_id").
		WithArgs("s1", string(models.EnrollmentStatusCompleted), string(models.EnrollmentStatusFailed), "sem1").
		WillReturnRows(rows)

	graded, err := repo.ListGraded(context.Background(), "s1", "sem1")
	require.NoError(t, err)
	require.Len(t, graded, 1)
	assert.Equal(t, "CS101", graded[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountInProgressScopesToStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM enrollments").
		WithArgs("o1", string(models.EnrollmentStatusInProgress)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	total, err := repo.CountInProgress(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
