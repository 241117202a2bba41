package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
)

func newOfferingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOfferingFindDetailByID(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewCourseOfferingRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "title", "semester_id", "credits", "max_students", "enrolled_count", "min_gpa", "min_passed_hours", "active", "created_at", "updated_at", "semester_name", "registration_open"}).
		AddRow("o1", "CS301", "Algorithms", "sem1", 3, 30, 12, 2.5, 45, true, time.Now(), time.Now(), "Fall 2021", true)
	mock.ExpectQuery("SELECT o.id, o.code, o.title").
		WithArgs("o1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "CS301", detail.Code)
	assert.True(t, detail.RegistrationOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCapacityRefusesShrinkBelowEnrolled(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewCourseOfferingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_offerings SET max_students = $2")).
		WithArgs("o1", 40, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCapacity(context.Background(), "o1", 40))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_offerings SET max_students = $2")).
		WithArgs("o1", 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateCapacity(context.Background(), "o1", 5)
	assert.True(t, errors.Is(err, ErrCapacityBelowEnrolled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSeatConditionalUpdate(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE course_offerings").
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	reserved, err := ReserveSeat(context.Background(), db, "o1")
	require.NoError(t, err)
	assert.True(t, reserved)

	mock.ExpectExec("UPDATE course_offerings").
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	reserved, err = ReserveSeat(context.Background(), db, "o1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeat(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE course_offerings").
		WithArgs("o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, ReleaseSeat(context.Background(), db, "o1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingCreate(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewCourseOfferingRepository(db)

	mock.ExpectExec("INSERT INTO course_offerings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	offering := &models.CourseOffering{Code: "CS301", Title: "Algorithms", SemesterID: "sem1", Credits: 3, MaxStudents: 30, Active: true}
	require.NoError(t, repo.Create(context.Background(), offering))
	assert.NotEmpty(t, offering.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
