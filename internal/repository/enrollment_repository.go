package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/univ-adp-api/internal/models"
	"github.com/noah-isme/univ-adp-api/pkg/database"
)

// Sentinel outcomes of the transactional enrollment flow. The service layer
// translates these into the public error taxonomy.
var (
	ErrSeatUnavailable    = errors.New("no seat available")
	ErrDuplicateActive    = errors.New("active enrollment already exists")
	ErrOfferingClosed     = errors.New("offering inactive or registration closed")
	ErrRequirementsNotMet = errors.New("gpa or passed-hours requirement not met")
	ErrNotInProgress      = errors.New("enrollment not in progress")
)

const uniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = "e.id, e.student_id, e.offering_id, e.enrolled_at, e.mark, e.letter_grade, e.quality_points, e.status, e.is_active, e.updated_at"

const enrollmentDetailQuery = `SELECT ` + enrollmentColumns + `,
        st.full_name AS student_name, st.student_number,
        o.code AS course_code, o.title AS course_title, o.credits, o.semester_id,
        s.name AS semester_name
        FROM enrollments e
        LEFT JOIN students st ON st.id = e.student_id
        LEFT JOIN course_offerings o ON o.id = e.offering_id
        LEFT JOIN semesters s ON s.id = o.semester_id`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students st ON st.id = e.student_id
LEFT JOIN course_offerings o ON o.id = e.offering_id
LEFT JOIN semesters s ON s.id = o.semester_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.OfferingID != "" {
		conditions = append(conditions, fmt.Sprintf("e.offering_id = $%d", len(args)+1))
		args = append(args, filter.OfferingID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("o.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "st.full_name",
		"course_code":  "o.code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
        st.full_name AS student_name, st.student_number,
        o.code AS course_code, o.title AS course_title, o.credits, o.semester_id,
        s.name AS semester_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailQuery + " WHERE e.id = $1"
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks if an active enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, offeringID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND offering_id = $2 AND is_active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, offeringID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// CreateWithReservation performs the whole enroll step in one transaction:
// the eligibility rules are re-checked against committed state, the seat is
// taken with a conditional update, and the enrollment row is inserted. A
// two-step count-then-insert would lose the race for the last seat; the
// guarded UPDATE cannot.
func (r *EnrollmentRepository) CreateWithReservation(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.Status = models.EnrollmentStatusInProgress
	enrollment.IsActive = true
	enrollment.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var gate struct {
			Active           bool    `db:"active"`
			RegistrationOpen bool    `db:"registration_open"`
			MinGPA           float64 `db:"min_gpa"`
			MinPassedHours   int     `db:"min_passed_hours"`
		}
		const gateQuery = `SELECT o.active, s.registration_open, o.min_gpa, o.min_passed_hours
            FROM course_offerings o
            JOIN semesters s ON s.id = o.semester_id
            WHERE o.id = $1`
		if err := tx.GetContext(ctx, &gate, gateQuery, enrollment.OfferingID); err != nil {
			if err == sql.ErrNoRows {
				return sql.ErrNoRows
			}
			return fmt.Errorf("load offering gate: %w", err)
		}
		if !gate.Active || !gate.RegistrationOpen {
			return ErrOfferingClosed
		}

		var dup int
		const dupQuery = `SELECT 1 FROM enrollments WHERE student_id = $1 AND offering_id = $2 AND is_active = TRUE LIMIT 1`
		switch err := tx.GetContext(ctx, &dup, dupQuery, enrollment.StudentID, enrollment.OfferingID); err {
		case nil:
			return ErrDuplicateActive
		case sql.ErrNoRows:
		default:
			return fmt.Errorf("recheck duplicate enrollment: %w", err)
		}

		var gpa float64
		if err := tx.GetContext(ctx, &gpa, `SELECT gpa FROM students WHERE id = $1`, enrollment.StudentID); err != nil {
			if err == sql.ErrNoRows {
				return sql.ErrNoRows
			}
			return fmt.Errorf("recheck student gpa: %w", err)
		}
		var passed int
		const passedQuery = `SELECT COALESCE(SUM(o.credits), 0) FROM enrollments e
            JOIN course_offerings o ON o.id = e.offering_id
            WHERE e.student_id = $1 AND e.status = $2`
		if err := tx.GetContext(ctx, &passed, passedQuery, enrollment.StudentID, models.EnrollmentStatusCompleted); err != nil {
			return fmt.Errorf("recheck passed hours: %w", err)
		}
		if gpa < gate.MinGPA || passed < gate.MinPassedHours {
			return ErrRequirementsNotMet
		}

		reserved, err := ReserveSeat(ctx, tx, enrollment.OfferingID)
		if err != nil {
			return err
		}
		if !reserved {
			return ErrSeatUnavailable
		}

		const insertQuery = `INSERT INTO enrollments (id, student_id, offering_id, enrolled_at, mark, letter_grade, quality_points, status, is_active, updated_at)
            VALUES (:id, :student_id, :offering_id, :enrolled_at, :mark, :letter_grade, :quality_points, :status, :is_active, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, enrollment); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
				return ErrDuplicateActive
			}
			return fmt.Errorf("insert enrollment: %w", err)
		}
		return nil
	})
}

// WithdrawAndRelease flips the enrollment to WITHDRAWN and releases the
// seat in the same transaction. The status guard in the UPDATE makes the
// transition check atomic with the write.
func (r *EnrollmentRepository) WithdrawAndRelease(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE enrollments
            SET status = $2, is_active = FALSE, updated_at = $3
            WHERE id = $1 AND status = $4
            RETURNING offering_id`
		var offeringID string
		err := tx.GetContext(ctx, &offeringID, query, id, models.EnrollmentStatusWithdrawn, time.Now().UTC(), models.EnrollmentStatusInProgress)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNotInProgress
			}
			return fmt.Errorf("withdraw enrollment: %w", err)
		}
		return ReleaseSeat(ctx, tx, offeringID)
	})
}

// UpdateGrade records the mark and derived grade, moving the enrollment to
// its terminal graded status. The seat stays reserved: graded enrollments
// still count against historical capacity.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id string, mark float64, letterGrade string, qualityPoints float64, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments
        SET mark = $2, letter_grade = $3, quality_points = $4, status = $5, updated_at = $6
        WHERE id = $1 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, id, mark, letterGrade, qualityPoints, status, time.Now().UTC(), models.EnrollmentStatusInProgress)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade result: %w", err)
	}
	if affected == 0 {
		return ErrNotInProgress
	}
	return nil
}

// ListGraded returns the COMPLETED and FAILED enrollments feeding GPA
// computation, optionally scoped to one semester.
func (r *EnrollmentRepository) ListGraded(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error) {
	query := `SELECT e.id AS enrollment_id, o.code AS course_code, o.title AS course_title, o.credits, o.semester_id,
        e.mark, e.letter_grade, e.quality_points, e.status
        FROM enrollments e
        JOIN course_offerings o ON o.id = e.offering_id
        WHERE e.student_id = $1 AND e.status IN ($2, $3)`
	args := []interface{}{studentID, models.EnrollmentStatusCompleted, models.EnrollmentStatusFailed}
	if semesterID != "" {
		query += " AND o.semester_id = $4"
		args = append(args, semesterID)
	}
	query += " ORDER BY e.enrolled_at ASC"

	var rows []models.GradedEnrollment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list graded enrollments: %w", err)
	}
	return rows, nil
}

// ListForTranscript returns every graded or withdrawn enrollment for the
// student, the raw material of the transcript.
func (r *EnrollmentRepository) ListForTranscript(ctx context.Context, studentID string) ([]models.GradedEnrollment, error) {
	const query = `SELECT e.id AS enrollment_id, o.code AS course_code, o.title AS course_title, o.credits, o.semester_id,
        e.mark, e.letter_grade, e.quality_points, e.status
        FROM enrollments e
        JOIN course_offerings o ON o.id = e.offering_id
        WHERE e.student_id = $1 AND e.status IN ($2, $3, $4)
        ORDER BY e.enrolled_at ASC`
	var rows []models.GradedEnrollment
	if err := r.db.SelectContext(ctx, &rows, query, studentID,
		models.EnrollmentStatusCompleted, models.EnrollmentStatusFailed, models.EnrollmentStatusWithdrawn); err != nil {
		return nil, fmt.Errorf("list transcript enrollments: %w", err)
	}
	return rows, nil
}

// CountInProgress returns the live teaching load for an offering.
func (r *EnrollmentRepository) CountInProgress(ctx context.Context, offeringID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE offering_id = $1 AND status = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, offeringID, models.EnrollmentStatusInProgress); err != nil {
		return 0, fmt.Errorf("count in-progress enrollments: %w", err)
	}
	return total, nil
}
