package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-adp-api/internal/models"
)

// ErrCapacityBelowEnrolled is returned when an administrator tries to shrink
// an offering below the seats already taken.
var ErrCapacityBelowEnrolled = errors.New("capacity below enrolled count")

// CourseOfferingRepository handles persistence of course offerings.
type CourseOfferingRepository struct {
	db *sqlx.DB
}

// NewCourseOfferingRepository constructs the repository.
func NewCourseOfferingRepository(db *sqlx.DB) *CourseOfferingRepository {
	return &CourseOfferingRepository{db: db}
}

const offeringColumns = `o.id, o.code, o.title, o.semester_id, o.credits, o.max_students, o.enrolled_count, o.min_gpa, o.min_passed_hours, o.active, o.created_at, o.updated_at`

// List returns offerings filtered by the provided criteria.
func (r *CourseOfferingRepository) List(ctx context.Context, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, int, error) {
	base := `FROM course_offerings o
LEFT JOIN semesters s ON s.id = o.semester_id`
	var conditions []string
	var args []interface{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("o.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(o.code ILIKE $%d OR o.title ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("o.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":    "o.code",
		"title":   "o.title",
		"credits": "o.credits",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "o.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s, s.name AS semester_name, s.registration_open
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, offeringColumns, base+clause, orderBy, order, size, offset)

	var offerings []models.CourseOfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// FindByID returns an offering by its ID.
func (r *CourseOfferingRepository) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	query := fmt.Sprintf("SELECT %s FROM course_offerings o WHERE o.id = $1", offeringColumns)
	var offering models.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindDetailByID returns an offering with semester context.
func (r *CourseOfferingRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseOfferingDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.name AS semester_name, s.registration_open
        FROM course_offerings o
        LEFT JOIN semesters s ON s.id = o.semester_id
        WHERE o.id = $1`, offeringColumns)
	var detail models.CourseOfferingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new offering.
func (r *CourseOfferingRepository) Create(ctx context.Context, offering *models.CourseOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now
	const query = `INSERT INTO course_offerings (id, code, title, semester_id, credits, max_students, enrolled_count, min_gpa, min_passed_hours, active, created_at, updated_at)
        VALUES (:id, :code, :title, :semester_id, :credits, :max_students, :enrolled_count, :min_gpa, :min_passed_hours, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// UpdateCapacity adjusts MaxStudents. The guard refuses to shrink below the
// seats already reserved so the capacity invariant survives the change.
func (r *CourseOfferingRepository) UpdateCapacity(ctx context.Context, id string, maxStudents int) error {
	const query = `UPDATE course_offerings SET max_students = $2, updated_at = $3 WHERE id = $1 AND enrolled_count <= $2`
	res, err := r.db.ExecContext(ctx, query, id, maxStudents, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update capacity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update capacity result: %w", err)
	}
	if affected == 0 {
		return ErrCapacityBelowEnrolled
	}
	return nil
}

// SetActive toggles the offering's active flag.
func (r *CourseOfferingRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE course_offerings SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set offering active: %w", err)
	}
	return nil
}

// ReserveSeat increments the enrolled counter only while a seat remains.
// The conditional update is the authoritative capacity check: when it
// affects zero rows a concurrent request took the last seat.
func ReserveSeat(ctx context.Context, q sqlx.ExtContext, offeringID string) (bool, error) {
	const query = `UPDATE course_offerings
        SET enrolled_count = enrolled_count + 1, updated_at = $2
        WHERE id = $1 AND active = TRUE AND enrolled_count < max_students`
	res, err := q.ExecContext(ctx, query, offeringID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat result: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSeat hands a reserved seat back, clamped at zero.
func ReleaseSeat(ctx context.Context, q sqlx.ExtContext, offeringID string) error {
	const query = `UPDATE course_offerings
        SET enrolled_count = enrolled_count - 1, updated_at = $2
        WHERE id = $1 AND enrolled_count > 0`
	if _, err := q.ExecContext(ctx, query, offeringID, time.Now().UTC()); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}
