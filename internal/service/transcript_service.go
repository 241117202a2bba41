package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
)

type transcriptEnrollmentReader interface {
	ListForTranscript(ctx context.Context, studentID string) ([]models.GradedEnrollment, error)
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

// TranscriptService assembles a student's full academic record grouped by
// semester. Results are cached; grade events invalidate per student.
type TranscriptService struct {
	enrollments transcriptEnrollmentReader
	students    studentExistenceReader
	semesters   semesterReader
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewTranscriptService constructs TranscriptService.
func NewTranscriptService(enrollments transcriptEnrollmentReader, students studentExistenceReader, semesters semesterReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		enrollments: enrollments,
		students:    students,
		semesters:   semesters,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func transcriptCacheKey(studentID string) string {
	return "transcript:" + studentID
}

// Build returns the transcript for a student, serving from cache when the
// cached copy is still valid.
func (s *TranscriptService) Build(ctx context.Context, studentID string) (*models.Transcript, error) {
	if s.cache.Enabled() {
		var cached models.Transcript
		if hit, err := s.cache.Get(ctx, transcriptCacheKey(studentID), &cached); err == nil && hit {
			return &cached, nil
		}
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, err := s.enrollments.ListForTranscript(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript enrollments")
	}

	records, err := s.groupBySemester(ctx, rows)
	if err != nil {
		return nil, err
	}

	var graded []models.GradedEnrollment
	for _, row := range rows {
		if row.Status != models.EnrollmentStatusWithdrawn {
			graded = append(graded, row)
		}
	}

	transcript := &models.Transcript{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		StudentName:   student.FullName,
		Semesters:     records,
		CumulativeGPA: WeightedGPA(graded),
		GeneratedAt:   time.Now().UTC(),
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, transcriptCacheKey(studentID), transcript, s.cacheTTL)
	}
	return transcript, nil
}

// InvalidateStudent drops cached transcript data after a grade event.
func (s *TranscriptService) InvalidateStudent(ctx context.Context, studentID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, transcriptCacheKey(studentID)); err != nil {
		s.logger.Warn("transcript cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *TranscriptService) groupBySemester(ctx context.Context, rows []models.GradedEnrollment) ([]models.SemesterRecord, error) {
	grouped := make(map[string][]models.GradedEnrollment)
	for _, row := range rows {
		grouped[row.SemesterID] = append(grouped[row.SemesterID], row)
	}

	records := make([]models.SemesterRecord, 0, len(grouped))
	for semesterID, semesterRows := range grouped {
		semester, err := s.semesters.FindByID(ctx, semesterID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
		}

		record := models.SemesterRecord{
			SemesterID:   semester.ID,
			SemesterName: semester.Name,
			AcademicYear: semester.AcademicYear,
			Sequence:     semester.Sequence,
		}

		var graded []models.GradedEnrollment
		for _, row := range semesterRows {
			line := models.TranscriptLine{
				CourseCode:  row.CourseCode,
				CourseTitle: row.CourseTitle,
				Credits:     row.Credits,
				Mark:        row.Mark,
				Status:      row.Status,
			}
			if row.Status == models.EnrollmentStatusWithdrawn {
				line.LetterGrade = models.WithdrawnLetterGrade
			} else {
				if row.LetterGrade != nil {
					line.LetterGrade = *row.LetterGrade
				}
				line.QualityPoints = row.QualityPoints
				record.CreditsTaken += row.Credits
				graded = append(graded, row)
			}
			record.Lines = append(record.Lines, line)
		}
		record.GPA = WeightedGPA(graded)
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Sequence < records[j].Sequence })
	return records, nil
}
