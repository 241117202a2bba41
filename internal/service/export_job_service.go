package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/jobs"
	"github.com/noah-isme/univ-adp-api/pkg/storage"
)

type transcriptExporter interface {
	ExportTranscript(ctx context.Context, studentID, format string) (*ExportFile, error)
}

// ExportJobService runs transcript exports in the background. Submitted jobs
// are rendered by a worker pool, saved to the export store, and exposed via
// signed download tokens so large transcripts never block an API request.
type ExportJobService struct {
	exports transcriptExporter
	store   *storage.ExportStore
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	jobsByID map[string]*models.ExportJob
}

// exportCleanupInterval paces the sweep of stale export files and records.
const exportCleanupInterval = time.Hour

// NewExportJobService constructs the service and its backing queue.
func NewExportJobService(exports transcriptExporter, store *storage.ExportStore, signer *storage.SignedURLSigner, workers int, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportJobService{
		exports:  exports,
		store:    store,
		signer:   signer,
		logger:   logger,
		jobsByID: make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("transcript-exports", s.process, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start launches the export workers and the stale-export sweeper.
func (s *ExportJobService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.queue.Start(s.ctx)
	s.wg.Add(1)
	go s.cleanupLoop()
}

// Stop drains the export workers and the sweeper.
func (s *ExportJobService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.queue.Stop()
	s.wg.Wait()
}

func (s *ExportJobService) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(exportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.CleanupExpired(s.signer.TTL())
			if err != nil {
				s.logger.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Sugar().Infow("expired exports removed", "count", removed)
			}
		}
	}
}

// Submit registers a new export job and enqueues it for rendering.
func (s *ExportJobService) Submit(ctx context.Context, studentID, format string) (*models.ExportJob, error) {
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	now := time.Now().UTC()
	job := &models.ExportJob{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Format:    format,
		Status:    models.ExportJobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobsByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "transcript-export"}); err != nil {
		s.mu.Lock()
		delete(s.jobsByID, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}

	snapshot := *job
	return &snapshot, nil
}

// Status returns the current state of a job.
func (s *ExportJobService) Status(jobID string) (*models.ExportJob, error) {
	s.mu.RLock()
	job, ok := s.jobsByID[jobID]
	if !ok {
		s.mu.RUnlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	snapshot := *job
	s.mu.RUnlock()
	return &snapshot, nil
}

// Download validates a signed token and returns the stored file.
func (s *ExportJobService) Download(token string) (*ExportFile, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file")
	}

	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.logger.Sugar().Infow("export downloaded", "job_id", jobID, "path", relPath)
	return &ExportFile{
		Content:     content,
		ContentType: contentType,
		Filename:    filepath.Base(relPath),
	}, nil
}

// CleanupExpired deletes stored files older than ttl and drops job records
// whose download window has closed.
func (s *ExportJobService) CleanupExpired(ttl time.Duration) (int, error) {
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	s.mu.Lock()
	for id, record := range s.jobsByID {
		if record.ExpiresAt != nil && record.ExpiresAt.Before(now) {
			delete(s.jobsByID, id)
		}
	}
	s.mu.Unlock()
	return len(deleted), nil
}

func (s *ExportJobService) process(ctx context.Context, job jobs.Job) error {
	s.mu.RLock()
	record, ok := s.jobsByID[job.ID]
	s.mu.RUnlock()
	if !ok {
		s.logger.Sugar().Warnw("export job missing from registry", "job_id", job.ID)
		return nil
	}

	file, err := s.exports.ExportTranscript(ctx, record.StudentID, record.Format)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	relPath := filepath.Join("transcripts", fmt.Sprintf("%s-%s", job.ID, file.Filename))
	if _, err := s.store.Save(relPath, file.Content); err != nil {
		s.fail(job.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	s.mu.Lock()
	record.Status = models.ExportJobCompleted
	record.Filename = file.Filename
	record.ContentType = file.ContentType
	record.DownloadToken = token
	record.ExpiresAt = &expiresAt
	record.Error = ""
	record.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Sugar().Infow("export job completed", "job_id", job.ID, "student_id", record.StudentID, "format", record.Format)
	return nil
}

func (s *ExportJobService) fail(jobID string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobsByID[jobID]
	if !ok {
		return
	}
	record.Status = models.ExportJobFailed
	record.Error = cause.Error()
	record.UpdatedAt = time.Now().UTC()
}
