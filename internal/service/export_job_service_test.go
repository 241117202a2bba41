package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/storage"
)

type mockTranscriptExporter struct {
	file *ExportFile
	err  error
}

func (m *mockTranscriptExporter) ExportTranscript(_ context.Context, _, _ string) (*ExportFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.file, nil
}

func newExportJobServiceForTest(t *testing.T, exporter *mockTranscriptExporter) *ExportJobService {
	t.Helper()
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportJobService(exporter, store, signer, 1, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func TestSubmitRendersAndSignsDownload(t *testing.T) {
	exporter := &mockTranscriptExporter{file: &ExportFile{
		Content:     []byte("Semester,Course\nFall 2021,CS101\n"),
		ContentType: "text/csv",
		Filename:    "transcript-S-1001.csv",
	}}
	svc := newExportJobServiceForTest(t, exporter)

	job, err := svc.Submit(context.Background(), "s1", "csv")
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobPending, job.Status)

	require.Eventually(t, func() bool {
		current, err := svc.Status(job.ID)
		return err == nil && current.Status == models.ExportJobCompleted
	}, time.Second*2, time.Millisecond*10)

	completed, err := svc.Status(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "transcript-S-1001.csv", completed.Filename)
	assert.NotEmpty(t, completed.DownloadToken)
	require.NotNil(t, completed.ExpiresAt)

	file, err := svc.Download(completed.DownloadToken)
	require.NoError(t, err)
	assert.Equal(t, exporter.file.Content, file.Content)
	assert.Equal(t, "text/csv", file.ContentType)
}

func TestSubmitRejectsUnknownFormat(t *testing.T) {
	svc := newExportJobServiceForTest(t, &mockTranscriptExporter{})

	_, err := svc.Submit(context.Background(), "s1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFailedRenderMarksJobFailed(t *testing.T) {
	exporter := &mockTranscriptExporter{err: errors.New("render exploded")}
	svc := newExportJobServiceForTest(t, exporter)

	job, err := svc.Submit(context.Background(), "s1", "pdf")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := svc.Status(job.ID)
		return err == nil && current.Status == models.ExportJobFailed
	}, time.Second*2, time.Millisecond*10)

	failed, err := svc.Status(job.ID)
	require.NoError(t, err)
	assert.Contains(t, failed.Error, "render exploded")
	assert.Empty(t, failed.DownloadToken)
}

func TestStatusUnknownJob(t *testing.T) {
	svc := newExportJobServiceForTest(t, &mockTranscriptExporter{})

	_, err := svc.Status("missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCleanupExpiredSweepsFilesAndRecords(t *testing.T) {
	exporter := &mockTranscriptExporter{file: &ExportFile{
		Content:     []byte("Semester,Course\nFall 2021,CS101\n"),
		ContentType: "text/csv",
		Filename:    "transcript-S-1001.csv",
	}}
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportJobService(exporter, store, signer, 1, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)

	job, err := svc.Submit(context.Background(), "s1", "csv")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		current, err := svc.Status(job.ID)
		return err == nil && current.Status == models.ExportJobCompleted
	}, time.Second*2, time.Millisecond*10)

	completed, err := svc.Status(job.ID)
	require.NoError(t, err)
	_, relPath, _, err := signer.Parse(completed.DownloadToken, true)
	require.NoError(t, err)

	// Age both the stored file and the job record past the download window.
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(relPath), stale, stale))
	svc.mu.Lock()
	svc.jobsByID[job.ID].ExpiresAt = &stale
	svc.mu.Unlock()

	removed, err := svc.CleanupExpired(time.Hour * 24)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = svc.Status(job.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = store.Open(relPath)
	assert.Error(t, err)
}

func TestDownloadRejectsForgedToken(t *testing.T) {
	svc := newExportJobServiceForTest(t, &mockTranscriptExporter{})

	_, err := svc.Download("job-1.123.cGF0aA.deadbeef")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
