package models

import "time"

// ExportJobStatus tracks the lifecycle of a background transcript export.
type ExportJobStatus string

// Export job states.
const (
	ExportJobPending   ExportJobStatus = "PENDING"
	ExportJobCompleted ExportJobStatus = "COMPLETED"
	ExportJobFailed    ExportJobStatus = "FAILED"
)

// ExportJob describes one background transcript rendering request. Completed
// jobs carry a signed token the client exchanges for the file.
type ExportJob struct {
	ID            string          `json:"id"`
	StudentID     string          `json:"student_id"`
	Format        string          `json:"format"`
	Status        ExportJobStatus `json:"status"`
	Filename      string          `json:"filename,omitempty"`
	ContentType   string          `json:"content_type,omitempty"`
	DownloadToken string          `json:"download_token,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
