package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-adp-api/internal/models"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/export"
)

type transcriptBuilder interface {
	Build(ctx context.Context, studentID string) (*models.Transcript, error)
}

// ExportFile is a rendered transcript ready to stream to the client.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders transcripts as downloadable CSV or PDF files.
type ExportService struct {
	transcripts transcriptBuilder
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(transcripts transcriptBuilder, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		transcripts: transcripts,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

var transcriptHeaders = []string{"Semester", "Course", "Title", "Credits", "Mark", "Grade", "Points"}

// ExportTranscript builds the student's transcript and renders it in the
// requested format.
func (s *ExportService) ExportTranscript(ctx context.Context, studentID, format string) (*ExportFile, error) {
	transcript, err := s.transcripts.Build(ctx, studentID)
	if err != nil {
		return nil, err
	}

	switch format {
	case "csv":
		content, err := s.csv.Render(transcriptDataset(transcript))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv transcript")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("transcript-%s.csv", transcript.StudentNumber),
		}, nil
	case "pdf":
		content, err := s.pdf.Render(
			fmt.Sprintf("Academic Transcript - %s (%s)", transcript.StudentName, transcript.StudentNumber),
			transcriptSections(transcript),
		)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf transcript")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("transcript-%s.pdf", transcript.StudentNumber),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func transcriptDataset(transcript *models.Transcript) export.Dataset {
	data := export.Dataset{Headers: transcriptHeaders}
	for _, semester := range transcript.Semesters {
		for _, line := range semester.Lines {
			data.Rows = append(data.Rows, transcriptRow(semester.SemesterName, line))
		}
	}
	return data
}

func transcriptSections(transcript *models.Transcript) []export.Section {
	sections := make([]export.Section, 0, len(transcript.Semesters)+1)
	for _, semester := range transcript.Semesters {
		section := export.Section{
			Title:   fmt.Sprintf("%s (%s)", semester.SemesterName, semester.AcademicYear),
			Data:    export.Dataset{Headers: transcriptHeaders[1:]},
			Summary: fmt.Sprintf("Semester GPA: %.2f", semester.GPA),
		}
		for _, line := range semester.Lines {
			row := transcriptRow(semester.SemesterName, line)
			delete(row, "Semester")
			section.Data.Rows = append(section.Data.Rows, row)
		}
		sections = append(sections, section)
	}
	sections = append(sections, export.Section{
		Data: export.Dataset{
			Headers: []string{"Cumulative GPA"},
			Rows:    []map[string]string{{"Cumulative GPA": fmt.Sprintf("%.2f", transcript.CumulativeGPA)}},
		},
	})
	return sections
}

func transcriptRow(semesterName string, line models.TranscriptLine) map[string]string {
	row := map[string]string{
		"Semester": semesterName,
		"Course":   line.CourseCode,
		"Title":    line.CourseTitle,
		"Credits":  strconv.Itoa(line.Credits),
		"Grade":    line.LetterGrade,
		"Mark":     "",
		"Points":   "",
	}
	if line.Mark != nil {
		row["Mark"] = fmt.Sprintf("%.1f", *line.Mark)
	}
	if line.QualityPoints != nil {
		row["Points"] = fmt.Sprintf("%.2f", *line.QualityPoints)
	}
	return row
}
