package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-adp-api/internal/service"
	"github.com/noah-isme/univ-adp-api/pkg/response"
)

// TranscriptHandler serves transcripts and their downloadable renditions.
type TranscriptHandler struct {
	transcripts *service.TranscriptService
	gpa         *service.GPAService
	exports     *service.ExportService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts *service.TranscriptService, gpa *service.GPAService, exports *service.ExportService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts, gpa: gpa, exports: exports}
}

// Get godoc
// @Summary Build a student's transcript grouped by semester
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	transcript, err := h.transcripts.Build(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// GPA godoc
// @Summary Compute a student's credit-weighted GPA
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Param semesterId query string false "Scope to one semester"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *TranscriptHandler) GPA(c *gin.Context) {
	studentID := c.Param("id")
	semesterID := c.Query("semesterId")
	gpa, err := h.gpa.Calculate(c.Request.Context(), studentID, semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := gin.H{"student_id": studentID, "gpa": gpa}
	if semesterID != "" {
		payload["semester_id"] = semesterID
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Export godoc
// @Summary Download a student's transcript as CSV or PDF
// @Tags Transcripts
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/transcript/export [get]
func (h *TranscriptHandler) Export(c *gin.Context) {
	file, err := h.exports.ExportTranscript(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
