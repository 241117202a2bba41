package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-adp-api/internal/service"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/response"
)

// ExportJobHandler manages background transcript export jobs and their
// signed downloads.
type ExportJobHandler struct {
	jobs *service.ExportJobService
}

// NewExportJobHandler constructs ExportJobHandler.
func NewExportJobHandler(jobs *service.ExportJobService) *ExportJobHandler {
	return &ExportJobHandler{jobs: jobs}
}

// Submit godoc
// @Summary Queue a background transcript export
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string true "csv or pdf"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/transcript/export-jobs [post]
func (h *ExportJobHandler) Submit(c *gin.Context) {
	job, err := h.jobs.Submit(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Fetch the state of a transcript export job
// @Tags Transcripts
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export-jobs/{id} [get]
func (h *ExportJobHandler) Status(c *gin.Context) {
	job, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a completed export via its signed token
// @Tags Transcripts
// @Produce text/csv
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportJobHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}
	file, err := h.jobs.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
