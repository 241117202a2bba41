package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-adp-api/internal/service"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/response"
)

// GradeScaleHandler administers the grading scale bands.
type GradeScaleHandler struct {
	scale *service.GradeScaleService
}

// NewGradeScaleHandler constructs GradeScaleHandler.
func NewGradeScaleHandler(scale *service.GradeScaleService) *GradeScaleHandler {
	return &GradeScaleHandler{scale: scale}
}

// ListActive godoc
// @Summary List the active, validated grade scale
// @Tags GradeScale
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope "Scale misconfigured"
// @Router /grade-scale [get]
func (h *GradeScaleHandler) ListActive(c *gin.Context) {
	bands, err := h.scale.ListActiveBands(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// ListAll godoc
// @Summary List every configured grade band including inactive ones
// @Tags GradeScale
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grade-scale/all [get]
func (h *GradeScaleHandler) ListAll(c *gin.Context) {
	bands, err := h.scale.ListAllBands(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// Create godoc
// @Summary Add a grade band
// @Tags GradeScale
// @Accept json
// @Produce json
// @Param payload body service.UpsertBandRequest true "Band payload"
// @Success 201 {object} response.Envelope
// @Router /grade-scale [post]
func (h *GradeScaleHandler) Create(c *gin.Context) {
	var req service.UpsertBandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	band, err := h.scale.CreateBand(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, band)
}

// Update godoc
// @Summary Update a grade band
// @Tags GradeScale
// @Accept json
// @Produce json
// @Param id path string true "Band ID"
// @Param payload body service.UpsertBandRequest true "Band payload"
// @Success 200 {object} response.Envelope
// @Router /grade-scale/{id} [put]
func (h *GradeScaleHandler) Update(c *gin.Context) {
	var req service.UpsertBandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	band, err := h.scale.UpdateBand(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, band, nil)
}

// Deactivate godoc
// @Summary Retire a grade band
// @Tags GradeScale
// @Produce json
// @Param id path string true "Band ID"
// @Success 204 "No Content"
// @Router /grade-scale/{id} [delete]
func (h *GradeScaleHandler) Deactivate(c *gin.Context) {
	if err := h.scale.DeactivateBand(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
