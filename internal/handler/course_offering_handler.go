package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-adp-api/internal/models"
	"github.com/noah-isme/univ-adp-api/internal/service"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/response"
)

// CourseOfferingHandler exposes course offering endpoints.
type CourseOfferingHandler struct {
	offerings *service.CourseOfferingService
}

// NewCourseOfferingHandler constructs CourseOfferingHandler.
func NewCourseOfferingHandler(offerings *service.CourseOfferingService) *CourseOfferingHandler {
	return &CourseOfferingHandler{offerings: offerings}
}

// List godoc
// @Summary List course offerings
// @Tags Offerings
// @Produce json
// @Param semesterId query string false "Filter by semester"
// @Param search query string false "Search by code or title"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *CourseOfferingHandler) List(c *gin.Context) {
	var filter models.CourseOfferingFilter
	filter.SemesterID = c.Query("semesterId")
	filter.Search = c.Query("search")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	offerings, pagination, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Get godoc
// @Summary Get one course offering
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *CourseOfferingHandler) Get(c *gin.Context) {
	offering, err := h.offerings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Create godoc
// @Summary Schedule a course offering within a semester
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body service.CreateOfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Router /offerings [post]
func (h *CourseOfferingHandler) Create(c *gin.Context) {
	var req service.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// AdjustCapacity godoc
// @Summary Adjust an offering's maximum seats
// @Description Capacity can never drop below the seats already taken.
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body service.AdjustCapacityRequest true "Capacity payload"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/capacity [patch]
func (h *CourseOfferingHandler) AdjustCapacity(c *gin.Context) {
	var req service.AdjustCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.AdjustCapacity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// SetActive godoc
// @Summary Open or close an offering for registration
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body handler.SetActiveRequest true "Active payload"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/active [patch]
func (h *CourseOfferingHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active flag is required"))
		return
	}
	offering, err := h.offerings.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// SetActiveRequest toggles an offering's registration state.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
