package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-adp-api/internal/service"
	appErrors "github.com/noah-isme/univ-adp-api/pkg/errors"
	"github.com/noah-isme/univ-adp-api/pkg/response"
)

// EligibilityHandler exposes the pre-enrollment eligibility check.
type EligibilityHandler struct {
	eligibility *service.EligibilityService
}

// NewEligibilityHandler constructs EligibilityHandler.
func NewEligibilityHandler(eligibility *service.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// Check godoc
// @Summary Check whether a student may enroll in an offering
// @Description Evaluates every enrollment rule and returns all violations at once.
// @Tags Eligibility
// @Produce json
// @Param studentId query string true "Student ID"
// @Param offeringId query string true "Course offering ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /eligibility [get]
func (h *EligibilityHandler) Check(c *gin.Context) {
	studentID := c.Query("studentId")
	offeringID := c.Query("offeringId")
	if studentID == "" || offeringID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId and offeringId are required"))
		return
	}
	result, err := h.eligibility.Check(c.Request.Context(), studentID, offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
