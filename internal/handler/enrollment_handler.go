package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/service"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
	"github.com/openclass/openclass-api/pkg/response"
)

// EnrollmentHandler exposes course membership endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll adds a student to the course.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List returns the course roster with student display fields.
func (h *EnrollmentHandler) List(c *gin.Context) {
	enrollments, err := h.enrollments.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Unenroll removes a student from the course.
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.enrollments.Unenroll(c.Request.Context(), claims, c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
