package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/service"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
	"github.com/openclass/openclass-api/pkg/response"
)

// GateHandler exposes the analytics access gate endpoints.
type GateHandler struct {
	gate *service.GateService
}

// NewGateHandler constructs a gate handler.
func NewGateHandler(gate *service.GateService) *GateHandler {
	return &GateHandler{gate: gate}
}

// Submit godoc
// @Summary Validate an analytics access key
// @Tags gate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GateSubmitRequest true "access key"
// @Success 200 {object} response.Envelope{data=dto.GateStatusResponse}
// @Failure 401 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /gate/validate [post]
func (h *GateHandler) Submit(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req dto.GateSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid gate payload"))
		return
	}

	status, err := h.gate.Submit(c.Request.Context(), claims.UserID, req.Key)
	if err != nil {
		// Policy rejections still carry the status payload so clients
		// can render remaining attempts or the lockout countdown.
		if status != nil {
			appErr := appErrors.FromError(err)
			if errors.Is(err, appErrors.ErrGateLocked) && status.RetryAfterSeconds > 0 {
				c.Header("Retry-After", strconv.Itoa(status.RetryAfterSeconds))
			}
			c.JSON(appErr.Status, response.Envelope{Data: status, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Status godoc
// @Summary Current gate state for the caller
// @Tags gate
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=dto.GateStatusResponse}
// @Router /gate/status [get]
func (h *GateHandler) Status(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	status, err := h.gate.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
