package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kickai/trialgate/internal/api/dto"
	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type TrialService interface {
	StartTrial(ctx context.Context, req dto.StartTrialRequest, ip string) (*dto.StartTrialResponse, error)
}

// ==============================================
// HANDLER (HTTP Layer ONLY)
// ==============================================

type TrialHandler struct {
	service TrialService
}

func NewTrialHandler(service TrialService) *TrialHandler {
	return &TrialHandler{service: service}
}

// ==============================================
// ENDPOINTS
// ==============================================

// Start handles POST /api/trial/start
func (h *TrialHandler) Start(c *gin.Context) {
	var req dto.StartTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false, Error: models.ErrCodeBadRequest, Message: "Malformed request body"})
		return
	}

	resp, err := h.service.StartTrial(c.Request.Context(), req, clientIP(c))
	if err != nil {
		respondTrialError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// clientIP prefers the first forwarded address over the socket peer
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return real
	}
	return c.ClientIP()
}

// respondTrialError maps orchestration errors to HTTP status codes. Every
// failure carries a stable machine-readable code and a human-readable
// message; internals are never exposed.
func respondTrialError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{OK: false, Error: models.ErrCodeSystem, Message: "Internal server error"})
		return
	}

	c.JSON(trialErrorStatus(appErr.Code), dto.ErrorResponse{OK: false, Error: appErr.Code, Message: appErr.Message})
}

func trialErrorStatus(code string) int {
	switch code {
	case models.ErrCodeBadRequest, models.ErrCodeOTP:
		return http.StatusBadRequest
	case models.ErrCodeCooldown:
		return http.StatusTooManyRequests
	case models.ErrCodeSystem,
		models.ErrCodeProvisioningUnavailable,
		models.ErrCodeProvisioningFailed,
		models.ErrCodeProvisioningIncomplete,
		models.ErrCodeProvisioningError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
