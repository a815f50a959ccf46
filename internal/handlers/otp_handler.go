package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kickai/trialgate/internal/api/dto"
	"github.com/kickai/trialgate/internal/models"
	"github.com/kickai/trialgate/internal/service"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type OTPService interface {
	RequestCode(ctx context.Context, phone string) (*service.CodeIssue, error)
	VerifyCode(ctx context.Context, phone, code string) error
}

// ==============================================
// HANDLER (HTTP Layer ONLY)
// ==============================================

type OTPHandler struct {
	service OTPService
	devMode bool
}

func NewOTPHandler(service OTPService, devMode bool) *OTPHandler {
	return &OTPHandler{service: service, devMode: devMode}
}

// ==============================================
// ENDPOINTS
// ==============================================

// Send handles POST /api/otp/send
func (h *OTPHandler) Send(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false, Error: models.ErrCodeBadRequest, Message: "Phone is required"})
		return
	}

	issue, err := h.service.RequestCode(c.Request.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, models.ErrOTPRate) {
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{OK: false, Error: models.ErrCodeRate})
			return
		}
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{OK: false, Error: models.ErrCodeSystem, Message: "Could not issue a code. Please try again later."})
		return
	}

	resp := dto.SendOTPResponse{
		OK:                 true,
		TelegramRegistered: issue.TelegramRegistered,
	}

	if issue.TelegramRegistered {
		resp.Message = "OTP sent to your Telegram chat"
	} else {
		resp.Message = "OTP generated. To receive codes via Telegram, please register your Telegram ID first."
	}

	// Diagnostic mode only: echo the plaintext code
	if h.devMode {
		resp.Code = issue.Code
		resp.DevNote = "Code shown in development only"
	}

	c.JSON(http.StatusOK, resp)
}

// Verify handles POST /api/otp/verify
func (h *OTPHandler) Verify(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false, Error: models.ErrCodeBadRequest, Message: "Phone and code are required"})
		return
	}

	err := h.service.VerifyCode(c.Request.Context(), req.Phone, req.Code)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.VerifyOTPResponse{OK: true})
	case errors.Is(err, models.ErrOTPRate):
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{OK: false, Error: models.ErrCodeRate})
	case errors.Is(err, models.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false, Error: models.ErrCodeExpired})
	case errors.Is(err, models.ErrOTPInvalid):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false})
	default:
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{OK: false, Error: models.ErrCodeSystem, Message: "Could not verify the code. Please try again later."})
	}
}
