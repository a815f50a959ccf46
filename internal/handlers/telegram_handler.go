package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kickai/trialgate/internal/api/dto"
	"github.com/kickai/trialgate/internal/models"
)

// ==============================================
// REPOSITORY INTERFACE (for testing)
// ==============================================

type ChannelLinker interface {
	LinkTelegram(ctx context.Context, phone, telegramID string) error
	GetTelegramID(ctx context.Context, phone string) (string, error)
}

// ==============================================
// HANDLER
// ==============================================

type TelegramHandler struct {
	identities ChannelLinker
}

func NewTelegramHandler(identities ChannelLinker) *TelegramHandler {
	return &TelegramHandler{identities: identities}
}

// ==============================================
// ENDPOINTS
// ==============================================

// Register handles POST /api/telegram/register
func (h *TelegramHandler) Register(c *gin.Context) {
	var req dto.RegisterTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false, Error: models.ErrCodeBadRequest, Message: "Phone number and Telegram ID are required"})
		return
	}

	if err := h.identities.LinkTelegram(c.Request.Context(), req.Phone, req.TelegramID); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{OK: false, Error: models.ErrCodeSystem, Message: "Failed to register Telegram ID"})
		return
	}

	c.JSON(http.StatusOK, dto.RegisterTelegramResponse{
		OK:      true,
		Message: "Telegram ID registered successfully. You will now receive OTP codes via Telegram.",
	})
}

// Status handles GET /api/telegram/register?phone=...
func (h *TelegramHandler) Status(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{OK: false, Error: models.ErrCodeBadRequest, Message: "Phone number is required"})
		return
	}

	telegramID, err := h.identities.GetTelegramID(c.Request.Context(), phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{OK: false, Error: models.ErrCodeSystem, Message: "Failed to check registration"})
		return
	}

	c.JSON(http.StatusOK, dto.TelegramStatusResponse{OK: true, Registered: telegramID != ""})
}
