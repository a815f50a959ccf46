package handlers

import (
	"github.com/gin-gonic/gin"
)

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func RegisterRoutes(router *gin.Engine, otp *OTPHandler, trial *TrialHandler, telegram *TelegramHandler, health *HealthHandler) {
	router.GET("/health", health.Check)

	api := router.Group("/api")
	{
		api.POST("/otp/send", otp.Send)
		api.POST("/otp/verify", otp.Verify)
		api.POST("/trial/start", trial.Start)
		api.POST("/telegram/register", telegram.Register)
		api.GET("/telegram/register", telegram.Status)
	}
}
