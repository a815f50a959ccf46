package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kickai/trialgate/internal/config"
	"github.com/kickai/trialgate/internal/db"
	"github.com/kickai/trialgate/internal/handlers"
	"github.com/kickai/trialgate/internal/notify"
	"github.com/kickai/trialgate/internal/provision"
	"github.com/kickai/trialgate/internal/repository"
	"github.com/kickai/trialgate/internal/scheduler"
	"github.com/kickai/trialgate/internal/service"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("✓ Configuration loaded")

	// 2. Initialize database connection
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// 3. Follow-up queue (fallback publisher if the broker is down)
	var publisher scheduler.Publisher
	producer, err := scheduler.NewProducer(cfg.AMQPUrl)
	if err != nil {
		log.Printf("RabbitMQ unavailable, follow-ups will be logged only: %v", err)
		publisher = scheduler.LogPublisher{}
	} else {
		defer producer.Close()
		publisher = producer
	}

	// 4. Initialize layers
	identityRepo := repository.NewIdentityRepository(pool)
	otpRepo := repository.NewOTPRepository(pool)
	cooldownRepo := repository.NewCooldownRepository(pool)
	trialRepo := repository.NewTrialRepository(pool)

	telegramClient := notify.NewTelegramClient(cfg.TelegramBotToken)
	dispatcher := notify.NewDispatcher(telegramClient, cfg.TelegramAdminChatID)
	provisionClient := provision.NewClient(cfg.ProvisioningURL)
	followups := scheduler.NewScheduler(publisher)

	otpService := service.NewOTPService(otpRepo, cooldownRepo, identityRepo, dispatcher)
	trialService := service.NewTrialService(trialRepo, identityRepo, otpService, provisionClient, dispatcher, followups, notify.CredentialsMessage)

	otpHandler := handlers.NewOTPHandler(otpService, cfg.IsDevelopment())
	trialHandler := handlers.NewTrialHandler(trialService)
	telegramHandler := handlers.NewTelegramHandler(identityRepo)
	healthHandler := handlers.NewHealthHandler(pool)

	// 5. Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	handlers.RegisterRoutes(router, otpHandler, trialHandler, telegramHandler, healthHandler)

	// 6. Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("✓ Server exited")
}
