package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kickai/trialgate/internal/config"
	"github.com/kickai/trialgate/internal/db"
	"github.com/kickai/trialgate/internal/notify"
	"github.com/kickai/trialgate/internal/repository"
	"github.com/kickai/trialgate/internal/scheduler"
	"github.com/kickai/trialgate/internal/worker"
)

const followupQueue = "trial.followups.worker"

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("✓ Configuration loaded")

	// 2. Initialize database connection
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// 3. Initialize layers
	identityRepo := repository.NewIdentityRepository(pool)
	trialRepo := repository.NewTrialRepository(pool)
	followupRepo := repository.NewFollowupRepository(pool)

	telegramClient := notify.NewTelegramClient(cfg.TelegramBotToken)
	w := worker.NewWorker(followupRepo, trialRepo, identityRepo, telegramClient)

	// 4. Consume scheduling messages from the queue
	consumer, err := scheduler.NewConsumer(cfg.AMQPUrl)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer consumer.Close()

	if err := consumer.Consume(followupQueue, w.HandleScheduleMessage); err != nil {
		log.Fatal("Failed to start consumer:", err)
	}
	log.Println("✓ Follow-up consumer started")

	// 5. Sweep due jobs every minute
	c := w.StartCron(ctx)
	log.Println("🚀 Follow-up worker running")

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down worker...")

	// Let in-flight jobs finish before tearing down the pool
	<-c.Stop().Done()
	cancel()

	log.Println("✓ Worker exited")
}
