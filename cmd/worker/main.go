package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskhub/internal/database"
	"github.com/hugh/taskhub/internal/jobs"
	"github.com/hugh/taskhub/internal/notify"
	"github.com/hugh/taskhub/pkg/config"
	"github.com/hugh/taskhub/pkg/queue"
	"github.com/hugh/taskhub/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, "worker")
	slog.SetDefault(logger)

	logger.Info("starting taskhub worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var mailer notify.Mailer = notify.NewSMTPMailer(&cfg.Mail)
	if !cfg.Mail.Enabled() {
		logger.Warn("MAIL_HOST not set, emails will only be logged")
		mailer = notify.LogMailer{Logger: logger}
	}

	// Create job handler
	handler := jobs.NewHandler(db, logger, mailer)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	srv := queue.NewServer(&cfg.Redis, cfg.Notify.Concurrency, logger)
	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// Periodic overdue reminders
	var scheduler *asynq.Scheduler
	if cfg.Notify.OverdueCron != "" {
		scheduler = queue.NewScheduler(&cfg.Redis)
		entryID, err := scheduler.Register(cfg.Notify.OverdueCron, jobs.NewOverdueSweepTask(),
			asynq.Queue(queue.QueueMaintenance),
			asynq.MaxRetry(0),
		)
		if err != nil {
			logger.Error("failed to schedule overdue sweep", "error", err)
			os.Exit(1)
		}
		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}

		next, _ := util.NextCronTime(cfg.Notify.OverdueCron, time.Now())
		logger.Info("overdue sweep scheduled",
			"entry_id", entryID,
			"cron", cfg.Notify.OverdueCron,
			"next_run", next,
		)
	}

	logger.Info("worker started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")

	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Shutdown()

	if err := database.Close(db); err != nil {
		logger.Error("closing database", "error", err)
	}

	logger.Info("worker stopped")
}
