package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskhub/internal/api"
	"github.com/hugh/taskhub/internal/auth"
	"github.com/hugh/taskhub/internal/database"
	"github.com/hugh/taskhub/internal/jobs"
	"github.com/hugh/taskhub/internal/notify"
	"github.com/hugh/taskhub/internal/tasks"
	"github.com/hugh/taskhub/pkg/config"
	"github.com/hugh/taskhub/pkg/queue"
	"github.com/hugh/taskhub/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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
	logger := util.NewLogger(cfg.Server.Env, "server")
	slog.SetDefault(logger)

	logger.Info("starting taskhub server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, notifications will be mailed in-process", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	// Notifications go through the worker queue when Redis is up, otherwise
	// they are mailed from this process.
	var (
		asynqClient *asynq.Client
		deliverer   notify.Deliverer
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		deliverer = jobs.NewQueueDeliverer(asynqClient)
	} else {
		deliverer = notify.MailDeliverer{Mailer: newMailer(&cfg.Mail, logger)}
	}

	dispatcher := notify.NewAsyncDispatcher(deliverer, cfg.Notify.BufferSize, logger)
	dispatcher.Start()

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)
	taskService := tasks.NewService(tasks.NewGormStore(db), authService, dispatcher, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		TaskService:    taskService,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		TrustedProxies: cfg.RateLimit.TrustedProxies,
	})

	// Create HTTP server. Exports stream, so writes get more time than reads.
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// No request can notify any more; hand over what is still buffered
	if err := dispatcher.Close(ctx); err != nil {
		logger.Error("notification dispatcher did not drain", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}

	if redisClient != nil {
		redisClient.Close()
	}

	if err := database.Close(db); err != nil {
		logger.Error("closing database", "error", err)
	}

	logger.Info("server stopped")
}

func newMailer(cfg *config.MailConfig, logger *slog.Logger) notify.Mailer {
	if !cfg.Enabled() {
		logger.Warn("MAIL_HOST not set, emails will only be logged")
		return notify.LogMailer{Logger: logger}
	}
	return notify.NewSMTPMailer(cfg)
}
