//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hugh/taskhub/internal/auth"
	"github.com/hugh/taskhub/internal/database"
	"github.com/hugh/taskhub/internal/database/models"
	"github.com/hugh/taskhub/internal/notify"
	"github.com/hugh/taskhub/internal/tasks"
	"github.com/hugh/taskhub/pkg/config"
	"github.com/hugh/taskhub/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, "seed")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := envOr("SEED_EMAIL", "admin@example.com")
	password := envOr("SEED_PASSWORD", "admin123")

	ctx := context.Background()
	resp, err := authService.Register(ctx, auth.RegisterInput{
		Name:              envOr("SEED_NAME", "Admin"),
		Email:             email,
		Password:          password,
		CompanyName:       envOr("SEED_COMPANY", "Demo Company"),
		CompanyIdentifier: envOr("SEED_COMPANY_ID", "demo"),
	})
	if errors.Is(err, auth.ErrEmailTaken) || errors.Is(err, auth.ErrIdentifierTaken) {
		fmt.Println("Seed data already present, nothing to do")
		return
	}
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}

	// Seeding is not worth an email
	service := tasks.NewService(tasks.NewGormStore(db), authService, notify.Discard{}, logger)
	actor := tasks.Actor{UserID: resp.User.ID, CompanyID: resp.User.CompanyID, Email: resp.User.Email}

	today := time.Now()
	samples := []tasks.Fields{
		{Title: "Set up the project board", Status: models.TaskStatusCompleted, Priority: models.TaskPriorityMedium},
		{Title: "Invite the team", Status: models.TaskStatusInProgress, Priority: models.TaskPriorityHigh, DueDate: date(today.AddDate(0, 0, 2))},
		{Title: "Review last quarter", Status: models.TaskStatusPending, Priority: models.TaskPriorityLow, DueDate: date(today.AddDate(0, 0, -3))},
	}
	for _, f := range samples {
		if _, err := service.Create(ctx, actor, f); err != nil {
			log.Fatalf("failed to create task %q: %v", f.Title, err)
		}
	}

	fmt.Printf("Created user: %s (company %s)\n", resp.User.Email, resp.User.Company.Identifier)
	fmt.Printf("Created %d sample tasks\n", len(samples))
	fmt.Printf("Password: %s\n", password)
	fmt.Printf("Token: %s\n", resp.Token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func date(t time.Time) *models.Date {
	d := models.NewDate(t)
	return &d
}
