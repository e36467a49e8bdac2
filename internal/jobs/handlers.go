package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/taskhub/internal/database/models"
	"github.com/hugh/taskhub/internal/notify"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	mailer notify.Mailer
	now    func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger, mailer notify.Mailer) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		mailer: mailer,
		now:    time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeTaskNotification, h.HandleTaskNotification)
	mux.HandleFunc(TypeOverdueSweep, h.HandleOverdueSweep)
}

// HandleTaskNotification sends the email for one task event. Payloads that
// can never be delivered are not retried.
func (h *Handler) HandleTaskNotification(ctx context.Context, t *asynq.Task) error {
	var n notify.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	msg, err := notify.Compose(n)
	if err != nil {
		return fmt.Errorf("compose: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("notification for task %s has no recipient: %w", n.TaskID, asynq.SkipRetry)
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		return err
	}

	h.logger.Info("notification sent",
		"event", n.Event,
		"task_id", n.TaskID,
		"recipient", n.Recipient,
	)
	return nil
}

// HandleOverdueSweep mails every owner one reminder listing their open tasks
// whose due date has passed.
func (h *Handler) HandleOverdueSweep(ctx context.Context, t *asynq.Task) error {
	today := models.NewDate(h.now())

	var overdue []models.Task
	err := h.db.WithContext(ctx).
		Preload("User").
		Where("due_date IS NOT NULL AND due_date < ?", today.String()).
		Where("status <> ?", models.TaskStatusCompleted).
		Order("user_id, due_date ASC").
		Find(&overdue).Error
	if err != nil {
		return fmt.Errorf("loading overdue tasks: %w", err)
	}

	digests := groupByOwner(overdue)
	failed := 0
	for _, d := range digests {
		msg, err := notify.ComposeOverdue(d)
		if err == nil {
			err = h.mailer.Send(ctx, msg)
		}
		if err != nil {
			failed++
			h.logger.Error("overdue reminder failed", "recipient", d.Email, "error", err)
		}
	}

	h.logger.Info("overdue sweep finished",
		"tasks", len(overdue),
		"owners", len(digests),
		"failed", failed,
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d overdue reminders failed", failed, len(digests))
	}
	return nil
}

// groupByOwner keeps the order in which owners first appear. Tasks whose
// owner no longer loads are skipped.
func groupByOwner(list []models.Task) []notify.OverdueDigest {
	index := make(map[uuid.UUID]int)
	var digests []notify.OverdueDigest

	for _, task := range list {
		if task.User == nil {
			continue
		}
		i, ok := index[task.UserID]
		if !ok {
			i = len(digests)
			index[task.UserID] = i
			digests = append(digests, notify.OverdueDigest{
				Name:  task.User.Name,
				Email: task.User.Email,
			})
		}
		digests[i].Tasks = append(digests[i].Tasks, task)
	}
	return digests
}
