package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/database/models"
	"github.com/hugh/taskhub/internal/notify"
)

// UserLookup resolves the owner of a task when the actor is someone else
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Service struct {
	store      Store
	users      UserLookup
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(store Store, users UserLookup, dispatcher notify.Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, actor Actor, filter Filter) ([]models.Task, error) {
	return s.store.ListInScope(ctx, actor, filter)
}

// Get loads a task and checks the actor may see it. A missing task is
// ErrNotFound; an existing one outside the actor's scope is ErrForbidden.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, *task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) Create(ctx context.Context, actor Actor, f Fields) (*models.Task, error) {
	now := s.now()
	task := NewTask(actor, f, now)

	if err := s.store.Create(ctx, &task); err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", task.ID, "user_id", actor.UserID, "company_id", actor.CompanyID)
	s.dispatcher.Notify(ctx, notify.NewNotification(notify.EventTaskCreated, task, actor.Email, now))

	return &task, nil
}

func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, f Fields) (*models.Task, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, completed := ApplyUpdate(*existing, f, now)

	if err := s.store.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.logger.Info("task updated",
		"task_id", updated.ID,
		"user_id", actor.UserID,
		"from_status", existing.Status,
		"to_status", updated.Status,
	)

	if completed {
		s.notifyOwner(ctx, actor, updated, now)
	}

	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id, "user_id", actor.UserID)
	return nil
}

// Export writes every task in the actor's scope matching filter to w as CSV
func (s *Service) Export(ctx context.Context, actor Actor, filter Filter, w io.Writer) (int, error) {
	cw, err := NewCSVWriter(w)
	if err != nil {
		return 0, err
	}

	count := 0
	err = s.store.EachInScope(ctx, actor, filter, func(task models.Task) error {
		count++
		return cw.Write(task)
	})
	if err != nil {
		return count, fmt.Errorf("exporting tasks: %w", err)
	}
	return count, cw.Flush()
}

// notifyOwner sends the completion notice to whoever created the task. If the
// owner cannot be resolved the notice is skipped; the update itself stands.
func (s *Service) notifyOwner(ctx context.Context, actor Actor, task models.Task, now time.Time) {
	recipient := actor.Email
	if task.UserID != actor.UserID {
		owner, err := s.users.GetUserByID(ctx, task.UserID)
		if err != nil {
			s.logger.Warn("skipping completion notification, owner lookup failed",
				"task_id", task.ID,
				"owner_id", task.UserID,
				"error", err,
			)
			return
		}
		recipient = owner.Email
	}

	s.dispatcher.Notify(ctx, notify.NewNotification(notify.EventTaskCompleted, task, recipient, now))
}
