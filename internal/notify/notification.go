// Package notify carries task events out of the request path. Callers hand a
// Notification to a Dispatcher and move on; delivery happens elsewhere and its
// failures never reach the caller.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/database/models"
)

type Event string

const (
	EventTaskCreated   Event = "task.created"
	EventTaskCompleted Event = "task.completed"
)

// Notification is a snapshot of a task at the moment of the event, so it can be
// delivered after the task changed again or was deleted.
type Notification struct {
	Event       Event               `json:"event"`
	TaskID      uuid.UUID           `json:"task_id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *models.Date        `json:"due_date,omitempty"`
	Recipient   string              `json:"recipient"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// NewNotification snapshots task for event, addressed to recipient
func NewNotification(event Event, task models.Task, recipient string, at time.Time) Notification {
	return Notification{
		Event:       event,
		TaskID:      task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		Recipient:   recipient,
		OccurredAt:  at,
	}
}

// Dispatcher accepts notifications without blocking and without reporting
// delivery problems.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification)
}

// Deliverer performs the actual, possibly slow, delivery of one notification.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

type DelivererFunc func(ctx context.Context, n Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Discard drops every notification
type Discard struct{}

func (Discard) Notify(context.Context, Notification) {}
