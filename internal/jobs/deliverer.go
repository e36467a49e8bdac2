package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskhub/internal/notify"
	"github.com/hugh/taskhub/pkg/queue"
)

// NotificationMaxRetry bounds how often a failing email is retried by the worker
const NotificationMaxRetry = 5

// Enqueuer is the part of *asynq.Client the deliverer needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ notify.Deliverer = (*QueueDeliverer)(nil)

// QueueDeliverer hands notifications to the worker through Redis. The email
// is rendered and sent by Handler.HandleTaskNotification.
type QueueDeliverer struct {
	client Enqueuer
}

func NewQueueDeliverer(client Enqueuer) *QueueDeliverer {
	return &QueueDeliverer{client: client}
}

func (d *QueueDeliverer) Deliver(ctx context.Context, n notify.Notification) error {
	task, err := NewTaskNotificationTask(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(queue.QueueNotifications),
		asynq.MaxRetry(NotificationMaxRetry),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueueing %s notification for task %s: %w", n.Event, n.TaskID, err)
	}
	return nil
}
