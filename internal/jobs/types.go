package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskhub/internal/notify"
)

// Task type names
const (
	TypeTaskNotification = "notify:task"
	TypeOverdueSweep     = "notify:overdue_sweep"
)

// NewTaskNotificationTask wraps a notification snapshot as the job payload
func NewTaskNotificationTask(n notify.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTaskNotification, data), nil
}

// NewOverdueSweepTask carries no payload; the handler works out what is overdue
// at the time it runs.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TypeOverdueSweep, nil)
}
