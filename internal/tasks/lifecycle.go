package tasks

import (
	"time"

	"github.com/hugh/taskhub/internal/database/models"
)

// Fields are the client-writable attributes of a task. They are validated
// by the API layer before they get here.
type Fields struct {
	Title       string
	Description *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *models.Date
}

// NewTask builds a task owned by actor. Creating a task is always a
// notifiable event, whatever its initial status.
func NewTask(actor Actor, f Fields, now time.Time) models.Task {
	task := models.Task{
		CompanyID: actor.CompanyID,
		UserID:    actor.UserID,
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	assign(&task, f)
	return task
}

// ApplyUpdate overwrites the writable fields of existing and reports whether
// the task just moved into completed. Re-completing a completed task does not
// count. Identity, ownership and creation time are left alone.
func ApplyUpdate(existing models.Task, f Fields, now time.Time) (models.Task, bool) {
	wasCompleted := existing.Status == models.TaskStatusCompleted
	willBeCompleted := f.Status == models.TaskStatusCompleted

	updated := existing
	assign(&updated, f)
	updated.UpdatedAt = now

	return updated, willBeCompleted && !wasCompleted
}

func assign(task *models.Task, f Fields) {
	task.Title = f.Title
	task.Description = f.Description
	task.Status = f.Status
	task.Priority = f.Priority
	task.DueDate = f.DueDate
}
