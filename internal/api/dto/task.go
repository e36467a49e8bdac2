package dto

import (
	"strings"

	"github.com/hugh/taskhub/internal/api/validation"
	"github.com/hugh/taskhub/internal/database/models"
	"github.com/hugh/taskhub/internal/tasks"
)

// TaskRequest is the body of create and update. Both replace every writable
// field, so the rules are the same.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
}

func (r TaskRequest) Validate() map[string]string {
	errors := make(map[string]string)

	// Checked in the form it is stored in
	title := cleanTitle(r.Title)
	if title == "" {
		errors["title"] = "Title is required"
	} else if !validation.MaxLength(title, models.MaxTitleLength) {
		errors["title"] = "Title must be at most 255 characters"
	}
	if r.Status == "" {
		errors["status"] = "Status is required"
	} else if !models.TaskStatus(r.Status).Valid() {
		errors["status"] = "Status must be one of pending, in_progress, completed"
	}
	if r.Priority == "" {
		errors["priority"] = "Priority is required"
	} else if !models.TaskPriority(r.Priority).Valid() {
		errors["priority"] = "Priority must be one of low, medium, high"
	}
	if r.DueDate != nil && *r.DueDate != "" && !validation.IsValidDate(*r.DueDate) {
		errors["due_date"] = "Due date must be a valid date"
	}

	return errors
}

// ToFields converts a validated request. An empty description or due date
// clears the field.
func (r TaskRequest) ToFields() tasks.Fields {
	f := tasks.Fields{
		Title:    cleanTitle(r.Title),
		Status:   models.TaskStatus(r.Status),
		Priority: models.TaskPriority(r.Priority),
	}
	if r.Description != nil && *r.Description != "" {
		desc := validation.SanitizeString(*r.Description)
		f.Description = &desc
	}
	if r.DueDate != nil {
		if t, ok := validation.ParseDate(*r.DueDate); ok {
			due := models.NewDate(t)
			f.DueDate = &due
		}
	}
	return f
}

func cleanTitle(s string) string {
	return strings.TrimSpace(validation.SanitizeString(s))
}

// TaskFilter holds the optional list and export query parameters
type TaskFilter struct {
	Status   string
	Priority string
}

func (q TaskFilter) Validate() map[string]string {
	errors := make(map[string]string)
	if q.Status != "" && !models.TaskStatus(q.Status).Valid() {
		errors["status"] = "Status must be one of pending, in_progress, completed"
	}
	if q.Priority != "" && !models.TaskPriority(q.Priority).Valid() {
		errors["priority"] = "Priority must be one of low, medium, high"
	}
	return errors
}

func (q TaskFilter) ToFilter() tasks.Filter {
	return tasks.Filter{
		Status:   models.TaskStatus(q.Status),
		Priority: models.TaskPriority(q.Priority),
	}
}
