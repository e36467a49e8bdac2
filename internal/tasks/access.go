// Package tasks holds the task domain: who may touch a task, how an update
// changes it and when that is worth a notification.
package tasks

import (
	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/database/models"
)

// Actor is the authenticated user performing a request. It is always passed
// explicitly; nothing in this package reads identity from a context.
type Actor struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Email     string
}

// CanAccess reports whether actor may read, update or delete task: the task
// was created by the actor, or belongs to the actor's company.
func CanAccess(actor Actor, task models.Task) bool {
	return task.UserID == actor.UserID || task.CompanyID == actor.CompanyID
}

// Authorize is CanAccess as an error, ErrForbidden on denial
func Authorize(actor Actor, task models.Task) error {
	if !CanAccess(actor, task) {
		return ErrForbidden
	}
	return nil
}
