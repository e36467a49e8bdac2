package tasks

import "errors"

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")
	// ErrForbidden is returned when the task exists but is outside the actor's scope.
	ErrForbidden = errors.New("task belongs to another user and company")
)
