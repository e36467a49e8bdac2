package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/api/dto"
	"github.com/hugh/taskhub/internal/api/middleware"
	"github.com/hugh/taskhub/internal/database/models"
	"github.com/hugh/taskhub/internal/tasks"
)

type TaskHandler struct {
	service *tasks.Service
	logger  *slog.Logger
}

func NewTaskHandler(service *tasks.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

// List handles GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, filter, ok := h.scope(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.logger.Error("listing tasks", "user_id", actor.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list tasks"})
		return
	}
	if list == nil {
		list = []models.Task{}
	}

	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	task, err := h.service.Create(r.Context(), actor, req.ToFields())
	if err != nil {
		h.writeError(w, actor, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// Get handles GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, actor, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Update handles PUT and PATCH /api/tasks/{id}. Both replace every writable
// field.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req dto.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	task, err := h.service.Update(r.Context(), actor, id, req.ToFields())
	if err != nil {
		h.writeError(w, actor, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, actor, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Task deleted successfully"})
}

// Export handles GET /api/tasks/export, streaming CSV
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, filter, ok := h.scope(w, r)
	if !ok {
		return
	}

	filename := tasks.ExportFilename(time.Now().UTC())
	w.Header().Set("Content-Type", "text/csv; charset=UTF-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-store")

	// Once rows are streaming the status is already sent; a failure can only
	// cut the file short.
	n, err := h.service.Export(r.Context(), actor, filter, w)
	if err != nil {
		h.logger.Error("task export interrupted", "user_id", actor.UserID, "rows", n, "error", err)
		return
	}

	h.logger.Info("tasks exported", "user_id", actor.UserID, "rows", n, "file", filename)
}

func (h *TaskHandler) actor(w http.ResponseWriter, r *http.Request) (tasks.Actor, bool) {
	actor, ok := middleware.Actor(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthenticated"})
	}
	return actor, ok
}

func (h *TaskHandler) scope(w http.ResponseWriter, r *http.Request) (tasks.Actor, tasks.Filter, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return actor, tasks.Filter{}, false
	}

	q := dto.TaskFilter{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
	}
	if errs := q.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return actor, tasks.Filter{}, false
	}
	return actor, q.ToFilter(), true
}

func (h *TaskHandler) writeError(w http.ResponseWriter, actor tasks.Actor, err error) {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Task not found"})
	case errors.Is(err, tasks.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not authorized"})
	default:
		h.logger.Error("task operation failed", "user_id", actor.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

// taskID parses the {id} path parameter. Something that is not a UUID cannot
// name a task, so it is answered like a missing one.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Task not found"})
		return uuid.Nil, false
	}
	return id, true
}
