package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/tasklens/internal/domain"
	"github.com/rezkam/tasklens/internal/infrastructure/http/response"
)

// ListTasks handles GET /v1/tasks?status=&tag=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.TaskFilter{
		Status: domain.StatusFilter(query.Get("status")),
		Tags:   parseTagQuery(query["tag"]),
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, ListTasksResponse{Tasks: MapTasksToDTO(tasks)})
}

// CreateTask handles POST /v1/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	dueAt, err := parseDueAt(req.DueAt)
	if err != nil {
		response.ValidationError(w, "due_at", "must be RFC 3339 or YYYY-MM-DD")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), domain.CreateTaskParams{
		Title:    req.Title,
		Priority: req.Priority,
		DueAt:    dueAt,
		Tags:     req.Tags,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to create task via HTTP", "title", req.Title, "error", err)
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Task created via HTTP", "task_id", task.ID)
	response.Created(w, MapTaskToDTO(*task))
}

// GetTask handles GET /v1/tasks/{taskID}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapTaskToDTO(*task))
}

// UpdateTask handles PATCH /v1/tasks/{taskID}. Only completion is mutable.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}
	if req.Completed == nil {
		response.ValidationError(w, "completed", "required field missing")
		return
	}

	task, err := h.tasks.SetCompleted(r.Context(), chi.URLParam(r, "taskID"), *req.Completed)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapTaskToDTO(*task))
}

// ToggleTask handles POST /v1/tasks/{taskID}/toggle.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.ToggleTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapTaskToDTO(*task))
}

// DeleteTask handles DELETE /v1/tasks/{taskID}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if err := h.tasks.DeleteTask(r.Context(), taskID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Task deleted via HTTP", "task_id", taskID)
	response.NoContent(w)
}
