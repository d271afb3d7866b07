package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rezkam/tasklens/internal/infrastructure/http/response"
)

// ListSuggestions handles GET /v1/suggestions.
func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	response.OK(w, MapSuggestionsToResponse(h.suggestions.Snapshot()))
}

// RefreshSuggestions handles POST /v1/suggestions/refresh. Generator
// failures still answer 200 with the fallback list and state "failed".
func (h *Handler) RefreshSuggestions(w http.ResponseWriter, r *http.Request) {
	if err := h.suggestions.Refresh(r.Context()); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapSuggestionsToResponse(h.suggestions.Snapshot()))
}

// AcceptSuggestion handles POST /v1/suggestions/accept.
func (h *Handler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	var req AcceptSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	task, err := h.suggestions.Accept(r.Context(), req.Title)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Suggestion accepted via HTTP", "task_id", task.ID, "title", task.Title)
	response.Created(w, MapTaskToDTO(*task))
}
