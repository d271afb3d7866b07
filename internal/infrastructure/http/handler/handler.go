// Package handler adapts HTTP requests to the task, insight and suggestion services.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/tasklens/internal/application/insight"
	"github.com/rezkam/tasklens/internal/application/suggestion"
	"github.com/rezkam/tasklens/internal/application/todo"
)

// Handler serves the versioned JSON API.
type Handler struct {
	tasks       *todo.Service
	insights    *insight.Engine
	suggestions *suggestion.Engine
	now         func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock overrides the clock used for dashboard "today" boundaries.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler creates a new HTTP API handler.
func NewHandler(tasks *todo.Service, insights *insight.Engine, suggestions *suggestion.Engine, opts ...Option) *Handler {
	h := &Handler{
		tasks:       tasks,
		insights:    insights,
		suggestions: suggestions,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API router. Paths are relative to the /api prefix.
// Both production code and tests should use this to get identical routing.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Patch("/", h.UpdateTask)
				r.Delete("/", h.DeleteTask)
				r.Post("/toggle", h.ToggleTask)
			})
		})

		r.Get("/analysis", h.GetAnalysis)
		r.Get("/dashboard", h.GetDashboard)

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", h.ListSuggestions)
			r.Post("/refresh", h.RefreshSuggestions)
			r.Post("/accept", h.AcceptSuggestion)
		})
	})

	return r
}
