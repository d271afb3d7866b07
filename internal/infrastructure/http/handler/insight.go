package handler

import (
	"net/http"
	"time"
	_ "time/tzdata" // zone lookups in images without a zoneinfo database

	"github.com/rezkam/tasklens/internal/application/insight"
	"github.com/rezkam/tasklens/internal/infrastructure/http/response"
)

// GetAnalysis handles GET /v1/analysis. It never waits for refinement; the
// pending flag tells the client a refined analysis may follow.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.AllTasks(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapAnalysisToResponse(h.insights.Analyze(r.Context(), tasks)))
}

// GetDashboard handles GET /v1/dashboard. The optional tz query parameter
// (an IANA zone name) sets the calendar day counted as today; it defaults to UTC.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			response.ValidationError(w, "tz", "must be an IANA time zone name")
			return
		}
		loc = l
	}

	tasks, err := h.tasks.AllTasks(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapDashboardToResponse(insight.ComputeDashboard(tasks, h.now().In(loc))))
}
