package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/tasklens/internal/application/insight"
	"github.com/rezkam/tasklens/internal/application/suggestion"
	"github.com/rezkam/tasklens/internal/domain"
)

// TaskDTO is the wire form of a task.
type TaskDTO struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title    string   `json:"title"`
	Priority string   `json:"priority,omitempty"`
	DueAt    string   `json:"due_at,omitempty"` // RFC 3339 timestamp or YYYY-MM-DD
	Tags     []string `json:"tags,omitempty"`
}

// UpdateTaskRequest is the body of PATCH /v1/tasks/{id}.
type UpdateTaskRequest struct {
	Completed *bool `json:"completed"`
}

// AcceptSuggestionRequest is the body of POST /v1/suggestions/accept.
type AcceptSuggestionRequest struct {
	Title string `json:"title"`
}

// ListTasksResponse wraps a task listing.
type ListTasksResponse struct {
	Tasks []TaskDTO `json:"tasks"`
}

// AnalysisResponse is the analysis snapshot on display.
type AnalysisResponse struct {
	ProductivityScore   int      `json:"productivity_score"`
	TimeManagementScore int      `json:"time_management_score"`
	PrioritizationScore int      `json:"prioritization_score"`
	Insights            []string `json:"insights"`
	SuggestedTags       []string `json:"suggested_tags"`
	Refined             bool     `json:"refined"`
	Pending             bool     `json:"pending"`
	TaskCount           int      `json:"task_count"`
}

// DashboardResponse carries the productivity dashboard statistics.
type DashboardResponse struct {
	TotalTasks              int   `json:"total_tasks"`
	CompletedTasks          int   `json:"completed_tasks"`
	CompletionRate          int   `json:"completion_rate"`
	TasksCreatedToday       int   `json:"tasks_created_today"`
	TasksCompletedToday     int   `json:"tasks_completed_today"`
	AverageCompletionTimeMS int64 `json:"average_completion_time_ms"`
	ProductivityScore       int   `json:"productivity_score"`
}

// SuggestionDTO is the wire form of a suggestion.
type SuggestionDTO struct {
	Title    string   `json:"title"`
	Priority string   `json:"priority"`
	Tags     []string `json:"tags"`
}

// SuggestionsResponse lists the active suggestions with their provenance.
type SuggestionsResponse struct {
	Suggestions []SuggestionDTO `json:"suggestions"`
	State       string          `json:"state"`
	RefreshedAt *time.Time      `json:"refreshed_at,omitempty"`
}

// MapTaskToDTO converts a domain task to its wire form.
func MapTaskToDTO(t domain.Task) TaskDTO {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		DueAt:       t.DueAt,
		Tags:        tags,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

// MapTasksToDTO converts a task slice; the result is never nil.
func MapTasksToDTO(tasks []domain.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, MapTaskToDTO(t))
	}
	return out
}

// MapAnalysisToResponse converts an engine snapshot.
func MapAnalysisToResponse(s insight.Snapshot) AnalysisResponse {
	return AnalysisResponse{
		ProductivityScore:   s.Analysis.ProductivityScore,
		TimeManagementScore: s.Analysis.TimeManagementScore,
		PrioritizationScore: s.Analysis.PrioritizationScore,
		Insights:            nonNil(s.Analysis.Insights),
		SuggestedTags:       nonNil(s.Analysis.SuggestedTags),
		Refined:             s.Refined,
		Pending:             s.Pending,
		TaskCount:           s.TaskCount,
	}
}

// MapDashboardToResponse converts dashboard statistics.
func MapDashboardToResponse(d insight.Dashboard) DashboardResponse {
	return DashboardResponse{
		TotalTasks:              d.TotalTasks,
		CompletedTasks:          d.CompletedTasks,
		CompletionRate:          d.CompletionRate,
		TasksCreatedToday:       d.TasksCreatedToday,
		TasksCompletedToday:     d.TasksCompletedToday,
		AverageCompletionTimeMS: d.AverageCompletionTime.Milliseconds(),
		ProductivityScore:       d.ProductivityScore,
	}
}

// MapSuggestionsToResponse converts a suggestion snapshot.
func MapSuggestionsToResponse(s suggestion.Snapshot) SuggestionsResponse {
	out := SuggestionsResponse{
		Suggestions: make([]SuggestionDTO, 0, len(s.Suggestions)),
		State:       string(s.State),
	}
	for _, sug := range s.Suggestions {
		out.Suggestions = append(out.Suggestions, SuggestionDTO{
			Title:    sug.Title,
			Priority: string(sug.Priority),
			Tags:     nonNil(sug.Tags),
		})
	}
	if !s.RefreshedAt.IsZero() {
		at := s.RefreshedAt
		out.RefreshedAt = &at
	}
	return out
}

// parseDueAt accepts an RFC 3339 timestamp or a calendar date (midnight UTC).
// An empty string means no due date.
func parseDueAt(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: due_at must be RFC 3339 or YYYY-MM-DD", domain.ErrValidation)
}

// parseTagQuery collects tag filters from repeated ?tag= parameters and
// comma-separated values.
func parseTagQuery(values []string) []string {
	var tags []string
	for _, v := range values {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return domain.NormalizeTags(tags)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
