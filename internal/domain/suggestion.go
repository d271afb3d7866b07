package domain

import "slices"

// Suggestion is a candidate task that has not been created yet.
// Suggestions are keyed by title; titles are not guaranteed unique across refreshes.
type Suggestion struct {
	Title    string
	Priority TaskPriority
	Tags     []string
}

// CreateParams converts the suggestion into a new-task request, preserving
// title, priority and tags exactly.
func (s Suggestion) CreateParams() CreateTaskParams {
	return CreateTaskParams{
		Title:    s.Title,
		Priority: string(s.Priority),
		Tags:     slices.Clone(s.Tags),
	}
}

var fallbackSuggestions = []Suggestion{
	{Title: "Review project timeline", Priority: TaskPriorityHigh, Tags: []string{"planning", "review"}},
	{Title: "Update team documentation", Priority: TaskPriorityMedium, Tags: []string{"documentation"}},
	{Title: "Schedule weekly sync", Priority: TaskPriorityLow, Tags: []string{"meeting"}},
}

// FallbackSuggestions returns a fresh copy of the fixed domain-agnostic suggestions.
func FallbackSuggestions() []Suggestion {
	out := make([]Suggestion, len(fallbackSuggestions))
	for i, s := range fallbackSuggestions {
		out[i] = Suggestion{Title: s.Title, Priority: s.Priority, Tags: slices.Clone(s.Tags)}
	}
	return out
}
