package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Title is a validated title value object (1-255 characters).
type Title struct {
	value string
}

// NewTitle creates a new Title, validating the input.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Title{}, ErrTitleRequired
	}

	if utf8.RuneCountInString(s) > MaxTitleLength {
		return Title{}, ErrTitleTooLong
	}

	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// NewTaskPriority validates and creates a TaskPriority.
// Empty input defaults to medium.
func NewTaskPriority(s string) (TaskPriority, error) {
	if s == "" {
		return TaskPriorityMedium, nil
	}

	return ParseTaskPriority(s)
}

// ParseTaskPriority is the strict form of NewTaskPriority: empty input is rejected.
func ParseTaskPriority(s string) (TaskPriority, error) {
	priority := TaskPriority(strings.ToLower(strings.TrimSpace(s)))

	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return priority, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskPriority, s)
	}
}

// NewStatusFilter validates and creates a StatusFilter. Empty input means all.
func NewStatusFilter(s string) (StatusFilter, error) {
	if s == "" {
		return StatusFilterAll, nil
	}

	status := StatusFilter(strings.ToLower(s))

	switch status {
	case StatusFilterAll, StatusFilterActive, StatusFilterCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatusFilter, s)
	}
}

// NormalizeTags trims every tag and drops blanks, keeping the original order.
// Always returns a non-nil slice.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}
