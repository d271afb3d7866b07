package domain

import (
	"slices"
	"time"
)

// Task is the aggregate root of the task store.
//
// CompletedAt is non-nil exactly when Completed is true. Use SetCompleted
// to change completion so the two fields never drift apart.
type Task struct {
	ID        string
	Title     string
	Completed bool
	Priority  TaskPriority

	DueAt *time.Time // Optional
	Tags  []string

	// Timestamps are always UTC.
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// SetCompleted moves the task to the requested completion state.
// A false to true transition stamps CompletedAt with now; true to false clears it.
// Repeating the current state changes nothing and reports false.
func (t *Task) SetCompleted(completed bool, now time.Time) bool {
	if t.Completed == completed {
		return false
	}

	t.Completed = completed
	if completed {
		at := now.UTC()
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	return true
}

// Toggle flips the completion state.
func (t *Task) Toggle(now time.Time) {
	t.SetCompleted(!t.Completed, now)
}

// CompletionLatency returns how long the task took to complete.
// The second value is false when the task has no completion timestamp.
func (t Task) CompletionLatency() (time.Duration, bool) {
	if !t.Completed || t.CompletedAt == nil {
		return 0, false
	}
	return t.CompletedAt.Sub(t.CreatedAt), true
}

// HasAnyTag reports whether the task carries at least one of the given tags.
func (t Task) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if slices.Contains(t.Tags, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (t Task) Clone() Task {
	c := t
	c.Tags = slices.Clone(t.Tags)
	if t.DueAt != nil {
		due := *t.DueAt
		c.DueAt = &due
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}
