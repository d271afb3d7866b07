package domain

import (
	"slices"
	"time"
)

// CreateTaskParams carries the caller-supplied fields of a new task.
// Raw strings are validated by the service through NewTitle and NewTaskPriority.
type CreateTaskParams struct {
	Title    string
	Priority string
	DueAt    *time.Time
	Tags     []string
}

// TaskFilter narrows a task listing.
//
// Common use cases:
//   - "What is left": Status=active
//   - "Everything tagged work or home": Tags=[work, home]
type TaskFilter struct {
	Status StatusFilter // Empty behaves like StatusFilterAll
	Tags   []string     // A task matches when it has any of these tags (empty = no tag filter)
}

// Matches reports whether the task passes the filter.
func (f TaskFilter) Matches(t Task) bool {
	switch f.Status {
	case StatusFilterActive:
		if t.Completed {
			return false
		}
	case StatusFilterCompleted:
		if !t.Completed {
			return false
		}
	}

	if len(f.Tags) > 0 && !t.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

// SortTasks orders tasks newest first, breaking ties by ID.
// Every store backend returns listings in this order.
func SortTasks(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
