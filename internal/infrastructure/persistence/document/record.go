// Package document maps tasks to the JSON documents stored by the file
// system and object storage backends.
package document

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/rezkam/tasklens/internal/domain"
)

// Record is the persisted JSON shape of a task.
type Record struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// FromDomain converts a task into its record.
func FromDomain(t *domain.Task) Record {
	r := Record{
		ID:          t.ID,
		Title:       t.Title,
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		DueAt:       utcPtr(t.DueAt),
		Tags:        slices.Clone(t.Tags),
		CreatedAt:   t.CreatedAt.UTC(),
		CompletedAt: utcPtr(t.CompletedAt),
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}

// ToDomain converts the record back into a task.
func (r Record) ToDomain() domain.Task {
	t := domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Completed:   r.Completed,
		Priority:    domain.TaskPriority(r.Priority),
		DueAt:       utcPtr(r.DueAt),
		Tags:        slices.Clone(r.Tags),
		CreatedAt:   r.CreatedAt.UTC(),
		CompletedAt: utcPtr(r.CompletedAt),
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

// Marshal encodes a task as an indented JSON document.
func Marshal(t *domain.Task) ([]byte, error) {
	data, err := json.MarshalIndent(FromDomain(t), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a JSON document into a task.
func Unmarshal(data []byte) (domain.Task, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Task{}, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return r.ToDomain(), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
