package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rezkam/tasklens/internal/domain"
)

const refineSystemPrompt = "You are an AI productivity analyst. Analyze task patterns and provide insights in JSON format."

// taskPayload is the task shape shown to the generator. Times are epoch milliseconds.
type taskPayload struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Completed      bool     `json:"completed"`
	Priority       string   `json:"priority"`
	DueDate        *int64   `json:"dueDate,omitempty"`
	Tags           []string `json:"tags"`
	CreatedAt      int64    `json:"createdAt"`
	CompletedAt    *int64   `json:"completedAt,omitempty"`
	CompletionTime *int64   `json:"completionTime"`
}

func buildRefinePrompt(tasks []domain.Task) (string, error) {
	payload := make([]taskPayload, 0, len(tasks))
	for _, t := range tasks {
		p := taskPayload{
			ID:        t.ID,
			Title:     t.Title,
			Completed: t.Completed,
			Priority:  string(t.Priority),
			Tags:      t.Tags,
			CreatedAt: t.CreatedAt.UnixMilli(),
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if t.DueAt != nil {
			due := t.DueAt.UnixMilli()
			p.DueDate = &due
		}
		if t.CompletedAt != nil {
			at := t.CompletedAt.UnixMilli()
			p.CompletedAt = &at
		}
		if d, ok := t.CompletionLatency(); ok {
			ms := d.Milliseconds()
			p.CompletionTime = &ms
		}
		payload = append(payload, p)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode tasks: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze these tasks and provide scores and insights:\n")
	b.Write(data)
	b.WriteString("\n\nReturn a JSON object with:\n")
	b.WriteString("- productivityScore (0-100)\n")
	b.WriteString("- insights (array of strings)\n")
	b.WriteString("- suggestedTags (array of strings)\n")
	b.WriteString("- timeManagementScore (0-100)\n")
	b.WriteString("- prioritizationScore (0-100)")
	return b.String(), nil
}

// analysisPayload mirrors domain.Analysis with pointers so missing fields are detectable.
type analysisPayload struct {
	ProductivityScore   *float64 `json:"productivityScore"`
	TimeManagementScore *float64 `json:"timeManagementScore"`
	PrioritizationScore *float64 `json:"prioritizationScore"`
	Insights            []string `json:"insights"`
	SuggestedTags       []string `json:"suggestedTags"`
}

// parseAnalysis validates generated text against the Analysis shape.
// Every failure wraps domain.ErrMalformedOutput.
func parseAnalysis(text string) (domain.Analysis, error) {
	raw := stripCodeFence(text)

	var p analysisPayload
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&p); err != nil {
		return domain.Analysis{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Analysis{}, fmt.Errorf("%w: unexpected content after the analysis object", domain.ErrMalformedOutput)
	}

	productivity, err := score("productivityScore", p.ProductivityScore)
	if err != nil {
		return domain.Analysis{}, err
	}
	timeManagement, err := score("timeManagementScore", p.TimeManagementScore)
	if err != nil {
		return domain.Analysis{}, err
	}
	prioritization, err := score("prioritizationScore", p.PrioritizationScore)
	if err != nil {
		return domain.Analysis{}, err
	}

	if len(p.Insights) == 0 {
		return domain.Analysis{}, fmt.Errorf("%w: insights missing", domain.ErrMalformedOutput)
	}
	for i, s := range p.Insights {
		if strings.TrimSpace(s) == "" {
			return domain.Analysis{}, fmt.Errorf("%w: insight %d is blank", domain.ErrMalformedOutput, i)
		}
	}
	if p.SuggestedTags == nil {
		return domain.Analysis{}, fmt.Errorf("%w: suggestedTags missing", domain.ErrMalformedOutput)
	}

	return domain.Analysis{
		ProductivityScore:   productivity,
		TimeManagementScore: timeManagement,
		PrioritizationScore: prioritization,
		Insights:            p.Insights,
		SuggestedTags:       domain.NormalizeTags(p.SuggestedTags),
	}, nil
}

func score(field string, v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: %s missing", domain.ErrMalformedOutput, field)
	}
	if *v < 0 || *v > 100 {
		return 0, fmt.Errorf("%w: %s %v out of range", domain.ErrMalformedOutput, field, *v)
	}
	return roundHalfUp(*v), nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
