package suggestion

import (
	"strings"

	"github.com/rezkam/tasklens/internal/domain"
)

const (
	// fieldDelimiter separates title, priority and tags on a suggestion line.
	fieldDelimiter = "|||"

	// maxSuggestions is how many follow-ups are requested and kept per refresh.
	maxSuggestions = 3

	systemPrompt = "You are an AI task assistant. Based on the user's existing tasks, suggest 3 relevant follow-up tasks in a structured format: title|||priority|||tags (comma-separated). Each task on a new line."
)

// BuildContext renders one line per task as "title (priority - tag, tag)".
// The tag part is omitted for untagged tasks.
func BuildContext(tasks []domain.Task) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		var b strings.Builder
		b.WriteString(t.Title)
		b.WriteString(" (")
		b.WriteString(string(t.Priority))
		if len(t.Tags) > 0 {
			b.WriteString(" - ")
			b.WriteString(strings.Join(t.Tags, ", "))
		}
		b.WriteString(")")
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func buildUserPrompt(tasks []domain.Task) string {
	return "Based on these tasks:\n" + BuildContext(tasks) +
		"\n\nSuggest 3 relevant follow-up tasks that would help complete the project or achieve the goals implied by the existing tasks."
}
