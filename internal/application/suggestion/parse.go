package suggestion

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rezkam/tasklens/internal/domain"
)

// ParseSuggestions reads "title|||priority|||tag1,tag2" lines.
//
// Blank lines are skipped and a leading list marker ("-", "*", "1.", "2)") is
// tolerated. Lines with the wrong field count, an invalid title or an unknown
// priority are discarded. At most three suggestions are returned; when no line
// survives the error wraps domain.ErrMalformedOutput.
func ParseSuggestions(text string) ([]domain.Suggestion, error) {
	var (
		out       []domain.Suggestion
		discarded int
	)
	for _, line := range strings.Split(text, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}

		s, ok := parseLine(line)
		if !ok {
			discarded++
			continue
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid suggestion lines (%d discarded)", domain.ErrMalformedOutput, discarded)
	}
	return out, nil
}

func parseLine(line string) (domain.Suggestion, bool) {
	fields := strings.Split(line, fieldDelimiter)
	if len(fields) < 2 || len(fields) > 3 {
		return domain.Suggestion{}, false
	}

	title, err := domain.NewTitle(fields[0])
	if err != nil {
		return domain.Suggestion{}, false
	}

	priority, err := domain.ParseTaskPriority(fields[1])
	if err != nil {
		return domain.Suggestion{}, false
	}

	tags := []string{}
	if len(fields) == 3 {
		tags = domain.NormalizeTags(strings.Split(fields[2], ","))
	}

	return domain.Suggestion{Title: title.String(), Priority: priority, Tags: tags}, true
}

func stripListMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		return strings.TrimSpace(line[2:])
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	// "1. x" and "2) x" are markers; "3.5 notes" and "2024 planning" are titles.
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && unicode.IsSpace(rune(line[i+1])) {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
