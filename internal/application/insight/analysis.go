// Package insight derives productivity scores and insights from a task collection.
package insight

import (
	"fmt"
	"math"
	"time"

	"github.com/rezkam/tasklens/internal/domain"
)

const (
	// remarkThreshold gates the positive wording of the time and priority remarks.
	remarkThreshold = 70

	// pointsPerDay is subtracted from a perfect time-management score for each
	// day of average completion latency.
	pointsPerDay = 10

	day = 24 * time.Hour
)

// ComputeBasicAnalysis scores a task collection deterministically.
// It is pure and total: an empty collection scores productivity 0,
// time management 100 and prioritization 100.
func ComputeBasicAnalysis(tasks []domain.Task) domain.Analysis {
	var (
		completed int
		latency   time.Duration
		highTotal int
		highDone  int
	)
	for _, t := range tasks {
		if t.Completed {
			completed++
			if d, ok := t.CompletionLatency(); ok {
				latency += d
			}
		}
		if t.Priority == domain.TaskPriorityHigh {
			highTotal++
			if t.Completed {
				highDone++
			}
		}
	}

	productivity := 0
	if len(tasks) > 0 {
		productivity = percent(completed, len(tasks))
	}

	avgDays := float64(latency) / float64(max(completed, 1)) / float64(day)
	timeManagement := clamp(roundHalfUp(100 - avgDays*pointsPerDay))

	prioritization := 100
	if highTotal > 0 {
		prioritization = percent(highDone, highTotal)
	}

	return domain.Analysis{
		ProductivityScore:   productivity,
		TimeManagementScore: timeManagement,
		PrioritizationScore: prioritization,
		Insights:            basicInsights(completed, len(tasks), timeManagement, prioritization),
		SuggestedTags:       tagUnion(tasks),
	}
}

func basicInsights(completed, total, timeManagement, prioritization int) []string {
	timeRemark := "Try to complete tasks more quickly"
	if timeManagement > remarkThreshold {
		timeRemark = "Great time management!"
	}

	priorityRemark := "Focus on high-priority tasks"
	if prioritization > remarkThreshold {
		priorityRemark = "Good priority management!"
	}

	return []string{
		fmt.Sprintf("You've completed %d out of %d tasks", completed, total),
		timeRemark,
		priorityRemark,
	}
}

// tagUnion returns every distinct tag in first-seen order.
func tagUnion(tasks []domain.Task) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, t := range tasks {
		for _, tag := range t.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

func percent(part, whole int) int {
	return roundHalfUp(100 * float64(part) / float64(whole))
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(score int) int {
	return min(max(score, 0), 100)
}
