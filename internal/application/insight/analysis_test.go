package insight

import (
	"fmt"
	"testing"
	"time"

	"github.com/rezkam/tasklens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func completedTask(priority domain.TaskPriority, created time.Time, latency time.Duration, tags ...string) domain.Task {
	at := created.Add(latency)
	return domain.Task{
		ID:          fmt.Sprintf("done-%d-%s", created.UnixNano(), latency),
		Title:       "done",
		Completed:   true,
		Priority:    priority,
		Tags:        tags,
		CreatedAt:   created,
		CompletedAt: &at,
	}
}

func openTask(priority domain.TaskPriority, tags ...string) domain.Task {
	return domain.Task{ID: "open", Title: "open", Priority: priority, Tags: tags, CreatedAt: epoch}
}

func TestComputeBasicAnalysis_Empty(t *testing.T) {
	for _, tasks := range [][]domain.Task{nil, {}} {
		a := ComputeBasicAnalysis(tasks)

		assert.Equal(t, 0, a.ProductivityScore)
		assert.Equal(t, 100, a.TimeManagementScore)
		assert.Equal(t, 100, a.PrioritizationScore)
		assert.Empty(t, a.SuggestedTags)
		assert.NotNil(t, a.SuggestedTags)
		assert.Equal(t, []string{
			"You've completed 0 out of 0 tasks",
			"Great time management!",
			"Good priority management!",
		}, a.Insights)
	}
}

func TestComputeBasicAnalysis_HalfDoneHighPriority(t *testing.T) {
	tasks := []domain.Task{
		completedTask(domain.TaskPriorityHigh, epoch, 0),
		openTask(domain.TaskPriorityHigh),
	}

	a := ComputeBasicAnalysis(tasks)

	assert.Equal(t, 50, a.ProductivityScore)
	assert.Equal(t, 50, a.PrioritizationScore)
	assert.Equal(t, 100, a.TimeManagementScore)
	assert.Equal(t, "You've completed 1 out of 2 tasks", a.Insights[0])
	assert.Equal(t, "Focus on high-priority tasks", a.Insights[2])
}

func TestComputeBasicAnalysis_SameDayCompletionIsPerfect(t *testing.T) {
	tasks := []domain.Task{
		completedTask(domain.TaskPriorityLow, epoch, 0),
		completedTask(domain.TaskPriorityMedium, epoch.Add(time.Hour), 0),
	}

	a := ComputeBasicAnalysis(tasks)

	assert.Equal(t, 100, a.TimeManagementScore)
	assert.Equal(t, 100, a.ProductivityScore)
}

func TestComputeBasicAnalysis_NoHighPriorityIsPerfect(t *testing.T) {
	tasks := []domain.Task{
		openTask(domain.TaskPriorityLow),
		openTask(domain.TaskPriorityMedium),
	}

	a := ComputeBasicAnalysis(tasks)

	assert.Equal(t, 100, a.PrioritizationScore)
	assert.Equal(t, 0, a.ProductivityScore)
}

func TestComputeBasicAnalysis_TimeManagement(t *testing.T) {
	tests := []struct {
		name    string
		latency time.Duration
		want    int
		remark  string
	}{
		{name: "one day", latency: 24 * time.Hour, want: 90, remark: "Great time management!"},
		{name: "three days hits the gate", latency: 72 * time.Hour, want: 70, remark: "Try to complete tasks more quickly"},
		{name: "half day rounds half up", latency: 12 * time.Hour, want: 95, remark: "Great time management!"},
		{name: "very slow clamps to zero", latency: 30 * 24 * time.Hour, want: 0, remark: "Try to complete tasks more quickly"},
		{name: "clock skew clamps to 100", latency: -48 * time.Hour, want: 100, remark: "Great time management!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ComputeBasicAnalysis([]domain.Task{completedTask(domain.TaskPriorityLow, epoch, tt.latency)})

			assert.Equal(t, tt.want, a.TimeManagementScore)
			assert.Equal(t, tt.remark, a.Insights[1])
		})
	}
}

func TestComputeBasicAnalysis_MissingCompletedAtCountsAsZero(t *testing.T) {
	legacy := domain.Task{ID: "x", Completed: true, Priority: domain.TaskPriorityLow, CreatedAt: epoch}
	slow := completedTask(domain.TaskPriorityLow, epoch, 4*24*time.Hour)

	a := ComputeBasicAnalysis([]domain.Task{legacy, slow})

	// Average is 4 days over 2 completed tasks = 2 days.
	assert.Equal(t, 80, a.TimeManagementScore)
}

func TestComputeBasicAnalysis_ScoresStayInRange(t *testing.T) {
	priorities := []domain.TaskPriority{domain.TaskPriorityLow, domain.TaskPriorityMedium, domain.TaskPriorityHigh}
	for n := 0; n < 40; n++ {
		var tasks []domain.Task
		for i := 0; i <= n; i++ {
			p := priorities[(i*7+n)%3]
			if (i+n)%3 == 0 {
				tasks = append(tasks, completedTask(p, epoch, time.Duration(i*n)*time.Hour))
			} else {
				tasks = append(tasks, openTask(p))
			}
		}

		a := ComputeBasicAnalysis(tasks)

		for _, s := range []int{a.ProductivityScore, a.TimeManagementScore, a.PrioritizationScore} {
			require.GreaterOrEqual(t, s, 0)
			require.LessOrEqual(t, s, 100)
		}
		require.Len(t, a.Insights, 3)
	}
}

func TestComputeBasicAnalysis_RemarkGateIsStrict(t *testing.T) {
	// 7 of 10 high-priority tasks done is exactly 70.
	var tasks []domain.Task
	for i := 0; i < 10; i++ {
		if i < 7 {
			tasks = append(tasks, completedTask(domain.TaskPriorityHigh, epoch.Add(time.Duration(i)), 0))
		} else {
			tasks = append(tasks, openTask(domain.TaskPriorityHigh))
		}
	}

	a := ComputeBasicAnalysis(tasks)

	assert.Equal(t, 70, a.PrioritizationScore)
	assert.Equal(t, "Focus on high-priority tasks", a.Insights[2])
}

func TestComputeBasicAnalysis_SuggestedTagsUnion(t *testing.T) {
	tasks := []domain.Task{
		openTask(domain.TaskPriorityLow, "work", "urgent"),
		openTask(domain.TaskPriorityLow, "home", "work"),
		openTask(domain.TaskPriorityLow),
	}

	a := ComputeBasicAnalysis(tasks)

	assert.ElementsMatch(t, []string{"work", "urgent", "home"}, a.SuggestedTags)
}
