package insight

import (
	"time"

	"github.com/rezkam/tasklens/internal/domain"
)

// Dashboard summarizes day-to-day activity for the productivity widgets.
type Dashboard struct {
	TotalTasks            int
	CompletedTasks        int
	CompletionRate        int // percent of all tasks completed
	TasksCreatedToday     int
	TasksCompletedToday   int // created today and already completed
	AverageCompletionTime time.Duration
	ProductivityScore     int
}

// ComputeDashboard derives dashboard statistics. "Today" is the calendar day
// of now in now's location.
//
// The composite score is min(100, round((rate + 20*completedToday + fast) / 1.4))
// where fast is 20 when at least one task is complete and the average
// completion time is under a day.
func ComputeDashboard(tasks []domain.Task, now time.Time) Dashboard {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	var (
		dash    Dashboard
		latency time.Duration
	)
	dash.TotalTasks = len(tasks)
	for _, t := range tasks {
		created := t.CreatedAt.In(now.Location())
		today := !created.Before(startOfDay) && created.Before(endOfDay)
		if today {
			dash.TasksCreatedToday++
		}
		if !t.Completed {
			continue
		}
		dash.CompletedTasks++
		if today {
			dash.TasksCompletedToday++
		}
		if l, ok := t.CompletionLatency(); ok {
			latency += l
		}
	}

	if dash.TotalTasks > 0 {
		dash.CompletionRate = percent(dash.CompletedTasks, dash.TotalTasks)
	}
	if dash.CompletedTasks > 0 {
		dash.AverageCompletionTime = latency / time.Duration(dash.CompletedTasks)
	}

	fastBonus := 0
	if dash.CompletedTasks > 0 && dash.AverageCompletionTime < day {
		fastBonus = 20
	}
	raw := float64(dash.CompletionRate+dash.TasksCompletedToday*20+fastBonus) / 1.4
	dash.ProductivityScore = min(100, roundHalfUp(raw))

	return dash
}
