package suggestion

import (
	"time"

	"github.com/rezkam/tasklens/internal/worker"
)

// NewRefresher schedules e.Refresh: once on Start, then every interval, and
// on each Trigger. A non-positive interval uses worker.DefaultInterval.
func NewRefresher(e *Engine, interval time.Duration) *worker.Worker {
	return worker.New(e,
		worker.WithInterval(interval),
		worker.WithName("suggestion-refresher"),
	)
}
