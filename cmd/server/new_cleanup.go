package main

import (
	"io"
	"log/slog"
)

// stopper abstracts the suggestion refresher so tests can verify cleanup
// ordering without starting real infrastructure.
type stopper interface {
	Stop() error
}

// newCleanup constructs the shutdown hook: stop the refresher so no new
// refresh reads the store, cancel in-flight analysis refinements, then close
// the shared store.
func newCleanup(refresher stopper, insights io.Closer, store io.Closer) func() {
	return func() {
		if refresher != nil {
			if err := refresher.Stop(); err != nil {
				slog.Error("Failed to stop suggestion refresher", slog.String("error", err.Error()))
			}
		}

		if insights != nil {
			if err := insights.Close(); err != nil {
				slog.Error("Failed to close analysis engine", slog.String("error", err.Error()))
			}
		}

		if store != nil {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close store", slog.String("error", err.Error()))
			}
		}
	}
}
