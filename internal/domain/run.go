package domain

import "time"

// RunStats holds statistics about a single push run.
type RunStats struct {
	RunID    string
	Parsed   int
	New      int
	Pushed   int
	Mirrored int
	Errors   int
	SeenSize int
	Duration time.Duration
}
