package entity

import "time"

// SweepSummary describes one pass of the stale-score sweep worker. Consumed
// by the ops notifier.
type SweepSummary struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Scanned  int       `json:"scanned"`
	Enqueued int       `json:"enqueued"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
}
