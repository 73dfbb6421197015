// Package notify delivers run outcomes to operators. Notifications happen
// only at stage boundaries and are best-effort: a failed delivery is logged
// and never affects the pipeline result.
package notify

import (
	"context"
	"fmt"
	"time"
)

// StageDuration pairs a stage label with its wall-clock duration.
type StageDuration struct {
	Stage   string
	Elapsed time.Duration
}

// RunReport summarizes a successful run for the success notification.
type RunReport struct {
	Job         string
	FactRows    int64
	FactBatches int64
	SkippedRows int64
	Stages      []StageDuration
	Total       time.Duration
}

// Notifier is the outbound notification contract.
type Notifier interface {
	// RunSucceeded announces a completed run with its summary.
	RunSucceeded(ctx context.Context, report RunReport)

	// StageFailed announces a failed stage with the time to failure.
	StageFailed(ctx context.Context, job, stage string, err error, elapsed time.Duration)
}

// Nop discards all notifications. It is the default when the notifier is not
// configured.
type Nop struct{}

func (Nop) RunSucceeded(context.Context, RunReport)                           {}
func (Nop) StageFailed(context.Context, string, string, error, time.Duration) {}

// formatClock renders a duration as HH:MM:SS, the format operators are used
// to from the historical alerts.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
