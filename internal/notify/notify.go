// Package notify delivers operator-facing messages about feeding cycles.
package notify

import (
	"time"

	"feeder_control"
)

// Notifier sends feeding notifications. Implementations must not block the
// control loop on delivery failures; errors are logged, not returned.
type Notifier interface {
	// FeedingComplete announces a successfully finished cycle.
	FeedingComplete(rec feeder_control.FeedRecord)

	// Alarm announces a cycle aborted by the safety alarm.
	Alarm(rec feeder_control.FeedRecord)

	// Warning forwards a non-fatal condition from the controller.
	Warning(msg string)

	// DailySummary reports all cycles of the given day.
	DailySummary(day time.Time, recs []feeder_control.FeedRecord)
}

// Nop discards all notifications. Used when no bot token is configured.
type Nop struct{}

func (Nop) FeedingComplete(feeder_control.FeedRecord)           {}
func (Nop) Alarm(feeder_control.FeedRecord)                     {}
func (Nop) Warning(string)                                      {}
func (Nop) DailySummary(time.Time, []feeder_control.FeedRecord) {}
