package notify

import (
	"time"

	"feeder_control"
)

// Fake records notifications for test assertions.
type Fake struct {
	Completed []feeder_control.FeedRecord
	Alarms    []feeder_control.FeedRecord
	Warnings  []string
	Summaries []SummaryCall
}

// SummaryCall captures one DailySummary invocation.
type SummaryCall struct {
	Day     time.Time
	Records []feeder_control.FeedRecord
}

// NewFake creates a Fake for testing.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) FeedingComplete(rec feeder_control.FeedRecord) {
	f.Completed = append(f.Completed, rec)
}

func (f *Fake) Alarm(rec feeder_control.FeedRecord) {
	f.Alarms = append(f.Alarms, rec)
}

func (f *Fake) Warning(msg string) {
	f.Warnings = append(f.Warnings, msg)
}

func (f *Fake) DailySummary(day time.Time, recs []feeder_control.FeedRecord) {
	f.Summaries = append(f.Summaries, SummaryCall{Day: day, Records: recs})
}
