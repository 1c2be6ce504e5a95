package mqtt

import (
	"feeder_control"
)

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	// Statuses contains all status snapshots that were published.
	Statuses []feeder_control.Status

	// Events contains all feed cycle events that were published.
	Events []PublishedEvent

	// PublishError, if set, will be returned by both publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// PublishedEvent pairs an event name with its record.
type PublishedEvent struct {
	Event  string
	Record feeder_control.FeedRecord
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishStatus records the status snapshot.
func (f *FakePublisher) PublishStatus(st feeder_control.Status) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, st)
	return nil
}

// PublishEvent records the feed cycle event.
func (f *FakePublisher) PublishEvent(event string, rec feeder_control.FeedRecord) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Events = append(f.Events, PublishedEvent{Event: event, Record: rec})
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
