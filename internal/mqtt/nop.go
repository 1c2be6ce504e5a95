package mqtt

import (
	"feeder_control"
)

// NopPublisher discards all telemetry. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatus(feeder_control.Status) error            { return nil }
func (NopPublisher) PublishEvent(string, feeder_control.FeedRecord) error { return nil }
func (NopPublisher) Close() error                                         { return nil }
