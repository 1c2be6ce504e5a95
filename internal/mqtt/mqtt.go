// Package mqtt provides MQTT telemetry publishing with abstraction for
// testing.
package mqtt

import (
	"encoding/json"
	"time"

	"feeder_control"
)

// TopicStatus is the MQTT topic for periodic status snapshots.
const TopicStatus = "barn/feeder/status"

// TopicEvents is the MQTT topic for feed cycle events.
const TopicEvents = "barn/feeder/events"

// Publisher publishes feeder telemetry.
type Publisher interface {
	// PublishStatus sends a status snapshot to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishStatus(st feeder_control.Status) error

	// PublishEvent sends a feed cycle event (completed, alarm, started).
	PublishEvent(event string, rec feeder_control.FeedRecord) error

	// Close disconnects from the broker.
	Close() error
}

// EventPayload represents the MQTT message payload for a feed cycle event.
type EventPayload struct {
	Feeder FeederEvent `json:"feeder"`
}

// FeederEvent contains the feed cycle event details.
type FeederEvent struct {
	Timestamp    string  `json:"timestamp"`
	Event        string  `json:"event"` // "STARTED", "COMPLETED", "ALARM"
	FeedCycle    int     `json:"feed_cycle"`
	TargetWeight float64 `json:"target_weight"`
	ActualWeight float64 `json:"actual_weight"`
	DurationSec  int     `json:"duration_sec"`
	AlarmReason  string  `json:"alarm_reason,omitempty"`
}

// FormatStatusPayload creates the JSON payload for a status snapshot.
func FormatStatusPayload(st feeder_control.Status) ([]byte, error) {
	return json.Marshal(st)
}

// FormatEventPayload creates the JSON payload for a feed cycle event.
func FormatEventPayload(event string, rec feeder_control.FeedRecord) ([]byte, error) {
	ts := rec.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := EventPayload{
		Feeder: FeederEvent{
			Timestamp:    ts.UTC().Format(time.RFC3339),
			Event:        event,
			FeedCycle:    rec.FeedCycle,
			TargetWeight: rec.TargetWeight,
			ActualWeight: rec.ActualWeight,
			DurationSec:  rec.DurationSec,
			AlarmReason:  rec.AlarmReason,
		},
	}
	return json.Marshal(payload)
}
