package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"feeder_control"
)

func TestFormatEventPayload(t *testing.T) {
	rec := feeder_control.FeedRecord{
		OccurredAt:   time.Date(2025, 6, 1, 6, 14, 5, 0, time.UTC),
		FeedCycle:    1,
		TargetWeight: 2000,
		ActualWeight: 2001.5,
		DurationSec:  845,
	}

	payload, err := FormatEventPayload("COMPLETED", rec)
	if err != nil {
		t.Fatalf("FormatEventPayload: %v", err)
	}

	var got EventPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if got.Feeder.Timestamp != "2025-06-01T06:14:05Z" {
		t.Errorf("timestamp: got %q", got.Feeder.Timestamp)
	}
	if got.Feeder.Event != "COMPLETED" {
		t.Errorf("event: got %q", got.Feeder.Event)
	}
	if got.Feeder.FeedCycle != 1 || got.Feeder.TargetWeight != 2000 || got.Feeder.DurationSec != 845 {
		t.Errorf("fields mismatch: %+v", got.Feeder)
	}
	if got.Feeder.AlarmReason != "" {
		t.Errorf("alarm reason must be omitted for a clean cycle, got %q", got.Feeder.AlarmReason)
	}
}

func TestFormatEventPayload_AlarmCarriesReason(t *testing.T) {
	rec := feeder_control.FeedRecord{
		OccurredAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Alarm:       true,
		AlarmReason: "Maximum runtime exceeded",
	}

	payload, err := FormatEventPayload("ALARM", rec)
	if err != nil {
		t.Fatalf("FormatEventPayload: %v", err)
	}

	var got EventPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.Feeder.AlarmReason != "Maximum runtime exceeded" {
		t.Errorf("alarm reason: got %q", got.Feeder.AlarmReason)
	}
}

func TestFakePublisher_Records(t *testing.T) {
	f := NewFakePublisher()

	st := feeder_control.Status{Stage: "BOTH_RUNNING", TotalWeight: 1234}
	if err := f.PublishStatus(st); err != nil {
		t.Fatalf("PublishStatus: %v", err)
	}
	if err := f.PublishEvent("STARTED", feeder_control.FeedRecord{FeedCycle: 2}); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}

	if len(f.Statuses) != 1 || f.Statuses[0].Stage != "BOTH_RUNNING" {
		t.Errorf("statuses: %+v", f.Statuses)
	}
	if len(f.Events) != 1 || f.Events[0].Event != "STARTED" || f.Events[0].Record.FeedCycle != 2 {
		t.Errorf("events: %+v", f.Events)
	}

	_ = f.Close()
	if !f.Closed {
		t.Errorf("Close must mark the publisher closed")
	}
}
