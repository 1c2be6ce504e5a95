package feeder_control

import "time"

// FeedRecord is the persisted outcome of one feeding cycle.
type FeedRecord struct {
	ID           string    `json:"id"`
	OccurredAt   time.Time `json:"occurred_at"`
	FeedCycle    int       `json:"feed_cycle"` // 0-3 for the daily cycles
	TargetWeight float64   `json:"target_weight"`
	ActualWeight float64   `json:"actual_weight"` // dispensed
	DurationSec  int       `json:"duration_sec"`
	Alarm        bool      `json:"alarm"`
	AlarmReason  string    `json:"alarm_reason,omitempty"`
}

// FeedSettings holds the runtime-editable feeding parameters.
// Stored as a single row (id=1) so the web UI and scheduler share one source.
type FeedSettings struct {
	ID              int       `json:"id"`
	TargetWeight    float64   `json:"target_weight"`      // lbs
	ChainPreRunSec  int       `json:"chain_pre_run_sec"`  // chain runs alone before auger starts
	MaxRuntimeSec   int       `json:"max_runtime_sec"`    // hard safety ceiling
	FillThreshold   float64   `json:"fill_threshold"`     // lbs jump that signals a bin refill
	FillSettlingSec int       `json:"fill_settling_sec"`  // stable time before resuming after a refill
	RateThreshold   float64   `json:"rate_threshold"`     // minimum lbs/min before warning
	FeedTimes       []int     `json:"feed_times"`         // minutes from midnight, up to 4
	AutoFeed        bool      `json:"auto_feed"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Status is the live snapshot exposed over HTTP, WebSocket and MQTT.
type Status struct {
	Stage           string     `json:"stage"` // STOPPED | CHAIN_ONLY | BOTH_RUNNING | PAUSED_FOR_FILL | COMPLETED | FAILED
	BinWeights      [4]float64 `json:"bin_weights"` // A, B, C, D
	TotalWeight     float64    `json:"total_weight"`
	WeightDispensed float64    `json:"weight_dispensed"`
	FlowRate        float64    `json:"flow_rate"` // lbs/min
	DurationSec     int        `json:"duration_sec"`
	AugerRunning    bool       `json:"auger_running"`
	ChainRunning    bool       `json:"chain_running"`
	AlarmTriggered  bool       `json:"alarm_triggered"`
	AlarmReason     string     `json:"alarm_reason,omitempty"`
	ScaleConnected  bool       `json:"scale_connected"`
	LastScaleError  string     `json:"last_scale_error,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never expose the hash
}
