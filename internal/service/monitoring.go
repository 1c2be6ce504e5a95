package service

import (
	"time"

	"feeder_control"
)

type MonitoringService struct {
	core *feedCore
}

func NewMonitoringService(core *feedCore) *MonitoringService {
	return &MonitoringService{core: core}
}

// Status assembles the live snapshot from the controller and the scale.
func (s *MonitoringService) Status() feeder_control.Status {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	c := s.core.controller
	updated := s.core.lastUpdate
	if updated.IsZero() {
		updated = time.Now()
	}

	return feeder_control.Status{
		Stage:           string(c.Stage()),
		BinWeights:      s.core.binWeights,
		TotalWeight:     s.core.totalWeight,
		WeightDispensed: c.WeightDispensed(),
		FlowRate:        c.FlowRate(),
		DurationSec:     int(c.Duration().Seconds()),
		AugerRunning:    c.IsAugerRunning(),
		ChainRunning:    c.IsChainRunning(),
		AlarmTriggered:  c.IsAlarmTriggered(),
		AlarmReason:     c.AlarmReason(),
		ScaleConnected:  s.core.scale.IsConnected(),
		LastScaleError:  s.core.scale.LastError(),
		UpdatedAt:       updated.UTC(),
	}
}
