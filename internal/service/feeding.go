package service

import (
	"context"
	"errors"
	"time"

	"feeder_control"
	"feeder_control/internal/logger"
	"feeder_control/internal/repository"
)

var (
	ErrFeedingInProgress = errors.New("feeding already in progress")
	errInvalidTarget     = errors.New("invalid settings: target weight must be positive")
)

// Default feeding parameters, used until settings are saved.
func defaultSettings() feeder_control.FeedSettings {
	return feeder_control.FeedSettings{
		ID:              1,
		TargetWeight:    2000,
		ChainPreRunSec:  10,
		MaxRuntimeSec:   1800,
		FillThreshold:   50,
		FillSettlingSec: 120,
		RateThreshold:   10,
		FeedTimes:       []int{360, 1080}, // 06:00 and 18:00
		AutoFeed:        false,
	}
}

type FeedingService struct {
	core         *feedCore
	settingsRepo repository.SettingsRepo
	log          *logger.Logger
}

func NewFeedingService(core *feedCore, settingsRepo repository.SettingsRepo, log *logger.Logger) *FeedingService {
	return &FeedingService{core: core, settingsRepo: settingsRepo, log: log}
}

// Start begins a feed cycle with the persisted settings. cycle tags the
// session for history records (0-3 for the daily cycles, manual starts
// reuse the slot they were triggered in).
func (s *FeedingService) Start(ctx context.Context, cycle int) error {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.ID == 0 {
		cfg = defaultSettings()
	}
	if cfg.TargetWeight <= 0 {
		return errInvalidTarget
	}

	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	if s.core.controller.IsFeeding() {
		return ErrFeedingInProgress
	}

	s.core.controller.SetRateThreshold(cfg.RateThreshold)
	s.core.controller.StartFeeding(
		cfg.TargetWeight,
		time.Duration(cfg.ChainPreRunSec)*time.Second,
		time.Duration(cfg.MaxRuntimeSec)*time.Second,
		cfg.FillThreshold,
		time.Duration(cfg.FillSettlingSec)*time.Second,
	)
	s.core.feedCycle = cycle

	s.log.Infow("feed cycle started", "cycle", cycle, "target", cfg.TargetWeight)
	return nil
}

// Stop aborts the running cycle (or clears a terminal one) and releases
// both actuators.
func (s *FeedingService) Stop(ctx context.Context) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	s.core.controller.StopAll()
	s.log.Infow("feeding stopped")
	return nil
}

// SetAuger manually drives the auger relay; rejected while a cycle runs.
func (s *FeedingService) SetAuger(on bool) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return s.core.controller.SetAuger(on)
}

// SetChain manually drives the chain relay; rejected while a cycle runs.
func (s *FeedingService) SetChain(on bool) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return s.core.controller.SetChain(on)
}
