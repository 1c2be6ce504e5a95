package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feeder_control"
	"feeder_control/internal/repository"
)

var (
	errTargetNotPositive  = errors.New("target_weight must be positive")
	errRuntimeNotPositive = errors.New("max_runtime_sec must be positive")
	errTooManyFeedTimes   = fmt.Errorf("at most %d feed times allowed", maxFeedTimes)
)

type SettingsService struct {
	repo  repository.SettingsRepo
	sched *Scheduler
}

func NewSettingsService(repo repository.SettingsRepo, sched *Scheduler) *SettingsService {
	return &SettingsService{repo: repo, sched: sched}
}

// Get returns the persisted settings, or the defaults if none were saved.
func (s *SettingsService) Get(ctx context.Context) (feeder_control.FeedSettings, error) {
	cfg, err := s.repo.Load(ctx)
	if err != nil {
		return feeder_control.FeedSettings{}, err
	}
	if cfg.ID == 0 {
		return defaultSettings(), nil
	}
	return cfg, nil
}

// Update validates, persists, and applies the new settings to the
// scheduler. Fields left zero keep their validated constraints: every
// parameter must be supplied in full.
func (s *SettingsService) Update(ctx context.Context, cfg feeder_control.FeedSettings) error {
	if cfg.TargetWeight <= 0 {
		return errTargetNotPositive
	}
	if cfg.MaxRuntimeSec <= 0 {
		return errRuntimeNotPositive
	}
	if cfg.ChainPreRunSec < 0 || cfg.FillSettlingSec < 0 {
		return errors.New("durations must not be negative")
	}
	if cfg.FillThreshold <= 0 {
		return errors.New("fill_threshold must be positive")
	}
	if cfg.RateThreshold <= 0 {
		return errors.New("rate_threshold must be positive")
	}
	if len(cfg.FeedTimes) > maxFeedTimes {
		return errTooManyFeedTimes
	}
	for _, m := range cfg.FeedTimes {
		if m < 0 || m > 23*60+59 {
			return fmt.Errorf("feed time %d out of range 0..1439", m)
		}
	}

	cfg.ID = 1
	cfg.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, cfg); err != nil {
		return err
	}

	s.sched.Configure(cfg.FeedTimes, cfg.AutoFeed)
	return nil
}
