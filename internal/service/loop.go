package service

import (
	"context"
	"errors"
	"time"

	"feeder_control"
	"feeder_control/internal/logger"
	"feeder_control/internal/mqtt"
	"feeder_control/internal/notify"
	"feeder_control/internal/repository"

	"github.com/google/uuid"
)

// LoopService is the background control loop: each tick it reads the bin
// weights, advances the feeding state machine, forwards warnings, records
// finished cycles, fires scheduled cycles, and publishes telemetry.
type LoopService struct {
	core         *feedCore
	sched        *Scheduler
	feeding      Feeding
	monitoring   Monitoring
	historyRepo  repository.HistoryRepo
	settingsRepo repository.SettingsRepo
	notifier     notify.Notifier
	telemetry    mqtt.Publisher
	log          *logger.Logger

	summaryDay int // year*1000 + yearday of the day currently accumulating
}

func NewLoopService(
	core *feedCore,
	sched *Scheduler,
	feeding Feeding,
	monitoring Monitoring,
	historyRepo repository.HistoryRepo,
	settingsRepo repository.SettingsRepo,
	notifier notify.Notifier,
	telemetry mqtt.Publisher,
	log *logger.Logger,
) *LoopService {
	return &LoopService{
		core:         core,
		sched:        sched,
		feeding:      feeding,
		monitoring:   monitoring,
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		telemetry:    telemetry,
		log:          log,
	}
}

// Run ticks at the given interval until ctx is canceled. The scheduler is
// seeded from persisted settings before the first tick.
func (s *LoopService) Run(ctx context.Context, tick time.Duration) {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		s.log.Errorw("load settings for scheduler", "err", err)
	} else {
		if cfg.ID == 0 {
			cfg = defaultSettings()
		}
		s.sched.Configure(cfg.FeedTimes, cfg.AutoFeed)
	}

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.step(ctx, now)
		}
	}
}

// step is one loop iteration. Split out so tests can drive it with a
// synthetic clock.
func (s *LoopService) step(ctx context.Context, now time.Time) {
	weights, readErr := s.core.scale.ReadAllBins()

	var total float64
	if readErr != nil {
		// A failed read feeds 0 into the controller, which treats it as a
		// sensor fault and holds the last valid weight.
		s.log.Warnw("scale read failed", "err", readErr)
		if !s.core.scale.IsConnected() {
			s.core.scale.Reconnect()
		}
	} else {
		for _, w := range weights {
			total += w
		}
	}

	s.core.mu.Lock()
	if readErr == nil {
		s.core.binWeights = weights
		s.core.totalWeight = total
		s.core.lastUpdate = now
	}

	stage := s.core.controller.Update(total)
	warning, hasWarning := s.core.controller.TakePendingWarning()

	var rec feeder_control.FeedRecord
	terminal := stage.Terminal()
	if terminal {
		c := s.core.controller
		rec = feeder_control.FeedRecord{
			ID:           uuid.NewString(),
			OccurredAt:   now.UTC(),
			FeedCycle:    s.core.feedCycle,
			TargetWeight: c.TargetWeight(),
			ActualWeight: c.WeightDispensed(),
			DurationSec:  int(c.Duration().Seconds()),
			Alarm:        c.IsAlarmTriggered(),
			AlarmReason:  c.AlarmReason(),
		}
		// Return to Stopped so the next scheduled cycle can start.
		s.core.controller.StopAll()
	}
	s.core.mu.Unlock()

	if hasWarning {
		s.notifier.Warning(warning)
	}

	if terminal {
		if err := s.historyRepo.Append(ctx, rec); err != nil {
			s.log.Errorw("append feed record", "err", err)
		}
		if rec.Alarm {
			s.notifier.Alarm(rec)
			s.publishEvent("ALARM", rec)
		} else {
			s.notifier.FeedingComplete(rec)
			s.publishEvent("COMPLETED", rec)
		}
	}

	if cycle, due := s.sched.ShouldFeed(now); due {
		if err := s.feeding.Start(ctx, cycle); err != nil {
			if !errors.Is(err, ErrFeedingInProgress) {
				s.log.Errorw("scheduled feed start", "cycle", cycle, "err", err)
			}
		} else {
			// Latch on start, not completion, so an aborted cycle cannot
			// refire within its window.
			s.sched.MarkComplete(cycle)
			s.publishEvent("STARTED", feeder_control.FeedRecord{
				OccurredAt:   now.UTC(),
				FeedCycle:    cycle,
				TargetWeight: s.targetWeight(),
			})
		}
	}

	s.maybeSendSummary(ctx, now)

	if err := s.telemetry.PublishStatus(s.monitoring.Status()); err != nil {
		s.log.Debugw("publish status", "err", err)
	}
}

func (s *LoopService) targetWeight() float64 {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return s.core.controller.TargetWeight()
}

func (s *LoopService) publishEvent(event string, rec feeder_control.FeedRecord) {
	if err := s.telemetry.PublishEvent(event, rec); err != nil {
		s.log.Debugw("publish event", "event", event, "err", err)
	}
}

// maybeSendSummary sends the previous day's summary on the first tick
// after midnight.
func (s *LoopService) maybeSendSummary(ctx context.Context, now time.Time) {
	day := now.Year()*1000 + now.YearDay()
	if s.summaryDay == 0 {
		s.summaryDay = day
		return
	}
	if day == s.summaryDay {
		return
	}
	s.summaryDay = day

	prev := now.AddDate(0, 0, -1)
	start := time.Date(prev.Year(), prev.Month(), prev.Day(), 0, 0, 0, 0, prev.Location())
	end := start.Add(24*time.Hour - time.Second)

	recs, err := s.historyRepo.List(ctx, start, end, false)
	if err != nil {
		s.log.Errorw("load records for daily summary", "err", err)
		return
	}
	if len(recs) == 0 {
		return
	}
	s.notifier.DailySummary(start, recs)
}
