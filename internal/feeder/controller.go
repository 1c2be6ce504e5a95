// Package feeder implements the feeding state machine: it sequences the
// chain and auger relays, tracks dispensed weight against a remotely
// measured total, pauses for mid-cycle bin refills, and decides between
// soft warnings and the hard max-runtime alarm.
//
// The controller is not safe for concurrent use; the owning service
// serializes access (see internal/service).
package feeder

import (
	"errors"
	"fmt"
	"time"

	"feeder_control/internal/logger"
	"feeder_control/internal/relay"
)

const (
	// minWeightChange is the smallest dispensed change the scale can resolve.
	minWeightChange = 0.1

	// noChangeWindow is how long both actuators may run with no measurable
	// dispensing before the jam/empty-bin warning fires.
	noChangeWindow = 30 * time.Second

	// rateWindow is the feed-rate evaluation period.
	rateWindow = time.Minute

	// fillStableBand is the weight drift tolerated while a refill settles.
	fillStableBand = 1.0

	defaultRateThreshold = 10.0 // lbs per minute

	maxAlarmReasonLen = 64
	maxWarningLen     = 128
)

// ErrFeedingActive is returned by manual relay control while a cycle runs.
var ErrFeedingActive = errors.New("feeding in progress")

// Controller owns one feeding session at a time and exclusively drives the
// two actuator relays.
type Controller struct {
	chain relay.Switch
	auger relay.Switch
	log   *logger.Logger
	now   func() time.Time

	stage        Stage
	chainRunning bool
	augerRunning bool

	// session parameters, immutable once started
	targetWeight  float64
	chainPreRun   time.Duration
	maxRuntime    time.Duration
	fillThreshold float64
	fillSettling  time.Duration
	rateThreshold float64

	// dispensing state
	startWeight         float64 // baseline, set on first positive sample
	dispensed           float64
	lastValidWeight     float64
	weightReadingFailed bool

	feedStart  time.Time
	chainStart time.Time
	bothStart  time.Time
	endTime    time.Time

	minuteStart         time.Time
	weightAtMinuteStart float64

	prevSample    float64
	prevSampleSet bool

	// refill pause bookkeeping
	stageBeforePause      Stage
	weightWhenPaused      float64
	lastWeightDuringPause float64
	fillStabilizedSince   time.Time

	alarmTriggered bool
	alarmReason    string

	noChangeWarned bool
	lowRateWarned  bool

	// one pending, unread warning; later warnings overwrite until consumed
	pendingWarning string
}

// NewController returns a stopped controller driving the given relays.
func NewController(chain, auger relay.Switch, log *logger.Logger) *Controller {
	return &Controller{
		chain:         chain,
		auger:         auger,
		log:           log,
		now:           time.Now,
		stage:         StageStopped,
		rateThreshold: defaultRateThreshold,
	}
}

// SetRateThreshold adjusts the minimum lbs/min before the low-feed-rate
// warning fires. Non-positive values are ignored.
func (c *Controller) SetRateThreshold(v float64) {
	if v > 0 {
		c.rateThreshold = v
	}
}

// StartFeeding begins a new cycle. It fails silently (logged, no state
// change) unless the controller is stopped and the target is positive.
func (c *Controller) StartFeeding(targetWeight float64, chainPreRun, maxRuntime time.Duration, fillThreshold float64, fillSettling time.Duration) {
	if c.stage != StageStopped {
		c.log.Warnw("cannot start feeding - already in progress", "stage", c.stage)
		return
	}
	if targetWeight <= 0 {
		c.log.Warnw("cannot start feeding - invalid target weight", "target", targetWeight)
		return
	}

	now := c.now()

	c.targetWeight = targetWeight
	c.chainPreRun = chainPreRun
	c.maxRuntime = maxRuntime
	c.fillThreshold = fillThreshold
	c.fillSettling = fillSettling

	c.feedStart = now
	c.chainStart = now
	c.bothStart = time.Time{}
	c.endTime = time.Time{}
	c.minuteStart = now

	c.startWeight = 0
	c.dispensed = 0
	c.lastValidWeight = 0
	c.weightReadingFailed = false
	c.weightAtMinuteStart = 0
	c.prevSampleSet = false

	c.stageBeforePause = StageStopped
	c.weightWhenPaused = 0
	c.lastWeightDuringPause = 0
	c.fillStabilizedSince = time.Time{}

	c.alarmTriggered = false
	c.alarmReason = ""
	c.noChangeWarned = false
	c.lowRateWarned = false
	c.pendingWarning = ""

	c.driveChain(true)
	c.stage = StageChainOnly

	c.log.Infow("feeding started",
		"target", targetWeight,
		"chain_pre_run", chainPreRun,
		"max_runtime", maxRuntime,
		"fill_threshold", fillThreshold,
		"fill_settling", fillSettling,
	)
}

// Update advances the state machine with a new total-weight sample. It is
// the single per-tick entry point and expects samples in arrival order at
// roughly 1 Hz while a cycle is active.
func (c *Controller) Update(currentTotalWeight float64) Stage {
	if !c.stage.Active() {
		return c.stage
	}
	now := c.now()
	current := currentTotalWeight

	// A non-positive reading means the instrument faulted, not that the
	// bin ran empty. Substitute the last valid weight if one exists.
	if current <= 0 {
		if !c.weightReadingFailed {
			c.weightReadingFailed = true
			c.warnf("Weight sensor fault: reading %.2f, holding last valid weight", current)
		}
		if c.lastValidWeight > 0 {
			current = c.lastValidWeight
		}
	} else {
		if c.weightReadingFailed {
			c.weightReadingFailed = false
			c.warnf("Weight sensor recovered: reading %.2f", current)
		}
		c.lastValidWeight = current
	}

	if c.startWeight == 0 && current > 0 {
		c.startWeight = current
		c.weightAtMinuteStart = current
	}

	// Weight decreases as feed goes out. Negative means the scale reads
	// above the baseline; left unclamped as a diagnostic signal.
	c.dispensed = c.startWeight - current

	// Refill detection compares against the previous sample, not the
	// session baseline. A detected fill short-circuits the tick.
	if c.stage != StagePausedForFill && c.prevSampleSet && current > c.prevSample+c.fillThreshold {
		c.pauseForFill(current)
		c.storeSample(current)
		return c.stage
	}

	switch c.stage {
	case StageChainOnly:
		if now.Sub(c.chainStart) >= c.chainPreRun {
			c.driveAuger(true)
			c.stage = StageBothRunning
			c.bothStart = now
			c.minuteStart = now
			c.weightAtMinuteStart = current
			c.log.Infow("stage transition", "stage", c.stage)
		}

	case StageBothRunning:
		if c.dispensed >= c.targetWeight {
			c.deactivateAll()
			c.stage = StageCompleted
			c.endTime = now
			c.log.Infow("feeding completed",
				"dispensed", c.dispensed,
				"duration", now.Sub(c.feedStart).Round(time.Second),
			)
			c.storeSample(current)
			return c.stage
		}

		c.checkWeightChange(now)
		c.checkFeedRate(current, now)

		if now.Sub(c.feedStart) >= c.maxRuntime {
			c.triggerAlarm("Maximum runtime exceeded")
		}

	case StagePausedForFill:
		c.monitorFill(current, now)
	}

	if c.alarmTriggered && c.stage != StageFailed {
		c.deactivateAll()
		c.stage = StageFailed
		c.endTime = now
	}

	c.storeSample(current)
	return c.stage
}

// StopAll deactivates both actuators and returns to Stopped. Safe from any
// stage, including terminal ones; a second call is a no-op.
func (c *Controller) StopAll() {
	c.deactivateAll()
	if c.stage != StageStopped && c.endTime.IsZero() && !c.feedStart.IsZero() {
		c.endTime = c.now()
	}
	c.stage = StageStopped
}

// SetAuger manually drives the auger relay; permitted only while stopped.
func (c *Controller) SetAuger(on bool) error {
	if c.stage != StageStopped {
		return ErrFeedingActive
	}
	c.driveAuger(on)
	return nil
}

// SetChain manually drives the chain relay; permitted only while stopped.
func (c *Controller) SetChain(on bool) error {
	if c.stage != StageStopped {
		return ErrFeedingActive
	}
	c.driveChain(on)
	return nil
}

// Stage returns the current feeding stage.
func (c *Controller) Stage() Stage { return c.stage }

// IsFeeding reports whether a cycle occupies the controller.
func (c *Controller) IsFeeding() bool { return c.stage != StageStopped }

func (c *Controller) IsChainRunning() bool { return c.chainRunning }
func (c *Controller) IsAugerRunning() bool { return c.augerRunning }

// WeightDispensed returns the cumulative weight dispensed this session.
func (c *Controller) WeightDispensed() float64 { return c.dispensed }

// TargetWeight returns the active session's target, 0 when stopped.
func (c *Controller) TargetWeight() float64 { return c.targetWeight }

// FlowRate returns lbs/min for the session, 0 before any time has elapsed.
func (c *Controller) FlowRate() float64 {
	mins := c.elapsed().Minutes()
	if mins <= 0 {
		return 0
	}
	return c.dispensed / mins
}

// Duration returns the session's elapsed time, frozen once the cycle ends.
func (c *Controller) Duration() time.Duration { return c.elapsed() }

func (c *Controller) IsAlarmTriggered() bool { return c.alarmTriggered }
func (c *Controller) AlarmReason() string    { return c.alarmReason }

// TakePendingWarning consumes the pending warning, if any.
func (c *Controller) TakePendingWarning() (string, bool) {
	if c.pendingWarning == "" {
		return "", false
	}
	w := c.pendingWarning
	c.pendingWarning = ""
	return w, true
}

func (c *Controller) elapsed() time.Duration {
	if c.feedStart.IsZero() {
		return 0
	}
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.feedStart)
	}
	return c.now().Sub(c.feedStart)
}

func (c *Controller) pauseForFill(current float64) {
	c.stageBeforePause = c.stage
	c.weightWhenPaused = current
	c.lastWeightDuringPause = current
	c.fillStabilizedSince = time.Time{}
	c.deactivateAll()
	c.stage = StagePausedForFill
	c.warnf("Bin refill detected: weight rose to %.2f, pausing until stable", current)
}

func (c *Controller) monitorFill(current float64, now time.Time) {
	if current > c.lastWeightDuringPause+fillStableBand {
		// Still filling: track the high-water mark, restart the settle timer.
		c.lastWeightDuringPause = current
		c.fillStabilizedSince = time.Time{}
		return
	}

	if c.fillStabilizedSince.IsZero() {
		c.fillStabilizedSince = now
	}
	if now.Sub(c.fillStabilizedSince) < c.fillSettling {
		return
	}

	// Fold the refill into the baseline so dispensed weight is continuous
	// across the pause.
	c.startWeight += current - c.weightWhenPaused
	c.dispensed = c.startWeight - current
	c.stage = c.stageBeforePause

	switch c.stage {
	case StageChainOnly:
		c.driveChain(true)
		c.chainStart = now
	case StageBothRunning:
		c.driveChain(true)
		c.driveAuger(true)
		c.bothStart = now
		c.minuteStart = now
		c.weightAtMinuteStart = current
	}

	c.log.Infow("resuming after refill",
		"stage", c.stage,
		"added", current-c.weightWhenPaused,
		"dispensed", c.dispensed,
	)
}

func (c *Controller) checkWeightChange(now time.Time) {
	if c.dispensed >= minWeightChange {
		if c.noChangeWarned {
			c.noChangeWarned = false
			c.warnf("Weight change resumed: %.2f dispensed", c.dispensed)
		}
		return
	}
	if now.Sub(c.bothStart) > noChangeWindow && !c.noChangeWarned {
		c.noChangeWarned = true
		c.warnf("No weight change detected - possible jam or empty bin")
	}
}

func (c *Controller) checkFeedRate(current float64, now time.Time) {
	if now.Sub(c.minuteStart) < rateWindow {
		return
	}
	perMinute := c.weightAtMinuteStart - current
	if perMinute < c.rateThreshold {
		if !c.lowRateWarned {
			c.lowRateWarned = true
			c.warnf("Low feed rate: %.2f lbs/min (minimum %.2f)", perMinute, c.rateThreshold)
		}
	} else if c.lowRateWarned {
		c.lowRateWarned = false
		c.warnf("Feed rate recovered: %.2f lbs/min", perMinute)
	}
	c.weightAtMinuteStart = current
	c.minuteStart = now
}

func (c *Controller) triggerAlarm(reason string) {
	if c.alarmTriggered {
		return
	}
	c.alarmTriggered = true
	c.alarmReason = truncate(reason, maxAlarmReasonLen)
	c.log.Errorw("feeding alarm", "reason", c.alarmReason)
}

func (c *Controller) storeSample(v float64) {
	c.prevSample = v
	c.prevSampleSet = true
}

func (c *Controller) deactivateAll() {
	c.driveChain(false)
	c.driveAuger(false)
}

func (c *Controller) driveChain(on bool) {
	if c.chainRunning == on {
		return
	}
	if err := c.chain.Set(on); err != nil {
		c.log.Errorw("chain relay", "on", on, "err", err)
	}
	c.chainRunning = on
}

func (c *Controller) driveAuger(on bool) {
	if c.augerRunning == on {
		return
	}
	if err := c.auger.Set(on); err != nil {
		c.log.Errorw("auger relay", "on", on, "err", err)
	}
	c.augerRunning = on
}

func (c *Controller) warnf(format string, args ...any) {
	msg := truncate(fmt.Sprintf(format, args...), maxWarningLen)
	c.pendingWarning = msg
	c.log.Warnw("feeding warning", "msg", msg)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
