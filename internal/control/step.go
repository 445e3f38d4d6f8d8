package control

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/metrics"
)

const (
	// repeatInitialDelay is the pause after the immediate first step
	// before held-button repeating begins.
	repeatInitialDelay = 400 * time.Millisecond
	// repeatBaseInterval is the repeat interval at playback rate 1.
	repeatBaseInterval = 200 * time.Millisecond
	// repeatMinInterval bounds the event rate at high playback rates.
	repeatMinInterval = 50 * time.Millisecond
)

// StepController applies single or repeated discrete steps to the
// clock. Manual stepping always exits real-time or animation; the clock
// ends up paused at a step-size multiple from where it was, clamped to
// the committed window.
type StepController struct {
	model  *clock.Model
	sched  Scheduler
	excl   *exclusion
	logger *slog.Logger

	mu        sync.Mutex
	task      Task
	direction int
}

func newStepController(model *clock.Model, sched Scheduler, excl *exclusion, logger *slog.Logger) *StepController {
	return &StepController{model: model, sched: sched, excl: excl, logger: logger}
}

// SingleStep advances the clock by one step in the given direction
// (Backward or Forward), cancelling any active driver schedule first.
func (c *StepController) SingleStep(direction int) {
	if direction != Backward && direction != Forward {
		return
	}
	c.excl.interrupt()
	c.model.SetMode(clock.ModePaused)
	metrics.SetSimMode(string(clock.ModePaused))
	c.model.AdvanceClamped(stepDuration(c.model, direction))
	metrics.IncSimTicks("step")
}

// StartRepeat performs one immediate step, then after an initial delay
// begins repeating steps at an interval scaled inversely by the
// playback rate. The repeat schedule occupies the exclusive slot, so
// starting real-time or animation cancels it.
func (c *StepController) StartRepeat(direction int) {
	if direction != Backward && direction != Forward {
		return
	}
	c.SingleStep(direction)

	c.excl.claim(c)

	c.mu.Lock()
	c.direction = direction
	c.mu.Unlock()

	interval := repeatInterval(c.model.PlaybackRate())
	task := c.sched.Schedule(repeatInitialDelay, interval, c.tick)
	c.mu.Lock()
	c.task = task
	c.mu.Unlock()

	c.logger.Debug("step repeat started", "direction", direction, "interval_ms", interval.Milliseconds())
}

// StopRepeat cancels the repeat schedule. Idempotent if nothing is
// running. The mode stays paused; repeating never left it.
func (c *StepController) StopRepeat() {
	if c.excl.release(c) {
		c.logger.Debug("step repeat stopped")
	}
}

// Repeating reports whether a repeat schedule is active.
func (c *StepController) Repeating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task != nil
}

func (c *StepController) tick() {
	c.mu.Lock()
	direction := c.direction
	c.mu.Unlock()
	if direction == 0 {
		return
	}
	c.model.AdvanceClamped(stepDuration(c.model, direction))
	metrics.IncSimTicks("step")
}

func (c *StepController) halt() {
	c.mu.Lock()
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
	c.direction = 0
	c.mu.Unlock()
}

// repeatInterval scales the base repeat interval inversely by the
// playback rate, floored to the minimum repeat interval.
func repeatInterval(rate float64) time.Duration {
	if rate <= 0 {
		return repeatBaseInterval
	}
	interval := time.Duration(float64(repeatBaseInterval) / rate)
	if interval < repeatMinInterval {
		return repeatMinInterval
	}
	return interval
}
