package control

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/metrics"
)

const (
	// animationBaseInterval is the tick interval at playback rate 1.
	animationBaseInterval = time.Second
	// animationMinInterval is the anti-overload floor for the tick
	// interval at high playback rates.
	animationMinInterval = 16 * time.Millisecond
)

// Direction values for animation and stepping.
const (
	Backward = -1
	Forward  = 1
)

// AnimationDriver advances the clock forward or backward by the step
// size at an interval scaled by the playback rate. Each tick's result
// is clamped into the committed window; the animation keeps ticking at
// the edge rather than stopping or wrapping.
type AnimationDriver struct {
	model  *clock.Model
	sched  Scheduler
	excl   *exclusion
	logger *slog.Logger

	mu        sync.Mutex
	task      Task
	direction int
}

func newAnimationDriver(model *clock.Model, sched Scheduler, excl *exclusion, logger *slog.Logger) *AnimationDriver {
	return &AnimationDriver{model: model, sched: sched, excl: excl, logger: logger}
}

// Start begins animating in the given direction (Backward or Forward),
// cancelling any other driver's schedule. Starting again in the same
// direction toggles the animation off. The tick interval is computed
// from the playback rate at start; a rate change takes effect on the
// next start.
func (d *AnimationDriver) Start(direction int) {
	if direction != Backward && direction != Forward {
		return
	}

	d.mu.Lock()
	toggleOff := d.task != nil && d.direction == direction
	d.mu.Unlock()
	if toggleOff {
		d.Stop()
		return
	}

	d.excl.claim(d)

	mode := directionMode(direction)
	d.model.SetMode(mode)
	metrics.SetSimMode(string(mode))

	d.mu.Lock()
	d.direction = direction
	d.mu.Unlock()

	d.tick()

	interval := animationInterval(d.model.PlaybackRate())
	task := d.sched.Schedule(interval, interval, d.tick)
	d.mu.Lock()
	d.task = task
	d.mu.Unlock()

	d.logger.Debug("animation started", "direction", direction, "interval_ms", interval.Milliseconds())
}

// Stop cancels the animation and enters paused mode. Idempotent.
func (d *AnimationDriver) Stop() {
	if d.excl.release(d) {
		d.model.SetMode(clock.ModePaused)
		metrics.SetSimMode(string(clock.ModePaused))
		d.logger.Debug("animation stopped")
	}
}

// Direction returns the active direction, or 0 when not animating.
func (d *AnimationDriver) Direction() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.task == nil {
		return 0
	}
	return d.direction
}

func (d *AnimationDriver) tick() {
	d.mu.Lock()
	direction := d.direction
	d.mu.Unlock()
	if direction == 0 {
		return
	}
	d.model.AdvanceClamped(stepDuration(d.model, direction))
	metrics.IncSimTicks("animation")
}

func (d *AnimationDriver) halt() {
	d.mu.Lock()
	if d.task != nil {
		d.task.Stop()
		d.task = nil
	}
	d.direction = 0
	d.mu.Unlock()
}

// animationInterval scales the base interval inversely by the playback
// rate, floored to the anti-overload minimum.
func animationInterval(rate float64) time.Duration {
	if rate <= 0 {
		return animationBaseInterval
	}
	interval := time.Duration(float64(animationBaseInterval) / rate)
	if interval < animationMinInterval {
		return animationMinInterval
	}
	return interval
}
