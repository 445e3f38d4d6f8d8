package control

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/metrics"
)

// realTimeTick is the wall-clock interval between real-time updates.
const realTimeTick = time.Second

// RealTimeDriver advances the simulated clock at wall-clock rate. The
// offset between the simulated and wall clock is captured once at
// Start, so resuming real-time continues from wherever the clock was
// rather than snapping to wall time. Real-time ticks are not clamped to
// the committed window; the play head may run past it.
type RealTimeDriver struct {
	model     *clock.Model
	sched     Scheduler
	excl      *exclusion
	logger    *slog.Logger
	wallClock func() time.Time

	mu     sync.Mutex
	task   Task
	offset time.Duration
}

func newRealTimeDriver(model *clock.Model, sched Scheduler, excl *exclusion, logger *slog.Logger) *RealTimeDriver {
	return &RealTimeDriver{
		model:     model,
		sched:     sched,
		excl:      excl,
		logger:    logger,
		wallClock: time.Now,
	}
}

// Start begins real-time tracking, cancelling any other driver's
// schedule. Idempotent while already running.
func (d *RealTimeDriver) Start() {
	d.mu.Lock()
	if d.task != nil {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.excl.claim(d)

	offset := d.model.CurrentTime().Sub(d.wallClock())
	d.mu.Lock()
	d.offset = offset
	d.mu.Unlock()

	d.model.SetMode(clock.ModeRealTime)
	metrics.SetSimMode(string(clock.ModeRealTime))
	d.tick()

	task := d.sched.Schedule(realTimeTick, realTimeTick, d.tick)
	d.mu.Lock()
	d.task = task
	d.mu.Unlock()

	d.logger.Debug("real-time tracking started", "offset_ms", offset.Milliseconds())
}

// Stop cancels the tick and enters paused mode. Idempotent; a Stop
// while some other driver holds the schedule does nothing.
func (d *RealTimeDriver) Stop() {
	if d.excl.release(d) {
		d.model.SetMode(clock.ModePaused)
		metrics.SetSimMode(string(clock.ModePaused))
		d.logger.Debug("real-time tracking stopped")
	}
}

// Running reports whether the driver currently has a scheduled tick.
func (d *RealTimeDriver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.task != nil
}

func (d *RealTimeDriver) tick() {
	d.mu.Lock()
	offset := d.offset
	d.mu.Unlock()
	d.model.Tick(d.wallClock().Add(offset), true)
	metrics.IncSimTicks("realtime")
}

func (d *RealTimeDriver) halt() {
	d.mu.Lock()
	if d.task != nil {
		d.task.Stop()
		d.task = nil
	}
	d.mu.Unlock()
}
