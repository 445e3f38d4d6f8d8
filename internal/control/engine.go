package control

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skywatch/skywatch/internal/clock"
)

// halter is the internal face of a driver: cancel your schedule and
// reset your internal state, without touching the model mode. The
// caller that triggered the halt decides the next mode.
type halter interface {
	halt()
}

// exclusion enforces the single-active-schedule rule. All claim,
// release, and interrupt calls serialize on one mutex, so driver
// handoffs never interleave.
type exclusion struct {
	mu     sync.Mutex
	holder halter
}

// claim makes h the schedule holder, halting whichever driver held the
// slot before (including a previous schedule of h itself).
func (x *exclusion) claim(h halter) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.holder != nil {
		x.holder.halt()
	}
	x.holder = h
}

// release gives up the slot if h holds it. Returns whether h was the
// holder, so callers know whether they actually stopped anything.
func (x *exclusion) release(h halter) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.holder != h {
		return false
	}
	x.holder.halt()
	x.holder = nil
	return true
}

// interrupt halts the current holder, whoever it is. Used for manual
// instant mutations, which always exit any driving mode.
func (x *exclusion) interrupt() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.holder != nil {
		x.holder.halt()
		x.holder = nil
	}
}

// Engine owns the model and its drivers. The host application creates
// one Engine at startup and exposes its components to the transport
// layer; there are no package-level singletons.
type Engine struct {
	Model      *clock.Model
	Slider     *clock.SliderMapper
	SeekPoints *clock.SeekPointRegistry
	RealTime   *RealTimeDriver
	Animation  *AnimationDriver
	Stepper    *StepController
	Presets    *PresetApplier

	excl *exclusion
}

// NewEngine wires the drivers to the model with a shared exclusion
// group and installs the manual-interrupt hook so that explicit sets,
// slider scrubs, and seeks cancel any running schedule.
func NewEngine(model *clock.Model, seekPoints *clock.SeekPointRegistry, sched Scheduler, logger *slog.Logger) *Engine {
	x := &exclusion{}
	e := &Engine{
		Model:      model,
		Slider:     clock.NewSliderMapper(model),
		SeekPoints: seekPoints,
		RealTime:   newRealTimeDriver(model, sched, x, logger),
		Animation:  newAnimationDriver(model, sched, x, logger),
		Stepper:    newStepController(model, sched, x, logger),
		excl:       x,
	}
	e.Presets = newPresetApplier(model, x, logger)
	model.SetManualInterrupt(x.interrupt)
	return e
}

// ScrubTo moves the clock to the instant at the given slider position.
// The mapping uses the committed window; out-of-range positions are
// clamped by the mapper.
func (e *Engine) ScrubTo(position float64) error {
	return e.Model.SetCurrentTime(e.Slider.PositionToTime(position))
}

// Shutdown cancels whatever schedule is active. The model itself is
// never torn down.
func (e *Engine) Shutdown() {
	e.excl.interrupt()
	e.Model.SetMode(clock.ModePaused)
}

func directionMode(direction int) clock.Mode {
	if direction < 0 {
		return clock.ModeAnimatingBackward
	}
	return clock.ModeAnimatingForward
}

func stepDuration(model *clock.Model, direction int) time.Duration {
	return time.Duration(model.StepSize()) * time.Minute * time.Duration(direction)
}
