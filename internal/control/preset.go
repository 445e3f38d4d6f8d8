package control

import (
	"log/slog"
	"time"

	"github.com/skywatch/skywatch/internal/clock"
)

// PresetApplier commits a window of the given span centered on the wall
// clock's now, bypassing the candidate/pending workflow. This direct
// commit is an intentional shortcut: presets are a one-click action and
// never sit in a pending state.
type PresetApplier struct {
	model     *clock.Model
	excl      *exclusion
	logger    *slog.Logger
	wallClock func() time.Time
}

func newPresetApplier(model *clock.Model, excl *exclusion, logger *slog.Logger) *PresetApplier {
	return &PresetApplier{model: model, excl: excl, logger: logger, wallClock: time.Now}
}

// ApplyWindow commits a window spanning the given number of hours, half
// behind and half ahead of now, cancels any running driver, and centers
// the clock on now (slider position 0.5).
func (p *PresetApplier) ApplyWindow(hours float64) error {
	if hours <= 0 {
		return clock.ErrInvalidRange
	}
	span := time.Duration(hours * float64(time.Hour))
	now := p.wallClock()

	p.excl.interrupt()
	if err := p.model.CommitWindow(now.Add(-span/2), now.Add(span/2)); err != nil {
		return err
	}
	if err := p.model.SetCurrentTime(now); err != nil {
		return err
	}
	p.logger.Debug("window preset applied", "hours", hours)
	return nil
}
