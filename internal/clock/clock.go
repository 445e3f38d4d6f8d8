// Package clock holds the simulation clock state: the current simulated
// instant, the candidate/committed time window, playback configuration,
// and named seek points. It is a pure state holder — the drivers in
// internal/control mutate it, renderers and the HTTP layer read it.
//
// All mutations happen under the model mutex; notifications are
// published after the mutex is released, so a subscriber reading the
// model back always sees the settled state.
package clock

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrInvalidInstant rejects a proposed time that is not a
	// well-formed point in time (the zero time.Time).
	ErrInvalidInstant = errors.New("invalid instant")

	// ErrInvalidRange rejects a window whose start is not strictly
	// before its stop.
	ErrInvalidRange = errors.New("range start must be before stop")

	// ErrInvalidStepSize rejects a step size outside StepSizes.
	ErrInvalidStepSize = errors.New("step size not in allowed set")

	// ErrInvalidPlaybackRate rejects a rate outside PlaybackRates.
	ErrInvalidPlaybackRate = errors.New("playback rate not in allowed set")
)

// StepSizes is the allowed set of step sizes in minutes.
var StepSizes = []int{1, 5, 15, 30, 60}

// PlaybackRates is the allowed set of playback rate multipliers.
var PlaybackRates = []float64{0.5, 1, 2, 4, 8, 16, 60, 600}

// Mode is the mutually-exclusive top-level state of the clock.
type Mode string

const (
	ModeRealTime          Mode = "realtime"
	ModePaused            Mode = "paused"
	ModeAnimatingBackward Mode = "animating_backward"
	ModeAnimatingForward  Mode = "animating_forward"
)

// State is an immutable snapshot of the model for readers. Window
// bounds are nil when unset.
type State struct {
	CurrentTime       time.Time  `json:"current_time"`
	Mode              Mode       `json:"mode"`
	StepSizeMinutes   int        `json:"step_size_minutes"`
	PlaybackRate      float64    `json:"playback_rate"`
	CandidateStart    *time.Time `json:"candidate_start,omitempty"`
	CandidateStop     *time.Time `json:"candidate_stop,omitempty"`
	CommittedStart    *time.Time `json:"committed_start,omitempty"`
	CommittedStop     *time.Time `json:"committed_stop,omitempty"`
	HasPendingChanges bool       `json:"has_pending_changes"`
}

// Model is the authoritative simulated clock. It is created once at
// process start and lives for the process lifetime.
type Model struct {
	mu       sync.Mutex
	notifier Notifier
	now      func() time.Time
	onManual func() // installed by the control engine; tears down driver schedules

	current        time.Time
	mode           Mode
	stepMinutes    int
	rate           float64
	candidateStart time.Time
	candidateStop  time.Time
	committedStart time.Time
	committedStop  time.Time
	pending        bool
}

// NewModel creates a Model with currentTime set to the startup instant,
// an empty window, and real-time mode.
func NewModel(notifier Notifier) *Model {
	m := &Model{
		notifier:    notifier,
		now:         time.Now,
		mode:        ModeRealTime,
		stepMinutes: 5,
		rate:        1,
	}
	m.current = m.now()
	return m
}

// SetManualInterrupt installs the hook invoked before every manual
// instant mutation (explicit set, slider scrub, seek). The control
// engine uses it to cancel whichever driver schedule is active.
func (m *Model) SetManualInterrupt(fn func()) {
	m.mu.Lock()
	m.onManual = fn
	m.mu.Unlock()
}

// CurrentTime returns a snapshot of the simulated "now".
func (m *Model) CurrentTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Mode returns the current driving mode.
func (m *Model) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// StepSize returns the step size in minutes.
func (m *Model) StepSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepMinutes
}

// PlaybackRate returns the playback rate multiplier.
func (m *Model) PlaybackRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// CommittedWindow returns the committed bounds; ok is false unless both
// bounds are set.
func (m *Model) CommittedWindow() (start, stop time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committedStart, m.committedStop, !m.committedStart.IsZero() && !m.committedStop.IsZero()
}

// CandidateWindow returns the candidate bounds; ok is false unless both
// bounds are set.
func (m *Model) CandidateWindow() (start, stop time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidateStart, m.candidateStop, !m.candidateStart.IsZero() && !m.candidateStop.IsZero()
}

// HasPendingChanges reports whether the candidate window has been
// edited since the last apply or cancel.
func (m *Model) HasPendingChanges() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// State returns a full snapshot for readers. The returned value shares
// no mutable memory with the model.
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		CurrentTime:       m.current,
		Mode:              m.mode,
		StepSizeMinutes:   m.stepMinutes,
		PlaybackRate:      m.rate,
		CandidateStart:    timePtr(m.candidateStart),
		CandidateStop:     timePtr(m.candidateStop),
		CommittedStart:    timePtr(m.committedStart),
		CommittedStop:     timePtr(m.committedStop),
		HasPendingChanges: m.pending,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	c := t
	return &c
}

// SetCurrentTime performs a manual instant mutation: it interrupts any
// active driver, moves the clock to t, and enters paused mode.
func (m *Model) SetCurrentTime(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidInstant
	}
	m.interruptManual()
	m.mu.Lock()
	m.current = t
	m.mode = ModePaused
	m.mu.Unlock()
	m.publish(TopicTimeChanged, TimeChanged{CurrentTime: t})
	return nil
}

// Tick is the driver path for instant mutation: it moves the clock
// without touching the mode and without the manual-interrupt hook.
func (m *Model) Tick(t time.Time, isRealTime bool) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
	m.publish(TopicTimeChanged, TimeChanged{CurrentTime: t, IsRealTime: isRealTime})
}

// AdvanceClamped moves the clock by d, clamping the result into the
// committed window when both bounds are set. Used by stepping and
// animation. Returns the resulting instant.
func (m *Model) AdvanceClamped(d time.Duration) time.Time {
	m.mu.Lock()
	t := m.current.Add(d)
	if !m.committedStart.IsZero() && !m.committedStop.IsZero() {
		if t.Before(m.committedStart) {
			t = m.committedStart
		} else if t.After(m.committedStop) {
			t = m.committedStop
		}
	}
	m.current = t
	m.mu.Unlock()
	m.publish(TopicTimeChanged, TimeChanged{CurrentTime: t})
	return t
}

// SetMode records the driving mode. Mode transitions are announced
// implicitly through the is_real_time flag on time updates; there is no
// dedicated mode topic.
func (m *Model) SetMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// SetCandidateRange proposes a new window without committing it. The
// pending flag is recomputed: it is set exactly when the candidate
// differs from the committed window.
func (m *Model) SetCandidateRange(start, stop time.Time) error {
	if start.IsZero() || stop.IsZero() {
		return ErrInvalidInstant
	}
	if !start.Before(stop) {
		return ErrInvalidRange
	}

	m.mu.Lock()
	m.candidateStart = start
	m.candidateStop = stop
	wasPending := m.pending
	m.pending = !start.Equal(m.committedStart) || !stop.Equal(m.committedStop)
	pending := m.pending
	m.mu.Unlock()

	m.publish(TopicRangeChanged, RangeChanged{StartTime: start, StopTime: stop, Pending: pending})
	if pending != wasPending {
		m.publish(TopicPendingChanged, PendingChanged{HasPendingChanges: pending})
	}
	return nil
}

// ApplyPendingChanges copies the candidate window to the committed
// window. No-op when nothing is pending.
func (m *Model) ApplyPendingChanges() {
	m.mu.Lock()
	if !m.pending {
		m.mu.Unlock()
		return
	}
	m.committedStart = m.candidateStart
	m.committedStop = m.candidateStop
	m.pending = false
	start, stop := m.committedStart, m.committedStop
	m.mu.Unlock()

	m.publish(TopicApplied, Applied{StartTime: start, StopTime: stop})
	m.publish(TopicPendingChanged, PendingChanged{HasPendingChanges: false})
}

// CancelPendingChanges rolls the candidate window back to the committed
// window. No-op when nothing is pending.
func (m *Model) CancelPendingChanges() {
	m.mu.Lock()
	if !m.pending {
		m.mu.Unlock()
		return
	}
	m.candidateStart = m.committedStart
	m.candidateStop = m.committedStop
	m.pending = false
	start, stop := m.committedStart, m.committedStop
	m.mu.Unlock()

	m.publish(TopicCancelled, Cancelled{StartTime: start, StopTime: stop})
	m.publish(TopicRangeChanged, RangeChanged{StartTime: start, StopTime: stop, Pending: false})
}

// CommitWindow sets candidate and committed bounds in one step,
// bypassing the pending workflow. Used by window presets and startup
// initialization; publishes the same notifications as a normal apply.
func (m *Model) CommitWindow(start, stop time.Time) error {
	if start.IsZero() || stop.IsZero() {
		return ErrInvalidInstant
	}
	if !start.Before(stop) {
		return ErrInvalidRange
	}

	m.mu.Lock()
	m.candidateStart = start
	m.candidateStop = stop
	m.committedStart = start
	m.committedStop = stop
	wasPending := m.pending
	m.pending = false
	m.mu.Unlock()

	m.publish(TopicRangeChanged, RangeChanged{StartTime: start, StopTime: stop, Pending: false})
	m.publish(TopicApplied, Applied{StartTime: start, StopTime: stop})
	if wasPending {
		m.publish(TopicPendingChanged, PendingChanged{HasPendingChanges: false})
	}
	return nil
}

// InitializeWindow establishes the startup window: a span centered on
// the wall clock's now, half behind and half ahead, already committed.
func (m *Model) InitializeWindow(span time.Duration) error {
	if span <= 0 {
		return ErrInvalidRange
	}
	now := m.now()
	return m.CommitWindow(now.Add(-span/2), now.Add(span/2))
}

// SetStepSize sets the step size in minutes. The value must be one of
// StepSizes.
func (m *Model) SetStepSize(minutes int) error {
	if !containsInt(StepSizes, minutes) {
		return ErrInvalidStepSize
	}
	m.mu.Lock()
	m.stepMinutes = minutes
	m.mu.Unlock()
	m.publish(TopicStepChanged, StepChanged{StepSizeMinutes: minutes})
	return nil
}

// SetPlaybackRate sets the playback rate multiplier. The value must be
// one of PlaybackRates.
func (m *Model) SetPlaybackRate(rate float64) error {
	if !containsFloat(PlaybackRates, rate) {
		return ErrInvalidPlaybackRate
	}
	m.mu.Lock()
	m.rate = rate
	m.mu.Unlock()
	m.publish(TopicPlaybackChanged, PlaybackChanged{PlaybackRate: rate})
	return nil
}

func (m *Model) interruptManual() {
	m.mu.Lock()
	fn := m.onManual
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Model) publish(topic Topic, payload any) {
	if m.notifier != nil {
		m.notifier.Publish(topic, payload)
	}
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsFloat(set []float64, v float64) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
