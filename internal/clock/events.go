package clock

import "time"

// Topic identifies a notification channel on the Notifier.
type Topic string

const (
	TopicTimeChanged       Topic = "time:changed"
	TopicRangeChanged      Topic = "time:range:changed"
	TopicPendingChanged    Topic = "time:pending:changed"
	TopicApplied           Topic = "time:applied"
	TopicCancelled         Topic = "time:cancelled"
	TopicStepChanged       Topic = "time:step:changed"
	TopicPlaybackChanged   Topic = "time:playback:changed"
	TopicSeekPointsChanged Topic = "time:seekpoints:changed"
)

// Notifier is the publish side of the host application's messaging
// mechanism. The engine depends only on this interface; subscribers are
// wired up by the host. Publish must deliver synchronously so that a
// subscriber always observes a fully-settled model.
type Notifier interface {
	Publish(topic Topic, payload any)
}

// TimeChanged is the payload for TopicTimeChanged.
type TimeChanged struct {
	CurrentTime time.Time `json:"current_time"`
	IsRealTime  bool      `json:"is_real_time"`
}

// RangeChanged is the payload for TopicRangeChanged.
type RangeChanged struct {
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
	Pending   bool      `json:"pending"`
}

// PendingChanged is the payload for TopicPendingChanged.
type PendingChanged struct {
	HasPendingChanges bool `json:"has_pending_changes"`
}

// Applied is the payload for TopicApplied.
type Applied struct {
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
}

// Cancelled is the payload for TopicCancelled. The bounds are the
// committed window the candidate was rolled back to.
type Cancelled struct {
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
}

// StepChanged is the payload for TopicStepChanged.
type StepChanged struct {
	StepSizeMinutes int `json:"step_size_minutes"`
}

// PlaybackChanged is the payload for TopicPlaybackChanged.
type PlaybackChanged struct {
	PlaybackRate float64 `json:"playback_rate"`
}

// SeekPointsChanged is the payload for TopicSeekPointsChanged. Points
// are sorted ascending by time.
type SeekPointsChanged struct {
	SeekPoints []SeekPoint `json:"seek_points"`
}
