package clock

import (
	"testing"
	"time"
)

func sliderFixture(t *testing.T) (*SliderMapper, *Model, time.Time, time.Time) {
	t.Helper()
	m := NewModel(&recordingNotifier{})
	start := mustTime(t, "2024-01-01T00:00:00Z")
	stop := mustTime(t, "2024-01-02T00:00:00Z")
	if err := m.CommitWindow(start, stop); err != nil {
		t.Fatalf("CommitWindow failed: %v", err)
	}
	return NewSliderMapper(m), m, start, stop
}

func TestPositionToTime(t *testing.T) {
	mapper, _, start, stop := sliderFixture(t)

	tests := []struct {
		position float64
		want     time.Time
	}{
		{0, start},
		{0.5, mustTime(t, "2024-01-01T12:00:00Z")},
		{1, stop},
		{0.25, mustTime(t, "2024-01-01T06:00:00Z")},
		// Out-of-range positions clamp to the window bounds.
		{-0.3, start},
		{1.7, stop},
	}

	for _, tc := range tests {
		if got := mapper.PositionToTime(tc.position); !got.Equal(tc.want) {
			t.Errorf("PositionToTime(%v): got %v, want %v", tc.position, got, tc.want)
		}
	}
}

func TestTimeToPosition(t *testing.T) {
	mapper, _, start, stop := sliderFixture(t)

	tests := []struct {
		instant time.Time
		want    float64
	}{
		{start, 0},
		{mustTime(t, "2024-01-01T12:00:00Z"), 0.5},
		{stop, 1},
		// Instants outside the window clamp to the slider ends.
		{start.Add(-time.Hour), 0},
		{stop.Add(time.Hour), 1},
	}

	for _, tc := range tests {
		if got := mapper.TimeToPosition(tc.instant); got != tc.want {
			t.Errorf("TimeToPosition(%v): got %v, want %v", tc.instant, got, tc.want)
		}
	}
}

func TestSliderRoundTrip(t *testing.T) {
	mapper, _, _, _ := sliderFixture(t)

	for _, position := range []float64{0, 0.125, 0.5, 0.875, 1} {
		got := mapper.TimeToPosition(mapper.PositionToTime(position))
		if diff := got - position; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("round trip %v: got %v", position, got)
		}
	}
}

func TestSliderFallsBackToCandidateWindow(t *testing.T) {
	m := NewModel(&recordingNotifier{})
	mapper := NewSliderMapper(m)

	start := mustTime(t, "2024-02-01T00:00:00Z")
	stop := mustTime(t, "2024-02-01T12:00:00Z")
	if err := m.SetCandidateRange(start, stop); err != nil {
		t.Fatalf("SetCandidateRange failed: %v", err)
	}

	want := mustTime(t, "2024-02-01T06:00:00Z")
	if got := mapper.PositionToTime(0.5); !got.Equal(want) {
		t.Errorf("PositionToTime(0.5): got %v, want %v", got, want)
	}
}

func TestSliderUndefinedWithoutWindow(t *testing.T) {
	m := NewModel(&recordingNotifier{})
	mapper := NewSliderMapper(m)

	if got := mapper.PositionToTime(0.5); !got.Equal(m.CurrentTime()) {
		t.Errorf("PositionToTime without window: got %v, want current time", got)
	}
	if got := mapper.TimeToPosition(m.CurrentTime()); got != 0 {
		t.Errorf("TimeToPosition without window: got %v, want 0", got)
	}
}
