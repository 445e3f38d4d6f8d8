package clock

import (
	"testing"
	"time"
)

func TestSeekPointUpsert(t *testing.T) {
	notifier := &recordingNotifier{}
	m := NewModel(notifier)
	reg := NewSeekPointRegistry(m, notifier)

	first := mustTime(t, "2024-01-01T10:00:00Z")
	second := mustTime(t, "2024-01-01T11:30:00Z")

	if err := reg.Add("AOS-1", first, "pass"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := reg.Add("AOS-1", second, "pass"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if reg.Len() != 1 {
		t.Fatalf("len after upsert: got %d, want 1", reg.Len())
	}
	points := reg.Points()
	if !points[0].Time.Equal(second) {
		t.Errorf("upsert must replace the time: got %v, want %v", points[0].Time, second)
	}
	if notifier.count(TopicSeekPointsChanged) != 2 {
		t.Errorf("seekpoints:changed notifications: got %d, want 2", notifier.count(TopicSeekPointsChanged))
	}
}

func TestSeekPointValidation(t *testing.T) {
	reg := NewSeekPointRegistry(NewModel(nil), nil)

	if err := reg.Add("", mustTime(t, "2024-01-01T00:00:00Z"), ""); err != ErrEmptyName {
		t.Errorf("empty name: got %v, want ErrEmptyName", err)
	}
	if err := reg.Add("x", time.Time{}, ""); err != ErrInvalidInstant {
		t.Errorf("zero time: got %v, want ErrInvalidInstant", err)
	}
	if reg.Len() != 0 {
		t.Errorf("rejected adds must not store, got %d points", reg.Len())
	}
}

func TestSeekPointsSorted(t *testing.T) {
	reg := NewSeekPointRegistry(NewModel(nil), nil)

	t1 := mustTime(t, "2024-01-01T06:00:00Z")
	t2 := mustTime(t, "2024-01-01T12:00:00Z")
	t3 := mustTime(t, "2024-01-01T18:00:00Z")

	// Insert out of order; same-time points order by name.
	reg.Add("LOS-1", t3, "pass")
	reg.Add("AOS-1", t1, "pass")
	reg.Add("burn", t2, "maneuver")
	reg.Add("apogee", t2, "orbit")

	got := reg.Points()
	wantNames := []string{"AOS-1", "apogee", "burn", "LOS-1"}
	if len(got) != len(wantNames) {
		t.Fatalf("points: got %d, want %d", len(got), len(wantNames))
	}
	for i, name := range wantNames {
		if got[i].Name != name {
			t.Errorf("points[%d]: got %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestSeekRemove(t *testing.T) {
	notifier := &recordingNotifier{}
	reg := NewSeekPointRegistry(NewModel(notifier), notifier)

	reg.Add("AOS-1", mustTime(t, "2024-01-01T10:00:00Z"), "pass")

	if !reg.Remove("AOS-1") {
		t.Error("Remove existing: got false")
	}
	if reg.Remove("AOS-1") {
		t.Error("Remove missing: got true")
	}
	if reg.Len() != 0 {
		t.Errorf("len after remove: got %d, want 0", reg.Len())
	}
	// One for add, one for the successful remove only.
	if notifier.count(TopicSeekPointsChanged) != 2 {
		t.Errorf("seekpoints:changed notifications: got %d, want 2", notifier.count(TopicSeekPointsChanged))
	}
}

func TestSeekNavigation(t *testing.T) {
	m := NewModel(&recordingNotifier{})
	reg := NewSeekPointRegistry(m, nil)

	t1 := mustTime(t, "2024-01-01T06:00:00Z")
	t2 := mustTime(t, "2024-01-01T12:00:00Z")
	t3 := mustTime(t, "2024-01-01T18:00:00Z")
	reg.Add("first", t1, "")
	reg.Add("second", t2, "")
	reg.Add("third", t3, "")

	if err := m.SetCurrentTime(t2); err != nil {
		t.Fatalf("SetCurrentTime failed: %v", err)
	}

	// Next and previous are strict: sitting exactly on t2 skips it.
	if !reg.SeekNext() {
		t.Fatal("SeekNext: got false")
	}
	if !m.CurrentTime().Equal(t3) {
		t.Errorf("after SeekNext: got %v, want %v", m.CurrentTime(), t3)
	}
	if reg.SeekNext() {
		t.Error("SeekNext past the last point: got true")
	}
	if !m.CurrentTime().Equal(t3) {
		t.Error("failed SeekNext must not move the clock")
	}

	if err := m.SetCurrentTime(t2); err != nil {
		t.Fatalf("SetCurrentTime failed: %v", err)
	}
	if !reg.SeekPrevious() {
		t.Fatal("SeekPrevious: got false")
	}
	if !m.CurrentTime().Equal(t1) {
		t.Errorf("after SeekPrevious: got %v, want %v", m.CurrentTime(), t1)
	}
	if reg.SeekPrevious() {
		t.Error("SeekPrevious before the first point: got true")
	}
}

func TestSeekTo(t *testing.T) {
	m := NewModel(&recordingNotifier{})
	reg := NewSeekPointRegistry(m, nil)

	target := mustTime(t, "2024-01-01T10:00:00Z")
	reg.Add("AOS-1", target, "pass")

	if reg.SeekTo("unknown") {
		t.Error("SeekTo unknown name: got true")
	}
	if !reg.SeekTo("AOS-1") {
		t.Fatal("SeekTo: got false")
	}
	if !m.CurrentTime().Equal(target) {
		t.Errorf("after SeekTo: got %v, want %v", m.CurrentTime(), target)
	}
	if m.Mode() != ModePaused {
		t.Errorf("seek must pause: got %v", m.Mode())
	}
}
