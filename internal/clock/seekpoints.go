package clock

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrEmptyName rejects a seek point with no name.
var ErrEmptyName = errors.New("seek point name must not be empty")

// SeekPoint is a named, categorized bookmark instant usable for quick
// navigation (e.g. AOS/LOS events, transfer burns).
type SeekPoint struct {
	Name     string    `json:"name"`
	Time     time.Time `json:"time"`
	Category string    `json:"category"`
}

// SeekPointRegistry stores seek points keyed by name and navigates the
// model's clock between them chronologically. Names are unique: adding
// a point with an existing name replaces it.
type SeekPointRegistry struct {
	mu       sync.Mutex
	model    *Model
	notifier Notifier
	points   map[string]SeekPoint
}

// NewSeekPointRegistry creates an empty registry bound to the model.
func NewSeekPointRegistry(model *Model, notifier Notifier) *SeekPointRegistry {
	return &SeekPointRegistry{
		model:    model,
		notifier: notifier,
		points:   make(map[string]SeekPoint),
	}
}

// Add upserts a seek point and publishes the full sorted set.
func (r *SeekPointRegistry) Add(name string, t time.Time, category string) error {
	if name == "" {
		return ErrEmptyName
	}
	if t.IsZero() {
		return ErrInvalidInstant
	}

	r.mu.Lock()
	r.points[name] = SeekPoint{Name: name, Time: t, Category: category}
	sorted := r.sortedLocked()
	r.mu.Unlock()

	r.publishChanged(sorted)
	return nil
}

// Remove deletes a seek point by name. Returns whether anything was
// removed; publishes only when the set changed.
func (r *SeekPointRegistry) Remove(name string) bool {
	r.mu.Lock()
	_, found := r.points[name]
	if !found {
		r.mu.Unlock()
		return false
	}
	delete(r.points, name)
	sorted := r.sortedLocked()
	r.mu.Unlock()

	r.publishChanged(sorted)
	return true
}

// Points returns the set sorted ascending by time.
func (r *SeekPointRegistry) Points() []SeekPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked()
}

// Len returns the number of stored points.
func (r *SeekPointRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

// SeekTo moves the clock to the named point. Returns false when the
// name is unknown; the model is left untouched in that case.
func (r *SeekPointRegistry) SeekTo(name string) bool {
	r.mu.Lock()
	p, found := r.points[name]
	r.mu.Unlock()
	if !found {
		return false
	}
	return r.model.SetCurrentTime(p.Time) == nil
}

// SeekNext moves the clock to the first point strictly after the
// current time. Returns false when no such point exists.
func (r *SeekPointRegistry) SeekNext() bool {
	now := r.model.CurrentTime()
	for _, p := range r.Points() {
		if p.Time.After(now) {
			return r.model.SetCurrentTime(p.Time) == nil
		}
	}
	return false
}

// SeekPrevious moves the clock to the last point strictly before the
// current time. Returns false when no such point exists.
func (r *SeekPointRegistry) SeekPrevious() bool {
	now := r.model.CurrentTime()
	points := r.Points()
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Time.Before(now) {
			return r.model.SetCurrentTime(points[i].Time) == nil
		}
	}
	return false
}

// sortedLocked returns the points sorted ascending by time, with name
// as the tiebreaker for a stable order.
func (r *SeekPointRegistry) sortedLocked() []SeekPoint {
	out := make([]SeekPoint, 0, len(r.points))
	for _, p := range r.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time.Equal(out[j].Time) {
			return out[i].Name < out[j].Name
		}
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

func (r *SeekPointRegistry) publishChanged(sorted []SeekPoint) {
	if r.notifier != nil {
		r.notifier.Publish(TopicSeekPointsChanged, SeekPointsChanged{SeekPoints: sorted})
	}
}
