package clock

import "time"

// SliderMapper maps between a normalized slider position in [0,1] and
// an absolute instant within the committed window. It holds no state of
// its own; it reads the model's window on every call.
//
// The committed window scales the slider. When it is unset the mapper
// falls back to the candidate window, and when neither forms a valid
// range the mapping is undefined: PositionToTime returns the current
// time unchanged and TimeToPosition returns 0.
type SliderMapper struct {
	model *Model
}

// NewSliderMapper creates a mapper bound to the given model.
func NewSliderMapper(model *Model) *SliderMapper {
	return &SliderMapper{model: model}
}

// PositionToTime converts a slider position to an instant. Position is
// clamped to [0,1].
func (s *SliderMapper) PositionToTime(position float64) time.Time {
	if position < 0 {
		position = 0
	} else if position > 1 {
		position = 1
	}

	start, stop, ok := s.window()
	if !ok {
		return s.model.CurrentTime()
	}
	span := stop.Sub(start)
	return start.Add(time.Duration(position * float64(span)))
}

// TimeToPosition converts an instant to a slider position clamped to
// [0,1]. Returns 0 when the window is degenerate.
func (s *SliderMapper) TimeToPosition(t time.Time) float64 {
	start, stop, ok := s.window()
	if !ok {
		return 0
	}
	position := float64(t.Sub(start)) / float64(stop.Sub(start))
	if position < 0 {
		return 0
	}
	if position > 1 {
		return 1
	}
	return position
}

func (s *SliderMapper) window() (time.Time, time.Time, bool) {
	start, stop, ok := s.model.CommittedWindow()
	if !ok {
		start, stop, ok = s.model.CandidateWindow()
	}
	if !ok || !start.Before(stop) {
		return time.Time{}, time.Time{}, false
	}
	return start, stop, true
}
