package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/control"
	"github.com/skywatch/skywatch/internal/track"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// modelStatus maps engine validation errors to HTTP status codes.
func modelStatus(err error) int {
	switch {
	case errors.Is(err, clock.ErrInvalidInstant),
		errors.Is(err, clock.ErrInvalidRange),
		errors.Is(err, clock.ErrInvalidStepSize),
		errors.Is(err, clock.ErrInvalidPlaybackRate),
		errors.Is(err, clock.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// timeStateResponse is the full clock snapshot plus the derived slider
// position.
type timeStateResponse struct {
	clock.State
	SliderPosition float64 `json:"slider_position"`
}

func (s *Server) stateResponse() timeStateResponse {
	state := s.engine.Model.State()
	return timeStateResponse{
		State:          state,
		SliderPosition: s.engine.Slider.TimeToPosition(state.CurrentTime),
	}
}

// handleTimeNow returns the wall clock, not the simulated clock.
// GET /api/v1/time/now
func (s *Server) handleTimeNow(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{
		"utc":  now.Format(time.RFC3339Nano),
		"unix": float64(now.UnixNano()) / 1e9,
	})
}

// GET /api/v1/time
func (s *Server) handleTimeState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// PUT /api/v1/time
func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time time.Time `json:"time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.Model.SetCurrentTime(req.Time); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// PUT /api/v1/time/position
func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.ScrubTo(req.Position); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// PUT /api/v1/time/window
func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start time.Time `json:"start"`
		Stop  time.Time `json:"stop"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.Model.SetCandidateRange(req.Start, req.Stop); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/window/apply
func (s *Server) handleApplyWindow(w http.ResponseWriter, r *http.Request) {
	s.engine.Model.ApplyPendingChanges()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/window/cancel
func (s *Server) handleCancelWindow(w http.ResponseWriter, r *http.Request) {
	s.engine.Model.CancelPendingChanges()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/window/preset
func (s *Server) handlePresetWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hours float64 `json:"hours"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.Presets.ApplyWindow(req.Hours); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/realtime/start
func (s *Server) handleRealTimeStart(w http.ResponseWriter, r *http.Request) {
	s.engine.RealTime.Start()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/realtime/stop
func (s *Server) handleRealTimeStop(w http.ResponseWriter, r *http.Request) {
	s.engine.RealTime.Stop()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func parseDirection(dir string) (int, bool) {
	switch strings.ToLower(dir) {
	case "forward":
		return control.Forward, true
	case "backward":
		return control.Backward, true
	default:
		return 0, false
	}
}

// POST /api/v1/time/animation/start
func (s *Server) handleAnimationStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	dir, ok := parseDirection(req.Direction)
	if !ok {
		writeError(w, http.StatusBadRequest, "direction must be \"forward\" or \"backward\"")
		return
	}
	s.engine.Animation.Start(dir)
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/animation/stop
func (s *Server) handleAnimationStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Animation.Stop()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/step
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Repeat    bool   `json:"repeat"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	dir, ok := parseDirection(req.Direction)
	if !ok {
		writeError(w, http.StatusBadRequest, "direction must be \"forward\" or \"backward\"")
		return
	}
	if req.Repeat {
		s.engine.Stepper.StartRepeat(dir)
	} else {
		s.engine.Stepper.SingleStep(dir)
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/time/step/stop
func (s *Server) handleStepStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stepper.StopRepeat()
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// PUT /api/v1/time/step-size
func (s *Server) handleSetStepSize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.Model.SetStepSize(req.Minutes); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// PUT /api/v1/time/playback-rate
func (s *Server) handleSetPlaybackRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.Model.SetPlaybackRate(req.Rate); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// GET /api/v1/seekpoints
func (s *Server) handleListSeekPoints(w http.ResponseWriter, r *http.Request) {
	points := s.engine.SeekPoints.Points()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(points),
		"seek_points": points,
	})
}

// PUT /api/v1/seekpoints
func (s *Server) handleUpsertSeekPoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string    `json:"name"`
		Time     time.Time `json:"time"`
		Category string    `json:"category"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.SeekPoints.Add(req.Name, req.Time, req.Category); err != nil {
		writeError(w, modelStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seek_points": s.engine.SeekPoints.Points()})
}

// DELETE /api/v1/seekpoints/{name}
func (s *Server) handleDeleteSeekPoint(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.engine.SeekPoints.Remove(name) {
		writeError(w, http.StatusNotFound, "seek point not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seek_points": s.engine.SeekPoints.Points()})
}

// POST /api/v1/seekpoints/{name}/seek
func (s *Server) handleSeekTo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.engine.SeekPoints.SeekTo(name) {
		writeError(w, http.StatusNotFound, "seek point not found")
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/seekpoints/seek/next
func (s *Server) handleSeekNext(w http.ResponseWriter, r *http.Request) {
	if !s.engine.SeekPoints.SeekNext() {
		writeError(w, http.StatusNotFound, "no seek point after current time")
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// POST /api/v1/seekpoints/seek/previous
func (s *Server) handleSeekPrevious(w http.ResponseWriter, r *http.Request) {
	if !s.engine.SeekPoints.SeekPrevious() {
		writeError(w, http.StatusNotFound, "no seek point before current time")
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// GET /api/v1/satellites?limit=100&offset=0
func (s *Server) handleListSatellites(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter, must be 1-1000")
			return
		}
		limit = n
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	all := s.catalog.All()
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":      len(all),
		"limit":      limit,
		"offset":     offset,
		"satellites": all[offset:end],
	})
}

// GET /api/v1/satellites/positions?time=&norad_ids=
// Time defaults to the simulated clock's current instant.
func (s *Server) handleSatellitePositions(w http.ResponseWriter, r *http.Request) {
	at := s.engine.Model.CurrentTime()
	if v := r.URL.Query().Get("time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid time parameter, must be RFC 3339")
			return
		}
		at = t
	}

	sats := s.catalog.All()
	if v := r.URL.Query().Get("norad_ids"); v != "" {
		ids := make(map[int]bool)
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid norad_ids parameter")
				return
			}
			ids[id] = true
		}
		filtered := make([]track.Satellite, 0, len(ids))
		for _, sat := range sats {
			if ids[sat.NoradID] {
				filtered = append(filtered, sat)
			}
		}
		sats = filtered
	}

	positions, skipped := track.PositionsAt(sats, at)
	writeJSON(w, http.StatusOK, map[string]any{
		"time":      at.UTC(),
		"count":     len(positions),
		"skipped":   skipped,
		"positions": positions,
	})
}

// GET /api/v1/satellites/{norad_id}/look?lat=&lon=&alt=&time=
// Look angles from a ground observer, at simulated time by default.
func (s *Server) handleLookAngles(w http.ResponseWriter, r *http.Request) {
	noradID, err := strconv.Atoi(r.PathValue("norad_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid norad_id")
		return
	}
	sat, found := s.catalog.Get(noradID)
	if !found {
		writeError(w, http.StatusNotFound, "satellite not in catalog")
		return
	}

	lat, err := parseFloatParam(r, "lat", -90, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := parseFloatParam(r, "lon", -180, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	alt := 0.0
	if v := r.URL.Query().Get("alt"); v != "" {
		alt, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid alt parameter")
			return
		}
	}

	at := s.engine.Model.CurrentTime()
	if v := r.URL.Query().Get("time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid time parameter, must be RFC 3339")
			return
		}
		at = t
	}

	la, err := track.LookAnglesAt(sat, lat, lon, alt, at)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, la)
}

func parseFloatParam(r *http.Request, name string, min, max float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, errors.New(name + " parameter is required")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < min || f > max {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return f, nil
}
