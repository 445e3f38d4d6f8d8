package track

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Position bounds for the propagation sanity check: anything outside
// roughly LEO-to-GEO magnitudes is treated as a failed propagation.
const (
	minPositionMagKm = 6200.0
	maxPositionMagKm = 50000.0
)

// Position is a sub-satellite point at a specific instant.
type Position struct {
	NoradID    int       `json:"norad_id"`
	Name       string    `json:"name"`
	Time       time.Time `json:"time"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AltitudeKm float64   `json:"altitude_km"`
}

// LookAngles holds azimuth, elevation, and range from an observer to a
// satellite. Azimuth is degrees clockwise from north; elevation is
// degrees above the horizon.
type LookAngles struct {
	NoradID      int       `json:"norad_id"`
	Name         string    `json:"name"`
	Time         time.Time `json:"time"`
	AzimuthDeg   float64   `json:"azimuth"`
	ElevationDeg float64   `json:"elevation"`
	RangeKm      float64   `json:"range_km"`
}

// PositionAt propagates the satellite to t and returns the geodetic
// sub-satellite point.
func PositionAt(sat Satellite, t time.Time) (Position, error) {
	t = t.UTC()
	pos, err := propagate(sat, t)
	if err != nil {
		return Position{}, err
	}

	gmst := satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	altKm, _, ll := satellite.ECIToLLA(pos, gmst)
	deg := satellite.LatLongDeg(ll)

	lon := deg.Longitude
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}

	return Position{
		NoradID:    sat.NoradID,
		Name:       sat.Name,
		Time:       t,
		Latitude:   deg.Latitude,
		Longitude:  lon,
		AltitudeKm: altKm,
	}, nil
}

// PositionsAt propagates every satellite in sats to t. Satellites whose
// propagation fails are skipped; the skipped count is returned so
// callers can report it.
func PositionsAt(sats []Satellite, t time.Time) (positions []Position, skipped int) {
	positions = make([]Position, 0, len(sats))
	for _, sat := range sats {
		p, err := PositionAt(sat, t)
		if err != nil {
			skipped++
			continue
		}
		positions = append(positions, p)
	}
	return positions, skipped
}

// LookAnglesAt propagates the satellite to t and computes azimuth,
// elevation, and range from an observer at the given geodetic location
// (degrees, altitude in km above the ellipsoid).
func LookAnglesAt(sat Satellite, latDeg, lonDeg, altKm float64, t time.Time) (LookAngles, error) {
	t = t.UTC()
	pos, err := propagate(sat, t)
	if err != nil {
		return LookAngles{}, err
	}

	jday := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	obs := satellite.LatLong{
		Latitude:  latDeg * math.Pi / 180.0,
		Longitude: lonDeg * math.Pi / 180.0,
	}
	la := satellite.ECIToLookAngles(pos, obs, altKm, jday)

	return LookAngles{
		NoradID:      sat.NoradID,
		Name:         sat.Name,
		Time:         t,
		AzimuthDeg:   la.Az * 180.0 / math.Pi,
		ElevationDeg: la.El * 180.0 / math.Pi,
		RangeKm:      la.Rg,
	}, nil
}

// propagate runs SGP4 and applies NaN/magnitude guards. The library
// reports some failures only through garbage output, so the output is
// checked rather than an error code.
func propagate(sat Satellite, t time.Time) (satellite.Vector3, error) {
	pos, _ := satellite.Propagate(sat.sgp4, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return satellite.Vector3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", sat.NoradID)
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < minPositionMagKm || mag > maxPositionMagKm {
		return satellite.Vector3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", sat.NoradID, mag)
	}

	return pos, nil
}
