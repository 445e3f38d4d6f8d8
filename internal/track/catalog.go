// Package track loads a satellite catalog from TLE data and computes
// positions and observer look angles at arbitrary instants. It is a
// consumer of the simulation clock, not part of it: callers pass in the
// simulated time they want positions for.
package track

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Satellite is one catalog entry with its initialized SGP4 model.
type Satellite struct {
	NoradID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`

	sgp4 satellite.Satellite
}

// Catalog provides lock-free read access to the loaded satellite set.
type Catalog struct {
	data atomic.Pointer[[]Satellite]
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Set atomically replaces the catalog contents.
func (c *Catalog) Set(sats []Satellite) {
	c.data.Store(&sats)
}

// All returns the current satellite set. Callers must not mutate the
// returned slice.
func (c *Catalog) All() []Satellite {
	p := c.data.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Len returns the number of satellites in the catalog.
func (c *Catalog) Len() int {
	return len(c.All())
}

// Get looks up a satellite by NORAD ID.
func (c *Catalog) Get(noradID int) (Satellite, bool) {
	for _, s := range c.All() {
		if s.NoradID == noradID {
			return s, true
		}
	}
	return Satellite{}, false
}

// LoadFile reads a 3-line TLE catalog file into the catalog.
func (c *Catalog) LoadFile(path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening TLE file: %w", err)
	}
	defer f.Close()

	sats, err := Parse(f, logger)
	if err != nil {
		return err
	}
	c.Set(sats)
	return nil
}

// Parse reads 3-line NORAD TLE format from r. Malformed entries are
// skipped with a warning log; entries the SGP4 model rejects are
// skipped too.
func Parse(r io.Reader, logger *slog.Logger) ([]Satellite, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var sats []Satellite
	for i := 0; i+2 < len(lines); {
		name := strings.TrimSpace(lines[i])
		line1 := lines[i+1]
		line2 := lines[i+2]

		if err := validateTLELines(line1, line2); err != nil {
			logger.Warn("skipping malformed TLE entry", "name", name, "error", err)
			i++
			continue
		}

		noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
		if err != nil {
			logger.Warn("skipping TLE entry with invalid NORAD ID", "name", name)
			i += 3
			continue
		}

		epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
		if err != nil {
			logger.Warn("skipping TLE entry with invalid epoch", "name", name, "error", err)
			i += 3
			continue
		}

		sgp4 := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
		if sgp4.Error != 0 {
			logger.Warn("skipping TLE entry rejected by SGP4 init",
				"name", name, "norad_id", noradID, "code", sgp4.Error)
			i += 3
			continue
		}

		sats = append(sats, Satellite{
			NoradID: noradID,
			Name:    name,
			Epoch:   epoch,
			sgp4:    sgp4,
		})
		i += 3
	}

	return sats, nil
}

// validateTLELines performs format validation before handing lines to
// go-satellite, which calls log.Fatal on malformed input.
func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// parseEpoch converts a TLE epoch in YYDDD.DDDDDDDD format to UTC.
// Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year < 57 {
		year += 2000
	} else {
		year += 1900
	}

	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}
	if day < 1 || day >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %f out of range", day)
	}

	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return yearStart.Add(time.Duration((day - 1) * 24 * float64(time.Hour))), nil
}
