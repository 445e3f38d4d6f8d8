package metrics

import (
	"strconv"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/ws/realtime", "/ws/realtime"},
		{"/api/v1/time", "/api/v1/time"},
		{"/api/v1/time/window/apply", "/api/v1/time/window/apply"},
		{"/api/v1/seekpoints", "/api/v1/seekpoints"},
		{"/api/v1/seekpoints/seek/next", "/api/v1/seekpoints/seek/next"},
		{"/api/v1/satellites/positions", "/api/v1/satellites/positions"},

		// Parameterized routes collapse to one label each.
		{"/api/v1/seekpoints/AOS-1", "/api/v1/seekpoints/{name}"},
		{"/api/v1/seekpoints/AOS-1/seek", "/api/v1/seekpoints/{name}/seek"},
		{"/api/v1/satellites/25544/look", "/api/v1/satellites/{norad_id}/look"},
		{"/api/v1/satellites/44713/look", "/api/v1/satellites/{norad_id}/look"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique NORAD IDs produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute("/api/v1/satellites/"+strconv.Itoa(20000+i)+"/look")] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
