package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywatch_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywatch_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	simTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywatch_sim_ticks_total",
			Help: "Total simulation clock ticks by driver.",
		},
		[]string{"driver"},
	)

	simMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skywatch_sim_mode",
			Help: "Current simulation clock mode (1 for the active mode, 0 otherwise).",
		},
		[]string{"mode"},
	)

	seekPointCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywatch_seek_points",
			Help: "Number of stored seek points.",
		},
	)

	catalogSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywatch_catalog_satellites",
			Help: "Number of satellites in the loaded catalog.",
		},
	)

	wsConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywatch_ws_connections_total",
			Help: "Total WebSocket connection events.",
		},
		[]string{"event"},
	)

	wsClientsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywatch_ws_clients_active",
			Help: "Currently connected WebSocket clients.",
		},
	)
)

// simModes mirrors the clock mode set; kept as plain strings so this
// package has no dependency on the engine.
var simModes = []string{"realtime", "paused", "animating_backward", "animating_forward"}

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(simTicksTotal)
	prometheus.MustRegister(simMode)
	prometheus.MustRegister(seekPointCount)
	prometheus.MustRegister(catalogSize)
	prometheus.MustRegister(wsConnectionsTotal)
	prometheus.MustRegister(wsClientsActive)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncSimTicks increments the tick counter for a driver
// ("realtime", "animation", "step").
func IncSimTicks(driver string) {
	simTicksTotal.WithLabelValues(driver).Inc()
}

// SetSimMode marks the given mode as active and all others inactive.
func SetSimMode(active string) {
	for _, m := range simModes {
		v := 0.0
		if m == active {
			v = 1.0
		}
		simMode.WithLabelValues(m).Set(v)
	}
}

// SetSeekPointCount records the current number of seek points.
func SetSeekPointCount(n int) {
	seekPointCount.Set(float64(n))
}

// SetCatalogSize records the number of satellites in the catalog.
func SetCatalogSize(n int) {
	catalogSize.Set(float64(n))
}

// IncWSConnections counts a WebSocket connection event
// ("connect", "disconnect", "rejected").
func IncWSConnections(event string) {
	wsConnectionsTotal.WithLabelValues(event).Inc()
}

// IncWSClients increments the active client gauge.
func IncWSClients() { wsClientsActive.Inc() }

// DecWSClients decrements the active client gauge.
func DecWSClients() { wsClientsActive.Dec() }

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack forwards to the wrapped writer so the WebSocket upgrade works
// through the metrics middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// knownRoutes are the fixed paths the server registers. Anything else
// collapses to a parameterized or "other" label so bots and scanners
// cannot inflate metric cardinality.
var knownRoutes = map[string]bool{
	"/":                                true,
	"/healthz":                         true,
	"/readyz":                          true,
	"/metrics":                         true,
	"/ws/realtime":                     true,
	"/api/v1/time":                     true,
	"/api/v1/time/now":                 true,
	"/api/v1/time/position":            true,
	"/api/v1/time/window":              true,
	"/api/v1/time/window/apply":        true,
	"/api/v1/time/window/cancel":       true,
	"/api/v1/time/window/preset":       true,
	"/api/v1/time/realtime/start":      true,
	"/api/v1/time/realtime/stop":       true,
	"/api/v1/time/animation/start":     true,
	"/api/v1/time/animation/stop":      true,
	"/api/v1/time/step":                true,
	"/api/v1/time/step/stop":           true,
	"/api/v1/time/step-size":           true,
	"/api/v1/time/playback-rate":       true,
	"/api/v1/seekpoints":               true,
	"/api/v1/seekpoints/seek/next":     true,
	"/api/v1/seekpoints/seek/previous": true,
	"/api/v1/satellites":               true,
	"/api/v1/satellites/positions":     true,
}

// normalizeRoute maps a request path to a bounded metric label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/satellites/") && strings.HasSuffix(path, "/look") {
		return "/api/v1/satellites/{norad_id}/look"
	}
	if strings.HasPrefix(path, "/api/v1/seekpoints/") {
		if strings.HasSuffix(path, "/seek") {
			return "/api/v1/seekpoints/{name}/seek"
		}
		return "/api/v1/seekpoints/{name}"
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
