package api

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/skywatch/skywatch/internal/auth"
	"github.com/skywatch/skywatch/internal/control"
	"github.com/skywatch/skywatch/internal/health"
	"github.com/skywatch/skywatch/internal/metrics"
	"github.com/skywatch/skywatch/internal/stream"
	"github.com/skywatch/skywatch/internal/track"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	engine     *control.Engine
	catalog    *track.Catalog
	logger     *slog.Logger
	web        fs.FS
}

// NewServer creates a configured HTTP server exposing the time engine,
// the satellite catalog, and the realtime WebSocket channel.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, engine *control.Engine, catalog *track.Catalog, hub *stream.Hub, web fs.FS) *Server {
	s := &Server{
		engine:  engine,
		catalog: catalog,
		logger:  logger,
		web:     web,
	}

	mux := http.NewServeMux()

	// Probes and metrics.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	// Dashboard shell.
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Clock state and manual navigation.
	mux.HandleFunc("GET /api/v1/time/now", s.handleTimeNow)
	mux.HandleFunc("GET /api/v1/time", s.handleTimeState)
	mux.HandleFunc("PUT /api/v1/time", s.handleSetTime)
	mux.HandleFunc("PUT /api/v1/time/position", s.handleScrub)

	// Window workflow.
	mux.HandleFunc("PUT /api/v1/time/window", s.handleSetWindow)
	mux.HandleFunc("POST /api/v1/time/window/apply", s.handleApplyWindow)
	mux.HandleFunc("POST /api/v1/time/window/cancel", s.handleCancelWindow)
	mux.HandleFunc("POST /api/v1/time/window/preset", s.handlePresetWindow)

	// Drivers.
	mux.HandleFunc("POST /api/v1/time/realtime/start", s.handleRealTimeStart)
	mux.HandleFunc("POST /api/v1/time/realtime/stop", s.handleRealTimeStop)
	mux.HandleFunc("POST /api/v1/time/animation/start", s.handleAnimationStart)
	mux.HandleFunc("POST /api/v1/time/animation/stop", s.handleAnimationStop)
	mux.HandleFunc("POST /api/v1/time/step", s.handleStep)
	mux.HandleFunc("POST /api/v1/time/step/stop", s.handleStepStop)

	// Playback configuration.
	mux.HandleFunc("PUT /api/v1/time/step-size", s.handleSetStepSize)
	mux.HandleFunc("PUT /api/v1/time/playback-rate", s.handleSetPlaybackRate)

	// Seek points.
	mux.HandleFunc("GET /api/v1/seekpoints", s.handleListSeekPoints)
	mux.HandleFunc("PUT /api/v1/seekpoints", s.handleUpsertSeekPoint)
	mux.HandleFunc("DELETE /api/v1/seekpoints/{name}", s.handleDeleteSeekPoint)
	mux.HandleFunc("POST /api/v1/seekpoints/{name}/seek", s.handleSeekTo)
	mux.HandleFunc("POST /api/v1/seekpoints/seek/next", s.handleSeekNext)
	mux.HandleFunc("POST /api/v1/seekpoints/seek/previous", s.handleSeekPrevious)

	// Satellite catalog, propagated at simulated time.
	mux.HandleFunc("GET /api/v1/satellites", s.handleListSatellites)
	mux.HandleFunc("GET /api/v1/satellites/positions", s.handleSatellitePositions)
	mux.HandleFunc("GET /api/v1/satellites/{norad_id}/look", s.handleLookAngles)

	// Realtime channel.
	mux.HandleFunc("GET /ws/realtime", hub.HandleRealtime)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// The WebSocket endpoint holds its connection open past any
		// write timeout; per-message deadlines live in the hub.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.web, "index.html")
	if err != nil {
		http.Error(w, "frontend not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack forwards to the wrapped writer so the WebSocket upgrade works
// through the logging middleware.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
