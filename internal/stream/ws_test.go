package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skywatch/skywatch/internal/bus"
	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/track"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestConnLimiter(t *testing.T) {
	l := newConnLimiter(2)

	if !l.acquire("10.0.0.1") || !l.acquire("10.0.0.1") {
		t.Fatal("expected two acquisitions under the per-IP limit")
	}
	if l.acquire("10.0.0.1") {
		t.Error("expected third acquisition to be rejected")
	}
	// Other IPs are unaffected.
	if !l.acquire("10.0.0.2") {
		t.Error("expected acquisition for a different IP")
	}

	l.release("10.0.0.1")
	if !l.acquire("10.0.0.1") {
		t.Error("expected acquisition after release")
	}
	if got := l.count("10.0.0.2"); got != 1 {
		t.Errorf("count: got %d, want 1", got)
	}
}

func TestConnLimiterGlobalCap(t *testing.T) {
	l := newConnLimiter(10)
	l.maxTotal = 2

	if !l.acquire("10.0.0.1") || !l.acquire("10.0.0.2") {
		t.Fatal("expected acquisitions under the global cap")
	}
	if l.acquire("10.0.0.3") {
		t.Error("expected rejection at the global cap")
	}
}

type wsFixture struct {
	server *httptest.Server
	bus    *bus.Bus
	model  *clock.Model
}

func newWSFixture(t *testing.T, config Config) *wsFixture {
	t.Helper()

	notifier := bus.New()
	model := clock.NewModel(notifier)
	hub := NewHub(model, track.NewCatalog(), notifier, config, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/realtime", hub.HandleRealtime)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &wsFixture{server: server, bus: notifier, model: model}
}

func (f *wsFixture) dial(t *testing.T) (*websocket.Conn, *http.Response) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/realtime"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn, resp
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decoding frame %s: %v", msg, err)
	}
	return env.Type, env.Data
}

func TestRealtimeStream(t *testing.T) {
	// Long update interval so no positions frames interleave.
	f := newWSFixture(t, Config{MaxConcurrentPerIP: 10, UpdateInterval: time.Hour})
	conn, _ := f.dial(t)
	defer conn.Close()

	// Handshake frames: connected, then a full state snapshot.
	if typ, _ := readEnvelope(t, conn); typ != "connected" {
		t.Fatalf("first frame type = %q, want connected", typ)
	}
	typ, data := readEnvelope(t, conn)
	if typ != "state" {
		t.Fatalf("second frame type = %q, want state", typ)
	}
	var state clock.State
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if state.Mode != clock.ModeRealTime {
		t.Errorf("initial mode: got %v, want realtime", state.Mode)
	}

	// An engine mutation reaches the client as a typed notification.
	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	if err := f.model.SetCurrentTime(target); err != nil {
		t.Fatalf("SetCurrentTime failed: %v", err)
	}

	typ, data = readEnvelope(t, conn)
	if typ != string(clock.TopicTimeChanged) {
		t.Fatalf("frame type = %q, want %q", typ, clock.TopicTimeChanged)
	}
	var changed clock.TimeChanged
	if err := json.Unmarshal(data, &changed); err != nil {
		t.Fatalf("decoding time:changed: %v", err)
	}
	if !changed.CurrentTime.Equal(target) {
		t.Errorf("streamed time: got %v, want %v", changed.CurrentTime, target)
	}
	if changed.IsRealTime {
		t.Error("manual set must stream is_real_time=false")
	}
}

func TestRealtimeStreamConnectionLimit(t *testing.T) {
	f := newWSFixture(t, Config{MaxConcurrentPerIP: 1, UpdateInterval: time.Hour})

	conn, _ := f.dial(t)
	defer conn.Close()
	if typ, _ := readEnvelope(t, conn); typ != "connected" {
		t.Fatalf("first frame type = %q, want connected", typ)
	}

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/realtime"
	second, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		second.Close()
		t.Fatal("expected second connection to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("rejection status = %v, want 429", resp)
	}
}
