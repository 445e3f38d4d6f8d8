// Package stream implements the WebSocket realtime channel. Clients
// connect via GET /ws/realtime and receive every engine notification as
// it happens, plus a periodic positions frame propagated at the
// simulated clock's current time.
//
// Message format is a typed envelope:
//
//	{"type":"time:changed","data":{"current_time":"...","is_real_time":true}}
//	{"type":"positions","data":{"time":"...","count":12,"positions":[...]}}
//
// The first two messages on every connection are {"type":"connected"}
// and a full {"type":"state"} snapshot. Slow consumers have frames
// dropped rather than blocking the engine's notification fan-out.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skywatch/skywatch/internal/bus"
	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/httputil"
	"github.com/skywatch/skywatch/internal/metrics"
	"github.com/skywatch/skywatch/internal/track"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // clients only send control frames
	sendBuffer = 64
)

// Config holds streaming configuration loaded from environment
// variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	UpdateInterval     time.Duration // Periodic positions frame interval (default: 1s).
	TrustProxy         bool          // Trust X-Forwarded-For / X-Real-IP.
}

// Hub manages WebSocket connections and fans engine notifications out
// to them.
type Hub struct {
	model    *clock.Model
	catalog  *track.Catalog
	bus      *bus.Bus
	config   Config
	limiter  *connLimiter
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a streaming hub.
func NewHub(model *clock.Model, catalog *track.Catalog, b *bus.Bus, config Config, logger *slog.Logger) *Hub {
	if config.UpdateInterval <= 0 {
		config.UpdateInterval = time.Second
	}
	return &Hub{
		model:   model,
		catalog: catalog,
		bus:     b,
		config:  config,
		limiter: newConnLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
		upgrader: websocket.Upgrader{
			// The dashboard is served from the same origin; cross-origin
			// reads of public clock state are harmless.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// envelope is the wire frame for every message.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// positionsFrame is the Data of a "positions" envelope.
type positionsFrame struct {
	Time      time.Time        `json:"time"`
	Count     int              `json:"count"`
	Skipped   int              `json:"skipped,omitempty"`
	Positions []track.Position `json:"positions"`
}

// HandleRealtime serves the WebSocket realtime stream.
// GET /ws/realtime
func (h *Hub) HandleRealtime(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncWSConnections("rejected")
		h.logger.Warn("ws connection limit exceeded", "remote_ip", ip, "current_count", h.limiter.count(ip))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent connections"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.limiter.release(ip)
		metrics.IncWSConnections("rejected")
		h.logger.Warn("ws upgrade failed", "remote_ip", ip, "error", err)
		return
	}

	clientID := uuid.NewString()
	metrics.IncWSConnections("connect")
	metrics.IncWSClients()
	startTime := time.Now()
	h.logger.Info("ws client connected", "client_id", clientID, "remote_ip", ip)

	send := make(chan []byte, sendBuffer)
	unsubscribe := h.bus.SubscribeAll(func(topic clock.Topic, payload any) {
		msg, err := json.Marshal(envelope{Type: string(topic), Data: payload})
		if err != nil {
			return
		}
		select {
		case send <- msg:
		default:
			// Slow consumer: drop the frame instead of blocking the
			// engine's synchronous fan-out.
		}
	})

	defer func() {
		unsubscribe()
		conn.Close()
		h.limiter.release(ip)
		metrics.IncWSConnections("disconnect")
		metrics.DecWSClients()
		h.logger.Info("ws client disconnected",
			"client_id", clientID,
			"remote_ip", ip,
			"duration_s", time.Since(startTime).Seconds(),
		)
	}()

	// Clients only send control frames; the reader exists to service
	// pongs and detect disconnects.
	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, envelope{Type: "connected"}); err != nil {
		return
	}
	if err := h.write(conn, envelope{Type: "state", Data: h.model.State()}); err != nil {
		return
	}

	update := time.NewTicker(h.config.UpdateInterval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		update.Stop()
		ping.Stop()
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-update.C:
			if h.catalog.Len() == 0 {
				continue
			}
			if err := h.write(conn, h.positionsEnvelope()); err != nil {
				return
			}
		}
	}
}

func (h *Hub) positionsEnvelope() envelope {
	simNow := h.model.CurrentTime()
	positions, skipped := track.PositionsAt(h.catalog.All(), simNow)
	return envelope{Type: "positions", Data: positionsFrame{
		Time:      simNow,
		Count:     len(positions),
		Skipped:   skipped,
		Positions: positions,
	}}
}

func (h *Hub) write(conn *websocket.Conn, env envelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
