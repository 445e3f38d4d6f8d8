package stream

import "sync"

// connLimiter tracks concurrent WebSocket connections per IP and
// globally.
type connLimiter struct {
	mu          sync.Mutex
	connections map[string]int
	total       int
	maxPerIP    int
	maxTotal    int
}

func newConnLimiter(maxPerIP int) *connLimiter {
	return &connLimiter{
		connections: make(map[string]int),
		maxPerIP:    maxPerIP,
		maxTotal:    1000, // Default global cap.
	}
}

// acquire attempts to register a new connection for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *connLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.connections[ip] >= l.maxPerIP {
		return false
	}

	l.connections[ip]++
	l.total++
	return true
}

// release decrements the connection count for the given IP.
func (l *connLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.connections[ip]--
	l.total--
	if l.connections[ip] <= 0 {
		delete(l.connections, ip)
	}
}

// count returns the current connection count for the given IP.
func (l *connLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connections[ip]
}
