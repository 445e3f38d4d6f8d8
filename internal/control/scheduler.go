// Package control drives the simulation clock: real-time tracking,
// rewind/fast-forward animation, discrete stepping, and window presets.
// At most one driver holds the repeating-schedule slot at a time; each
// driver's Start tears down whichever schedule is active before
// installing its own.
package control

import (
	"sync"
	"time"
)

// Task is a cancellable repeating schedule. Stop is idempotent and
// clears the future schedule; it cannot abort a tick already running,
// but ticks run to completion on a single goroutine so no two ticks of
// a task are ever in flight together.
type Task interface {
	Stop()
}

// Scheduler installs repeating tasks. Schedule runs fn once after
// delay, then every interval until the returned Task is stopped.
type Scheduler interface {
	Schedule(delay, interval time.Duration, fn func()) Task
}

// NewTickerScheduler returns the wall-clock Scheduler used in
// production, backed by time.Timer and time.Ticker.
func NewTickerScheduler() Scheduler {
	return tickerScheduler{}
}

type tickerScheduler struct{}

func (tickerScheduler) Schedule(delay, interval time.Duration, fn func()) Task {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := &tickerTask{stop: make(chan struct{})}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-t.stop:
			return
		case <-timer.C:
		}
		fn()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	once sync.Once
	stop chan struct{}
}

func (t *tickerTask) Stop() {
	t.once.Do(func() { close(t.stop) })
}
