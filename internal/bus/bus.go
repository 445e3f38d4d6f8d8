// Package bus provides the in-process publish/subscribe channel the
// clock engine publishes through. Delivery is synchronous: Publish
// calls every matching handler inline before returning, so a handler
// always observes the engine state that produced the notification.
// Handlers that fan out to slow consumers (e.g. WebSocket clients) must
// enqueue rather than block.
package bus

import (
	"sync"

	"github.com/skywatch/skywatch/internal/clock"
)

// Handler receives a published notification.
type Handler func(topic clock.Topic, payload any)

// Bus is a topic-keyed synchronous notifier. The zero value is not
// usable; create one with New.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	topics map[clock.Topic]map[int]Handler
	all    map[int]Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		topics: make(map[clock.Topic]map[int]Handler),
		all:    make(map[int]Handler),
	}
}

// Publish delivers the payload to every handler subscribed to the topic
// and every all-topics handler, inline on the caller's goroutine.
func (b *Bus) Publish(topic clock.Topic, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.topics[topic])+len(b.all))
	for _, h := range b.topics[topic] {
		handlers = append(handlers, h)
	}
	for _, h := range b.all {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(topic, payload)
	}
}

// Subscribe registers a handler for one topic. The returned function
// removes the subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(topic clock.Topic, h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]Handler)
	}
	b.topics[topic][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.topics[topic], id)
		b.mu.Unlock()
	}
}

// SubscribeAll registers a handler for every topic.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.all[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.all, id)
		b.mu.Unlock()
	}
}
