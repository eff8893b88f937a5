// Package events provides an in-process notification bus with an explicit
// subscriber lifecycle, replacing ad hoc globally shared callbacks.
package events

import (
	"sync"
	"time"
)

// Event types published by the analysis pipeline.
const (
	TypeAnalysisStarted   = "analysis.started"
	TypeAnalysisCompleted = "analysis.completed"
	TypeAnalysisFailed    = "analysis.failed"
)

// Event describes a notification about an analysis run.
type Event struct {
	Type       string
	UserID     string
	ResumeID   string
	AnalysisID string
	Message    string
	At         time.Time
}

// Handler receives published events. Handlers must not block for long;
// publishing is synchronous.
type Handler func(Event)

// Bus fans events out to registered subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]Handler
	nextID int
	closed bool
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers a handler and returns a function that removes it.
// Subscribing to a closed bus returns a no-op unsubscribe.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers the event to all current subscribers. Handlers run
// outside the bus lock so a subscriber may unsubscribe from within.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Close detaches all subscribers; further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int]Handler)
}
