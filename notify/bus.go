// Package notify provides an in-process event bus the sync client
// publishes task changes on, with a bounded history that UI layers can
// render as an activity feed.
package notify

import (
	"sync"

	"github.com/closerbase/tasksync/task"
)

// EventType identifies what happened to a task.
type EventType string

const (
	TaskCreated   EventType = "task.created"
	TaskQueued    EventType = "task.queued" // created offline, cached locally
	TaskCompleted EventType = "task.completed"
	TaskReopened  EventType = "task.reopened"
	TaskSnoozed   EventType = "task.snoozed"
	TaskUnsnoozed EventType = "task.unsnoozed"
	SyncCompleted EventType = "sync.completed"
)

// Event is a single task change. Task is set for task events; Created
// and Skipped are set for SyncCompleted.
type Event struct {
	Type    EventType
	Task    *task.Task
	Created int
	Skipped int
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus is a thread-safe broadcast-only event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	history  []Event
	maxHist  int
}

// NewBus creates a Bus with a 200-event history cap.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[int]Handler),
		maxHist:  200,
	}
}

// Publish delivers an event to every subscriber and appends it to the
// history.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	targets := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		targets = append(targets, h)
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(ev)
	}
}

// Subscribe registers a handler for all events. The returned function
// unsubscribes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Recent returns up to limit events, oldest first. A non-positive limit
// returns the whole history.
func (b *Bus) Recent(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if limit > 0 && len(b.history) > limit {
		start = len(b.history) - limit
	}
	out := make([]Event, len(b.history)-start)
	copy(out, b.history[start:])
	return out
}
