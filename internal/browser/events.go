// Package browser models the window surface the auth widget talks to:
// focus and storage signals, the confirmation prompt, local and session
// storage, and navigation.
package browser

import "sync"

// EventKind names an external session-change signal.
type EventKind string

const (
	// EventFocus fires when the window regains focus.
	EventFocus EventKind = "focus"
	// EventStorage fires when shared storage changes, e.g. from another tab.
	EventStorage EventKind = "storage"
)

// SignalSource delivers external session-change signals.
type SignalSource interface {
	// Subscribe registers handler for kind. The returned function releases
	// the subscription and is safe to call more than once.
	Subscribe(kind EventKind, handler func(EventKind)) (unsubscribe func())
}

// Events is an in-process SignalSource.
type Events struct {
	mutex    sync.Mutex
	handlers map[EventKind]map[uint64]func(EventKind)
	nextID   uint64
}

// NewEvents constructs an empty hub.
func NewEvents() *Events {
	return &Events{handlers: make(map[EventKind]map[uint64]func(EventKind))}
}

// Subscribe implements SignalSource.
func (events *Events) Subscribe(kind EventKind, handler func(EventKind)) func() {
	events.mutex.Lock()
	defer events.mutex.Unlock()
	if events.handlers[kind] == nil {
		events.handlers[kind] = make(map[uint64]func(EventKind))
	}
	handlerID := events.nextID
	events.nextID++
	events.handlers[kind][handlerID] = handler
	var once sync.Once
	return func() {
		once.Do(func() {
			events.mutex.Lock()
			defer events.mutex.Unlock()
			delete(events.handlers[kind], handlerID)
		})
	}
}

// Emit delivers kind to every current handler, outside the hub lock.
func (events *Events) Emit(kind EventKind) {
	events.mutex.Lock()
	handlers := make([]func(EventKind), 0, len(events.handlers[kind]))
	for _, handler := range events.handlers[kind] {
		handlers = append(handlers, handler)
	}
	events.mutex.Unlock()
	for _, handler := range handlers {
		handler(kind)
	}
}

// Listeners reports the number of handlers registered for kind.
func (events *Events) Listeners(kind EventKind) int {
	events.mutex.Lock()
	defer events.mutex.Unlock()
	return len(events.handlers[kind])
}
