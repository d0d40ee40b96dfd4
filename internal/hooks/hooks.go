// Package hooks provides an event-driven hook system for runtime lifecycle events.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/soyeahso/agentcore/internal/logging"
)

// Event names for the hook system.
const (
	EventServerStart         = "server_start"
	EventServerStop          = "server_stop"
	EventInvocationReceived  = "invocation_received"
	EventInvocationCompleted = "invocation_completed"
	EventToolCall            = "tool_call"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventServerStart,
	EventServerStop,
	EventInvocationReceived,
	EventInvocationCompleted,
	EventToolCall,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	At    time.Time      `json:"at"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event. Registering a name that is
// already present on the event replaces that handler in place.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nh := namedHandler{name: name, handler: handler}
	handlers := m.handlers[event]
	if i := slices.IndexFunc(handlers, func(h namedHandler) bool { return h.name == name }); i >= 0 {
		handlers[i] = nh
	} else {
		m.handlers[event] = append(handlers, nh)
	}
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes the handler with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = slices.DeleteFunc(m.handlers[event], func(h namedHandler) bool {
		return h.name == name
	})
}

// Emit dispatches an event to all registered handlers synchronously, in
// registration order. The request and session ids carried by ctx are added
// to data unless already present. Handler errors and panics are logged and
// never reach the emitter. A nil Manager drops the event.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	if m == nil {
		return
	}
	m.mu.RLock()
	handlers := slices.Clone(m.handlers[event])
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	for k, v := range Fields(ctx) {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}
	payload := Payload{Event: event, At: time.Now(), Data: data}

	for _, h := range handlers {
		if err := m.call(ctx, h, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

func (m *Manager) call(ctx context.Context, h namedHandler, p Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.handler(ctx, p)
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the sorted list of events that have at least one handler registered.
func (m *Manager) Events() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	slices.Sort(events)
	return events
}
