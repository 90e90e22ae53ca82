package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from the transports
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to connected frontends.
// The desktop App delegates to wailsRuntime.EventsEmit; the HTTP server
// fans events out to websocket clients.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Events emitted by the services.
const (
	EventElementCreated   = "element:created"
	EventElementUpdated   = "element:updated"
	EventElementDeleted   = "element:deleted"
	EventSelectionChanged = "selection:changed"
	EventPageSwitched     = "page:switched"
	EventPageAutosaved    = "page:autosaved"
	EventHistoryChanged   = "history:changed"
	EventMediaAdded       = "media:added"
	EventBuildDeployed    = "build:deployed"
	EventLicenseActivated = "license:activated"
	EventConfigChanged    = "config:changed"
)

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event string, data any)

func (f EmitterFunc) Emit(ctx context.Context, event string, data any) { f(ctx, event, data) }

// MultiEmitter fans every event out to each emitter in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event, data)
		}
	}
}

// LogEmitter writes every event name to the debug log.
type LogEmitter struct {
	Log *zap.Logger
}

func (l LogEmitter) Emit(_ context.Context, event string, _ any) {
	if l.Log != nil {
		l.Log.Debug("event", zap.String("event", event))
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.Event
	}
	return names
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}
