package domain

import "time"

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventBackendStarting  EventType = "BackendStarting"
	EventBackendReady     EventType = "BackendReady"
	EventBackendExited    EventType = "BackendExited"
	EventBackendFailed    EventType = "BackendFailed"
	EventBackendOutput    EventType = "BackendOutput"
	EventPanelOpened      EventType = "PanelOpened"
	EventPanelRevealed    EventType = "PanelRevealed"
	EventPanelDisposed    EventType = "PanelDisposed"
	EventRequestForwarded EventType = "RequestForwarded"
	EventRequestFailed    EventType = "RequestFailed"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// BackendStartingEvent is emitted right after the backend process is spawned
type BackendStartingEvent struct {
	PID  int
	Path string
}

func (e BackendStartingEvent) Type() EventType { return EventBackendStarting }

// BackendReadyEvent is emitted when the readiness marker is observed
type BackendReadyEvent struct {
	PID     int
	Elapsed time.Duration
}

func (e BackendReadyEvent) Type() EventType { return EventBackendReady }

// BackendExitedEvent is emitted when a running backend process exits
type BackendExitedEvent struct {
	PID      int
	ExitCode int
	Err      error
}

func (e BackendExitedEvent) Type() EventType { return EventBackendExited }

// BackendFailedEvent is emitted when the backend could not be started
type BackendFailedEvent struct {
	Err error
}

func (e BackendFailedEvent) Type() EventType { return EventBackendFailed }

// BackendOutputEvent carries a single line of backend stdout/stderr
type BackendOutputEvent struct {
	Stream string // "stdout" or "stderr"
	Line   string
}

func (e BackendOutputEvent) Type() EventType { return EventBackendOutput }

// PanelOpenedEvent is emitted when a new panel surface is created
type PanelOpenedEvent struct {
	PanelID string
	Kind    string
}

func (e PanelOpenedEvent) Type() EventType { return EventPanelOpened }

// PanelRevealedEvent is emitted when an existing panel is focused instead of recreated
type PanelRevealedEvent struct {
	PanelID string
}

func (e PanelRevealedEvent) Type() EventType { return EventPanelRevealed }

// PanelDisposedEvent is emitted when the panel is closed
type PanelDisposedEvent struct {
	PanelID string
}

func (e PanelDisposedEvent) Type() EventType { return EventPanelDisposed }

// RequestForwardedEvent is emitted after a request was proxied successfully
type RequestForwardedEvent struct {
	RequestID string
	Endpoint  string
	Duration  time.Duration
}

func (e RequestForwardedEvent) Type() EventType { return EventRequestForwarded }

// RequestFailedEvent is emitted when a panel request ended in an error message
type RequestFailedEvent struct {
	RequestID string
	Endpoint  string
	Message   string
}

func (e RequestFailedEvent) Type() EventType { return EventRequestFailed }
