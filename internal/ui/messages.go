package ui

import (
	"time"

	"permitdesk/internal/domain"
	"permitdesk/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// OutboundMsg carries a host reply into the program
type OutboundMsg struct {
	Message domain.Outbound
}

// revealMsg is sent when the host is asked to open an already open panel
type revealMsg struct{}

// sentMsg reports that a request left the panel
type sentMsg struct {
	id string
}

// pagerDoneMsg contains the result of a pager command
type pagerDoneMsg struct {
	what string
	err  error
}

// clearStatusMsg clears the status line if it still shows the same message
type clearStatusMsg struct {
	at time.Time
}

// pauseRenderingMsg signals to pause Bubble Tea rendering
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals to resume Bubble Tea rendering
type resumeRenderingMsg struct{}
