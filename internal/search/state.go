package search

import (
	"fmt"

	"github.com/google/uuid"

	"permitdesk/internal/config"
	"permitdesk/internal/domain"
)

// Phase of the current submission.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseDisplayed
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseDisplayed:
		return "displayed"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// State tracks one pending submission and the last result. It is not safe
// for concurrent use; the UI owns it.
type State struct {
	Phase   Phase
	Permits []domain.Permit
	Err     string

	radius  string
	pending string
	last    Request
	newID   func() string
}

// NewState creates an idle state that uses radius for nearby searches.
func NewState(radius string) *State {
	if radius == "" {
		radius = config.DefaultRadius
	}
	return &State{radius: radius, newID: uuid.NewString}
}

// Loading reports whether a response is outstanding.
func (s *State) Loading() bool {
	return s.Phase == PhaseLoading
}

// Pending returns the correlation id of the outstanding request.
func (s *State) Pending() string {
	return s.pending
}

// Last returns the most recent submission.
func (s *State) Last() Request {
	return s.last
}

// Begin derives the request for a submission and enters loading. Invalid
// input is returned as an error and leaves the state untouched.
func (s *State) Begin(req Request) (domain.Request, error) {
	out, err := Derive(req, s.radius)
	if err != nil {
		return domain.Request{}, err
	}
	out.ID = s.newID()

	s.Err = ""
	s.Phase = PhaseLoading
	s.pending = out.ID
	s.last = req
	return out, nil
}

// Retry re-issues the list-all search: empty query, all statuses.
func (s *State) Retry() (domain.Request, error) {
	return s.Begin(Request{Mode: ModeName, Status: StatusAll})
}

// Receive applies an outbound message. Messages tagged with an id other
// than the pending one are stale and ignored; it reports whether msg was
// applied.
func (s *State) Receive(msg domain.Outbound) bool {
	if msg.ID != "" && msg.ID != s.pending {
		return false
	}

	switch msg.Type {
	case domain.OutboundResponse:
		permits, err := domain.DecodePermits(msg.Data)
		if err != nil {
			s.fail(fmt.Sprintf("unexpected response: %v", err))
			break
		}
		s.Permits = permits
		s.Err = ""
		s.Phase = PhaseDisplayed
	case domain.OutboundError:
		s.fail(msg.Error)
	default:
		return false
	}
	s.pending = ""
	return true
}

func (s *State) fail(msg string) {
	s.Err = msg
	s.Phase = PhaseErrored
}
