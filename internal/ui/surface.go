package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"permitdesk/internal/domain"
	"permitdesk/internal/eventbus"
	"permitdesk/internal/panel"
)

// forwardedEvents are the bus events the terminal panel displays
var forwardedEvents = []eventbus.EventType{
	eventbus.EventBackendReady,
	eventbus.EventBackendExited,
	eventbus.EventBackendFailed,
	eventbus.EventRequestForwarded,
	eventbus.EventRequestFailed,
}

// Surface is a panel rendered by a Bubble Tea program in the terminal
type Surface struct {
	id      string
	model   *Model
	program *tea.Program
	bus     eventbus.EventBus
	logger  *zap.Logger

	mu        sync.Mutex
	onMessage func(raw []byte)
	onDispose func()
	disposed  sync.Once
}

// Kind identifies the surface in logs
func (s *Surface) Kind() string { return "terminal" }

// Model returns the program model
func (s *Surface) Model() *Model { return s.model }

// Reveal tells the running program that another open was requested
func (s *Surface) Reveal() {
	go s.program.Send(revealMsg{})
}

// Post delivers a host reply to the program
func (s *Surface) Post(msg domain.Outbound) error {
	s.program.Send(OutboundMsg{Message: msg})
	return nil
}

// OnMessage registers the receiver of panel requests
func (s *Surface) OnMessage(handler func(raw []byte)) {
	s.mu.Lock()
	s.onMessage = handler
	s.mu.Unlock()
}

// OnDispose registers the callback run once the panel goes away
func (s *Surface) OnDispose(handler func()) {
	s.mu.Lock()
	s.onDispose = handler
	s.mu.Unlock()
}

// Dispose quits the program. It is safe to call more than once.
func (s *Surface) Dispose() {
	s.disposed.Do(func() {
		s.program.Quit()
		s.mu.Lock()
		handler := s.onDispose
		s.mu.Unlock()
		if handler != nil {
			handler()
		}
	})
}

func (s *Surface) deliver(raw []byte) {
	s.mu.Lock()
	handler := s.onMessage
	s.mu.Unlock()
	if handler == nil {
		s.logger.Warn("dropping panel request with no receiver")
		return
	}
	handler(raw)
}

// Run runs the program until the user quits or ctx is canceled, then
// disposes the surface
func (s *Surface) Run(ctx context.Context) error {
	if s.bus != nil {
		forward := func(e eventbus.DomainEvent) {
			s.program.Send(EventMsg{Event: e})
		}
		for _, t := range forwardedEvents {
			unsubscribe := s.bus.Subscribe(t, forward)
			defer unsubscribe()
		}
	}

	s.logger.Debug("running terminal panel", zap.String("panel_id", s.id))
	_, err := s.program.Run()
	s.Dispose()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("terminal panel: %w", err)
	}
	return nil
}

// Factory creates terminal surfaces for the panel host
type Factory struct {
	opts Options

	// ProgramOptions are appended to the defaults (alt screen, context).
	ProgramOptions []tea.ProgramOption

	ctx context.Context

	mu      sync.Mutex
	current *Surface
}

// NewFactory creates a factory. Programs it creates stop when ctx is done.
func NewFactory(ctx context.Context, opts Options, programOpts ...tea.ProgramOption) *Factory {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Factory{opts: opts, ProgramOptions: programOpts, ctx: ctx}
}

// CreateSurface builds the model and program. The program starts with Run.
func (f *Factory) CreateSurface(opts panel.SurfaceOptions) (panel.Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil {
		return nil, fmt.Errorf("terminal panel %s is already running", f.current.id)
	}

	model := NewModel(f.opts)
	programOpts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(f.ctx),
	}, f.ProgramOptions...)
	program := tea.NewProgram(model, programOpts...)
	model.SetProgram(program)

	s := &Surface{
		id:      opts.ID,
		model:   model,
		program: program,
		bus:     f.opts.Bus,
		logger:  f.opts.Logger.Named("terminal"),
	}
	model.SetSender(s.deliver)
	f.current = s
	return s, nil
}

// Run runs the most recently created surface
func (f *Factory) Run() error {
	f.mu.Lock()
	s := f.current
	f.mu.Unlock()
	if s == nil {
		return errors.New("no terminal panel to run")
	}

	err := s.Run(f.ctx)

	f.mu.Lock()
	if f.current == s {
		f.current = nil
	}
	f.mu.Unlock()
	return err
}
