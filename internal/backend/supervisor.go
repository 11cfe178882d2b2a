package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"permitdesk/internal/config"
	"permitdesk/internal/eventbus"
)

// State is the lifecycle state of the supervised backend.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateReady
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Options describes how to locate and launch the backend.
type Options struct {
	// Dir is the backend directory. It is the working directory of the
	// process and the value of PYTHONPATH.
	Dir string

	// Executable and Entry are relative to Dir.
	Executable string
	Entry      string

	// Args are passed to the executable.
	Args []string

	// ReadyMarker is the substring of stdout/stderr that signals readiness.
	ReadyMarker string

	// StartupTimeout bounds the readiness wait.
	StartupTimeout time.Duration

	// OutputLines is how many recent output lines are retained.
	OutputLines int
}

// OptionsFromConfig builds supervisor options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:            cfg.BackendDir(),
		Executable:     cfg.Backend.Executable,
		Entry:          cfg.Backend.Entry,
		Args:           cfg.Backend.Args,
		ReadyMarker:    cfg.Backend.ReadyMarker,
		StartupTimeout: cfg.StartupTimeout(),
	}
}

// Supervisor owns at most one backend process. The zero handle means no
// process is held and the next EnsureRunning will spawn one.
type Supervisor struct {
	mu     sync.Mutex
	opts   Options
	bus    eventbus.EventBus
	logger *zap.Logger

	proc   *process // nil when no backend is held
	state  atomic.Int32
	output *lineRing
}

// process is a single spawned backend
type process struct {
	cmd      *exec.Cmd
	started  time.Time
	done     chan struct{} // closed after Wait returns
	readers  sync.WaitGroup
	ready    atomic.Bool
	exitCode int
	exitErr  error
}

// NewSupervisor creates a supervisor. bus may be nil.
func NewSupervisor(opts Options, bus eventbus.EventBus, logger *zap.Logger) *Supervisor {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = config.DefaultStartupTimeout
	}
	if opts.ReadyMarker == "" {
		opts.ReadyMarker = config.DefaultReadyMarker
	}
	if opts.OutputLines <= 0 {
		opts.OutputLines = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		opts:   opts,
		bus:    bus,
		logger: logger.Named("backend"),
		output: newLineRing(opts.OutputLines),
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Running reports whether a backend process is currently held.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// PID returns the process id of the held backend, or -1.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil || s.proc.cmd.Process == nil {
		return -1
	}
	return s.proc.cmd.Process.Pid
}

// Output returns the most recent lines written by the backend.
func (s *Supervisor) Output() []string {
	return s.output.Lines()
}

// Paths returns the absolute executable and entry file paths.
func (s *Supervisor) Paths() (executable, entry string) {
	return filepath.Join(s.opts.Dir, s.opts.Executable), filepath.Join(s.opts.Dir, s.opts.Entry)
}

// Check validates the backend layout without spawning anything.
func (s *Supervisor) Check() error {
	_, _, err := s.locate()
	return err
}

// EnsureRunning spawns the backend if no process is held and waits until
// it prints the readiness marker, exits, or the startup timeout elapses.
// It returns nil immediately when a process is already held.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		return nil
	}

	executable, entry, err := s.locate()
	if err != nil {
		s.logger.Error("backend prerequisites missing", zap.Error(err))
		s.publish(eventbus.BackendFailedEvent{Err: err})
		return err
	}

	s.logger.Info("starting backend",
		zap.String("dir", s.opts.Dir),
		zap.String("executable", executable),
		zap.String("entry", entry),
		zap.Strings("args", s.opts.Args))

	p, ready, err := s.spawn(executable)
	if err != nil {
		s.logger.Error("failed to start backend", zap.Error(err))
		s.publish(eventbus.BackendFailedEvent{Err: err})
		return err
	}

	s.proc = p
	s.state.Store(int32(StateStarting))
	s.publish(eventbus.BackendStartingEvent{PID: p.cmd.Process.Pid, Path: executable})

	timer := time.NewTimer(s.opts.StartupTimeout)
	defer timer.Stop()

	select {
	case <-ready.Done():
	case <-timer.C:
		ready.Resolve(&StartupError{
			Kind: ErrStartupTimeout,
			Msg:  fmt.Sprintf("backend server failed to start within %s", s.opts.StartupTimeout),
		})
	case <-ctx.Done():
		ready.Resolve(&StartupError{Kind: ErrSpawn, Msg: "backend startup canceled", Err: ctx.Err()})
	}

	if err := ready.Err(); err != nil {
		s.logger.Error("backend did not become ready", zap.Error(err))
		s.proc = nil
		s.state.Store(int32(StateNotStarted))
		if killErr := killProcess(p.cmd); killErr != nil {
			s.logger.Warn("failed to kill backend", zap.Error(killErr))
		}
		s.publish(eventbus.BackendFailedEvent{Err: err})
		return err
	}

	p.ready.Store(true)
	s.state.Store(int32(StateReady))
	elapsed := time.Since(p.started)
	s.logger.Info("backend ready", zap.Int("pid", p.cmd.Process.Pid), zap.Duration("elapsed", elapsed))
	s.publish(eventbus.BackendReadyEvent{PID: p.cmd.Process.Pid, Elapsed: elapsed})
	return nil
}

// Stop kills the held backend and clears the handle. It waits briefly for
// the process to be reaped.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	p := s.proc
	s.proc = nil
	s.state.Store(int32(StateNotStarted))
	s.mu.Unlock()

	if p == nil {
		return ErrNotRunning
	}

	s.logger.Info("stopping backend", zap.Int("pid", p.cmd.Process.Pid))
	if err := killProcess(p.cmd); err != nil {
		return fmt.Errorf("failed to kill backend: %w", err)
	}

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		return fmt.Errorf("backend pid %d did not exit after kill", p.cmd.Process.Pid)
	}
	waitTimeout(&p.readers, time.Second)
	return nil
}

// locate resolves and validates the executable and entry paths
func (s *Supervisor) locate() (string, string, error) {
	if s.opts.Dir == "" {
		return "", "", notFound("backend directory is not configured")
	}
	info, err := os.Stat(s.opts.Dir)
	if err != nil || !info.IsDir() {
		return "", "", notFound("backend directory not found at %s", s.opts.Dir)
	}

	executable, entry := s.Paths()
	if _, err := os.Stat(executable); err != nil {
		return "", "", notFound("executable not found at %s. Make sure the virtual environment is set up.", executable)
	}
	if _, err := os.Stat(entry); err != nil {
		return "", "", notFound("backend app not found at %s", entry)
	}
	return executable, entry, nil
}

// spawn starts the process and the goroutines that watch it
func (s *Supervisor) spawn(executable string) (*process, *completion, error) {
	cmd := exec.Command(executable, s.opts.Args...)
	cmd.Dir = s.opts.Dir
	cmd.Env = buildEnv(os.Environ(), filepath.Dir(executable), s.opts.Dir)
	setProcessGroup(cmd)

	// Plain os pipes so that Wait does not depend on draining output
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, nil, &StartupError{Kind: ErrSpawn, Msg: "stdout pipe", Err: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, nil, &StartupError{Kind: ErrSpawn, Msg: "stderr pipe", Err: err}
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, nil, &StartupError{Kind: ErrSpawn, Msg: "failed to start backend", Err: err}
	}
	// The child owns the write ends now
	stdoutW.Close()
	stderrW.Close()

	p := &process{
		cmd:      cmd,
		started:  time.Now(),
		done:     make(chan struct{}),
		exitCode: -1,
	}
	ready := newCompletion()

	p.readers.Add(2)
	go s.scan(p, "stdout", stdoutR, ready)
	go s.scan(p, "stderr", stderrR, ready)
	go s.monitor(p, ready)

	return p, ready, nil
}

// scan reads one output stream line by line, recording and logging each
// line and resolving readiness on the first marker
func (s *Supervisor) scan(p *process, stream string, r io.ReadCloser, ready *completion) {
	defer p.readers.Done()
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s.output.Add(line)
		s.logger.Debug("backend output", zap.String("stream", stream), zap.String("line", line))
		s.publish(eventbus.BackendOutputEvent{Stream: stream, Line: line})

		if strings.Contains(line, s.opts.ReadyMarker) {
			ready.Resolve(nil)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Warn("backend output read failed", zap.String("stream", stream), zap.Error(err))
	}
}

// monitor waits for the process to exit and clears the handle if it is
// still the held one
func (s *Supervisor) monitor(p *process, ready *completion) {
	err := p.cmd.Wait()
	p.exitErr = err
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	close(p.done)

	// Give the readers a moment to flush a marker printed right before exit
	waitTimeout(&p.readers, 100*time.Millisecond)
	ready.Resolve(&StartupError{
		Kind: ErrSpawn,
		Msg:  fmt.Sprintf("backend exited before becoming ready (exit code %d)", p.exitCode),
		Err:  err,
	})

	s.mu.Lock()
	held := s.proc == p
	if held {
		s.proc = nil
		s.state.Store(int32(StateNotStarted))
	}
	s.mu.Unlock()

	if !held || !p.ready.Load() {
		return
	}

	fields := []zap.Field{zap.Int("pid", p.cmd.Process.Pid), zap.Int("exit_code", p.exitCode)}
	if p.exitCode != 0 {
		s.logger.Error("backend process exited", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("backend process exited", fields...)
	}
	s.publish(eventbus.BackendExitedEvent{PID: p.cmd.Process.Pid, ExitCode: p.exitCode, Err: err})
}

func (s *Supervisor) publish(e eventbus.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
