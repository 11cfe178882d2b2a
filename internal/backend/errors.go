package backend

import (
	"errors"
	"fmt"
)

// Startup failure kinds. Match with errors.Is.
var (
	// ErrNotFound indicates the backend directory, executable or entry file is missing.
	ErrNotFound = errors.New("backend not found")

	// ErrSpawn indicates the process could not be started or died before becoming ready.
	ErrSpawn = errors.New("backend spawn failed")

	// ErrStartupTimeout indicates the readiness marker was never observed.
	ErrStartupTimeout = errors.New("backend startup timed out")

	// ErrNotRunning is returned by Stop when no process is held.
	ErrNotRunning = errors.New("backend not running")
)

// StartupError describes why EnsureRunning failed
type StartupError struct {
	Kind error
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *StartupError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Is reports whether target is the failure kind of this error.
func (e *StartupError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *StartupError) Unwrap() error {
	return e.Err
}

func notFound(format string, args ...any) error {
	return &StartupError{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}
