package codes

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for reporting and exit status.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindAcquisition
	KindAssembly
	KindSpawn
	KindCollaborator
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindAcquisition:
		return "acquisition error"
	case KindAssembly:
		return "assembly error"
	case KindSpawn:
		return "spawn error"
	case KindCollaborator:
		return "collaborator failure"
	default:
		return "error"
	}
}

// Error is the typed failure surfaced by every layer of cargo-xwin.
type Error struct {
	Kind Kind

	// Key names what failed: a triple, a cache key, a path or a program.
	Key string

	// Code is the child exit code for collaborator failures and the
	// distinguishing code for spawn failures.
	Code int

	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg += " [" + e.Key + "]"
	}
	if e.Kind == KindCollaborator {
		msg += fmt.Sprintf(": exited with code %d", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for this failure.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindConfiguration:
		return ExitConfiguration
	case KindAcquisition:
		return ExitAcquisition
	case KindAssembly:
		return ExitAssembly
	case KindSpawn, KindCollaborator:
		if e.Code != 0 {
			return e.Code
		}
		return ExitFailure
	default:
		return ExitFailure
	}
}

func Configuration(key string, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Key: key, Err: fmt.Errorf(format, args...)}
}

func Acquisition(key string, err error) error {
	return &Error{Kind: KindAcquisition, Key: key, Err: err}
}

func Assembly(key string, format string, args ...any) error {
	return &Error{Kind: KindAssembly, Key: key, Err: fmt.Errorf(format, args...)}
}

// ToolMissing reports a collaborator executable that could not be found.
func ToolMissing(program string, err error) error {
	return &Error{Kind: KindSpawn, Key: program, Code: ExitToolMissing, Err: err}
}

// StartFailed reports a collaborator that exists but could not be started.
func StartFailed(program string, err error) error {
	return &Error{Kind: KindSpawn, Key: program, Code: ExitSpawnFailed, Err: err}
}

// Collaborator reports a child process that ran and exited non-zero.
func Collaborator(program string, code int) error {
	return &Error{Kind: KindCollaborator, Key: program, Code: code}
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}

	return false
}

// ExitCodeFor maps any error to a process exit status.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}

	return ExitFailure
}
