package utils

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
)

// Command describes a child process.
type Command struct {
	Name string
	Args []string
	Dir  string

	// Complete child environment; nil inherits the current one
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Commander interface for testing
type Commander interface {
	Run() error
}

// ExecFunc creates a runnable process; tests replace it.
type ExecFunc func(ctx context.Context, c Command) Commander

type failedCommand struct {
	err error
}

func (f failedCommand) Run() error {
	return f.err
}

// Exec prepares c with exec.CommandContext. Bare names are looked up on
// the PATH the child will see, not the PATH of this process. A program
// that cannot be found fails with exec.ErrNotFound.
func (h Host) Exec(ctx context.Context, c Command) Commander {
	name := c.Name
	if !strings.ContainsAny(name, `/\`) {
		path, err := h.LookPathIn(name, h.pathOf(c.Env))
		if err != nil {
			return failedCommand{err: &exec.Error{Name: name, Err: exec.ErrNotFound}}
		}
		name = path
	} else {
		path := name
		if c.Dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(c.Dir, path)
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return failedCommand{err: &exec.Error{Name: name, Err: exec.ErrNotFound}}
		}
	}

	cmd := exec.CommandContext(ctx, name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	return cmd
}

func (h Host) pathOf(env []string) string {
	if env == nil {
		return os.Getenv("PATH")
	}

	value := ""
	for _, e := range env {
		name, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}

		if name == "PATH" || (h.IsWindows() && strings.EqualFold(name, "PATH")) {
			value = v
		}
	}

	return value
}

// Spawn runs c to completion and classifies failures: a missing program
// is ToolMissing, one that cannot start is StartFailed and a non-zero exit
// is a Collaborator failure carrying the child's code.
func Spawn(ctx context.Context, run ExecFunc, c Command) error {
	err := run(ctx, c).Run()
	if err == nil {
		return nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return codes.ToolMissing(c.Name, err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return codes.Collaborator(c.Name, ExitCodeOf(exitErr))
	}

	return codes.StartFailed(c.Name, err)
}

// ExitCodeOf returns the exit status of a finished child, 128+signal when
// it was killed by a signal.
func ExitCodeOf(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return 128 + int(status.Signal())
		}
		return status.ExitStatus()
	}

	if code := exitErr.ExitCode(); code > 0 {
		return code
	}

	return codes.ExitFailure
}
