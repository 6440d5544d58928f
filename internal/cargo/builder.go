// Package cargo builds and runs cargo command lines.
package cargo

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// JSONMessageFormat makes cargo print artifacts as JSON on stdout while
// still rendering diagnostics for humans on stderr.
const JSONMessageFormat = "json-render-diagnostics"

// Invocation is one cargo command line.
type Invocation struct {
	Subcommand string

	// MSVC and passthrough triples, each passed as --target
	Targets []string

	// Everything else given to cargo, in order
	CargoArgs []string

	// Arguments after --
	ProgramArgs []string

	ManifestPath string
	WorkDir      string
	TargetDir    string
}

// CommandBuilder handles building and running cargo commands
type CommandBuilder struct {
	// Path or name of the cargo executable
	Program string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	execCommand utils.ExecFunc
}

// NewCommandBuilder creates a builder for the cargo named by CARGO, which
// cargo sets when it runs cargo-xwin as a subcommand.
func NewCommandBuilder(host utils.Host) *CommandBuilder {
	program := os.Getenv("CARGO")
	if program == "" {
		program = "cargo"
	}

	return &CommandBuilder{
		Program:     program,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		execCommand: host.Exec,
	}
}

// BuildCommandArgs builds the cargo argument list for inv
func (cb *CommandBuilder) BuildCommandArgs(inv Invocation) []string {
	args := []string{inv.Subcommand}

	for _, t := range inv.Targets {
		args = append(args, "--target", t)
	}

	args = append(args, inv.CargoArgs...)

	if len(inv.ProgramArgs) > 0 {
		args = append(args, "--")
		args = append(args, inv.ProgramArgs...)
	}

	return args
}

// ExecuteCommand runs cargo with the given environment, streaming its
// output. A non-zero exit is returned as a collaborator failure with
// cargo's own exit code.
func (cb *CommandBuilder) ExecuteCommand(ctx context.Context, inv Invocation, env []string) error {
	return cb.run(ctx, inv, env, cb.Stdin, cb.Stdout)
}

// CollectArtifacts runs inv with JSON messages on stdout and returns the
// artifacts cargo reported. ProgramArgs are not passed to cargo.
func (cb *CommandBuilder) CollectArtifacts(ctx context.Context, inv Invocation, env []string) ([]Artifact, error) {
	inv.CargoArgs = WithMessageFormat(inv.CargoArgs, JSONMessageFormat)
	inv.ProgramArgs = nil

	mw := newMessageWriter(cb.Stdout)
	err := cb.run(ctx, inv, env, cb.Stdin, mw)
	mw.Flush()

	return mw.Artifacts(), err
}

func (cb *CommandBuilder) run(ctx context.Context, inv Invocation, env []string, stdin io.Reader, stdout io.Writer) error {
	args := cb.BuildCommandArgs(inv)
	console.Debugf("running %s %s", cb.Program, strings.Join(args, " "))

	return utils.Spawn(ctx, cb.execCommand, utils.Command{
		Name:   cb.Program,
		Args:   args,
		Dir:    inv.WorkDir,
		Env:    env,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: cb.Stderr,
	})
}

// WithMessageFormat replaces any --message-format the user gave with
// format.
func WithMessageFormat(args []string, format string) []string {
	out := make([]string, 0, len(args)+1)
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = args[i:]
			break
		}

		if arg == "--message-format" {
			i++
			continue
		}

		if strings.HasPrefix(arg, "--message-format=") {
			continue
		}

		out = append(out, arg)
	}

	out = append(out, "--message-format="+format)

	return append(out, rest...)
}
