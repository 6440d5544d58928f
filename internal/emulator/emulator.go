// Package emulator executes Windows binaries on the host, through Wine or
// another runner when the host cannot run them natively.
package emulator

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/config"
	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// ExecutionRequest is one binary to run.
type ExecutionRequest struct {
	Triple string
	Binary string
	Args   []string
}

// Emulator runs binaries built for MSVC targets.
type Emulator struct {
	Host utils.Host

	// Runner command line; empty runs binaries directly
	Runner []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	execCommand utils.ExecFunc
}

// New creates an emulator for host. On Windows hosts binaries always run
// directly and runner is ignored.
func New(host utils.Host, runner []string) *Emulator {
	e := &Emulator{
		Host:        host,
		Runner:      runner,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		execCommand: host.Exec,
	}

	if host.IsWindows() {
		e.Runner = nil
	}

	return e
}

// ResolveRunner picks the runner for triple: the user's
// CARGO_TARGET_<T>_RUNNER, else target.<triple>.runner from cargo config,
// else the configured runner.
func ResolveRunner(triple string, userEnv map[string]string, cargo *config.CargoConfig, configured string) []string {
	if v := userEnv[RunnerVar(triple)]; strings.TrimSpace(v) != "" {
		return strings.Fields(v)
	}

	if cargo != nil {
		if r := cargo.TargetRunners[triple]; len(r) > 0 {
			return r
		}
	}

	return strings.Fields(configured)
}

// RunnerVar is the variable cargo reads a target runner from
func RunnerVar(triple string) string {
	return "CARGO_TARGET_" + target.CargoEnvName(triple) + "_RUNNER"
}

// Command returns the program and arguments that execute req.
func (e *Emulator) Command(req ExecutionRequest) (string, []string) {
	if len(e.Runner) == 0 {
		return req.Binary, req.Args
	}

	args := append([]string(nil), e.Runner[1:]...)
	args = append(args, req.Binary)
	args = append(args, req.Args...)

	return e.Runner[0], args
}

// Env extends env for the runner: Wine debug output is silenced and cargo
// is told about the runner, unless the user set either.
func (e *Emulator) Env(env []string, triples ...string) []string {
	if len(e.Runner) == 0 {
		return env
	}

	has := func(name string) bool {
		for _, kv := range env {
			if k, _, ok := strings.Cut(kv, "="); ok && k == name {
				return true
			}
		}
		return false
	}

	out := append([]string(nil), env...)
	if !has("WINEDEBUG") {
		out = append(out, "WINEDEBUG=-all")
	}

	for _, t := range triples {
		if name := RunnerVar(t); !has(name) {
			out = append(out, name+"="+strings.Join(e.Runner, " "))
		}
	}

	return out
}

// Execute runs req with env and returns the binary's exit status as a
// collaborator failure when non-zero.
func (e *Emulator) Execute(ctx context.Context, req ExecutionRequest, env []string, dir string) error {
	name, args := e.Command(req)
	console.Debugf("running %s %s", name, strings.Join(args, " "))

	return utils.Spawn(ctx, e.execCommand, utils.Command{
		Name:   name,
		Args:   args,
		Dir:    dir,
		Env:    e.Env(env, req.Triple),
		Stdin:  e.Stdin,
		Stdout: e.Stdout,
		Stderr: e.Stderr,
	})
}
