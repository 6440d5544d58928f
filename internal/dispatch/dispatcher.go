// Package dispatch drives one cargo-xwin invocation: it resolves targets,
// prepares their payloads and environment, then runs cargo and, for run
// and test, the produced binaries.
package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/cargo-xwin/internal/cache"
	"github.com/Norgate-AV/cargo-xwin/internal/cargo"
	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/config"
	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/emulator"
	"github.com/Norgate-AV/cargo-xwin/internal/env"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
	"github.com/Norgate-AV/cargo-xwin/internal/toolchain"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// Payloads provides ready SDK payloads
type Payloads interface {
	Ensure(ctx context.Context, spec target.Spec) (cache.Root, error)
}

// BuildTool runs cargo
type BuildTool interface {
	ExecuteCommand(ctx context.Context, inv cargo.Invocation, env []string) error
	CollectArtifacts(ctx context.Context, inv cargo.Invocation, env []string) ([]cargo.Artifact, error)
	Metadata(ctx context.Context, inv cargo.Invocation, env []string) (*cargo.Metadata, error)
}

// Emulation runs built binaries
type Emulation interface {
	Execute(ctx context.Context, req emulator.ExecutionRequest, env []string, dir string) error
	Env(env []string, triples ...string) []string
}

// ShimInstaller links LLVM tool names missing from PATH
type ShimInstaller interface {
	Install(ctx context.Context, b *compiler.Backend, pathValue string) ([]string, error)
}

// Dispatcher runs invocations against one configuration.
type Dispatcher struct {
	Config *config.Config
	Cargo  *config.CargoConfig
	Host   utils.Host

	// Environment of the current process
	Environ []string

	Payloads Payloads
	Build    BuildTool

	// Optional; ShimDir is added to PATH when set
	Shims   ShimInstaller
	ShimDir string

	NewEmulator func(runner []string) Emulation

	mu    sync.Mutex
	state State
}

// Prepared is everything computed for an invocation before cargo runs.
type Prepared struct {
	Invocation cargo.Invocation
	Specs      []target.Spec

	// Plans in the order of Specs
	Plans []*env.Plan

	// Complete child environment
	Env []string

	// User environment the plans were computed against
	User map[string]string
}

// State returns the most recent state
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

func (d *Dispatcher) transition(s State, subject string) {
	d.mu.Lock()
	prev := d.state
	d.state = s
	d.mu.Unlock()

	if subject != "" {
		console.Debugf("%s -> %s (%s)", prev, s, subject)
	} else {
		console.Debugf("%s -> %s", prev, s)
	}
}

// Dispatch runs inv to completion. Collaborator exit codes come back as
// codes.Error values carrying the child's status.
func (d *Dispatcher) Dispatch(ctx context.Context, inv cargo.Invocation) (err error) {
	defer func() {
		if err != nil {
			d.transition(Failed, err.Error())
		} else {
			d.transition(Completed, "")
		}
	}()

	info := Lookup(inv.Subcommand)
	if !info.NeedsEnv {
		d.transition(InvokingBuildTool, inv.Subcommand)
		return d.Build.ExecuteCommand(ctx, inv, d.baseEnv())
	}

	prep, err := d.Prepare(ctx, inv)
	if err != nil {
		return err
	}

	if console.IsVerbose() {
		console.Debugf("prepared:\n%s", prep.Describe())
	}

	// cargo test runs each test binary through CARGO_TARGET_<T>_RUNNER
	// itself, from the package directory and with the test filter.
	child := d.withRunners(prep)

	if info.Mode == Emulate && Canonical(inv.Subcommand) == "run" {
		return d.run(ctx, prep, child)
	}

	d.transition(InvokingBuildTool, inv.Subcommand)
	return d.Build.ExecuteCommand(ctx, prep.Invocation, child)
}

// Prepare resolves inv's targets and computes their environment. Target
// pipelines run in parallel, at most Config.Jobs at a time.
func (d *Dispatcher) Prepare(ctx context.Context, inv cargo.Invocation) (*Prepared, error) {
	d.transition(ResolvingTargets, strings.Join(inv.Targets, ","))

	opts := target.FromConfig(d.Config)

	triples := inv.Targets
	if len(triples) == 0 {
		triples = target.DefaultTriples(opts, d.Cargo, d.Host)
		console.Debugf("no --target given, using %s", strings.Join(triples, ","))
	}

	specs, passthrough, err := target.Resolve(triples, opts)
	if err != nil {
		return nil, err
	}

	for _, t := range passthrough {
		console.Debugf("%s is not an MSVC target, leaving it to cargo", t)
	}

	inv.Targets = unique(triples)

	base := d.baseEnv()
	user := env.Environ(base)

	var targetDir, shimDir string
	if len(specs) > 0 {
		targetDir = d.targetDir(ctx, inv, base, user)
		shimDir = d.installShims(ctx, specs, user)
	}

	plans := make([]*env.Plan, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.Config.Jobs, 1))

	for i, spec := range specs {
		g.Go(func() error {
			plan, err := d.pipeline(gctx, spec, user, targetDir, shimDir)
			if err != nil {
				return err
			}

			plans[i] = plan
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Prepared{
		Invocation: inv,
		Specs:      specs,
		Plans:      plans,
		Env:        env.Overlay(d.Host, base, nil, plans...),
		User:       user,
	}, nil
}

func (d *Dispatcher) pipeline(ctx context.Context, spec target.Spec, user map[string]string, targetDir, shimDir string) (*env.Plan, error) {
	d.transition(AcquiringSdk, spec.Triple)

	root, err := d.Payloads.Ensure(ctx, spec)
	if err != nil {
		return nil, err
	}

	backend, err := compiler.For(spec.Backend)
	if err != nil {
		return nil, codes.Configuration(spec.Triple, "%w", err)
	}

	d.transition(AssemblingEnvironment, spec.Triple)

	plan, err := env.Assemble(spec, root.Dir, backend, env.Inputs{
		Host:      d.Host,
		Env:       user,
		Cargo:     d.Cargo,
		TargetDir: targetDir,
		ShimDir:   shimDir,
	})
	if err != nil {
		return nil, err
	}

	d.transition(GeneratingToolchain, spec.Triple)

	desc, err := toolchain.Render(plan)
	if err != nil {
		return nil, codes.Assembly(spec.Triple, "%w", err)
	}

	if plan.ToolchainFile != "" {
		if err := toolchain.Write(desc, filepath.FromSlash(plan.ToolchainFile)); err != nil {
			return nil, codes.Assembly(spec.Triple, "%w", err)
		}
	}

	return plan, nil
}

// baseEnv is the process environment with config file overrides applied
func (d *Dispatcher) baseEnv() []string {
	return env.Overlay(d.Host, d.Environ, d.Config.Env)
}

// targetDir finds the directory cargo builds into. cargo metadata knows
// about workspaces, CARGO_TARGET_DIR and build.target-dir.
func (d *Dispatcher) targetDir(ctx context.Context, inv cargo.Invocation, base []string, user map[string]string) string {
	workDir := inv.WorkDir
	if workDir == "" {
		workDir = "."
	}

	abs := func(p string) string {
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}

	if inv.TargetDir != "" {
		return abs(inv.TargetDir)
	}

	m, err := d.Build.Metadata(ctx, inv, base)
	if err == nil && m.TargetDirectory != "" {
		return m.TargetDirectory
	}
	console.Debugf("cargo metadata unavailable: %v", err)

	if v := user["CARGO_TARGET_DIR"]; v != "" {
		return abs(v)
	}

	if d.Cargo != nil && d.Cargo.TargetDir != "" {
		return d.Cargo.TargetDir
	}

	return abs("target")
}

func (d *Dispatcher) installShims(ctx context.Context, specs []target.Spec, user map[string]string) string {
	if d.Shims == nil || d.ShimDir == "" || len(specs) == 0 {
		return ""
	}

	pathValue := lookupEnv(d.Host, user, "PATH")

	var done []target.Backend
	for _, spec := range specs {
		if slices.Contains(done, spec.Backend) {
			continue
		}
		done = append(done, spec.Backend)

		b, err := compiler.For(spec.Backend)
		if err != nil {
			continue
		}

		if _, err := d.Shims.Install(ctx, b, pathValue); err != nil {
			console.Warnf("%v", err)
		}
	}

	return d.ShimDir
}

func (d *Dispatcher) emulatorFor(triple string, user map[string]string) Emulation {
	if !target.IsMSVC(triple) {
		return d.NewEmulator(nil)
	}

	return d.NewEmulator(emulator.ResolveRunner(triple, user, d.Cargo, d.Config.Runner))
}

// withRunners tells cargo how to run binaries of each MSVC target, so
// test, bench and runner-aware tools work without emulation by cargo-xwin.
func (d *Dispatcher) withRunners(prep *Prepared) []string {
	child := prep.Env
	for _, spec := range prep.Specs {
		child = d.emulatorFor(spec.Triple, prep.User).Env(child, spec.Triple)
	}

	return child
}

func (d *Dispatcher) run(ctx context.Context, prep *Prepared, child []string) error {
	inv := prep.Invocation
	if len(inv.Targets) != 1 {
		return codes.Configuration("run", "run needs exactly one target, got %d (%s)",
			len(inv.Targets), strings.Join(inv.Targets, ", "))
	}

	triple := inv.Targets[0]
	if !target.IsMSVC(triple) {
		d.transition(InvokingBuildTool, inv.Subcommand)
		return d.Build.ExecuteCommand(ctx, inv, child)
	}

	build := inv
	build.Subcommand = "build"

	d.transition(InvokingBuildTool, build.Subcommand)
	artifacts, err := d.Build.CollectArtifacts(ctx, build, child)
	if err != nil {
		return err
	}

	var bins []cargo.Artifact
	for _, a := range cargo.Executables(artifacts) {
		if a.HasKind("bin") || a.HasKind("example") {
			bins = append(bins, a)
		}
	}

	if len(bins) != 1 {
		names := make([]string, 0, len(bins))
		for _, b := range bins {
			names = append(names, b.Target.Name)
		}

		return codes.Configuration(triple, "could not determine which binary to run (found %d: %s); use --bin or --example",
			len(bins), strings.Join(names, ", "))
	}

	bin := bins[0]
	if bin.ManifestPath != "" {
		child = env.Overlay(d.Host, child, map[string]string{
			"CARGO_MANIFEST_DIR": filepath.Dir(bin.ManifestPath),
		})
	}

	d.transition(InvokingEmulation, bin.Executable)

	return d.emulatorFor(triple, prep.User).Execute(ctx, emulator.ExecutionRequest{
		Triple: triple,
		Binary: bin.Executable,
		Args:   inv.ProgramArgs,
	}, child, inv.WorkDir)
}

func lookupEnv(host utils.Host, m map[string]string, name string) string {
	if v, ok := m[name]; ok || !host.IsWindows() {
		return v
	}

	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}

	return ""
}

func unique(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}

	return out
}

// Export is one variable the dispatcher sets for the child
type Export struct {
	Name  string
	Value string
}

// Exports lists how the child environment of prep differs from the
// process environment: assignments in child order, then removed names.
func (d *Dispatcher) Exports(prep *Prepared) ([]Export, []string) {
	current := env.Environ(d.Environ)
	child := d.withRunners(prep)
	kept := env.Environ(child)

	var exports []Export
	seen := map[string]bool{}
	for _, kv := range child {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || seen[name] {
			continue
		}
		seen[name] = true

		if old, ok := current[name]; !ok || old != value {
			exports = append(exports, Export{Name: name, Value: value})
		}
	}

	var unset []string
	for _, kv := range d.Environ {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := kept[name]; !ok && name != "" && !slices.Contains(unset, name) {
			unset = append(unset, name)
		}
	}

	return exports, unset
}

// Describe summarizes a prepared invocation for verbose output
func (p *Prepared) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "targets: %s\n", strings.Join(p.Invocation.Targets, ", "))
	for _, plan := range p.Plans {
		fmt.Fprintf(&b, "%s: %s (%s)\n", plan.Spec.Triple, plan.Root, plan.Backend.Kind)
		for _, name := range plan.Names() {
			fmt.Fprintf(&b, "  %s=%s\n", name, plan.Value(name))
		}
	}

	return b.String()
}
