package env

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/config"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// Variables cargo-xwin manages or reads
const (
	EncodedRustflags = "CARGO_ENCODED_RUSTFLAGS"
	Rustflags        = "RUSTFLAGS"
	BuildRustflags   = "CARGO_BUILD_RUSTFLAGS"
)

// Inputs are everything Assemble reads besides the spec and payload.
type Inputs struct {
	Host utils.Host

	// User environment, after config file overrides
	Env map[string]string

	// Merged .cargo/config.toml, may be nil
	Cargo *config.CargoConfig

	// Cargo target directory, absolute
	TargetDir string

	// Directory holding tool shims, "" when none were installed
	ShimDir string
}

// Assemble computes the environment plan for spec against the payload at
// root. It does not touch the filesystem except to check that the payload
// directories the plan refers to exist.
func Assemble(spec target.Spec, root string, backend *compiler.Backend, in Inputs) (*Plan, error) {
	if backend == nil {
		return nil, codes.Assembly(spec.Triple, "no compiler backend")
	}

	if !filepath.IsAbs(root) {
		return nil, codes.Assembly(spec.Triple, "payload root %q is not absolute", root)
	}

	if in.TargetDir != "" && !filepath.IsAbs(in.TargetDir) {
		return nil, codes.Assembly(spec.Triple, "target directory %q is not absolute", in.TargetDir)
	}

	host := in.Host
	if host.ListSeparator == "" {
		host.ListSeparator = string(os.PathListSeparator)
	}

	user := userLookup(host, in.Env)

	root = NormalizePath(host, root)
	paths := backend.Layout(spec, root)

	if err := checkLayout(spec, paths); err != nil {
		return nil, err
	}

	p := &Plan{
		Spec:      spec,
		Backend:   backend,
		Host:      host,
		Root:      root,
		Paths:     paths,
		Separator: host.ListSeparator,
		Flags:     map[string][]string{},
	}

	t := spec.EnvName()
	T := spec.CargoEnvName()

	// Tools
	p.scalar(user, "TARGET_CC", backend.CC)
	p.scalar(user, "TARGET_CXX", backend.CXX)
	p.scalar(user, "CC_"+t, backend.CC)
	p.scalar(user, "CXX_"+t, backend.CXX)
	p.scalar(user, "TARGET_AR", backend.AR)
	p.scalar(user, "AR_"+t, backend.AR)
	p.scalar(user, "CARGO_TARGET_"+T+"_LINKER", backend.Linker)

	// C and C++
	includes := make([]string, 0, len(paths.Include))
	for _, dir := range paths.Include {
		includes = append(includes, backend.IncludeFlag(dir))
	}

	base := append(backend.CompileFlags(spec.Triple), includes...)
	if backend.Kind == target.Clang {
		for _, dir := range paths.Lib {
			base = append(base, backend.LibFlag(dir))
		}
	}

	cflags := clone(base)
	cxxflags := append(clone(base), backend.CXXFlags()...)
	p.Flags[FlagsC] = cflags
	p.Flags[FlagsCXX] = cxxflags

	if backend.Kind == target.ClangCL {
		p.list(user, "CL_FLAGS", " ", base)
	}

	p.list(withFallback(user, "CFLAGS_"+t, "CFLAGS"), "CFLAGS_"+t, " ", cflags)
	p.list(withFallback(user, "CXXFLAGS_"+t, "CXXFLAGS"), "CXXFLAGS_"+t, " ", cxxflags)

	// Bindgen and resource compiler only need header search paths
	dashIncludes := make([]string, 0, len(paths.Include))
	for _, dir := range paths.Include {
		dashIncludes = append(dashIncludes, "-I"+dir)
	}

	p.Flags[FlagsBindgen] = dashIncludes
	p.Flags[FlagsRC] = dashIncludes
	p.list(user, "BINDGEN_EXTRA_CLANG_ARGS_"+t, " ", dashIncludes)
	p.list(user, "RCFLAGS", " ", dashIncludes)

	// Linker search paths. lld-link and clang-cl split these on ';' on
	// every host.
	link := make([]string, 0, len(paths.Lib))
	for _, dir := range paths.Lib {
		link = append(link, backend.LibFlag(dir))
	}

	p.Flags[FlagsLink] = link

	if backend.Kind == target.ClangCL {
		p.list(user, "LIB", ";", paths.Lib)
		p.list(user, "INCLUDE", ";", paths.Include)
	}

	// Rust
	userRust := baseRustflags(spec.Triple, user, in.Cargo)
	p.StaticCRT = staticCRT(userRust)

	rust := clone(backend.RustLinkerFlags())
	if p.StaticCRT && backend.Kind == target.ClangCL {
		rust = append(rust,
			"-C", "link-arg=-nodefaultlib:ucrt",
			"-C", "link-arg=-defaultlib:libucrt",
		)
	}

	for _, dir := range paths.Lib {
		rust = append(rust, "-Lnative="+dir)
	}

	p.Flags[FlagsRust] = rust
	p.set(Var{
		Name:  "CARGO_TARGET_" + T + "_RUSTFLAGS",
		Value: strings.Join(append(clone(userRust), rust...), " "),
		Kind:  List,
		Sep:   " ",
	})
	p.Unset = []string{EncodedRustflags, Rustflags}

	// CMake
	if in.TargetDir != "" {
		p.ToolchainFile = NormalizePath(host, path.Join(
			filepath.ToSlash(in.TargetDir), "xwin", "cmake", string(backend.Kind), spec.Triple+"-toolchain.cmake",
		))
	}

	p.scalar(user, "CMAKE_GENERATOR", "Ninja")
	p.scalar(user, "CMAKE_SYSTEM_NAME", "Windows")
	if p.ToolchainFile != "" {
		p.scalar(user, "CMAKE_TOOLCHAIN_FILE_"+t, p.ToolchainFile)
	}

	// PATH keeps the host form of its entries
	p.PathEntries = append(clone(host.ToolDirs), nonEmpty(in.ShimDir)...)
	p.list(user, "PATH", host.ListSeparator, p.PathEntries)

	return p, nil
}

func checkLayout(spec target.Spec, paths compiler.Paths) error {
	for _, group := range [][]string{paths.Include, paths.Lib} {
		for _, dir := range group {
			info, err := os.Stat(filepath.FromSlash(dir))
			if err != nil || !info.IsDir() {
				return codes.Assembly(spec.Triple, "payload is missing %s", dir)
			}
		}
	}

	return nil
}

// baseRustflags follows cargo's own lookup order for the flags the user
// already asked for.
func baseRustflags(triple string, user lookup, cargo *config.CargoConfig) []string {
	if v, ok := user(EncodedRustflags); ok {
		if v == "" {
			return nil
		}
		return strings.Split(v, "\x1f")
	}

	if v, ok := user(Rustflags); ok {
		return strings.Fields(v)
	}

	if v, ok := user("CARGO_TARGET_" + target.CargoEnvName(triple) + "_RUSTFLAGS"); ok {
		return strings.Fields(v)
	}

	if cargo != nil {
		if flags, ok := cargo.TargetRustflags[triple]; ok {
			return clone(flags)
		}
	}

	if v, ok := user(BuildRustflags); ok {
		return strings.Fields(v)
	}

	if cargo != nil {
		return clone(cargo.BuildRustflags)
	}

	return nil
}

// staticCRT reports whether the last crt-static feature toggle is on
func staticCRT(flags []string) bool {
	static := false

	for _, flag := range flags {
		_, features, ok := strings.Cut(flag, "target-feature=")
		if !ok {
			continue
		}

		for _, f := range strings.Split(features, ",") {
			switch strings.TrimSpace(f) {
			case "+crt-static":
				static = true
			case "-crt-static":
				static = false
			}
		}
	}

	return static
}

// withFallback presents the generic variable under the per-target name
// when only the generic one is set.
func withFallback(user lookup, name, generic string) lookup {
	if _, ok := user(name); ok {
		return user
	}

	return func(n string) (string, bool) {
		if n == name {
			return user(generic)
		}
		return user(n)
	}
}

// userLookup reads env, ignoring case on Windows hosts
func userLookup(host utils.Host, env map[string]string) lookup {
	if !host.IsWindows() {
		return func(name string) (string, bool) {
			v, ok := env[name]
			return v, ok
		}
	}

	folded := make(map[string]string, len(env))
	for k, v := range env {
		folded[strings.ToUpper(k)] = v
	}

	return func(name string) (string, bool) {
		v, ok := folded[strings.ToUpper(name)]
		return v, ok
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}

func nonEmpty(s ...string) []string {
	var out []string
	for _, v := range s {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
