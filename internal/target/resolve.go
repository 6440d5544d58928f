package target

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/config"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

var (
	manifestVersionPattern  = regexp.MustCompile(`^(15|16|17|\d+\.\d+)$`)
	componentVersionPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// Options are the user-facing customization options shared by all targets.
type Options struct {
	Arches              []string
	Variants            []string
	Version             string
	SDKVersion          string
	CRTVersion          string
	IncludeATL          bool
	IncludeDebugLibs    bool
	IncludeDebugSymbols bool
	Backend             string
	CacheDir            string
	DefaultTarget       string
}

// FromConfig copies the resolver options out of a loaded configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Arches:              cfg.Arches,
		Variants:            cfg.Variants,
		Version:             cfg.Version,
		SDKVersion:          cfg.SDKVersion,
		CRTVersion:          cfg.CRTVersion,
		IncludeATL:          cfg.IncludeATL,
		IncludeDebugLibs:    cfg.IncludeDebugLibs,
		IncludeDebugSymbols: cfg.IncludeDebugSymbols,
		Backend:             cfg.CrossCompiler,
		CacheDir:            cfg.CacheDir,
		DefaultTarget:       cfg.DefaultTarget,
	}
}

// Resolve validates the options and returns one Spec per distinct MSVC
// triple, in order of first appearance. Triples for other environments are
// returned as passthrough and are not managed.
func Resolve(triples []string, opts Options) ([]Spec, []string, error) {
	var (
		specs       []Spec
		passthrough []string
		seen        = map[string]bool{}
	)

	for _, triple := range triples {
		triple = strings.TrimSpace(triple)
		if triple == "" || seen[triple] {
			continue
		}
		seen[triple] = true

		if !IsMSVC(triple) {
			passthrough = append(passthrough, triple)
			continue
		}

		spec, err := resolveOne(triple, opts)
		if err != nil {
			return nil, nil, err
		}

		specs = append(specs, spec)
	}

	return specs, passthrough, nil
}

func resolveOne(triple string, opts Options) (Spec, error) {
	arch, err := ArchFromTriple(triple)
	if err != nil {
		return Spec{}, codes.Configuration(triple, "%w", err)
	}

	backend, err := ParseBackend(opts.Backend)
	if err != nil {
		return Spec{}, codes.Configuration(triple, "%w", err)
	}

	if !backend.Supports(arch) {
		return Spec{}, codes.Configuration(triple, "the %s cross compiler does not support %s", backend, arch)
	}

	if !manifestVersionPattern.MatchString(opts.Version) {
		return Spec{}, codes.Configuration(triple, "invalid manifest version %q (expected 15, 16, 17 or <major>.<minor>)", opts.Version)
	}

	if v := opts.SDKVersion; v != "" && !componentVersionPattern.MatchString(v) {
		return Spec{}, codes.Configuration(triple, "invalid SDK version %q", v)
	}

	if v := opts.CRTVersion; v != "" && !componentVersionPattern.MatchString(v) {
		return Spec{}, codes.Configuration(triple, "invalid CRT version %q", v)
	}

	if !filepath.IsAbs(opts.CacheDir) {
		return Spec{}, codes.Configuration(triple, "cache directory %q is not absolute", opts.CacheDir)
	}

	payload := []Arch{}
	for _, s := range opts.Arches {
		a, err := ParseArch(s)
		if err != nil {
			return Spec{}, codes.Configuration(triple, "%w", err)
		}
		if !slices.Contains(payload, a) {
			payload = append(payload, a)
		}
	}
	if !slices.Contains(payload, arch) {
		payload = append(payload, arch)
	}

	variants := []Variant{}
	for _, s := range opts.Variants {
		v, err := ParseVariant(s)
		if err != nil {
			return Spec{}, codes.Configuration(triple, "%w", err)
		}
		if !slices.Contains(variants, v) {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		variants = append(variants, Desktop)
	}

	return Spec{
		Triple:              triple,
		Arch:                arch,
		Variants:            variants,
		ManifestVersion:     opts.Version,
		SDKVersion:          opts.SDKVersion,
		CRTVersion:          opts.CRTVersion,
		IncludeATL:          opts.IncludeATL,
		IncludeDebugLibs:    opts.IncludeDebugLibs,
		IncludeDebugSymbols: opts.IncludeDebugSymbols,
		PayloadArches:       payload,
		Backend:             backend,
		CacheDir:            opts.CacheDir,
	}, nil
}

// DefaultTriples picks the targets to build when none are given on the
// command line: the configured default target, then build.target from
// cargo config, then the MSVC triple matching the host.
func DefaultTriples(opts Options, cargo *config.CargoConfig, host utils.Host) []string {
	if opts.DefaultTarget != "" {
		return []string{opts.DefaultTarget}
	}

	if cargo != nil && len(cargo.BuildTargets) > 0 {
		return slices.Clone(cargo.BuildTargets)
	}

	return []string{host.DefaultTriple()}
}
