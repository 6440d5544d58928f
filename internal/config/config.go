package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultCrossCompiler = "clang-cl"
	DefaultArch          = "x86_64,aarch64"
	DefaultVariant       = "desktop"
	DefaultVersion       = "16"
	DefaultRunner        = "wine"
	DefaultJobs          = 4
	DefaultVerbose       = false
)

// Holds the configuration options for cargo-xwin
type Config struct {
	// Backend used to compile C/C++ code (clang-cl or clang)
	CrossCompiler string

	// Architectures to download MSVC CRT/SDK for
	Arches []string

	// Variants to download (desktop, onecore, spectre)
	Variants []string

	// Visual Studio manifest version
	Version string

	// Pinned Windows SDK and CRT versions, empty for latest
	SDKVersion string
	CRTVersion string

	IncludeATL          bool
	IncludeDebugLibs    bool
	IncludeDebugSymbols bool

	// Root directory of the payload cache
	CacheDir string

	// Program used to execute Windows binaries on non-Windows hosts
	Runner string

	// Maximum number of target pipelines prepared at once
	Jobs int

	// Enable verbose output
	Verbose bool

	// Target used when neither the command line nor cargo config name one
	DefaultTarget string

	// Explicit environment overrides from config files, NAME=VALUE
	Env map[string]string
}

func Load() (*Config, error) {
	cfg := &Config{
		CrossCompiler:       viper.GetString("cross_compiler"),
		Arches:              getList("arch"),
		Variants:            getList("variant"),
		Version:             viper.GetString("version"),
		SDKVersion:          viper.GetString("sdk_version"),
		CRTVersion:          viper.GetString("crt_version"),
		IncludeATL:          viper.GetBool("include_atl"),
		IncludeDebugLibs:    viper.GetBool("include_debug_libs"),
		IncludeDebugSymbols: viper.GetBool("include_debug_symbols"),
		CacheDir:            viper.GetString("cache_dir"),
		Runner:              viper.GetString("runner"),
		Jobs:                viper.GetInt("jobs"),
		Verbose:             viper.GetBool("verbose"),
		DefaultTarget:       viper.GetString("default_target"),
	}

	env, err := parseEnv(viper.Get("env"))
	if err != nil {
		return nil, err
	}
	cfg.Env = env

	// Apply defaults if not set
	if cfg.CrossCompiler == "" {
		cfg.CrossCompiler = DefaultCrossCompiler
	}

	if len(cfg.Arches) == 0 {
		cfg.Arches = splitList(DefaultArch)
	}

	if len(cfg.Variants) == 0 {
		cfg.Variants = splitList(DefaultVariant)
	}

	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}

	if cfg.Runner == "" {
		cfg.Runner = DefaultRunner
	}

	if cfg.Jobs == 0 {
		cfg.Jobs = DefaultJobs
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = utils.DefaultCacheDir()
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	abs, err := filepath.Abs(c.CacheDir)
	if err != nil {
		return codes.Configuration("cache_dir", "invalid cache directory %q: %w", c.CacheDir, err)
	}
	c.CacheDir = abs

	if c.Jobs < 1 {
		return codes.Configuration("jobs", "must be at least 1, got %d", c.Jobs)
	}

	if strings.TrimSpace(c.Runner) == "" {
		return codes.Configuration("runner", "must not be empty")
	}

	return nil
}

// getList reads a list option that may be given as a comma separated
// string (flags, env vars) or as a native list (config files).
func getList(key string) []string {
	switch v := viper.Get(key).(type) {
	case string:
		return splitList(v)
	case []string:
		return splitList(strings.Join(v, ","))
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return splitList(strings.Join(parts, ","))
	default:
		return nil
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// parseEnv accepts a list of NAME=VALUE strings. Mapping syntax is rejected
// because viper lower-cases map keys and variable names are case sensitive.
func parseEnv(raw any) (map[string]string, error) {
	if raw == nil {
		return map[string]string{}, nil
	}

	var entries []string
	switch v := raw.(type) {
	case []string:
		entries = v
	case []any:
		for _, e := range v {
			entries = append(entries, fmt.Sprint(e))
		}
	case string:
		if v == "" {
			return map[string]string{}, nil
		}
		entries = []string{v}
	default:
		return nil, codes.Configuration("env", "expected a list of NAME=VALUE entries, got %T", raw)
	}

	env := make(map[string]string, len(entries))
	for _, e := range entries {
		name, value, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			return nil, codes.Configuration("env", "invalid entry %q, expected NAME=VALUE", e)
		}
		env[name] = value
	}

	return env, nil
}
