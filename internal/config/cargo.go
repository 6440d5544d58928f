package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/pelletier/go-toml/v2"
)

type cargoFile struct {
	Build struct {
		Target    any    `toml:"target"`
		Rustflags any    `toml:"rustflags"`
		TargetDir string `toml:"target-dir"`
	} `toml:"build"`

	Target map[string]struct {
		Rustflags any `toml:"rustflags"`
		Runner    any `toml:"runner"`
	} `toml:"target"`
}

// CargoConfig is the subset of cargo's configuration cargo-xwin reads.
type CargoConfig struct {
	// build.target, may name several targets
	BuildTargets []string

	// build.rustflags; nil when unset
	BuildRustflags []string

	// build.target-dir, resolved against the config's project root
	TargetDir string

	// target.<triple>.rustflags
	TargetRustflags map[string][]string

	// target.<triple>.runner
	TargetRunners map[string][]string

	// Files read, nearest first
	Files []string
}

// LoadCargoConfig reads every cargo config file that applies to dir and
// merges them; values from nearer files win.
func LoadCargoConfig(dir, cargoHome string) (*CargoConfig, error) {
	cfg := &CargoConfig{
		TargetRustflags: map[string][]string{},
		TargetRunners:   map[string][]string{},
	}

	for _, path := range FindCargoConfigs(dir, cargoHome) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, codes.Configuration(path, "reading cargo config: %w", err)
		}

		var file cargoFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, codes.Configuration(path, "parsing cargo config: %w", err)
		}

		if err := cfg.mergeFarther(path, &file); err != nil {
			return nil, codes.Configuration(path, "%w", err)
		}

		cfg.Files = append(cfg.Files, path)
	}

	return cfg, nil
}

// mergeFarther fills in values not already set by a nearer file.
func (c *CargoConfig) mergeFarther(path string, file *cargoFile) error {
	if c.BuildTargets == nil && file.Build.Target != nil {
		targets, err := toStringList(file.Build.Target, false)
		if err != nil {
			return fmt.Errorf("build.target: %w", err)
		}
		c.BuildTargets = targets
	}

	if c.BuildRustflags == nil && file.Build.Rustflags != nil {
		flags, err := toStringList(file.Build.Rustflags, true)
		if err != nil {
			return fmt.Errorf("build.rustflags: %w", err)
		}
		c.BuildRustflags = flags
	}

	if c.TargetDir == "" && file.Build.TargetDir != "" {
		c.TargetDir = file.Build.TargetDir
		if !filepath.IsAbs(c.TargetDir) {
			// relative to the directory containing .cargo
			c.TargetDir = filepath.Join(filepath.Dir(filepath.Dir(path)), c.TargetDir)
		}
	}

	for triple, t := range file.Target {
		if _, ok := c.TargetRustflags[triple]; !ok && t.Rustflags != nil {
			flags, err := toStringList(t.Rustflags, true)
			if err != nil {
				return fmt.Errorf("target.%s.rustflags: %w", triple, err)
			}
			c.TargetRustflags[triple] = flags
		}

		if _, ok := c.TargetRunners[triple]; !ok && t.Runner != nil {
			runner, err := toStringList(t.Runner, true)
			if err != nil {
				return fmt.Errorf("target.%s.runner: %w", triple, err)
			}
			c.TargetRunners[triple] = runner
		}
	}

	return nil
}

// Rustflags returns target.<triple>.rustflags if present, else
// build.rustflags, else nil. This mirrors cargo's lookup order below
// the RUSTFLAGS environment variable.
func (c *CargoConfig) Rustflags(triple string) []string {
	if flags, ok := c.TargetRustflags[triple]; ok {
		return flags
	}

	return c.BuildRustflags
}

func toStringList(value any, split bool) ([]string, error) {
	switch v := value.(type) {
	case string:
		if split {
			return strings.Fields(v), nil
		}
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or array, got %T", value)
	}
}
