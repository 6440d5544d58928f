package config

import (
	"fmt"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every option name to form its environment variable
const EnvPrefix = "XWIN"

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"cross-compiler":             "cross_compiler",
	"xwin-arch":                  "arch",
	"xwin-variant":               "variant",
	"xwin-version":               "version",
	"xwin-sdk-version":           "sdk_version",
	"xwin-crt-version":           "crt_version",
	"xwin-include-atl":           "include_atl",
	"xwin-include-debug-libs":    "include_debug_libs",
	"xwin-include-debug-symbols": "include_debug_symbols",
	"xwin-cache-dir":             "cache_dir",
	"xwin-runner":                "runner",
	"xwin-jobs":                  "jobs",
	"xwin-verbose":               "verbose",
}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load layers defaults, the global config, the local config found from
// dir, XWIN_* environment variables and flags, then builds a Config.
func (l *Loader) Load(flags *pflag.FlagSet, dir string) (*Config, error) {
	l.setupViperDefaults()
	l.setupEnv()

	if err := l.loadGlobalConfig(); err != nil {
		return nil, err
	}

	if err := l.loadLocalConfig(dir); err != nil {
		return nil, err
	}

	l.bindCommandFlags(flags)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("cross_compiler", DefaultCrossCompiler)
	viper.SetDefault("arch", DefaultArch)
	viper.SetDefault("variant", DefaultVariant)
	viper.SetDefault("version", DefaultVersion)
	viper.SetDefault("runner", DefaultRunner)
	viper.SetDefault("jobs", DefaultJobs)
	viper.SetDefault("verbose", DefaultVerbose)
}

func (l *Loader) setupEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
}

// loadGlobalConfig loads the per-user configuration file, if any
func (l *Loader) loadGlobalConfig() error {
	path := FindGlobalConfig()
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return codes.Configuration(path, "reading config: %w", err)
	}

	return nil
}

// loadLocalConfig merges the nearest .xwin.* file over the global config
func (l *Loader) loadLocalConfig(dir string) error {
	if dir == "" {
		return nil
	}

	path := FindLocalConfig(dir)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		return codes.Configuration(path, "reading config: %w", err)
	}

	return nil
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(flags *pflag.FlagSet) {
	if flags == nil {
		return
	}

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// RegisterFlags adds the cargo-xwin options to a flag set
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("cross-compiler", DefaultCrossCompiler, "C/C++ cross compiler backend: clang-cl or clang")
	flags.String("xwin-arch", DefaultArch, "Architectures to download MSVC CRT/SDK for, comma separated")
	flags.String("xwin-variant", DefaultVariant, "Variants to download: desktop, onecore, spectre")
	flags.String("xwin-version", DefaultVersion, "Visual Studio manifest version")
	flags.String("xwin-sdk-version", "", "Windows SDK version to pin (default latest)")
	flags.String("xwin-crt-version", "", "MSVC CRT version to pin (default latest)")
	flags.Bool("xwin-include-atl", false, "Include ATL headers and libraries")
	flags.Bool("xwin-include-debug-libs", false, "Include debug runtime libraries")
	flags.Bool("xwin-include-debug-symbols", false, "Include debug symbols (PDB files)")
	flags.String("xwin-cache-dir", "", "Directory for the downloaded payloads")
	flags.String("xwin-runner", DefaultRunner, "Program used to run Windows binaries")
	flags.Int("xwin-jobs", DefaultJobs, "Targets prepared in parallel")
	flags.Bool("xwin-verbose", DefaultVerbose, "Enable verbose output")
}

// IsFlag reports whether name (without leading dashes) is a cargo-xwin option
func IsFlag(name string) bool {
	_, ok := flagKeys[name]
	return ok
}

// IsBoolFlag reports whether the option takes no value
func IsBoolFlag(name string) bool {
	switch name {
	case "xwin-include-atl", "xwin-include-debug-libs", "xwin-include-debug-symbols", "xwin-verbose":
		return true
	default:
		return false
	}
}

// Describe renders the effective configuration for verbose output
func (c *Config) Describe() string {
	return fmt.Sprintf("cross_compiler=%s arch=%v variant=%v version=%s cache_dir=%s runner=%s jobs=%d",
		c.CrossCompiler, c.Arches, c.Variants, c.Version, c.CacheDir, c.Runner, c.Jobs)
}
