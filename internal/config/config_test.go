package config

import (
	"path/filepath"
	"testing"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cacheDir := t.TempDir()

	tests := []struct {
		name        string
		setupViper  func()
		check       func(t *testing.T, cfg *Config)
		wantErr     bool
		errContains string
	}{
		{
			name: "load with all defaults",
			setupViper: func() {
				viper.Reset()
				viper.Set("cache_dir", cacheDir)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultCrossCompiler, cfg.CrossCompiler)
				assert.Equal(t, []string{"x86_64", "aarch64"}, cfg.Arches)
				assert.Equal(t, []string{"desktop"}, cfg.Variants)
				assert.Equal(t, DefaultVersion, cfg.Version)
				assert.Equal(t, DefaultRunner, cfg.Runner)
				assert.Equal(t, DefaultJobs, cfg.Jobs)
				assert.Equal(t, cacheDir, cfg.CacheDir)
				assert.Empty(t, cfg.Env)
			},
		},
		{
			name: "load with custom values",
			setupViper: func() {
				viper.Reset()
				viper.Set("cross_compiler", "clang")
				viper.Set("arch", "x86, aarch64,")
				viper.Set("variant", []any{"desktop", "spectre"})
				viper.Set("version", "17.4")
				viper.Set("sdk_version", "10.0.22621")
				viper.Set("include_atl", true)
				viper.Set("cache_dir", "relative-cache")
				viper.Set("jobs", 2)
				viper.Set("env", []any{"CFLAGS_x86_64_pc_windows_msvc=-O2", "EMPTY="})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "clang", cfg.CrossCompiler)
				assert.Equal(t, []string{"x86", "aarch64"}, cfg.Arches)
				assert.Equal(t, []string{"desktop", "spectre"}, cfg.Variants)
				assert.Equal(t, "17.4", cfg.Version)
				assert.Equal(t, "10.0.22621", cfg.SDKVersion)
				assert.True(t, cfg.IncludeATL)
				assert.True(t, filepath.IsAbs(cfg.CacheDir))
				assert.Equal(t, 2, cfg.Jobs)
				assert.Equal(t, map[string]string{
					"CFLAGS_x86_64_pc_windows_msvc": "-O2",
					"EMPTY":                         "",
				}, cfg.Env)
			},
		},
		{
			name: "negative jobs rejected",
			setupViper: func() {
				viper.Reset()
				viper.Set("cache_dir", cacheDir)
				viper.Set("jobs", -1)
			},
			wantErr:     true,
			errContains: "jobs",
		},
		{
			name: "env mapping rejected",
			setupViper: func() {
				viper.Reset()
				viper.Set("cache_dir", cacheDir)
				viper.Set("env", map[string]any{"cc": "clang"})
			},
			wantErr:     true,
			errContains: "NAME=VALUE",
		},
		{
			name: "env entry without separator rejected",
			setupViper: func() {
				viper.Reset()
				viper.Set("cache_dir", cacheDir)
				viper.Set("env", []any{"JUSTANAME"})
			},
			wantErr:     true,
			errContains: "JUSTANAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupViper()
			defer viper.Reset()

			cfg, err := Load()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.True(t, codes.Is(err, codes.KindConfiguration))
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"x86_64,aarch64", []string{"x86_64", "aarch64"}},
		{" x86 , ,arm64 ", []string{"x86", "arm64"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, splitList(tt.input), "splitList(%q)", tt.input)
	}
}

func TestConfig_Describe(t *testing.T) {
	cfg := &Config{
		CrossCompiler: "clang-cl",
		Arches:        []string{"x86_64"},
		Variants:      []string{"desktop"},
		Version:       "16",
		CacheDir:      "/cache",
		Runner:        "wine",
		Jobs:          4,
	}

	assert.Equal(t, "cross_compiler=clang-cl arch=[x86_64] variant=[desktop] version=16 cache_dir=/cache runner=wine jobs=4", cfg.Describe())
}
