package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLocalConfig(t *testing.T) {
	// Create a temporary directory structure
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	err := os.Mkdir(subDir, 0o755)
	assert.NoError(t, err)

	// Create config files
	configYML := filepath.Join(subDir, ".xwin.yml")
	err = os.WriteFile(configYML, []byte("cross_compiler: clang"), 0o644)
	assert.NoError(t, err)

	// Test finding in subdir
	result := FindLocalConfig(subDir)
	assert.Equal(t, configYML, result)

	// Test finding in parent
	result = FindLocalConfig(filepath.Join(subDir, "deep"))
	assert.Equal(t, configYML, result)

	// Test not found
	result = FindLocalConfig(tempDir)
	assert.Equal(t, "", result)
}

func TestFindGlobalConfig(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv("HOME", base)

	dir, err := os.UserConfigDir()
	require.NoError(t, err)

	assert.Equal(t, "", FindGlobalConfig())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cargo-xwin"), 0o755))
	path := filepath.Join(dir, "cargo-xwin", "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("jobs = 2\n"), 0o644))

	assert.Equal(t, path, FindGlobalConfig())
}

func TestFindCargoConfigs(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "workspace", "crate")
	home := filepath.Join(root, "home")

	for _, dir := range []string{
		filepath.Join(project, ".cargo"),
		filepath.Join(root, "workspace", ".cargo"),
		home,
	} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	nearest := filepath.Join(project, ".cargo", "config.toml")
	legacy := filepath.Join(project, ".cargo", "config")
	workspace := filepath.Join(root, "workspace", ".cargo", "config")
	homeConfig := filepath.Join(home, "config.toml")

	for _, path := range []string{nearest, legacy, workspace, homeConfig} {
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	}

	got := FindCargoConfigs(project, home)
	assert.Equal(t, []string{nearest, workspace, homeConfig}, got)

	assert.Empty(t, FindCargoConfigs(t.TempDir(), ""))
}
