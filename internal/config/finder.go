package config

import (
	"os"
	"path/filepath"
)

var configExtensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExtensions {
			path := filepath.Join(dir, ".xwin."+ext)

			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig returns the first config file in the user config directory
func FindGlobalConfig() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return ""
	}

	for _, ext := range configExtensions {
		path := filepath.Join(base, "cargo-xwin", "config."+ext)

		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// FindCargoConfigs returns every cargo config file that applies to dir,
// nearest first. The cargo home config comes last.
func FindCargoConfigs(dir, cargoHome string) []string {
	var found []string
	seen := map[string]bool{}

	add := func(cargoDir string) {
		for _, name := range []string{"config.toml", "config"} {
			path := filepath.Join(cargoDir, name)

			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				if !seen[path] {
					seen[path] = true
					found = append(found, path)
				}

				// config.toml shadows the legacy extensionless file
				return
			}
		}
	}

	for {
		add(filepath.Join(dir, ".cargo"))

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	if cargoHome != "" {
		add(cargoHome)
	}

	return found
}
