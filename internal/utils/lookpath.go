package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when an executable is not on the searched PATH.
var ErrNotFound = errors.New("executable not found in PATH")

// LookPathIn searches for an executable in an explicit PATH value instead
// of the process PATH, so lookups reflect the environment handed to children.
func (h Host) LookPathIn(name, pathValue string) (string, error) {
	if filepath.IsAbs(name) {
		if isExecutable(name) {
			return name, nil
		}
		return "", ErrNotFound
	}

	candidate := h.Exe(name)
	for _, dir := range h.SplitList(pathValue) {
		p := filepath.Join(dir, candidate)
		if isExecutable(p) {
			return p, nil
		}
	}

	return "", ErrNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if info.IsDir() {
		return false
	}

	// Windows has no exec bit
	if filepath.Ext(path) == ".exe" {
		return true
	}

	return info.Mode()&fs.ModePerm&0o111 != 0
}
