package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Host describes the conventions of the machine cargo-xwin runs on.
type Host struct {
	// GOOS-style operating system name (linux, darwin, windows)
	OS string

	// GOARCH-style architecture name (amd64, arm64)
	Arch string

	// Separator between entries of PATH-like variables
	ListSeparator string

	// Suffix appended to executable names (".exe" on Windows)
	ExeSuffix string

	// Directories prepended to PATH so that an LLVM toolchain installed
	// outside the default search path is found
	ToolDirs []string
}

// CurrentHost returns the conventions of the running process.
func CurrentHost() Host {
	h := Host{
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		ListSeparator: string(os.PathListSeparator),
	}

	if h.OS == "windows" {
		h.ExeSuffix = ".exe"
	}

	// Homebrew installs LLVM keg-only
	if h.OS == "darwin" {
		dir := "/usr/local/opt/llvm/bin"
		if h.Arch == "arm64" {
			dir = "/opt/homebrew/opt/llvm/bin"
		}

		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			h.ToolDirs = append(h.ToolDirs, dir)
		}
	}

	return h
}

// IsWindows reports whether target binaries run natively on this host.
func (h Host) IsWindows() bool {
	return h.OS == "windows"
}

// DefaultTriple is the MSVC triple matching the host architecture.
func (h Host) DefaultTriple() string {
	switch h.Arch {
	case "arm64":
		return "aarch64-pc-windows-msvc"
	case "386":
		return "i686-pc-windows-msvc"
	default:
		return "x86_64-pc-windows-msvc"
	}
}

// Exe appends the host executable suffix to name.
func (h Host) Exe(name string) string {
	if h.ExeSuffix != "" && !strings.HasSuffix(name, h.ExeSuffix) {
		return name + h.ExeSuffix
	}

	return name
}

// JoinList joins entries into a PATH-like value, skipping empty entries.
func (h Host) JoinList(entries ...string) string {
	kept := make([]string, 0, len(entries))
	for _, e := range entries {
		if e != "" {
			kept = append(kept, e)
		}
	}

	return strings.Join(kept, h.ListSeparator)
}

// SplitList splits a PATH-like value, dropping empty entries.
func (h Host) SplitList(value string) []string {
	if value == "" {
		return nil
	}

	var out []string
	for _, e := range strings.Split(value, h.ListSeparator) {
		if e != "" {
			out = append(out, e)
		}
	}

	return out
}

// DefaultCacheDir returns the per-user cache directory for cargo-xwin,
// falling back to the working directory when none is configured.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "cargo-xwin")
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".cargo-xwin")
	}

	return ".cargo-xwin"
}
