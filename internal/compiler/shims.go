package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// Shim is a tool name that may be missing from PATH and can be provided
// by linking to another tool.
type Shim struct {
	Name string

	// Tool linked to when Name is missing
	Tool string

	// Tool comes from the Rust toolchain rather than PATH
	FromRust bool
}

// Shims lists the links the backend may need
func (b *Backend) Shims() []Shim {
	var shims []Shim

	if b.Kind == ClangCL.Kind {
		shims = append(shims, Shim{Name: "clang-cl", Tool: "clang"})
	}

	return append(shims,
		Shim{Name: b.Linker, Tool: "rust-lld", FromRust: true},
		Shim{Name: "llvm-lib", Tool: "llvm-ar", FromRust: true},
		Shim{Name: "llvm-dlltool", Tool: "llvm-ar", FromRust: true},
	)
}

// ShimInstaller creates shim links in a directory that is appended to PATH
type ShimInstaller struct {
	Host utils.Host

	// Directory receiving the links
	Dir string

	// rustcBinDir locates the bin directory of the active Rust toolchain
	rustcBinDir func(ctx context.Context) (string, error)

	once   sync.Once
	binDir string
	binErr error
}

// NewShimInstaller creates an installer that queries rustc for its tools
func NewShimInstaller(host utils.Host, dir string) *ShimInstaller {
	return &ShimInstaller{
		Host:        host,
		Dir:         dir,
		rustcBinDir: rustcBinDir,
	}
}

// Install links every shim of b whose name is not found on pathValue.
// Shims whose tool cannot be found either are skipped; the build tool
// reports the missing program if it is actually needed.
func (s *ShimInstaller) Install(ctx context.Context, b *Backend, pathValue string) ([]string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shim directory: %w", err)
	}

	var linked []string
	for _, shim := range b.Shims() {
		if _, err := s.Host.LookPathIn(shim.Name, pathValue); err == nil {
			continue
		}

		source, err := s.source(ctx, shim, pathValue)
		if err != nil {
			console.Debugf("no %s available for %s: %v", shim.Tool, shim.Name, err)
			continue
		}

		link := filepath.Join(s.Dir, s.Host.Exe(shim.Name))
		if err := replaceLink(source, link); err != nil {
			return linked, fmt.Errorf("failed to link %s to %s: %w", shim.Name, source, err)
		}

		console.Debugf("linked %s -> %s", link, source)
		linked = append(linked, shim.Name)
	}

	return linked, nil
}

func (s *ShimInstaller) source(ctx context.Context, shim Shim, pathValue string) (string, error) {
	if !shim.FromRust {
		return s.Host.LookPathIn(shim.Tool, pathValue)
	}

	s.once.Do(func() {
		s.binDir, s.binErr = s.rustcBinDir(ctx)
	})
	if s.binErr != nil {
		return "", s.binErr
	}

	tool := filepath.Join(s.binDir, s.Host.Exe(shim.Tool))
	if _, err := os.Stat(tool); err != nil {
		return "", err
	}

	return tool, nil
}

// replaceLink points link at source, replacing any previous link
// atomically so concurrent installers never observe a missing file.
func replaceLink(source, link string) error {
	if current, err := os.Readlink(link); err == nil && current == source {
		return nil
	}

	tmp := fmt.Sprintf("%s.%d.tmp", link, os.Getpid())
	_ = os.Remove(tmp)

	if err := os.Symlink(source, tmp); err != nil {
		// Windows without developer mode
		if lerr := os.Link(source, tmp); lerr != nil {
			return err
		}
	}

	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

func rustcBinDir(ctx context.Context) (string, error) {
	rustc := os.Getenv("RUSTC")
	if rustc == "" {
		rustc = "rustc"
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, rustc, "--print", "target-libdir")
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s --print target-libdir: %w", rustc, err)
	}

	libDir := strings.TrimSpace(out.String())
	if libDir == "" {
		return "", fmt.Errorf("%s printed an empty target-libdir", rustc)
	}

	return filepath.Join(filepath.Dir(libDir), "bin"), nil
}
