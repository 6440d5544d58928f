package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

// XwinProvider runs the xwin tool to download and splat the MSVC CRT and
// Windows SDK.
type XwinProvider struct {
	// Path or name of the xwin executable
	Binary string

	// Directory where xwin keeps downloaded packages between runs
	DownloadDir string

	// Disable symlinks in the splat output (case-insensitive filesystems)
	DisableSymlinks bool

	Stdout io.Writer
	Stderr io.Writer

	execCommand ExecFunc
}

// NewXwinProvider creates a provider using the xwin binary named by
// XWIN_BIN or found on PATH.
func NewXwinProvider(downloadDir string, disableSymlinks bool) *XwinProvider {
	binary := os.Getenv("XWIN_BIN")
	if binary == "" {
		binary = "xwin"
	}

	return &XwinProvider{
		Binary:          binary,
		DownloadDir:     downloadDir,
		DisableSymlinks: disableSymlinks,
		Stdout:          os.Stderr,
		Stderr:          os.Stderr,
		execCommand:     defaultExec,
	}
}

func (p *XwinProvider) Name() string {
	return "xwin"
}

// BuildArgs builds the xwin command line that splats spec's payload into dest
func (p *XwinProvider) BuildArgs(spec target.Spec, dest string) []string {
	arches := make([]string, 0, len(spec.PayloadArches))
	for _, a := range spec.PayloadArches {
		arches = append(arches, string(a))
	}

	variants := make([]string, 0, len(spec.Variants))
	for _, v := range spec.Variants {
		variants = append(variants, string(v))
	}

	args := []string{
		"--accept-license",
		"--cache-dir", p.DownloadDir,
		"--arch", strings.Join(arches, ","),
		"--variant", strings.Join(variants, ","),
		"--manifest-version", spec.ManifestVersion,
	}

	if spec.SDKVersion != "" {
		args = append(args, "--sdk-version", spec.SDKVersion)
	}

	if spec.CRTVersion != "" {
		args = append(args, "--crt-version", spec.CRTVersion)
	}

	if spec.IncludeATL {
		args = append(args, "--include-atl")
	}

	args = append(args, "splat")

	if spec.IncludeDebugLibs {
		args = append(args, "--include-debug-libs")
	}

	if spec.IncludeDebugSymbols {
		args = append(args, "--include-debug-symbols")
	}

	if p.DisableSymlinks {
		args = append(args, "--disable-symlinks")
	}

	args = append(args, "--output", dest)

	return args
}

// Fetch runs xwin splat into dest
func (p *XwinProvider) Fetch(ctx context.Context, spec target.Spec, dest string) (Result, error) {
	if err := os.MkdirAll(p.DownloadDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create download directory: %w", err)
	}

	args := p.BuildArgs(spec, dest)
	console.Debugf("running %s %s", p.Binary, strings.Join(args, " "))

	c := p.execCommand(ctx, p.Binary, args...)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Stdout = p.Stdout
		cmd.Stderr = p.Stderr
	}

	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("xwin exited with code %d (manifest %s, sdk %s, crt %s)",
				exitErr.ExitCode(), spec.ManifestVersion, versionOrLatest(spec.SDKVersion), versionOrLatest(spec.CRTVersion))
		}

		return Result{}, fmt.Errorf("failed to run %s: %w", p.Binary, err)
	}

	// xwin splats into <dest>/crt and <dest>/sdk
	for _, dir := range []string{"crt", "sdk"} {
		if info, err := os.Stat(filepath.Join(dest, dir)); err != nil || !info.IsDir() {
			return Result{}, fmt.Errorf("xwin output is missing %s/", dir)
		}
	}

	return Result{
		Version: versionLabel(spec),
		Source:  "xwin",
	}, nil
}

func versionOrLatest(v string) string {
	if v == "" {
		return "latest"
	}

	return v
}

func versionLabel(spec target.Spec) string {
	return fmt.Sprintf("msvc %s, sdk %s, crt %s",
		spec.ManifestVersion, versionOrLatest(spec.SDKVersion), versionOrLatest(spec.CRTVersion))
}
