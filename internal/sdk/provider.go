// Package sdk fetches the Windows CRT/SDK payloads that clang needs to
// target MSVC. Providers write into a directory chosen by the caller and
// never decide where a payload lives once ready.
package sdk

import (
	"context"
	"os/exec"

	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

// Result describes what a provider fetched.
type Result struct {
	// Upstream version or release tag, when known
	Version string `json:"version,omitempty"`

	// Where the payload came from
	Source string `json:"source,omitempty"`

	// BLAKE3 of the downloaded archive, when the provider downloads one
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Provider populates dest with the payload described by spec. dest exists
// and is empty; on error the caller discards it.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, spec target.Spec, dest string) (Result, error)
}

// Commander interface for testing
type Commander interface {
	Run() error
}

// ExecFunc creates a command; tests replace it.
type ExecFunc func(ctx context.Context, name string, args ...string) Commander

func defaultExec(ctx context.Context, name string, args ...string) Commander {
	return exec.CommandContext(ctx, name, args...)
}
