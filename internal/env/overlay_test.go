package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

func TestEnviron(t *testing.T) {
	m := Environ([]string{"A=1", "B=x=y", "A=2", "=hidden", "broken"})
	assert.Equal(t, map[string]string{"A": "2", "B": "x=y"}, m)
}

func TestMerge(t *testing.T) {
	a := &Plan{
		Vars: []Var{
			{Name: "TARGET_CC", Value: "clang-cl"},
			{Name: "CC_x86_64_pc_windows_msvc", Value: "clang-cl"},
		},
		Unset: []string{Rustflags},
	}
	b := &Plan{
		Vars: []Var{
			{Name: "TARGET_CC", Value: "other"},
			{Name: "CC_aarch64_pc_windows_msvc", Value: "clang-cl"},
		},
		Unset: []string{Rustflags, EncodedRustflags},
	}

	vars, unset := Merge(a, nil, b)
	assert.Equal(t, []Var{
		{Name: "TARGET_CC", Value: "clang-cl"},
		{Name: "CC_x86_64_pc_windows_msvc", Value: "clang-cl"},
		{Name: "CC_aarch64_pc_windows_msvc", Value: "clang-cl"},
	}, vars)
	assert.Equal(t, []string{Rustflags, EncodedRustflags}, unset)
}

func TestOverlay(t *testing.T) {
	spec := testSpec("x86_64-pc-windows-msvc", target.X86_64, target.ClangCL)
	root := makePayload(t, compiler.ClangCL, spec)

	base := []string{
		"HOME=/home/me",
		"PATH=/usr/bin",
		"RUSTFLAGS=-Dwarnings",
		"TARGET_CC=gcc",
	}
	overrides := map[string]string{"TARGET_CC": "/opt/clang-cl", "EXTRA": "1"}

	user := Environ(base)
	for k, v := range overrides {
		user[k] = v
	}

	plan, err := Assemble(spec, root, compiler.ClangCL, Inputs{Host: linuxHost, Env: user, ShimDir: "/cache/bin"})
	require.NoError(t, err)

	child := Environ(Overlay(linuxHost, base, overrides, plan))

	// Inherited untouched
	assert.Equal(t, "/home/me", child["HOME"])
	assert.Equal(t, "1", child["EXTRA"])

	// Managed names replaced, honoring the user's explicit value
	assert.Equal(t, "/opt/clang-cl", child["TARGET_CC"])
	assert.Equal(t, "/usr/bin:/cache/bin", child["PATH"])
	assert.Equal(t, "lld-link", child["CARGO_TARGET_X86_64_PC_WINDOWS_MSVC_LINKER"])

	// Folded into the per-target flags, then removed
	_, ok := child[Rustflags]
	assert.False(t, ok)
	assert.Contains(t, child["CARGO_TARGET_X86_64_PC_WINDOWS_MSVC_RUSTFLAGS"], "-Dwarnings -C linker-flavor=lld-link")
}

func TestOverlay_KeepsBaseOrder(t *testing.T) {
	plan := &Plan{Vars: []Var{{Name: "B", Value: "new"}, {Name: "Z", Value: "z"}}}

	got := Overlay(linuxHost, []string{"A=1", "B=old", "C=3"}, nil, plan)
	assert.Equal(t, []string{"A=1", "B=new", "C=3", "Z=z"}, got)
}

func TestOverlay_WindowsIgnoresCase(t *testing.T) {
	plan := &Plan{
		Vars:  []Var{{Name: "PATH", Value: `C:\Windows;C:\cache\bin`}},
		Unset: []string{Rustflags},
	}

	got := Overlay(windowsHost, []string{`Path=C:\Windows`, "RustFlags=-Dwarnings"}, nil, plan)
	assert.Equal(t, []string{`PATH=C:\Windows;C:\cache\bin`}, got)
}
