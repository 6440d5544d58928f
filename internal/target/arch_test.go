package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArch(t *testing.T) {
	tests := []struct {
		input    string
		expected Arch
		wantErr  bool
	}{
		{"x86", X86, false},
		{"x86_64", X86_64, false},
		{"aarch", Aarch, false},
		{"arm", Aarch, false},
		{"aarch64", Aarch64, false},
		{"ARM64", Aarch64, false},
		{" x86_64 ", X86_64, false},
		{"i686", "", true},
		{"riscv64", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseArch(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestArchFromTriple(t *testing.T) {
	tests := []struct {
		triple   string
		expected Arch
		wantErr  bool
	}{
		{"x86_64-pc-windows-msvc", X86_64, false},
		{"i686-pc-windows-msvc", X86, false},
		{"i586-pc-windows-msvc", X86, false},
		{"aarch64-pc-windows-msvc", Aarch64, false},
		{"thumbv7a-pc-windows-msvc", Aarch, false},
		{"riscv64-pc-windows-msvc", "", true},
		{"nonsense", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.triple, func(t *testing.T) {
			got, err := ArchFromTriple(tt.triple)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestArch_Triple(t *testing.T) {
	for _, a := range []Arch{X86, X86_64, Aarch, Aarch64} {
		got, err := ArchFromTriple(a.Triple())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestIsMSVC(t *testing.T) {
	assert.True(t, IsMSVC("x86_64-pc-windows-msvc"))
	assert.True(t, IsMSVC("aarch64-uwp-windows-msvc"))
	assert.False(t, IsMSVC("x86_64-pc-windows-gnu"))
	assert.False(t, IsMSVC("x86_64-unknown-linux-gnu"))
	assert.False(t, IsMSVC("wasm32-unknown-unknown"))
}

func TestEnvNames(t *testing.T) {
	assert.Equal(t, "x86_64_pc_windows_msvc", EnvName("x86_64-pc-windows-msvc"))
	assert.Equal(t, "X86_64_PC_WINDOWS_MSVC", CargoEnvName("x86_64-pc-windows-msvc"))
}

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"desktop", "onecore", "Spectre"} {
		_, err := ParseVariant(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseVariant("store")
	assert.Error(t, err)
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input    string
		expected Backend
		wantErr  bool
	}{
		{"clang-cl", ClangCL, false},
		{"clangcl", ClangCL, false},
		{"clang", Clang, false},
		{"gcc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBackend(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}

		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestBackend_Supports(t *testing.T) {
	for _, a := range []Arch{X86, X86_64, Aarch, Aarch64} {
		assert.True(t, ClangCL.Supports(a), "clang-cl %s", a)
	}

	assert.True(t, Clang.Supports(X86))
	assert.True(t, Clang.Supports(X86_64))
	assert.True(t, Clang.Supports(Aarch64))
	assert.False(t, Clang.Supports(Aarch))
}
