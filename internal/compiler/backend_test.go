package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

func TestFor(t *testing.T) {
	b, err := For(target.ClangCL)
	require.NoError(t, err)
	assert.Same(t, ClangCL, b)

	b, err = For(target.Clang)
	require.NoError(t, err)
	assert.Same(t, Clang, b)

	_, err = For("gcc")
	assert.Error(t, err)
}

func TestBackend_Tools(t *testing.T) {
	tests := []struct {
		backend *Backend
		tools   []string
	}{
		{ClangCL, []string{"clang-cl", "clang-cl", "llvm-lib", "lld-link", "llvm-rc"}},
		{Clang, []string{"clang", "clang++", "llvm-lib", "lld", "llvm-rc"}},
	}

	for _, tt := range tests {
		b := tt.backend
		assert.Equal(t, tt.tools, []string{b.CC, b.CXX, b.AR, b.Linker, b.RC}, string(b.Kind))
	}
}

func TestBackend_Flags(t *testing.T) {
	triple := "x86_64-pc-windows-msvc"

	assert.Equal(t, []string{
		"--target=x86_64-pc-windows-msvc",
		"-Wno-unused-command-line-argument",
		"-fuse-ld=lld-link",
	}, ClangCL.CompileFlags(triple))
	assert.Equal(t, []string{"--target=x86_64-windows-msvc", "-fuse-ld=lld"}, Clang.CompileFlags(triple))

	assert.Equal(t, []string{"/EHsc"}, ClangCL.CXXFlags())
	assert.Nil(t, Clang.CXXFlags())

	assert.Equal(t, "/imsvc/c/crt/include", ClangCL.IncludeFlag("/c/crt/include"))
	assert.Equal(t, "-I/s/include", Clang.IncludeFlag("/s/include"))
	assert.Equal(t, "-libpath:/c/crt/lib/x86_64", ClangCL.LibFlag("/c/crt/lib/x86_64"))
	assert.Equal(t, "-L/s/lib", Clang.LibFlag("/s/lib"))

	assert.Equal(t, []string{"-C", "linker-flavor=lld-link"}, ClangCL.RustLinkerFlags())
	assert.Nil(t, Clang.RustLinkerFlags())
}

func TestBackend_Layout(t *testing.T) {
	spec := target.Spec{Triple: "aarch64-pc-windows-msvc", Arch: target.Aarch64}

	p := ClangCL.Layout(spec, "/cache/sdk/k")
	assert.Equal(t, []string{
		"/cache/sdk/k/crt/include",
		"/cache/sdk/k/sdk/include/ucrt",
		"/cache/sdk/k/sdk/include/um",
		"/cache/sdk/k/sdk/include/shared",
		"/cache/sdk/k/sdk/include/winrt",
	}, p.Include)
	assert.Equal(t, []string{
		"/cache/sdk/k/crt/lib/aarch64",
		"/cache/sdk/k/sdk/lib/um/aarch64",
		"/cache/sdk/k/sdk/lib/ucrt/aarch64",
	}, p.Lib)

	spec.IncludeATL = true
	p = ClangCL.Layout(spec, "/cache/sdk/k")
	assert.Contains(t, p.Include, "/cache/sdk/k/crt/atlmfc/include")
	assert.Contains(t, p.Lib, "/cache/sdk/k/crt/atlmfc/lib/aarch64")

	p = Clang.Layout(spec, "/cache/sdk/s")
	assert.Equal(t, []string{"/cache/sdk/s/include", "/cache/sdk/s/include/c++/stl"}, p.Include)
	assert.Equal(t, []string{"/cache/sdk/s/lib/aarch64-unknown-windows-msvc"}, p.Lib)
}

func TestCMakeProcessor(t *testing.T) {
	tests := map[string]string{
		"i586-pc-windows-msvc":     "X86",
		"i686-pc-windows-msvc":     "X86",
		"x86_64-pc-windows-msvc":   "AMD64",
		"aarch64-pc-windows-msvc":  "ARM64",
		"thumbv7a-pc-windows-msvc": "ARM",
		"arm64ec-pc-windows-msvc":  "ARM64EC",
		"riscv64-pc-windows-msvc":  "riscv64",
	}

	for triple, want := range tests {
		assert.Equal(t, want, CMakeProcessor(triple), triple)
	}
}
