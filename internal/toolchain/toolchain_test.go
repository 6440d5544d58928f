package toolchain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/env"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

var linuxHost = utils.Host{OS: "linux", Arch: "amd64", ListSeparator: ":"}

func testPlan(backend *compiler.Backend, triple string, arch target.Arch, root string) *env.Plan {
	spec := target.Spec{Triple: triple, Arch: arch, Backend: backend.Kind}

	return &env.Plan{
		Spec:    spec,
		Backend: backend,
		Host:    linuxHost,
		Root:    root,
		Paths:   backend.Layout(spec, root),
	}
}

func TestRender_ClangCL(t *testing.T) {
	plan := testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "/cache/sdk/k")

	d, err := Render(plan)
	require.NoError(t, err)

	tc := d.Toolchain
	assert.Contains(t, tc, "set(CMAKE_SYSTEM_NAME Windows)\n")
	assert.Contains(t, tc, "set(CMAKE_SYSTEM_PROCESSOR AMD64)\n")
	assert.Contains(t, tc, `set(CMAKE_C_COMPILER clang-cl CACHE FILEPATH "")`)
	assert.Contains(t, tc, `set(CMAKE_CXX_COMPILER clang-cl CACHE FILEPATH "")`)
	assert.Contains(t, tc, `set(CMAKE_RC_COMPILER llvm-rc CACHE FILEPATH "")`)
	assert.Contains(t, tc, "set(CMAKE_AR llvm-lib)\n")
	assert.Contains(t, tc, `set(CMAKE_LINKER lld-link CACHE FILEPATH "")`)
	assert.Contains(t, tc, `set(CMAKE_MSVC_RUNTIME_LIBRARY "MultiThreadedDLL" CACHE STRING "")`)
	assert.NotContains(t, tc, "cmake_minimum_required")
	assert.NotContains(t, tc, "CMAKE_LINKER_TYPE")

	assert.Contains(t, tc, strings.Join([]string{
		"set(COMPILE_FLAGS",
		"    --target=x86_64-pc-windows-msvc",
		"    -Wno-unused-command-line-argument",
		"    -fuse-ld=lld-link",
		"    /imsvc/cache/sdk/k/crt/include",
		"    /imsvc/cache/sdk/k/sdk/include/ucrt",
		"    /imsvc/cache/sdk/k/sdk/include/um",
		"    /imsvc/cache/sdk/k/sdk/include/shared",
		"    /imsvc/cache/sdk/k/sdk/include/winrt)",
	}, "\n"))

	assert.Contains(t, tc, strings.Join([]string{
		"set(LINK_FLAGS",
		"    /manifest:no",
		"    -libpath:/cache/sdk/k/crt/lib/x86_64",
		"    -libpath:/cache/sdk/k/sdk/lib/um/x86_64",
		"    -libpath:/cache/sdk/k/sdk/lib/ucrt/x86_64)",
	}, "\n"))

	assert.Contains(t, tc, `set(CMAKE_CXX_FLAGS "${_CMAKE_CXX_FLAGS_INITIAL} ${COMPILE_FLAGS} /EHsc" CACHE STRING "" FORCE)`)
	assert.Contains(t, tc, `set(CMAKE_C_STANDARD_LIBRARIES "" CACHE STRING "" FORCE)`)
	assert.Contains(t, tc, `set(CMAKE_CXX_STANDARD_LIBRARIES "" CACHE STRING "" FORCE)`)
	assert.Contains(t, tc, `set(CMAKE_USER_MAKE_RULES_OVERRIDE "${CMAKE_CURRENT_LIST_DIR}/override.cmake")`)

	assert.Equal(t, []string{"SeparateSourceArgument", "ResourceCompilerOutputFlag", "DisableCmcldeps", "ResetRCDefaults"}, d.Quirks)
	assert.Contains(t, d.Override, `string(REPLACE "-c <SOURCE>" "-c -- <SOURCE>" CMAKE_C_COMPILE_OBJECT "${CMAKE_C_COMPILE_OBJECT}")`)
	assert.Contains(t, d.Override, `string(REPLACE "-c <SOURCE>" "-c -- <SOURCE>" CMAKE_CXX_COMPILE_OBJECT "${CMAKE_CXX_COMPILE_OBJECT}")`)
	assert.Contains(t, d.Override, `set(CMAKE_RC_COMPILE_OBJECT "<CMAKE_RC_COMPILER> <DEFINES> <INCLUDES> <FLAGS> -fo <OBJECT> -- <SOURCE>")`)
	assert.Contains(t, d.Override, "set(CMAKE_NINJA_CMCLDEPS_RC OFF)")
	assert.Contains(t, d.Override, `set(CMAKE_RC_FLAGS_INIT "")`)
}

func TestRender_Clang(t *testing.T) {
	plan := testPlan(compiler.Clang, "aarch64-pc-windows-msvc", target.Aarch64, "/cache/sdk/s")

	d, err := Render(plan)
	require.NoError(t, err)

	tc := d.Toolchain
	assert.Contains(t, tc, "cmake_minimum_required(VERSION 3.29)\n")
	assert.Contains(t, tc, "set(CMAKE_SYSTEM_PROCESSOR ARM64)\n")
	assert.Contains(t, tc, `set(CMAKE_C_COMPILER clang CACHE FILEPATH "")`)
	assert.Contains(t, tc, `set(CMAKE_CXX_COMPILER clang++ CACHE FILEPATH "")`)
	assert.Contains(t, tc, `set(CMAKE_LINKER_TYPE LLD CACHE STRING "")`)
	assert.NotContains(t, tc, "set(CMAKE_LINKER ")
	assert.NotContains(t, tc, "/manifest:no")
	assert.Contains(t, tc, "    --target=aarch64-windows-msvc\n")
	assert.Contains(t, tc, "    -I/cache/sdk/s/include/c++/stl)")
	assert.Contains(t, tc, "    -L/cache/sdk/s/lib/aarch64-unknown-windows-msvc)")
	assert.Contains(t, tc, `${COMPILE_FLAGS}" CACHE STRING "" FORCE)`)

	// The GNU dialect does not read slash paths as options
	assert.NotContains(t, d.Quirks, "SeparateSourceArgument")
	assert.Contains(t, d.Quirks, "ResourceCompilerOutputFlag")
}

func TestRender_StaticCRT(t *testing.T) {
	plan := testPlan(compiler.ClangCL, "i686-pc-windows-msvc", target.X86, "/cache/sdk/k")
	plan.StaticCRT = true

	d, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, d.Toolchain, `set(CMAKE_MSVC_RUNTIME_LIBRARY "MultiThreaded" CACHE STRING "")`)
	assert.Contains(t, d.Toolchain, "set(CMAKE_SYSTEM_PROCESSOR X86)")
}

func TestRender_WindowsHost(t *testing.T) {
	plan := testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "C:/cache/sdk/k")
	plan.Host = utils.Host{OS: "windows", ListSeparator: ";", ExeSuffix: ".exe"}

	d, err := Render(plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"SeparateSourceArgument", "ResourceCompilerOutputFlag"}, d.Quirks)
	assert.NotContains(t, d.Override, "CMCLDEPS")
}

func TestRender_QuotesSpacedPaths(t *testing.T) {
	plan := testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "/Users/Jane Doe/cache")

	d, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, d.Toolchain, `    /imsvc"/Users/Jane Doe/cache/crt/include"`)
	assert.Contains(t, d.Toolchain, `    -libpath:"/Users/Jane Doe/cache/crt/lib/x86_64"`)
}

func TestRender_Deterministic(t *testing.T) {
	plan := testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "/cache/sdk/k")

	first, err := Render(plan)
	require.NoError(t, err)

	second, err := Render(plan)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_NoBackend(t *testing.T) {
	_, err := Render(&env.Plan{})
	assert.Error(t, err)

	_, err = Render(nil)
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xwin", "cmake", "clang-cl", "x86_64-pc-windows-msvc-toolchain.cmake")

	d, err := Render(testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "/cache/sdk/k"))
	require.NoError(t, err)
	require.NoError(t, Write(d, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, d.Toolchain, string(got))

	override, err := os.ReadFile(filepath.Join(filepath.Dir(path), OverrideName))
	require.NoError(t, err)
	assert.Equal(t, d.Override, string(override))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWrite_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x86_64-pc-windows-msvc-toolchain.cmake")

	d, err := Render(testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "/cache/sdk/k"))
	require.NoError(t, err)
	require.NoError(t, Write(d, path))

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, Write(d, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged content should not be rewritten")
}

func TestWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x86_64-pc-windows-msvc-toolchain.cmake")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	d, err := Render(testPlan(compiler.ClangCL, "x86_64-pc-windows-msvc", target.X86_64, "/cache/sdk/k"))
	require.NoError(t, err)
	require.NoError(t, Write(d, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, d.Toolchain, string(got))
}
