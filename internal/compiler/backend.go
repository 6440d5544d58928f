// Package compiler describes the two clang dialects cargo-xwin can drive
// and where each finds headers and libraries inside a prepared payload.
package compiler

import (
	"fmt"
	"path"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

// Backend is a compiler family and the tools that go with it. The
// compiler, archiver, linker and resource compiler always come from the
// same backend.
type Backend struct {
	Kind target.Backend

	CC     string
	CXX    string
	AR     string
	Linker string
	RC     string

	// Dialect used to read command lines, for option-like path detection
	Dialect Dialect
}

// Dialect is the command line syntax a compiler accepts.
type Dialect int

const (
	// DialectGNU accepts only dash options
	DialectGNU Dialect = iota

	// DialectMSVC also accepts slash options, so /Users/... reads as one
	DialectMSVC
)

var (
	ClangCL = &Backend{
		Kind:    target.ClangCL,
		CC:      "clang-cl",
		CXX:     "clang-cl",
		AR:      "llvm-lib",
		Linker:  "lld-link",
		RC:      "llvm-rc",
		Dialect: DialectMSVC,
	}

	Clang = &Backend{
		Kind:    target.Clang,
		CC:      "clang",
		CXX:     "clang++",
		AR:      "llvm-lib",
		Linker:  "lld",
		RC:      "llvm-rc",
		Dialect: DialectGNU,
	}
)

// For returns the backend for kind
func For(kind target.Backend) (*Backend, error) {
	switch kind {
	case target.ClangCL:
		return ClangCL, nil
	case target.Clang:
		return Clang, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// CompilerTriple is the triple passed to --target. The sysroot is laid
// out for vendor-less triples.
func (b *Backend) CompilerTriple(triple string) string {
	if b.Kind == target.Clang {
		return strings.Replace(triple, "-pc-", "-", 1)
	}

	return triple
}

// CompileFlags are the flags every C and C++ compilation gets, before
// search paths.
func (b *Backend) CompileFlags(triple string) []string {
	if b.Kind == target.Clang {
		return []string{"--target=" + b.CompilerTriple(triple), "-fuse-ld=lld"}
	}

	return []string{
		"--target=" + triple,
		"-Wno-unused-command-line-argument",
		"-fuse-ld=lld-link",
	}
}

// CXXFlags are added to C++ compilations only
func (b *Backend) CXXFlags() []string {
	if b.Kind == target.ClangCL {
		return []string{"/EHsc"}
	}

	return nil
}

// IncludeFlag spells a system include directory
func (b *Backend) IncludeFlag(dir string) string {
	if b.Kind == target.ClangCL {
		return "/imsvc" + dir
	}

	return "-I" + dir
}

// LibFlag spells a library search directory
func (b *Backend) LibFlag(dir string) string {
	if b.Kind == target.ClangCL {
		return "-libpath:" + dir
	}

	return "-L" + dir
}

// RustLinkerFlags are passed to rustc ahead of the -Lnative entries
func (b *Backend) RustLinkerFlags() []string {
	if b.Kind == target.ClangCL {
		return []string{"-C", "linker-flavor=lld-link"}
	}

	return nil
}

// Paths are the directories of a payload a target compiles and links against.
type Paths struct {
	Include []string
	Lib     []string
}

// Layout returns the search directories for spec inside root. root must
// already be forward-slashed; the result is joined with forward slashes.
func (b *Backend) Layout(spec target.Spec, root string) Paths {
	if b.Kind == target.Clang {
		libTriple := strings.Replace(spec.Triple, "-pc-", "-unknown-", 1)
		return Paths{
			Include: []string{
				path.Join(root, "include"),
				path.Join(root, "include/c++/stl"),
			},
			Lib: []string{
				path.Join(root, "lib", libTriple),
			},
		}
	}

	arch := string(spec.Arch)
	p := Paths{
		Include: []string{
			path.Join(root, "crt/include"),
			path.Join(root, "sdk/include/ucrt"),
			path.Join(root, "sdk/include/um"),
			path.Join(root, "sdk/include/shared"),
			path.Join(root, "sdk/include/winrt"),
		},
		Lib: []string{
			path.Join(root, "crt/lib", arch),
			path.Join(root, "sdk/lib/um", arch),
			path.Join(root, "sdk/lib/ucrt", arch),
		},
	}

	if spec.IncludeATL {
		p.Include = append(p.Include, path.Join(root, "crt/atlmfc/include"))
		p.Lib = append(p.Lib, path.Join(root, "crt/atlmfc/lib", arch))
	}

	return p
}

// CMakeProcessor maps a triple to CMAKE_SYSTEM_PROCESSOR
func CMakeProcessor(triple string) string {
	arch, _, _ := strings.Cut(triple, "-")

	switch arch {
	case "i586", "i686":
		return "X86"
	case "x86_64":
		return "AMD64"
	case "aarch64":
		return "ARM64"
	case "thumbv7a":
		return "ARM"
	case "arm64ec":
		return "ARM64EC"
	default:
		return arch
	}
}
