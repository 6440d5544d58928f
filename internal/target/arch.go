package target

import (
	"fmt"
	"strings"
)

// Arch is an architecture name as used by the SDK payload layout.
type Arch string

const (
	X86     Arch = "x86"
	X86_64  Arch = "x86_64"
	Aarch   Arch = "aarch"
	Aarch64 Arch = "aarch64"
)

var archAliases = map[string]Arch{
	"x86":     X86,
	"x86_64":  X86_64,
	"aarch":   Aarch,
	"arm":     Aarch,
	"aarch64": Aarch64,
	"arm64":   Aarch64,
}

// tripleArches maps the first component of a triple to a payload arch
var tripleArches = map[string]Arch{
	"i586":     X86,
	"i686":     X86,
	"x86_64":   X86_64,
	"thumbv7a": Aarch,
	"aarch64":  Aarch64,
}

// ParseArch accepts canonical architecture names and their aliases.
func ParseArch(s string) (Arch, error) {
	if a, ok := archAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}

	return "", fmt.Errorf("unknown architecture %q (expected x86, x86_64, aarch, aarch64)", s)
}

// ArchFromTriple derives the payload architecture from a target triple.
func ArchFromTriple(triple string) (Arch, error) {
	head, _, ok := strings.Cut(triple, "-")
	if !ok {
		return "", fmt.Errorf("invalid target triple %q", triple)
	}

	if a, ok := tripleArches[head]; ok {
		return a, nil
	}

	return "", fmt.Errorf("unsupported architecture %q in %q", head, triple)
}

// Triple is the MSVC triple whose payload arch is a
func (a Arch) Triple() string {
	switch a {
	case X86:
		return "i686-pc-windows-msvc"
	case Aarch:
		return "thumbv7a-pc-windows-msvc"
	default:
		return string(a) + "-pc-windows-msvc"
	}
}

// IsMSVC reports whether triple targets the windows-msvc environment.
func IsMSVC(triple string) bool {
	return strings.HasSuffix(triple, "-windows-msvc")
}

// EnvName is the triple spelled the way cc-rs and cmake-rs look up
// per-target variables, e.g. x86_64_pc_windows_msvc.
func EnvName(triple string) string {
	return strings.ReplaceAll(strings.ToLower(triple), "-", "_")
}

// CargoEnvName is the triple spelled the way cargo looks up
// CARGO_TARGET_<T>_* variables.
func CargoEnvName(triple string) string {
	return strings.ToUpper(EnvName(triple))
}

// Variant selects a flavor of the CRT payload.
type Variant string

const (
	Desktop Variant = "desktop"
	OneCore Variant = "onecore"
	Spectre Variant = "spectre"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case Desktop, OneCore, Spectre:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q (expected desktop, onecore, spectre)", s)
	}
}

// Backend is the C/C++ compiler family used for the target.
type Backend string

const (
	ClangCL Backend = "clang-cl"
	Clang   Backend = "clang"
)

func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clang-cl", "clangcl":
		return ClangCL, nil
	case "clang":
		return Clang, nil
	default:
		return "", fmt.Errorf("unknown cross compiler %q (expected clang-cl or clang)", s)
	}
}

// Supports reports whether the backend's payload provides libraries for a.
func (b Backend) Supports(a Arch) bool {
	switch b {
	case ClangCL:
		return true
	case Clang:
		return a != Aarch
	default:
		return false
	}
}
