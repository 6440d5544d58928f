package target

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// Spec is a fully validated description of one MSVC target and the
// payload it needs.
type Spec struct {
	Triple string
	Arch   Arch

	Variants        []Variant
	ManifestVersion string
	SDKVersion      string
	CRTVersion      string

	IncludeATL          bool
	IncludeDebugLibs    bool
	IncludeDebugSymbols bool

	// Every architecture the payload is prepared for, always including Arch
	PayloadArches []Arch

	Backend  Backend
	CacheDir string
}

// Extras are optional payload components that do not change the key.
type Extras struct {
	DebugLibs    bool `json:"debug_libs"`
	DebugSymbols bool `json:"debug_symbols"`
}

// Covers reports whether a payload with e satisfies a request for want.
func (e Extras) Covers(want Extras) bool {
	return (e.DebugLibs || !want.DebugLibs) && (e.DebugSymbols || !want.DebugSymbols)
}

// Suffix is appended to the entry directory name.
func (e Extras) Suffix() string {
	var s string
	if e.DebugLibs {
		s += "-dbglibs"
	}
	if e.DebugSymbols {
		s += "-dbgsyms"
	}

	return s
}

// Extras returns the debug toggles. The sysroot payload has none.
func (s Spec) Extras() Extras {
	if s.Backend == Clang {
		return Extras{}
	}

	return Extras{DebugLibs: s.IncludeDebugLibs, DebugSymbols: s.IncludeDebugSymbols}
}

// CacheKey identifies the payload this spec needs. Triples that share a
// payload share a key; Arch and the debug toggles are not part of it.
func (s Spec) CacheKey() string {
	h := sha256.New()

	write := func(field, value string) {
		h.Write([]byte(field))
		h.Write([]byte{0})
		h.Write([]byte(value))
		h.Write([]byte{0})
	}

	write("backend", string(s.Backend))

	// The sysroot is a single archive independent of the xwin options
	if s.Backend != Clang {
		arches := make([]string, 0, len(s.PayloadArches))
		for _, a := range s.PayloadArches {
			arches = append(arches, string(a))
		}
		slices.Sort(arches)

		variants := make([]string, 0, len(s.Variants))
		for _, v := range s.Variants {
			variants = append(variants, string(v))
		}
		slices.Sort(variants)

		write("arches", strings.Join(arches, ","))
		write("variants", strings.Join(variants, ","))
		write("manifest", s.ManifestVersion)
		write("sdk", s.SDKVersion)
		write("crt", s.CRTVersion)
		if s.IncludeATL {
			write("atl", "1")
		}
	}

	return hex.EncodeToString(h.Sum(nil))[:32]
}

// EnvName is the lower-case underscored triple.
func (s Spec) EnvName() string {
	return EnvName(s.Triple)
}

// CargoEnvName is the upper-case underscored triple.
func (s Spec) CargoEnvName() string {
	return CargoEnvName(s.Triple)
}
