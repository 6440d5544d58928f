// Package env computes the environment a cargo child process needs to
// build for an MSVC target.
package env

import (
	"slices"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// Kind tells how a variable combines with a user-provided value.
type Kind int

const (
	// Scalar values are replaced; an explicit user value wins
	Scalar Kind = iota

	// List values keep user entries first and append computed ones
	List
)

// Var is one managed environment variable.
type Var struct {
	Name  string
	Value string
	Kind  Kind

	// Separator between list entries
	Sep string
}

// Flag list keys
const (
	FlagsC       = "c"
	FlagsCXX     = "cxx"
	FlagsRust    = "rust"
	FlagsRC      = "rc"
	FlagsBindgen = "bindgen"
	FlagsLink    = "link"
)

// Plan is the computed environment for one target.
type Plan struct {
	Spec    target.Spec
	Backend *compiler.Backend
	Host    utils.Host

	// Normalized payload root
	Root  string
	Paths compiler.Paths

	// Ordered managed variables
	Vars []Var

	// Variables removed from the child environment
	Unset []string

	// Entries appended to PATH
	PathEntries []string

	// Separator for PATH-like variables on this host
	Separator string

	// Computed flags by language, before merging with user values
	Flags map[string][]string

	// Where the CMake toolchain for this target is written
	ToolchainFile string

	// Whether the target links the static CRT
	StaticCRT bool
}

// Get returns the managed variable called name
func (p *Plan) Get(name string) (Var, bool) {
	for _, v := range p.Vars {
		if v.Name == name {
			return v, true
		}
	}

	return Var{}, false
}

// Value returns the value of a managed variable, or ""
func (p *Plan) Value(name string) string {
	v, _ := p.Get(name)
	return v.Value
}

// Names lists the managed variable names in order
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Vars))
	for _, v := range p.Vars {
		names = append(names, v.Name)
	}

	return names
}

func (p *Plan) set(v Var) {
	for i := range p.Vars {
		if p.Vars[i].Name == v.Name {
			p.Vars[i] = v
			return
		}
	}

	p.Vars = append(p.Vars, v)
}

// lookup reads the user environment
type lookup func(name string) (string, bool)

// scalar records a scalar. A user value wins as is, even when empty.
func (p *Plan) scalar(user lookup, name, computed string) {
	value := computed
	if u, ok := user(name); ok {
		value = u
	}

	p.set(Var{Name: name, Value: value, Kind: Scalar})
}

// list records a list, user entries first
func (p *Plan) list(user lookup, name, sep string, computed []string) {
	var entries []string
	if u, ok := user(name); ok {
		entries = append(entries, splitList(u, sep)...)
	}

	entries = append(entries, computed...)
	p.set(Var{Name: name, Value: strings.Join(entries, sep), Kind: List, Sep: sep})
}

func splitList(value, sep string) []string {
	if sep == " " {
		return strings.Fields(value)
	}

	var out []string
	for _, e := range strings.Split(value, sep) {
		if e != "" {
			out = append(out, e)
		}
	}

	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
