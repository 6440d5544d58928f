package env

import (
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

// Environ turns a KEY=VALUE list into a map. Later entries win.
func Environ(kv []string) map[string]string {
	m := make(map[string]string, len(kv))
	for _, e := range kv {
		if k, v, ok := strings.Cut(e, "="); ok && k != "" {
			m[k] = v
		}
	}

	return m
}

// Merge combines the plans of several targets into one ordered variable
// list. Per-target names never collide; for shared names such as
// TARGET_CC or PATH the first plan wins.
func Merge(plans ...*Plan) ([]Var, []string) {
	var (
		vars  []Var
		unset []string
		seen  = map[string]bool{}
		gone  = map[string]bool{}
	)

	for _, p := range plans {
		if p == nil {
			continue
		}

		for _, v := range p.Vars {
			if seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			vars = append(vars, v)
		}

		for _, name := range p.Unset {
			if gone[name] {
				continue
			}
			gone[name] = true
			unset = append(unset, name)
		}
	}

	return vars, unset
}

// Overlay builds a child environment: base in its original order with
// overrides applied, then the plans' managed variables. Managed names
// replace inherited ones, unset names are dropped, and everything else is
// inherited unchanged. Names compare case-insensitively on Windows hosts.
func Overlay(host utils.Host, base []string, overrides map[string]string, plans ...*Plan) []string {
	vars, unset := Merge(plans...)

	key := func(name string) string {
		if host.IsWindows() {
			return strings.ToUpper(name)
		}
		return name
	}

	set := make(map[string]string, len(vars)+len(overrides))
	var order []string

	put := func(name, value string) {
		k := key(name)
		if _, ok := set[k]; !ok {
			order = append(order, name)
		}
		set[k] = name + "=" + value
	}

	for _, e := range base {
		name, value, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			continue
		}
		put(name, value)
	}

	for _, name := range sortedKeys(overrides) {
		put(name, overrides[name])
	}

	for _, v := range vars {
		put(v.Name, v.Value)
	}

	for _, name := range unset {
		delete(set, key(name))
	}

	out := make([]string, 0, len(order))
	for _, name := range order {
		if e, ok := set[key(name)]; ok {
			out = append(out, e)
		}
	}

	return out
}
