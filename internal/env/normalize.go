package env

import (
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
)

const verbatimPrefix = `\\?\`

// TrimVerbatimPrefix removes the Windows extended-length prefix, which
// clang and cmake do not understand.
func TrimVerbatimPrefix(p string) string {
	return strings.TrimPrefix(p, verbatimPrefix)
}

// ToSlash converts separators on Windows hosts so paths can be embedded in
// flags and cmake files without escaping.
func ToSlash(host utils.Host, p string) string {
	if host.IsWindows() {
		return strings.ReplaceAll(p, `\`, "/")
	}

	return p
}

// NormalizePath applies every path rule in order.
func NormalizePath(host utils.Host, p string) string {
	return ToSlash(host, TrimVerbatimPrefix(p))
}

// QuoteIfSpaced wraps s in double quotes when it contains whitespace.
func QuoteIfSpaced(s string) string {
	if !strings.ContainsAny(s, " \t") {
		return s
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s
	}

	return `"` + s + `"`
}

// IsOptionLike reports whether a standalone argument would be parsed as an
// option by the dialect. clang-cl reads /Users/x.c as /U sers/x.c. Build
// system placeholders such as <SOURCE> may expand to such a path.
func IsOptionLike(d compiler.Dialect, arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return true
	}

	if d != compiler.DialectMSVC {
		return false
	}

	return strings.HasPrefix(arg, "/") || (strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">"))
}

// TerminateOptions joins options and inputs, inserting "--" before the
// inputs when any of them is option-like for the dialect.
func TerminateOptions(d compiler.Dialect, options, inputs []string) []string {
	out := make([]string, 0, len(options)+len(inputs)+1)
	out = append(out, options...)

	for _, in := range inputs {
		if IsOptionLike(d, in) {
			out = append(out, "--")
			break
		}
	}

	return append(out, inputs...)
}
