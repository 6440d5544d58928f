package toolchain

import (
	"fmt"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/env"
)

// Quirk is a named rule applied through the override file.
type Quirk struct {
	Name string

	// Lines returns the cmake statements for plan, or nil when the rule
	// does not apply
	Lines func(plan *env.Plan) []string
}

// Quirks in the order they appear in the override file
var Quirks = []Quirk{
	{Name: "SeparateSourceArgument", Lines: separateSourceArgument},
	{Name: "ResourceCompilerOutputFlag", Lines: resourceCompilerOutputFlag},
	{Name: "DisableCmcldeps", Lines: disableCmcldeps},
	{Name: "ResetRCDefaults", Lines: resetRCDefaults},
}

// separateSourceArgument keeps clang-cl from reading /Users/... sources
// as /U options.
func separateSourceArgument(plan *env.Plan) []string {
	from := []string{"-c", "<SOURCE>"}
	to := env.TerminateOptions(plan.Backend.Dialect, from[:1], from[1:])
	if len(to) == len(from) {
		return nil
	}

	var lines []string
	for _, lang := range []string{"C", "CXX"} {
		v := "CMAKE_" + lang + "_COMPILE_OBJECT"
		lines = append(lines, fmt.Sprintf(`string(REPLACE "%s" "%s" %s "${%s}")`,
			strings.Join(from, " "), strings.Join(to, " "), v, v))
	}

	return lines
}

// resourceCompilerOutputFlag spells the output option the way llvm-rc
// accepts it. llvm-rc reads slash options on every host.
func resourceCompilerOutputFlag(*env.Plan) []string {
	args := env.TerminateOptions(compiler.DialectMSVC,
		[]string{"<CMAKE_RC_COMPILER>", "<DEFINES>", "<INCLUDES>", "<FLAGS>", "-fo", "<OBJECT>"},
		[]string{"<SOURCE>"},
	)

	return []string{fmt.Sprintf(`set(CMAKE_RC_COMPILE_OBJECT "%s")`, strings.Join(args, " "))}
}

// disableCmcldeps: cmcldeps only exists in Windows builds of cmake
func disableCmcldeps(plan *env.Plan) []string {
	if plan.Host.IsWindows() {
		return nil
	}

	return []string{"set(CMAKE_NINJA_CMCLDEPS_RC OFF)"}
}

// resetRCDefaults drops the host platform's resource compiler flags
func resetRCDefaults(plan *env.Plan) []string {
	if plan.Host.IsWindows() {
		return nil
	}

	return []string{`set(CMAKE_RC_FLAGS_INIT "")`}
}
