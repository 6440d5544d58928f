package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/cargo-xwin/internal/dispatch"
)

var envCmd = &cobra.Command{
	Use:                "env [options] [--target <triple>]",
	Short:              "Print the environment used for cross compilation",
	Long:               `Prints shell export statements for every variable cargo-xwin sets, so that tools other than cargo can use the same environment: eval "$(cargo xwin env)"`,
	RunE:               runEnv,
	SilenceUsage:       true,
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
}

func runEnv(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		return cmd.Help()
	}

	cli, err := splitArgs(args, false)
	if err != nil {
		return err
	}
	cli.Subcommand = "build"

	cwd := workingDir()

	a, err := newApp(cli, cwd, nil)
	if err != nil {
		return err
	}

	prep, err := a.dispatcher.Prepare(cmd.Context(), cli.invocation(cwd))
	if err != nil {
		return err
	}

	exports, unset := a.dispatcher.Exports(prep)
	writeExports(cmd.OutOrStdout(), exports, unset)

	return nil
}

func writeExports(w io.Writer, exports []dispatch.Export, unset []string) {
	for _, e := range exports {
		fmt.Fprintf(w, "export %s=\"%s\";\n", e.Name, shellEscape(e.Value))
	}

	for _, name := range unset {
		fmt.Fprintf(w, "unset %s;\n", name)
	}
}

var shellEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// shellEscape makes value safe inside double quotes
func shellEscape(value string) string {
	return shellEscaper.Replace(value)
}
