package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// runCargo handles every cargo subcommand: build, check, run, test and
// anything cargo itself accepts.
func runCargo(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	switch args[0] {
	case "-h", "--help":
		return cmd.Help()
	case "-V", "--version":
		fmt.Fprintln(cmd.OutOrStdout(), cmd.Root().Version)
		return nil
	}

	cli, err := splitArgs(args, true)
	if err != nil {
		return err
	}

	cwd := workingDir()

	a, err := newApp(cli, cwd, nil)
	if err != nil {
		return err
	}

	return a.dispatcher.Dispatch(cmd.Context(), cli.invocation(cwd))
}
