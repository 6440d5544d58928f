package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/cargo-xwin/internal/cargo"
	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/config"
)

// cliArgs is a command line split between cargo-xwin and cargo
type cliArgs struct {
	Subcommand string

	// cargo-xwin options, parsed with config.RegisterFlags
	XwinArgs []string

	Targets     []string
	CargoArgs   []string
	ProgramArgs []string

	// Also left in CargoArgs
	ManifestPath string
	TargetDir    string
}

// stripCargoPrefix drops the subcommand name cargo passes when run as
// `cargo xwin ...`.
func stripCargoPrefix(args []string) []string {
	if len(args) > 0 && args[0] == "xwin" {
		return args[1:]
	}

	return args
}

// splitArgs separates cargo-xwin options from everything cargo should
// see. cargo flags are never interpreted beyond --target, --manifest-path
// and --target-dir.
func splitArgs(args []string, withSubcommand bool) (cliArgs, error) {
	var cli cliArgs

	if withSubcommand && len(args) > 0 {
		cli.Subcommand = args[0]
		args = args[1:]
	}

	value := func(i int, name string, inline string, hasInline bool) (string, int, error) {
		if hasInline {
			return inline, i, nil
		}
		if i+1 >= len(args) {
			return "", i, codes.Configuration("--"+name, "missing value for --%s", name)
		}

		return args[i+1], i + 1, nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			cli.ProgramArgs = append(cli.ProgramArgs, args[i+1:]...)
			break
		}

		if !strings.HasPrefix(arg, "--") {
			cli.CargoArgs = append(cli.CargoArgs, arg)
			continue
		}

		name, inline, hasInline := strings.Cut(arg[2:], "=")

		switch {
		case config.IsFlag(name):
			if hasInline || config.IsBoolFlag(name) {
				cli.XwinArgs = append(cli.XwinArgs, arg)
				continue
			}

			v, next, err := value(i, name, inline, hasInline)
			if err != nil {
				return cliArgs{}, err
			}
			cli.XwinArgs = append(cli.XwinArgs, arg, v)
			i = next

		case name == "target":
			v, next, err := value(i, name, inline, hasInline)
			if err != nil {
				return cliArgs{}, err
			}
			for _, t := range strings.Split(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					cli.Targets = append(cli.Targets, t)
				}
			}
			i = next

		case name == "manifest-path" || name == "target-dir":
			v, next, err := value(i, name, inline, hasInline)
			if err != nil {
				return cliArgs{}, err
			}
			cli.CargoArgs = append(cli.CargoArgs, args[i:next+1]...)
			if name == "manifest-path" {
				cli.ManifestPath = v
			} else {
				cli.TargetDir = v
			}
			i = next

		default:
			cli.CargoArgs = append(cli.CargoArgs, arg)
		}
	}

	return cli, nil
}

// configDir is where local configuration is searched from: the manifest's
// directory when one is given, otherwise the working directory.
func (c cliArgs) configDir(cwd string) string {
	if c.ManifestPath == "" {
		return cwd
	}

	dir := filepath.Dir(c.ManifestPath)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}

	return dir
}

func (c cliArgs) invocation(cwd string) cargo.Invocation {
	return cargo.Invocation{
		Subcommand:   c.Subcommand,
		Targets:      c.Targets,
		CargoArgs:    c.CargoArgs,
		ProgramArgs:  c.ProgramArgs,
		ManifestPath: c.ManifestPath,
		WorkDir:      cwd,
		TargetDir:    c.TargetDir,
	}
}

func workingDir() string {
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}
