package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Norgate-AV/cargo-xwin/internal/cache"
	"github.com/Norgate-AV/cargo-xwin/internal/cargo"
	"github.com/Norgate-AV/cargo-xwin/internal/codes"
	"github.com/Norgate-AV/cargo-xwin/internal/compiler"
	"github.com/Norgate-AV/cargo-xwin/internal/config"
	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/dispatch"
	"github.com/Norgate-AV/cargo-xwin/internal/emulator"
	"github.com/Norgate-AV/cargo-xwin/internal/sdk"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
	"github.com/Norgate-AV/cargo-xwin/internal/utils"
	"github.com/Norgate-AV/cargo-xwin/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cargo-xwin <subcommand> [options] [cargo args] [-- args]",
	Short: "Cross compile Cargo projects to Windows MSVC targets",
	Long: `Runs cargo with the environment needed to cross compile to *-pc-windows-msvc
targets using the Microsoft CRT and Windows SDK. Any cargo subcommand is
accepted; run and test execute the produced binaries through a runner such
as wine on non-Windows hosts.`,
	RunE:               runCargo,
	SilenceUsage:       true,
	SilenceErrors:      true,
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
}

// Execute runs the command line and exits with the status of whatever
// failed: cargo-xwin's own codes, or the collaborator's status verbatim.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd.SetArgs(stripCargoPrefix(os.Args[1:]))
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if code := exitStatus(err); !codes.IsSuccess(code) {
		os.Exit(code)
	}
}

// exitStatus reports err and returns the status to exit with. A failed
// collaborator has already spoken for itself on its own streams.
func exitStatus(err error) int {
	code := codes.ExitCodeFor(err)
	if codes.IsSuccess(code) || codes.Is(err, codes.KindCollaborator) {
		return code
	}

	console.Errorf("%v", err)
	console.Debugf("exit code %d: %s", code, codes.GetErrorMessage(code))

	return code
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(envCmd, cacheCmd)
}

// app is everything one invocation is wired from
type app struct {
	cfg   *config.Config
	host  utils.Host
	cargo *config.CargoConfig
	cache *cache.Cache

	dispatcher *dispatch.Dispatcher
}

// newApp loads configuration for cli and wires the dispatcher.
// override, when set, adjusts the loaded configuration before anything
// is built from it.
func newApp(cli cliArgs, cwd string, override func(*config.Config)) (*app, error) {
	flags := pflag.NewFlagSet("cargo-xwin", pflag.ContinueOnError)
	config.RegisterFlags(flags)

	if err := flags.Parse(cli.XwinArgs); err != nil {
		return nil, codes.Configuration("flags", "%w", err)
	}

	dir := cli.configDir(cwd)

	cfg, err := config.NewLoader().Load(flags, dir)
	if err != nil {
		return nil, err
	}

	if override != nil {
		override(cfg)
	}

	console.SetVerbose(cfg.Verbose)
	console.Debugf("config: %s", cfg.Describe())

	host := utils.CurrentHost()

	cargoCfg, err := config.LoadCargoConfig(dir, cargoHome())
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.CacheDir, map[target.Backend]sdk.Provider{
		target.ClangCL: sdk.NewXwinProvider(filepath.Join(cfg.CacheDir, "downloads"), host.OS == "darwin" || host.IsWindows()),
		target.Clang:   sdk.NewSysrootProvider(),
	})
	if err != nil {
		return nil, err
	}

	shimDir := filepath.Join(cfg.CacheDir, "bin")

	return &app{
		cfg:   cfg,
		host:  host,
		cargo: cargoCfg,
		cache: c,
		dispatcher: &dispatch.Dispatcher{
			Config:   cfg,
			Cargo:    cargoCfg,
			Host:     host,
			Environ:  os.Environ(),
			Payloads: c,
			Build:    cargo.NewCommandBuilder(host),
			Shims:    compiler.NewShimInstaller(host, shimDir),
			ShimDir:  shimDir,
			NewEmulator: func(runner []string) dispatch.Emulation {
				return emulator.New(host, runner)
			},
		},
	}, nil
}

func cargoHome() string {
	if v := os.Getenv("CARGO_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".cargo")
}
