package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/cargo-xwin/internal/config"
	"github.com/Norgate-AV/cargo-xwin/internal/console"
	"github.com/Norgate-AV/cargo-xwin/internal/target"
)

var cacheCmd = &cobra.Command{
	Use:          "cache",
	Short:        "Manage the downloaded MSVC CRT and Windows SDK payloads",
	SilenceUsage: true,
}

var cacheXwinCmd = &cobra.Command{
	Use:                "xwin [options]",
	Short:              "Download the MSVC CRT and Windows SDK used by clang-cl",
	RunE:               populateFor(target.ClangCL),
	SilenceUsage:       true,
	DisableFlagParsing: true,
}

var cacheSysrootCmd = &cobra.Command{
	Use:                "windows-msvc-sysroot [options]",
	Short:              "Download the windows-msvc-sysroot used by clang",
	RunE:               populateFor(target.Clang),
	SilenceUsage:       true,
	DisableFlagParsing: true,
}

var cacheListCmd = &cobra.Command{
	Use:                "list",
	Short:              "List cached payloads",
	RunE:               runCacheList,
	SilenceUsage:       true,
	DisableFlagParsing: true,
}

var cacheCleanCmd = &cobra.Command{
	Use:                "clean",
	Short:              "Remove every cached payload",
	RunE:               runCacheClean,
	SilenceUsage:       true,
	DisableFlagParsing: true,
}

func init() {
	cacheCmd.AddCommand(cacheXwinCmd, cacheSysrootCmd, cacheListCmd, cacheCleanCmd)
}

// populateFor prepares the payload of backend for every configured
// architecture it supports.
func populateFor(backend target.Backend) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
			return cmd.Help()
		}

		cli, err := splitArgs(args, false)
		if err != nil {
			return err
		}

		a, err := newApp(cli, workingDir(), func(cfg *config.Config) {
			cfg.CrossCompiler = string(backend)
		})
		if err != nil {
			return err
		}

		triples := cli.Targets
		if len(triples) == 0 {
			triples = payloadTriples(backend, a.cfg.Arches, a.host.DefaultTriple())
		}

		specs, _, err := target.Resolve(triples, target.FromConfig(a.cfg))
		if err != nil {
			return err
		}

		done := map[string]bool{}
		for _, spec := range specs {
			root, err := a.cache.Ensure(cmd.Context(), spec)
			if err != nil {
				return err
			}

			if !done[root.Dir] {
				done[root.Dir] = true
				console.Successf("%s payload ready", backend)
				fmt.Fprintln(cmd.OutOrStdout(), root.Dir)
			}
		}

		return nil
	}
}

// payloadTriples maps configured architectures to triples the backend
// can build for, falling back to the host's own triple.
func payloadTriples(backend target.Backend, arches []string, fallback string) []string {
	var triples []string
	for _, s := range arches {
		a, err := target.ParseArch(s)
		if err != nil || !backend.Supports(a) {
			continue
		}
		triples = append(triples, a.Triple())
	}

	if len(triples) == 0 {
		return []string{fallback}
	}

	return triples
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cli, err := splitArgs(args, false)
	if err != nil {
		return err
	}

	a, err := newApp(cli, workingDir(), nil)
	if err != nil {
		return err
	}

	entries, err := a.cache.List()
	if err != nil {
		return err
	}

	count, size, err := a.cache.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No cached payloads in %s\n", a.cache.Dir())
		return nil
	}

	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}

		fmt.Fprintf(out, "%-48s %-9s %-22s %-12s %s\n",
			e.Name, e.Backend, e.Provider+" "+version, strings.Join(e.Arches, ","), e.Timestamp.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(out, "\n%d ready payload(s), %s in %s\n", count, formatSize(size), a.cache.Dir())

	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	cli, err := splitArgs(args, false)
	if err != nil {
		return err
	}

	a, err := newApp(cli, workingDir(), nil)
	if err != nil {
		return err
	}

	if err := a.cache.Clear(); err != nil {
		return err
	}

	console.Successf("Cache cleared (%s)", a.cache.Dir())

	return nil
}

func formatSize(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}
