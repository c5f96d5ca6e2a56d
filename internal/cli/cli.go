// Package cli wires the cobra verb commands described in spec §6.
// Grounded directly on cmd/root.go's command/flag wiring: one
// *cobra.Command per verb, flags bound with Flags().StringVarP/BoolVar,
// RunE returning wrapped errors.
package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chalet-org/chalet/internal/cache"
	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/config"
	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/orchestrator"
	"github.com/chalet-org/chalet/internal/strategy"
	"github.com/chalet-org/chalet/internal/toolchainid"
)

// Flags holds the subset of CLI flags the core exposes (spec §6); the
// argument parser itself is an external collaborator, but this struct is
// the contract the core exposes to it. EnvFile, OnlyRequired, ShowCommands
// and SaveUserToolchainGlobally are parsed but not read by any command.
type Flags struct {
	Configuration string
	Arch          string
	Toolchain     string
	Jobs          int
	EnvFile       string
	InputFile     string
	OnlyRequired  bool
	GenerateCompileCommands bool
	ShowCommands  bool
	KeepGoing     bool
	SaveUserToolchainGlobally bool
}

var flags Flags

// version identifies this build of the tool itself for the app-build hash
// (spec §6 "Persisted state": "app-build hash (version of this tool
// itself). Any change invalidates the per-target build directory.").
const version = "0.1.0"

// Execute builds the root command and runs it, returning the process
// exit code per the mapping in spec §6.
func Execute() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return 0
}

func exitCodeFor(err error) int {
	if ce, ok := err.(*chkerr.Error); ok {
		return ce.Kind.ExitCode()
	}
	return 1
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "chalet",
		Short: "Cross-platform C/C++/Objective-C build orchestrator",
	}
	root.PersistentFlags().StringVarP(&flags.Configuration, "configuration", "c", "Debug", "build configuration name")
	root.PersistentFlags().StringVarP(&flags.Arch, "arch", "a", "", "target architecture triple or preset")
	root.PersistentFlags().StringVarP(&flags.Toolchain, "toolchain", "t", "", "toolchain name")
	root.PersistentFlags().IntVarP(&flags.Jobs, "jobs", "j", runtime.NumCPU(), "max parallel jobs")
	root.PersistentFlags().StringVar(&flags.EnvFile, "envfile", "", "environment file path")
	root.PersistentFlags().StringVar(&flags.InputFile, "input-file", "chalet.json", "build description path")
	root.PersistentFlags().BoolVar(&flags.OnlyRequired, "only-required", false, "build only required targets")
	root.PersistentFlags().BoolVar(&flags.GenerateCompileCommands, "generate-compile-commands", false, "write compile_commands.json")
	root.PersistentFlags().BoolVar(&flags.ShowCommands, "show-commands", false, "echo full command lines")
	root.PersistentFlags().BoolVar(&flags.KeepGoing, "keep-going", false, "continue past the first failed target")
	root.PersistentFlags().BoolVar(&flags.SaveUserToolchainGlobally, "save-user-toolchain-globally", false, "persist the resolved toolchain to the global cache")

	root.AddCommand(
		newConfigureCommand(),
		newBuildCommand(),
		newRebuildCommand(),
		newCleanCommand(),
		newRunCommand(),
		newBuildRunCommand(),
		newBundleCommand(),
		newInstallCommand(),
		newExportCommand(),
		newInitCommand(),
		newGetCommand(),
		newSetCommand(),
		newUnsetCommand(),
	)
	return root
}

func newConfigureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Load the build description and resolve the toolchain without building",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadAndResolve(cmd.Context())
			return err
		},
	}
}

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build [configuration]",
		Short: "Build the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.Configuration = args[0]
			}
			return runBuild(cmd.Context())
		},
	}
}

func newRebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [configuration]",
		Short: "Clean and rebuild the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.Configuration = args[0]
			}
			if err := runClean(); err != nil {
				return err
			}
			return runBuild(cmd.Context())
		},
	}
}

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the build directory for the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean()
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [target]",
		Short: "Run a built executable target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: run is not implemented in the core; invoke the produced artifact directly")
		},
	}
}

func newBuildRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buildrun [target]",
		Short: "Build then run a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runBuild(cmd.Context()); err != nil {
				return err
			}
			return fmt.Errorf("cli: buildrun's run phase is not implemented in the core")
		},
	}
}

func newBundleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle",
		Short: "Merge per-architecture artifacts into macOS universal binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd.Context())
		},
	}
}

// runBundle is the core's one active contribution to packaging: merging
// the per-architecture artifacts a prior multi-arch build produced into a
// macOS universal binary via lipo (strategy.MergeUniversalBinary).
// Everything else a bundle implies (DMG/NSIS generation, .desktop files,
// Info.plist stitching) is an external collaborator (spec §9 open
// question, DESIGN.md decision #3).
func runBundle(ctx context.Context) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("cli: universal binary merge only runs on macOS")
	}

	raw, err := config.Load(flags.InputFile)
	if err != nil {
		return err
	}
	bundles, err := raw.BuildBundles()
	if err != nil {
		return err
	}

	var merged int
	for _, b := range bundles {
		if !b.MacOSUniversal || b.MainExecutable == "" {
			continue
		}
		archPaths := universalArchPaths(b.ConfigurationName, b.MainExecutable)
		outputPath := fmt.Sprintf("build/%s-universal/%s", b.ConfigurationName, b.MainExecutable)
		if err := os.MkdirAll(fmt.Sprintf("build/%s-universal", b.ConfigurationName), 0o755); err != nil {
			return fmt.Errorf("cli: create universal output dir: %w", err)
		}
		if err := strategy.MergeUniversalBinary(ctx, archPaths, outputPath); err != nil {
			return err
		}
		merged++
	}
	if merged == 0 {
		return fmt.Errorf("cli: no macosUniversal bundle with a mainExecutable found")
	}
	return nil
}

// universalArchPaths derives the per-architecture artifact locations as
// "build/<triple>_<configuration>/<executable>", the naming of
// layout.BuildRoot's PathStyleArchConfiguration. The build command itself
// always writes to "build/<configuration>", so these paths exist only if
// something else placed the artifacts there.
func universalArchPaths(configuration, executable string) []string {
	archTriples := []string{"arm64-apple-darwin", "x86_64-apple-darwin"}
	paths := make([]string, 0, len(archTriples))
	for _, triple := range archTriples {
		paths = append(paths, fmt.Sprintf("build/%s_%s/%s", triple, configuration, executable))
	}
	return paths
}

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install build artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: install is not implemented in the core")
		},
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export an IDE project (external collaborator surface)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: IDE project export is an external collaborator, not implemented in the core")
		},
	}
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new workspace (external collaborator surface)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: scaffolding is an external collaborator, not implemented in the core")
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a value from the build description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: get is not implemented in the core")
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the build description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: set is not implemented in the core")
		},
	}
}

func newUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a value from the build description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("cli: unset is not implemented in the core")
		},
	}
}

func loadAndResolve(ctx context.Context) (*model.ResolvedToolchain, error) {
	if _, err := config.Load(flags.InputFile); err != nil {
		return nil, err
	}

	pref := model.ToolchainPreference{Name: flags.Toolchain}
	triple := flags.Arch
	if triple == "" {
		triple = defaultHostTriple()
	}
	return toolchainid.Resolve(ctx, pref, triple)
}

func defaultHostTriple() string {
	switch runtime.GOOS {
	case "darwin":
		return "arm64-apple-darwin"
	case "windows":
		return "x86_64-pc-windows-msvc"
	default:
		return "x86_64-unknown-linux-gnu"
	}
}

func runBuild(ctx context.Context) error {
	raw, err := config.Load(flags.InputFile)
	if err != nil {
		return err
	}
	configs, err := raw.BuildConfigurations()
	if err != nil {
		return err
	}
	var cfg *model.BuildConfiguration
	for _, c := range configs {
		if c.Name == flags.Configuration {
			cfg = c
		}
	}
	if cfg == nil {
		return &chkerr.Error{Kind: chkerr.ParseError, Key: "configurations", Err: fmt.Errorf("no such configuration: %s", flags.Configuration)}
	}

	rt, err := loadAndResolve(ctx)
	if err != nil {
		return err
	}

	cachePath := ".chalet/workspace-cache.json"
	wcache, err := cache.Load(cachePath)
	if err != nil {
		if !chkerr.Is(err, chkerr.CacheCorrupt) {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	invalidateOnAppBuildChange(wcache)

	targets, err := raw.BuildSourceTargets(config.CurrentPlatform(), cfg.Debuggable())
	if err != nil {
		return err
	}

	ws := &model.Workspace{Name: raw.Workspace, TargetTriple: rt.TargetTriple, Configurations: configs, Targets: targets}
	orch := orchestrator.New(ws, cfg, rt, wcache, flags.Jobs)
	orch.KeepGoing = flags.KeepGoing
	orch.BuildRoot = fmt.Sprintf("build/%s", cfg.Name)
	orch.Strategy = model.StrategyNative
	if canonical, err := raw.CanonicalJSON(); err == nil {
		orch.WorkspaceHash = cache.WorkspaceHash(canonical)
	}

	entries, buildErr := orch.Build(ctx)
	if flags.GenerateCompileCommands {
		_ = cache.WriteCompileCommands(orch.BuildRoot+"/compile_commands.json", entries)
	}
	if err := wcache.Flush(cachePath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to flush cache: %v\n", err)
	}
	return buildErr
}

func runClean() error {
	return os.RemoveAll(fmt.Sprintf("build/%s", flags.Configuration))
}

// invalidateOnAppBuildChange drops every per-file cache entry when this
// tool's own version differs from the one that last wrote the cache,
// since a new app build may synthesize different command lines for the
// same inputs (spec §6 "app-build hash").
func invalidateOnAppBuildChange(wc *cache.WorkspaceCache) {
	appHash := cache.WorkspaceHash([]byte(version))
	prev := wc.GetHash(cache.TagAppBuildHash)
	if prev != "" && prev != appHash {
		wc.Reset()
	}
	wc.SetHash(cache.TagAppBuildHash, appHash)
}
