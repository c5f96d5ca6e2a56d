// Package orchestrator is the top-level driver: it linearizes targets in
// dependency order, asks the cache whether each can be skipped, invokes
// the chosen Strategy, and writes the compile-commands database
// (spec §4.9).
//
// Grounded on internal/scanner/scanner.go's Scan() concurrent-dispatch-
// then-merge orchestration shape (goroutines + channel + sync.WaitGroup
// fan-in), reused here for driving targets in dependency order instead of
// strategies in parallel.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chalet-org/chalet/internal/cache"
	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/compiler"
	"github.com/chalet-org/chalet/internal/layout"
	"github.com/chalet-org/chalet/internal/modcxx"
	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/strategy"
)

// Orchestrator drives one build of a Workspace configuration.
type Orchestrator struct {
	Workspace     *model.Workspace
	Configuration *model.BuildConfiguration
	Toolchain     *model.ResolvedToolchain
	Cache         *cache.WorkspaceCache
	MaxJobs       int
	KeepGoing     bool
	BuildRoot     string
	Strategy      model.Strategy

	// WorkspaceHash is the current build description's canonical hash
	// (cache.WorkspaceHash); compared against cache.TagWorkspaceHash to
	// detect rule (6) of the staleness check (spec §4.5).
	WorkspaceHash string

	Log *logrus.Entry
}

// New constructs an Orchestrator with a logger tagged the way the
// teacher's bracketed "[scanner]" prefixes tagged log lines, now as
// structured logrus fields.
func New(ws *model.Workspace, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, c *cache.WorkspaceCache, maxJobs int) *Orchestrator {
	if maxJobs < 1 {
		maxJobs = 1
	}
	logger := logrus.New()
	return &Orchestrator{
		Workspace:     ws,
		Configuration: cfg,
		Toolchain:     rt,
		Cache:         c,
		MaxJobs:       maxJobs,
		Log:           logger.WithFields(logrus.Fields{"configuration": cfg.Name}),
	}
}

// LinearizeTargets returns Workspace.Targets ordered so that every
// StaticLinks dependency of a SourceTarget precedes it (spec §4.9,
// §5 "Ordering guarantees"). CMake and sub-project targets are atomic
// nodes with no inferred internal edges.
func LinearizeTargets(targets []model.Target) ([]model.Target, error) {
	byName := map[string]model.Target{}
	for _, t := range targets {
		byName[t.TargetName()] = t
	}

	var visited map[string]int // 0 unvisited, 1 in-progress, 2 done
	visited = map[string]int{}
	var order []model.Target
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return &chkerr.Error{Kind: chkerr.ParseError, Key: "targets", Err: fmt.Errorf("dependency cycle: %v", append(stack, name))}
		}
		visited[name] = 1
		stack = append(stack, name)

		t, ok := byName[name]
		if ok {
			if st, isSource := t.(*model.SourceTarget); isSource {
				deps := append([]string{}, st.StaticLinks...)
				sort.Strings(deps)
				for _, dep := range deps {
					if _, exists := byName[dep]; exists {
						if err := visit(dep); err != nil {
							return err
						}
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		visited[name] = 2
		if ok {
			order = append(order, t)
		}
		return nil
	}

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.TargetName())
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Build runs the full orchestration loop for the workspace (spec §4.9
// steps 1-3), returning the set of compile-commands entries written and
// an aggregate error if any target failed.
func (o *Orchestrator) Build(ctx context.Context) ([]cache.CompileCommandsEntry, error) {
	ordered, err := LinearizeTargets(o.Workspace.Targets)
	if err != nil {
		return nil, err
	}

	backend, err := strategy.ForStrategy(o.Strategy, o.Toolchain, o.MaxJobs)
	if err != nil {
		return nil, err
	}
	if err := backend.Initialize(ctx); err != nil {
		return nil, err
	}

	var entries []cache.CompileCommandsEntry
	var failedTargets []string

	for _, t := range ordered {
		o.Log.WithField("target", t.TargetName()).Info("building target")

		st, isSource := t.(*model.SourceTarget)
		if !isSource {
			if err := o.buildNonSourceTarget(ctx, t); err != nil {
				if !o.KeepGoing {
					return entries, err
				}
				failedTargets = append(failedTargets, t.TargetName())
			}
			continue
		}

		plan, planEntries, skip, err := o.planSourceTarget(ctx, st)
		if err != nil {
			if !o.KeepGoing {
				return entries, err
			}
			failedTargets = append(failedTargets, t.TargetName())
			continue
		}
		entries = append(entries, planEntries...)
		if skip {
			o.Log.WithField("target", t.TargetName()).Info("up to date, skipping")
			continue
		}

		if err := backend.AddTarget(t); err != nil {
			return entries, err
		}
		if err := backend.BuildTarget(ctx, plan); err != nil {
			if !o.KeepGoing {
				return entries, err
			}
			failedTargets = append(failedTargets, t.TargetName())
			continue
		}
		o.Cache.SetHash(cache.TagLastStrategy, backend.Name())
	}

	if err := backend.PostBuild(ctx); err != nil {
		return entries, err
	}

	if len(failedTargets) > 0 {
		return entries, &chkerr.Error{Kind: chkerr.CompileFailure, Err: fmt.Errorf("targets failed: %v", failedTargets)}
	}
	return entries, nil
}

func (o *Orchestrator) buildNonSourceTarget(ctx context.Context, t model.Target) error {
	switch v := t.(type) {
	case *model.CMakeTarget:
		return strategy.DriveCMakeTarget(ctx, v, o.BuildRoot, "Ninja")
	case *model.ScriptTarget:
		return o.runScriptTarget(ctx, v)
	case *model.SubChaletTarget:
		return o.runSubChalet(ctx, v)
	default:
		return fmt.Errorf("orchestrator: unknown target variant %T", t)
	}
}

// planSourceTarget derives the per-file compile plan, consulting the
// cache to decide which files are stale (spec §4.9 step 1) and building
// the compile-commands entries for every translation unit regardless of
// staleness (spec §4.9 "one per TU"); resource files get no entry. For module-enabled targets it also scans
// translation units, builds the inter-TU DAG (spec §4.4), and returns
// compile commands grouped into dependency-ordered batches so a Strategy
// can dispatch each batch only after its predecessor has produced every
// BMI it needs.
func (o *Orchestrator) planSourceTarget(ctx context.Context, t *model.SourceTarget) (*strategy.BuildPlan, []cache.CompileCommandsEntry, bool, error) {
	builder := compiler.ForFamily(o.Toolchain.Family)
	artifact := layout.ArtifactPath(o.BuildRoot, t, o.Toolchain.Family, o.Toolchain.TargetTriple)

	var entries []cache.CompileCommandsEntry
	var objects []string
	var batches [][]*model.Cmd
	anyStale := false

	toolchainHash := cache.ToolchainIdentityHash(o.Toolchain)
	prevToolchainHash := o.Cache.GetHash(cache.TagToolchainHash)
	toolchainChanged := prevToolchainHash != "" && prevToolchainHash != toolchainHash
	o.Cache.SetHash(cache.TagToolchainHash, toolchainHash)

	prevWorkspaceHash := o.Cache.GetHash(cache.TagWorkspaceHash)
	workspaceChanged := o.WorkspaceHash != "" && prevWorkspaceHash != "" && prevWorkspaceHash != o.WorkspaceHash
	if o.WorkspaceHash != "" {
		o.Cache.SetHash(cache.TagWorkspaceHash, o.WorkspaceHash)
	}

	// Precompiled header, built ahead of every dependent TU (spec §4.9
	// "Ordering guarantees": "PCH precedes dependent TUs"). Its own
	// command hash is keyed into the cache under its source path, same
	// as any other compiled unit; a PCH rebuild forces every dependent
	// TU stale too, matching spec §4.4's invalidation invariant extended
	// to PCH (§8 scenario 2).
	pchForcesRebuild := false
	if t.PchSource != "" {
		pchOutput := layout.PchPath(o.BuildRoot, t.Name, t.PchSource, o.Toolchain.Family)
		pchArgv, _ := builder.CompilePCH(t, o.Configuration, o.Toolchain, t.PchSource, pchOutput)
		pchHash := cache.CommandHash(pchArgv)

		pchEntry := o.Cache.Get(t.PchSource)
		pchMtime, err := mtimeOf(t.PchSource)
		if err != nil {
			return nil, entries, false, err
		}
		pchStale, err := isFileStale(pchEntry, pchOutput, pchHash, pchMtime, toolchainChanged, workspaceChanged)
		if err != nil {
			return nil, entries, false, err
		}
		if pchStale {
			anyStale = true
			pchForcesRebuild = true
			batches = append(batches, []*model.Cmd{{Output: t.PchSource, Reference: t.PchSource, Command: pchArgv}})
			o.Cache.Put(&cache.FileEntry{SourcePath: t.PchSource, SourceMtime: pchMtime, CommandHash: pchHash})
		}
	}

	fileGroups := make([]*model.SourceFileGroup, 0, len(t.Files)+len(t.HeaderUnits))
	for _, src := range t.Files {
		f := &model.SourceFileGroup{
			Source:     src,
			Object:     layout.ObjectPath(o.BuildRoot, t.Name, src),
			Dependency: layout.DependencyPath(o.BuildRoot, t.Name, src),
			Type:       classifySource(src, t.Language, t.CppModules),
		}
		if t.DumpAssembly {
			f.Assembly = layout.AssemblyPath(o.BuildRoot, t.Name, src)
		}
		fileGroups = append(fileGroups, f)
	}
	for _, src := range t.HeaderUnits {
		fileGroups = append(fileGroups, &model.SourceFileGroup{
			Source:     src,
			Object:     layout.ObjectPath(o.BuildRoot, t.Name, src),
			Dependency: layout.DependencyPath(o.BuildRoot, t.Name, src),
			Type:       model.SourceCxxHeaderUnit,
		})
	}

	for _, f := range fileGroups {
		if f.Type != model.SourceCxxHeaderUnit {
			objects = append(objects, f.Object)
		}
	}

	var moduleOrder []*model.SourceFileGroup
	if t.CppModules {
		scanTargets := moduleGraphFiles(fileGroups)
		for _, f := range scanTargets {
			if err := modcxx.ScanTU(ctx, o.Toolchain, f, t.IncludeDirs, t.Defines); err != nil {
				return nil, entries, false, err
			}
			if f.ProvidesModule != "" && !f.IsModuleImpl {
				f.Type = model.SourceCxxModule
			}
		}
		graph := modcxx.BuildGraph(scanTargets)
		graphBatches, err := graph.TopoBatches()
		if err != nil {
			return nil, entries, false, err
		}
		for _, batch := range graphBatches {
			for _, node := range batch {
				moduleOrder = append(moduleOrder, node.File)
			}
		}
	}

	inModuleOrder := map[*model.SourceFileGroup]bool{}
	for _, f := range moduleOrder {
		inModuleOrder[f] = true
	}

	argvFor := func(f *model.SourceFileGroup) []string {
		switch f.Type {
		case model.SourceWindowsResource:
			argv, _ := builder.CompileResource(t, o.Toolchain, f)
			return argv
		case model.SourceCxxModule, model.SourceCxxHeaderUnit:
			f.ModuleOutput = layout.BmiPath(o.BuildRoot, t.Name, moduleBmiName(f), o.Toolchain.Family)
			argv, _ := builder.CompileModule(t, o.Configuration, o.Toolchain, f, f.ModuleOutput)
			return argv
		default:
			argv, _ := builder.Compile(t, o.Configuration, o.Toolchain, f)
			return argv
		}
	}

	processFile := func(f *model.SourceFileGroup) (*model.Cmd, error) {
		argv := argvFor(f)
		cmdHash := cache.CommandHash(argv)
		if f.Type != model.SourceWindowsResource {
			entries = append(entries, cache.CompileCommandsEntry{File: f.Source, Directory: o.BuildRoot, Arguments: argv})
		}

		entry := o.Cache.Get(f.Source)
		mtime, err := mtimeOf(f.Source)
		if err != nil {
			return nil, err
		}
		stale, err := isFileStale(entry, f.Object, cmdHash, mtime, toolchainChanged, workspaceChanged)
		if err != nil {
			return nil, err
		}
		if pchForcesRebuild && f.Type != model.SourcePrecompiledHeader {
			stale = true
		}
		if !stale {
			return nil, nil
		}
		anyStale = true
		o.Cache.Put(&cache.FileEntry{SourcePath: f.Source, SourceMtime: mtime, CommandHash: cmdHash})
		return &model.Cmd{Output: f.Source, Reference: f.Source, Dependency: f.Dependency, Command: argv}, nil
	}

	// Module/header-unit TUs compile in dependency-ordered batches
	// (spec §4.4 "Ordering"); everything else (C, Objective-C[++],
	// Windows resources, or every TU when modules are disabled) forms
	// one trailing batch with no internal ordering constraint.
	for _, f := range moduleOrder {
		cmd, err := processFile(f)
		if err != nil {
			return nil, entries, false, err
		}
		if cmd != nil {
			batches = append(batches, []*model.Cmd{cmd})
		}
	}
	var rest []*model.Cmd
	for _, f := range fileGroups {
		if inModuleOrder[f] {
			continue
		}
		cmd, err := processFile(f)
		if err != nil {
			return nil, entries, false, err
		}
		if cmd != nil {
			rest = append(rest, cmd)
		}
	}
	if len(rest) > 0 {
		batches = append(batches, rest)
	}

	var compileCmds []*model.Cmd
	for _, batch := range batches {
		compileCmds = append(compileCmds, batch...)
	}

	var link *model.Cmd
	if anyStale || !artifactExists(artifact) {
		var linkArgv []string
		switch t.Kind {
		case model.StaticLibrary:
			linkArgv, _ = builder.LinkStaticLibrary(t, o.Toolchain, objects, artifact)
		case model.SharedLibrary:
			linkArgv, _ = builder.LinkSharedLibrary(t, o.Configuration, o.Toolchain, objects, artifact)
		case model.Executable:
			linkArgv, _ = builder.LinkExecutable(t, o.Configuration, o.Toolchain, objects, artifact)
		}
		if linkArgv != nil {
			link = &model.Cmd{Output: artifact, Reference: artifact, Command: linkArgv}
		}
	}

	skip := !anyStale && link == nil
	plan := &strategy.BuildPlan{
		Target:          t,
		CompileCommands: compileCmds,
		CompileBatches:  batches,
		LinkCommand:     link,
		BuildRoot:       o.BuildRoot,
		KeepGoing:       o.KeepGoing,
	}
	return plan, entries, skip, nil
}

// moduleGraphFiles restricts a target's file groups to the C++ TUs the
// module engine cares about: plain Cxx units (which may still import a
// module, e.g. main.cpp), module-interface units, and header units.
func moduleGraphFiles(fileGroups []*model.SourceFileGroup) []*model.SourceFileGroup {
	var out []*model.SourceFileGroup
	for _, f := range fileGroups {
		switch f.Type {
		case model.SourceCxx, model.SourceCxxModule, model.SourceCxxHeaderUnit:
			out = append(out, f)
		}
	}
	return out
}

// moduleBmiName picks the BMI filename stem: the logical module name for
// an interface unit, or the header's own basename for a header unit.
func moduleBmiName(f *model.SourceFileGroup) string {
	if f.ProvidesModule != "" {
		return f.ProvidesModule
	}
	return filepath.Base(f.Source)
}

func classifySource(path string, lang model.Language, cppModules bool) model.SourceType {
	if strings.EqualFold(filepath.Ext(path), ".rc") {
		return model.SourceWindowsResource
	}
	if cppModules && isModuleInterfaceExt(path) {
		return model.SourceCxxModule
	}
	switch lang {
	case model.LangC:
		return model.SourceC
	case model.LangObjC:
		return model.SourceObjC
	case model.LangObjCxx:
		return model.SourceObjCxx
	default:
		return model.SourceCxx
	}
}

// isModuleInterfaceExt recognizes the conventional C++ module-interface
// extensions across GCC, Clang, and MSVC (spec §4.4).
func isModuleInterfaceExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cppm", ".ixx", ".mpp", ".mxx":
		return true
	default:
		return false
	}
}
