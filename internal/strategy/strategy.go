// Package strategy implements the three execution backends described in
// spec §4.7 behind one interface, plus CMake sub-target driving and the
// macOS universal-binary lipo merge helper.
//
// Grounded on the teacher's Strategy interface in
// internal/scanner/scanner.go (Name() string, one method per concern),
// generalized from "SBOM detection strategy" to "build execution
// backend".
package strategy

import (
	"context"

	"github.com/chalet-org/chalet/internal/model"
)

// BuildPlan is what the orchestrator hands a Strategy for one target: the
// derived compile commands (already cache-filtered to only stale files)
// and the link command, if any.
type BuildPlan struct {
	Target          model.Target
	CompileCommands []*model.Cmd
	// CompileBatches groups CompileCommands into dependency-ordered
	// waves (spec §4.4 "Ordering": PCH before TUs, module interfaces
	// before importers). Native dispatches one batch at a time,
	// in-batch commands concurrently; Makefile/Ninja read the flattened
	// CompileCommands and emit no dependency edges between compile rules.
	CompileBatches [][]*model.Cmd
	LinkCommand    *model.Cmd
	BuildRoot      string
	KeepGoing      bool
}

// Backend is the common interface every execution strategy implements.
type Backend interface {
	Name() string
	Initialize(ctx context.Context) error
	AddTarget(t model.Target) error
	PreBuild(ctx context.Context) error
	BuildTarget(ctx context.Context, plan *BuildPlan) error
	PostBuild(ctx context.Context) error
}

// ForStrategy selects a Backend for the given preference, validated
// against toolchain capability (spec §4.7 "Selection" — e.g. jom is
// MSVC-only).
func ForStrategy(strategy model.Strategy, rt *model.ResolvedToolchain, maxJobs int) (Backend, error) {
	switch strategy {
	case model.StrategyNative:
		return NewNative(maxJobs), nil
	case model.StrategyMakefile:
		return NewMakefile(rt), nil
	case model.StrategyNinja:
		return NewNinja(rt), nil
	default:
		return NewNative(maxJobs), nil
	}
}
