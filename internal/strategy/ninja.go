package strategy

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// Ninja generates build.ninja (using `deps = gcc` or `deps = msvc` with
// msvc_deps_prefix) and executes ninja as one child (spec §4.7).
//
// Grounded on original_source/src/Compile/Generator/NinjaGenerator.hpp
// for the rule-emission shape (one `rule compile`/`rule link` pair plus
// per-file `build` statements referencing them).
type Ninja struct {
	rt      *model.ResolvedToolchain
	targets []model.Target
}

func NewNinja(rt *model.ResolvedToolchain) *Ninja {
	return &Ninja{rt: rt}
}

func (n *Ninja) Name() string { return "ninja" }

func (n *Ninja) Initialize(ctx context.Context) error { return nil }

func (n *Ninja) AddTarget(t model.Target) error {
	n.targets = append(n.targets, t)
	return nil
}

func (n *Ninja) PreBuild(ctx context.Context) error { return nil }

func (n *Ninja) BuildTarget(ctx context.Context, plan *BuildPlan) error {
	ninjaPath := filepath.Join(plan.BuildRoot, "build.ninja")
	content := n.renderNinja(plan)
	if err := platform.WriteFileAtomic(ninjaPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("strategy: write build.ninja: %w", err)
	}

	res := platform.Run(ctx, plan.BuildRoot, []string{"ninja", "-f", ninjaPath}, envDelta(n.rt), 0)
	if res.Err != nil {
		return fmt.Errorf("strategy: ninja failed for %s: %w", plan.Target.TargetName(), res.Err)
	}
	return nil
}

func (n *Ninja) PostBuild(ctx context.Context) error { return nil }

func (n *Ninja) renderNinja(plan *BuildPlan) string {
	var buf bytes.Buffer

	depsMode := "gcc"
	if n.rt != nil && n.rt.Family == model.FamilyMSVC {
		depsMode = "msvc"
	}

	fmt.Fprintf(&buf, "rule compile\n  command = $command\n  deps = %s\n", depsMode)
	if depsMode == "msvc" {
		fmt.Fprintf(&buf, "  msvc_deps_prefix = Note: including file:\n")
	} else {
		fmt.Fprintf(&buf, "  depfile = $out.d\n")
	}
	fmt.Fprintf(&buf, "\nrule link\n  command = $command\n\n")

	var objects []string
	for _, cmd := range plan.CompileCommands {
		obj := cmd.Reference
		objects = append(objects, obj)
		fmt.Fprintf(&buf, "build %s: compile\n  command = %s\n", obj, joinArgv(cmd.Command))
	}
	if plan.LinkCommand != nil {
		fmt.Fprintf(&buf, "build %s: link %s\n  command = %s\n", plan.Target.TargetName(), joinStrings(objects), joinArgv(plan.LinkCommand.Command))
		fmt.Fprintf(&buf, "default %s\n", plan.Target.TargetName())
	}
	return buf.String()
}
