package strategy

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// Makefile generates a conventional makefile (or an NMake/jom variant on
// MSVC) per target, then invokes the matching build tool (spec §4.7).
type Makefile struct {
	rt      *model.ResolvedToolchain
	tool    string
	targets []model.Target
}

func NewMakefile(rt *model.ResolvedToolchain) *Makefile {
	tool := "make"
	if rt != nil && rt.Family == model.FamilyMSVC {
		tool = "nmake"
		if rt.IsJom {
			tool = "jom"
		}
	}
	return &Makefile{rt: rt, tool: tool}
}

func (m *Makefile) Name() string { return m.tool }

func (m *Makefile) Initialize(ctx context.Context) error { return nil }

func (m *Makefile) AddTarget(t model.Target) error {
	m.targets = append(m.targets, t)
	return nil
}

func (m *Makefile) PreBuild(ctx context.Context) error { return nil }

// BuildTarget writes "<buildRoot>/<target>.mk" with one rule per compile
// command and a link rule, including ".d"-include directives pointing at
// the compiler-emitted dependency files (spec §4.7), then runs the
// resolved make tool against it.
func (m *Makefile) BuildTarget(ctx context.Context, plan *BuildPlan) error {
	mkPath := filepath.Join(plan.BuildRoot, plan.Target.TargetName()+".mk")
	content := renderMakefile(plan)
	if err := platform.WriteFileAtomic(mkPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("strategy: write makefile: %w", err)
	}

	argv := []string{m.tool, "-f", mkPath}
	if m.tool == "make" {
		argv = append(argv, "-j1") // the Command Pool already parallelizes native builds; emitted makefiles run serially per target
	}
	res := platform.Run(ctx, plan.BuildRoot, argv, envDelta(m.rt), 0)
	if res.Err != nil {
		return fmt.Errorf("strategy: %s failed for %s: %w", m.tool, plan.Target.TargetName(), res.Err)
	}
	return nil
}

func (m *Makefile) PostBuild(ctx context.Context) error { return nil }

func renderMakefile(plan *BuildPlan) string {
	var buf bytes.Buffer
	var objects []string
	for _, cmd := range plan.CompileCommands {
		obj := cmd.Reference
		objects = append(objects, obj)
		fmt.Fprintf(&buf, "%s:\n\t%s\n", obj, joinArgv(cmd.Command))
		if cmd.Dependency != "" {
			fmt.Fprintf(&buf, "-include %s\n", cmd.Dependency)
		}
	}
	if plan.LinkCommand != nil {
		fmt.Fprintf(&buf, "all: %s\n", joinStrings(objects))
		fmt.Fprintf(&buf, "\t%s\n", joinArgv(plan.LinkCommand.Command))
	} else {
		fmt.Fprintf(&buf, "all: %s\n", joinStrings(objects))
	}
	return buf.String()
}

func joinArgv(argv []string) string {
	out := ""
	for i, a := range argv {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func joinStrings(ss []string) string { return joinArgv(ss) }

func envDelta(rt *model.ResolvedToolchain) map[string]string {
	if rt == nil {
		return nil
	}
	return rt.EnvDelta
}
