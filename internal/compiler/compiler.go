// Package compiler synthesizes compile, PCH, resource, and link command
// vectors from a (target, file, toolchain) triple. One builder per
// compiler family implements the Builder interface; each maps the same
// set of abstract intents (add_include_dirs, add_optimization, …) onto
// its family's native flags (spec §4.3).
package compiler

import (
	"github.com/chalet-org/chalet/internal/model"
)

// Builder is the per-family command synthesizer. Every method returns
// the full argv (including the compiler/linker executable at index 0)
// and the output path the command produces.
type Builder interface {
	Compile(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, f *model.SourceFileGroup) (argv []string, output string)
	CompilePCH(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, pchSource, pchOutput string) (argv []string, output string)
	CompileModule(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, f *model.SourceFileGroup, bmiOutput string) (argv []string, output string)
	CompileResource(t *model.SourceTarget, rt *model.ResolvedToolchain, f *model.SourceFileGroup) (argv []string, output string)
	LinkStaticLibrary(t *model.SourceTarget, rt *model.ResolvedToolchain, objects []string, artifact string) (argv []string, output string)
	LinkSharedLibrary(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, objects []string, artifact string) (argv []string, output string)
	LinkExecutable(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, objects []string, artifact string) (argv []string, output string)
}

// ForFamily returns the Builder for rt.Family, grounded on
// original_source/src/Compile/CompileFactory.cpp's switch over
// ToolchainType for selecting a concrete strategy.
func ForFamily(family model.Family) Builder {
	switch family {
	case model.FamilyMSVC:
		return msvcBuilder{}
	case model.FamilyGCC, model.FamilyMinGWGCC:
		return gnuBuilder{clang: false}
	case model.FamilyClang, model.FamilyAppleClang, model.FamilyMinGWClang:
		return gnuBuilder{clang: true}
	case model.FamilyIntelClassic:
		return gnuBuilder{clang: false, intel: true}
	case model.FamilyIntelLLVM:
		return gnuBuilder{clang: true, intel: true}
	case model.FamilyEmscripten:
		return gnuBuilder{clang: true, emscripten: true}
	default:
		return gnuBuilder{}
	}
}

// compilerExecutable picks cc vs cpp by language.
func compilerExecutable(t *model.SourceTarget, rt *model.ResolvedToolchain) string {
	switch t.Language {
	case model.LangC:
		return rt.Cc
	default:
		return rt.Cpp
	}
}
