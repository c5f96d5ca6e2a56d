package compiler

import (
	"fmt"

	"github.com/chalet-org/chalet/internal/model"
)

// gnuBuilder covers GCC, Clang, AppleClang, MinGW-{GCC,Clang}, the Intel
// families (which share the GNU-style driver), and Emscripten (emcc/em++
// accept the same GNU-style flags).
type gnuBuilder struct {
	clang      bool
	intel      bool
	emscripten bool
}

func (b gnuBuilder) Compile(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, f *model.SourceFileGroup) ([]string, string) {
	exe := compilerExecutable(t, rt)
	args := []string{exe}
	args = append(args, b.languageFlags(t, f)...)
	args = append(args, addLanguageStandard(t)...)
	args = append(args, addOptimization(cfg)...)
	if cfg.DebugSymbols {
		args = append(args, "-g")
	}
	if cfg.Profiling {
		args = append(args, "-pg")
	}
	if t.Kind == model.SharedLibrary || t.Kind == model.ObjectLibrary {
		args = append(args, "-fPIC")
	}
	if !t.Rtti {
		args = append(args, "-fno-rtti")
	}
	if !t.Exceptions {
		args = append(args, "-fno-exceptions")
	}
	if t.Threads == model.ThreadsPosix {
		args = append(args, "-pthread")
	}
	args = append(args, gnuWarningArgs(t.Warnings, false)...)
	for _, d := range t.IncludeDirs {
		args = append(args, "-I"+d)
	}
	for _, d := range t.Defines {
		args = append(args, "-D"+d)
	}
	args = append(args, t.CompileOptions...)
	if t.PchSource != "" && f.Type != model.SourcePrecompiledHeader {
		args = append(args, "-include", t.PchSource)
	}
	args = append(args, "-MD", "-MT", f.Object, "-MF", f.Dependency+".Td")
	if f.Assembly != "" {
		args = append(args, "-save-temps=obj")
	}
	args = append(args, "-c", f.Source, "-o", f.Object)
	return args, f.Object
}

func (b gnuBuilder) languageFlags(t *model.SourceTarget, f *model.SourceFileGroup) []string {
	switch f.Type {
	case model.SourceObjC:
		return []string{"-x", "objective-c"}
	case model.SourceObjCxx:
		return []string{"-x", "objective-c++"}
	case model.SourceC:
		return []string{"-x", "c"}
	default:
		return []string{"-x", "c++"}
	}
}

func addLanguageStandard(t *model.SourceTarget) []string {
	if t.LanguageStandard == "" {
		return nil
	}
	return []string{"-std=" + t.LanguageStandard}
}

func addOptimization(cfg *model.BuildConfiguration) []string {
	switch cfg.Optimization {
	case model.Opt0:
		return []string{"-O0"}
	case model.Opt1:
		return []string{"-O1"}
	case model.Opt2:
		return []string{"-O2"}
	case model.Opt3:
		return []string{"-O3"}
	case model.OptSize:
		return []string{"-Os"}
	case model.OptFast:
		return []string{"-Ofast"}
	case model.OptDebug:
		return []string{"-Og"}
	default:
		return nil
	}
}

func (b gnuBuilder) CompilePCH(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, pchSource, pchOutput string) ([]string, string) {
	exe := compilerExecutable(t, rt)
	args := []string{exe, "-x", "c++-header"}
	args = append(args, addLanguageStandard(t)...)
	args = append(args, addOptimization(cfg)...)
	for _, d := range t.IncludeDirs {
		args = append(args, "-I"+d)
	}
	for _, d := range t.Defines {
		args = append(args, "-D"+d)
	}
	args = append(args, "-c", pchSource, "-o", pchOutput)
	return args, pchOutput
}

// CompileModule emits a module-interface unit's compile command: the
// object as usual, plus the BMI sibling output so downstream importers
// (§4.4) can consume it before this TU is linked. Clang and GCC spell
// this flag the same way as of the p1689-emitting toolchain versions
// this engine targets.
func (b gnuBuilder) CompileModule(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, f *model.SourceFileGroup, bmiOutput string) ([]string, string) {
	args, _ := b.Compile(t, cfg, rt, f)
	args = append(args, "-fmodule-output="+bmiOutput)
	return args, f.Object
}

func (b gnuBuilder) CompileResource(t *model.SourceTarget, rt *model.ResolvedToolchain, f *model.SourceFileGroup) ([]string, string) {
	// windres, the GNU-family resource compiler.
	args := []string{rt.Rc, "-i", f.Source, "-o", f.Object, "--output-format=coff"}
	for _, d := range t.IncludeDirs {
		args = append(args, "-I"+d)
	}
	return args, f.Object
}

func (b gnuBuilder) LinkStaticLibrary(t *model.SourceTarget, rt *model.ResolvedToolchain, objects []string, artifact string) ([]string, string) {
	args := []string{rt.Archiver, "rcs", artifact}
	args = append(args, objects...)
	return args, artifact
}

func (b gnuBuilder) LinkSharedLibrary(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, objects []string, artifact string) ([]string, string) {
	exe := compilerExecutable(t, rt)
	args := []string{exe, "-shared", "-o", artifact}
	args = append(args, objects...)
	args = append(args, b.commonLinkFlags(t, cfg)...)
	return args, artifact
}

func (b gnuBuilder) LinkExecutable(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, objects []string, artifact string) ([]string, string) {
	exe := compilerExecutable(t, rt)
	args := []string{exe, "-o", artifact}
	args = append(args, objects...)
	args = append(args, b.commonLinkFlags(t, cfg)...)
	if t.StaticLinking {
		args = append(args, "-static")
	}
	return args, artifact
}

func (b gnuBuilder) commonLinkFlags(t *model.SourceTarget, cfg *model.BuildConfiguration) []string {
	var args []string
	for _, d := range t.LibDirs {
		args = append(args, "-L"+d)
	}
	for _, f := range t.Frameworks {
		args = append(args, "-framework", f)
	}
	for _, p := range t.FrameworkPaths {
		args = append(args, "-F"+p)
	}
	if t.LinkerScript != "" {
		args = append(args, fmt.Sprintf("-Wl,-T,%s", t.LinkerScript))
	}
	for _, l := range t.StaticLinks {
		args = append(args, "-l"+l)
	}
	for _, l := range t.Links {
		args = append(args, "-l"+l)
	}
	args = append(args, t.LinkerOptions...)
	if cfg.StripSymbols {
		args = append(args, "-s")
	}
	if cfg.LinkTimeOptimization {
		args = append(args, "-flto")
	}
	if t.Threads == model.ThreadsPosix {
		args = append(args, "-pthread")
	}
	return args
}
