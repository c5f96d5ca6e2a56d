package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chalet-org/chalet/internal/model"
)

// msvcBuilder synthesizes cl.exe/link.exe/lib.exe command lines. PCH
// generation is the two-step dance grounded on
// original_source/src/CacheJson/CacheToolchainParser.cpp's handling of
// precompiled-header cache entries: /Yc compiling the PCH source passed in
// by the caller to produce the .pch, then /Yu + /Fp<pch> on every
// dependent TU.
type msvcBuilder struct{}

func (msvcBuilder) Compile(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, f *model.SourceFileGroup) ([]string, string) {
	args := []string{rt.Cpp, "/nologo", "/c"}
	args = append(args, msvcLanguageStandard(t)...)
	args = append(args, msvcOptimization(cfg)...)
	if cfg.DebugSymbols {
		args = append(args, "/Zi")
	}
	if !t.Rtti {
		args = append(args, "/GR-")
	}
	if t.Exceptions {
		args = append(args, "/EHsc")
	}
	args = append(args, msvcWarningArgs(t.Warnings, false)...)
	for _, d := range t.IncludeDirs {
		args = append(args, "/I"+d)
	}
	for _, d := range t.Defines {
		args = append(args, "/D"+d)
	}
	args = append(args, t.CompileOptions...)
	if t.PchSource != "" && f.Type != model.SourcePrecompiledHeader {
		pchBase := pchObjectPath(f.Object, t)
		args = append(args, "/Yu"+t.PchSource, "/Fp"+pchBase)
	}
	args = append(args, "/showIncludes")
	args = append(args, "/Fo"+f.Object, f.Source)
	return args, f.Object
}

func msvcLanguageStandard(t *model.SourceTarget) []string {
	if t.LanguageStandard == "" {
		return nil
	}
	std := strings.ReplaceAll(t.LanguageStandard, "gnu++", "c++")
	return []string{"/std:" + std}
}

func msvcOptimization(cfg *model.BuildConfiguration) []string {
	switch cfg.Optimization {
	case model.Opt0, model.OptDebug:
		return []string{"/Od"}
	case model.Opt1:
		return []string{"/O1"}
	case model.Opt2, model.Opt3, model.OptFast:
		return []string{"/O2"}
	case model.OptSize:
		return []string{"/O1", "/Os"}
	default:
		return nil
	}
}

// pchObjectPath reproduces internal/layout's PchPath naming
// ("<buildRoot>/pch/<target>/<pch-basename>.pch") without importing it
// (compiler stays a leaf package), recovering buildRoot from the layout's
// "<buildRoot>/obj/<target>/..." object path. An object path outside that
// layout yields "<object minus .obj>-<target>.pch".
func pchObjectPath(objectPath string, t *model.SourceTarget) string {
	sep := string(filepath.Separator)
	if i := strings.Index(objectPath, sep+filepath.Join("obj", t.Name)+sep); i >= 0 {
		return filepath.Join(objectPath[:i], "pch", t.Name, filepath.Base(t.PchSource)+".pch")
	}
	return strings.TrimSuffix(objectPath, ".obj") + "-" + t.Name + ".pch"
}

// CompilePCH synthesizes the /Yc step: pchSource is compiled once as given
// to produce the .pch, after which every dependent TU uses /Yu. No
// wrapper <pch>.cpp is generated; the orchestrator passes the target's
// PCH header itself as pchSource.
func (msvcBuilder) CompilePCH(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, pchSource, pchOutput string) ([]string, string) {
	args := []string{rt.Cpp, "/nologo", "/c"}
	args = append(args, msvcLanguageStandard(t)...)
	args = append(args, msvcOptimization(cfg)...)
	for _, d := range t.IncludeDirs {
		args = append(args, "/I"+d)
	}
	for _, d := range t.Defines {
		args = append(args, "/D"+d)
	}
	args = append(args, "/Yc"+t.PchSource, "/Fp"+pchOutput, "/Fo"+pchOutput+".obj", pchSource)
	return args, pchOutput
}

// CompileModule emits cl.exe's module-interface compile: /interface marks
// the TU as providing a module, /ifcOutput names the BMI sibling.
func (msvcBuilder) CompileModule(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, f *model.SourceFileGroup, bmiOutput string) ([]string, string) {
	args, _ := msvcBuilder{}.Compile(t, cfg, rt, f)
	args = append(args, "/interface", "/ifcOutput"+bmiOutput)
	return args, f.Object
}

func (msvcBuilder) CompileResource(t *model.SourceTarget, rt *model.ResolvedToolchain, f *model.SourceFileGroup) ([]string, string) {
	exe := rt.Rc
	if rt.IsLLVMRc {
		args := []string{exe, "/fo", f.Object, f.Source}
		return args, f.Object
	}
	args := []string{exe, "/nologo", "/fo" + f.Object}
	for _, d := range t.IncludeDirs {
		args = append(args, "/I"+d)
	}
	args = append(args, f.Source)
	return args, f.Object
}

func (msvcBuilder) LinkStaticLibrary(t *model.SourceTarget, rt *model.ResolvedToolchain, objects []string, artifact string) ([]string, string) {
	args := []string{rt.Archiver, "/nologo", "/OUT:" + artifact}
	args = append(args, objects...)
	return args, artifact
}

func (msvcBuilder) LinkSharedLibrary(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, objects []string, artifact string) ([]string, string) {
	args := []string{rt.Linker, "/nologo", "/DLL", "/OUT:" + artifact}
	args = append(args, objects...)
	args = append(args, msvcCommonLinkFlags(t, cfg)...)
	return args, artifact
}

func (msvcBuilder) LinkExecutable(t *model.SourceTarget, cfg *model.BuildConfiguration, rt *model.ResolvedToolchain, objects []string, artifact string) ([]string, string) {
	args := []string{rt.Linker, "/nologo", "/OUT:" + artifact}
	if t.WindowsSubsystem != "" {
		args = append(args, "/SUBSYSTEM:"+t.WindowsSubsystem)
	}
	if t.WindowsEntryPoint != "" {
		args = append(args, "/ENTRY:"+t.WindowsEntryPoint)
	}
	if t.WindowsManifest != "" {
		args = append(args, "/MANIFESTINPUT:"+t.WindowsManifest)
	}
	args = append(args, objects...)
	args = append(args, msvcCommonLinkFlags(t, cfg)...)
	return args, artifact
}

func msvcCommonLinkFlags(t *model.SourceTarget, cfg *model.BuildConfiguration) []string {
	var args []string
	for _, d := range t.LibDirs {
		args = append(args, "/LIBPATH:"+d)
	}
	for _, l := range t.StaticLinks {
		args = append(args, libArg(l))
	}
	for _, l := range t.Links {
		args = append(args, libArg(l))
	}
	args = append(args, t.LinkerOptions...)
	if cfg.DebugSymbols {
		args = append(args, "/DEBUG")
	}
	if cfg.LinkTimeOptimization {
		args = append(args, "/LTCG")
	}
	return args
}

func libArg(name string) string {
	if strings.HasSuffix(name, ".lib") {
		return name
	}
	return fmt.Sprintf("%s.lib", name)
}
