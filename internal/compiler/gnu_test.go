package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chalet-org/chalet/internal/model"
)

func TestGnuBuilder_Compile_HelloExecutable(t *testing.T) {
	target := &model.SourceTarget{
		Name:             "hello",
		Kind:             model.Executable,
		Language:         model.LangCxx,
		LanguageStandard: "c++17",
		Rtti:             true,
		Exceptions:       true,
	}
	cfg := &model.BuildConfiguration{Name: "Debug", Optimization: model.Opt0, DebugSymbols: true}
	rt := &model.ResolvedToolchain{Family: model.FamilyGCC, Cpp: "g++"}
	f := &model.SourceFileGroup{
		Source:     "src/main.cpp",
		Object:     "build/Debug/obj/hello/src/main.cpp.o",
		Dependency: "build/Debug/dep/hello/src/main.cpp.d",
		Type:       model.SourceCxx,
	}

	builder := ForFamily(rt.Family)
	argv, output := builder.Compile(target, cfg, rt, f)

	assert.Equal(t, f.Object, output)
	assert.Contains(t, argv, "-std=c++17")
	assert.Contains(t, argv, "-g")
	assert.Contains(t, argv, "-O0")
	assert.Contains(t, argv, "-c")
	assert.Contains(t, argv, "src/main.cpp")
	assert.Contains(t, argv, "-o")
}

func TestGnuBuilder_CompileModule_EmitsBMIOutput(t *testing.T) {
	target := &model.SourceTarget{Name: "mathlib", Kind: model.StaticLibrary, Language: model.LangCxx, LanguageStandard: "c++20"}
	cfg := &model.BuildConfiguration{Name: "Debug", Optimization: model.Opt0}
	rt := &model.ResolvedToolchain{Family: model.FamilyClang, Cpp: "clang++"}
	f := &model.SourceFileGroup{
		Source:         "src/m_a.cpp",
		Object:         "build/Debug/obj/mathlib/src/m_a.cpp.o",
		Type:           model.SourceCxxModule,
		ProvidesModule: "a",
	}

	builder := ForFamily(rt.Family)
	argv, output := builder.CompileModule(target, cfg, rt, f, "build/Debug/bmi/mathlib/a.pcm")

	assert.Equal(t, f.Object, output)
	assert.Contains(t, argv, "-fmodule-output=build/Debug/bmi/mathlib/a.pcm")
	assert.Contains(t, argv, "-std=c++20")
}

func TestGnuBuilder_CompileResource_UsesWindres(t *testing.T) {
	target := &model.SourceTarget{Name: "app", Kind: model.Executable, IncludeDirs: []string{"res"}}
	rt := &model.ResolvedToolchain{Family: model.FamilyMinGWGCC, Rc: "windres"}
	f := &model.SourceFileGroup{Source: "app.rc", Object: "build/Debug/obj/app/app.rc.o", Type: model.SourceWindowsResource}

	builder := ForFamily(rt.Family)
	argv, output := builder.CompileResource(target, rt, f)

	assert.Equal(t, f.Object, output)
	assert.Equal(t, "windres", argv[0])
	assert.Contains(t, argv, "-Ires")
}

func TestWarningPresets_CumulativeGNU(t *testing.T) {
	minimal := gnuWarningArgs(model.WarnMinimal, false)
	strict := gnuWarningArgs(model.WarnStrict, false)
	assert.Subset(t, strict, minimal)
}

func TestWarningPresets_MSVC(t *testing.T) {
	assert.Equal(t, []string{"/W4"}, msvcWarningArgs(model.WarnStrictPedantic, false))
	assert.Equal(t, []string{"/W3", "/WX"}, msvcWarningArgs(model.WarnPedantic, true))
}
