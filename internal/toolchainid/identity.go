// Package toolchainid resolves a ToolchainPreference into a concrete
// ResolvedToolchain: locating tool executables, classifying the compiler
// family by preprocessor-macro probe, parsing its version, and remapping
// architecture-specific directory pairs (spec §4.1).
package toolchainid

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/discovery"
	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// tagTable mirrors internal/fingerprints/db.go's first-match-wins static
// classification table, generalized from "library fingerprint" to
// "compiler family fingerprint" (spec §4.1 step 3).
var tagTable = []struct {
	family  model.Family
	matches func(tags map[string]bool) bool
}{
	{model.FamilyEmscripten, func(t map[string]bool) bool { return t["__EMSCRIPTEN__"] }},
	{model.FamilyAppleClang, func(t map[string]bool) bool { return t["__clang__"] && t["__APPLE_CC__"] }},
	{model.FamilyMinGWClang, func(t map[string]bool) bool {
		return t["__clang__"] && (t["__MINGW32__"] || t["__MINGW64__"])
	}},
	{model.FamilyClang, func(t map[string]bool) bool { return t["__clang__"] }},
	{model.FamilyIntelLLVM, func(t map[string]bool) bool { return t["__INTEL_LLVM_COMPILER"] }},
	{model.FamilyIntelClassic, func(t map[string]bool) bool { return t["__INTEL_COMPILER"] }},
	{model.FamilyMinGWGCC, func(t map[string]bool) bool {
		return t["__GNUC__"] && (t["__MINGW32__"] || t["__MINGW64__"])
	}},
	{model.FamilyGCC, func(t map[string]bool) bool { return t["__GNUC__"] }},
}

// ClassifyTags applies the classification table to a tag set produced by
// a macro probe. Returns FamilyUnknown if nothing matches.
func ClassifyTags(tags map[string]bool) model.Family {
	for _, row := range tagTable {
		if row.matches(tags) {
			return row.family
		}
	}
	return model.FamilyUnknown
}

// Resolve implements the §4.1 algorithm end to end.
func Resolve(ctx context.Context, pref model.ToolchainPreference, targetTriple string) (*model.ResolvedToolchain, error) {
	cpp, err := resolveTool(pref.Cpp, "c++", "g++", "clang++")
	if err != nil {
		return nil, err
	}
	cc, err := resolveTool(pref.Cc, "cc", "gcc", "clang")
	if err != nil {
		return nil, err
	}

	tags, msvc, err := probeMacros(ctx, cpp)
	if err != nil {
		return nil, err
	}

	family := pref.FamilyHint
	if family == model.FamilyUnknown {
		if msvc {
			family = model.FamilyMSVC
		} else {
			family = ClassifyTags(tags)
		}
	}
	if family == model.FamilyUnknown {
		return nil, &chkerr.Error{Kind: chkerr.UnsupportedFamily, Tags: tagKeys(tags)}
	}

	version, err := parseVersion(family, tags, ctx, cpp)
	if err != nil {
		return nil, err
	}

	linker, err := resolveTool(pref.Linker, defaultLinker(family)...)
	if err != nil {
		return nil, err
	}
	archiver, err := resolveTool(pref.Archiver, defaultArchiver(family)...)
	if err != nil {
		return nil, err
	}

	rt := &model.ResolvedToolchain{
		Family:       family,
		Version:      version,
		Cpp:          cpp,
		Cc:           cc,
		Linker:       linker,
		Archiver:     archiver,
		TargetTriple: targetTriple,
	}

	if needsWindowsResourceCompiler(family, targetTriple) {
		rc, isLLVMRc, rerr := resolveResourceCompiler(pref.Rc, family)
		if rerr != nil {
			return nil, rerr
		}
		rt.Rc = rc
		rt.IsLLVMRc = isLLVMRc
	}

	if err := remapArchDir(rt, targetTriple); err != nil {
		return nil, err
	}

	if family == model.FamilyMSVC || family == model.FamilyIntelClassic || family == model.FamilyIntelLLVM {
		if runtime.GOOS == "windows" {
			delta, derr := captureVendorEnv(ctx, family)
			if derr == nil {
				rt.EnvDelta = delta
			}
		}
	}

	if err := validateTools(rt, targetTriple); err != nil {
		return nil, err
	}

	return rt, nil
}

func resolveTool(preferred string, candidates ...string) (string, error) {
	if preferred != "" {
		if filepath.IsAbs(preferred) {
			if _, err := os.Stat(preferred); err == nil {
				return preferred, nil
			}
			return "", &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: preferred}
		}
		candidates = append([]string{preferred}, candidates...)
	}
	for _, name := range candidates {
		if p := discovery.FindOnPath(name); p != "" {
			return p, nil
		}
		if p := discovery.SearchRoots(name); p != "" {
			return p, nil
		}
	}
	return "", &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: strings.Join(candidates, ",")}
}

func defaultLinker(f model.Family) []string {
	switch f {
	case model.FamilyMSVC:
		return []string{"link.exe"}
	default:
		return []string{"ld"}
	}
}

func defaultArchiver(f model.Family) []string {
	switch f {
	case model.FamilyMSVC:
		return []string{"lib.exe"}
	default:
		return []string{"ar"}
	}
}

func needsWindowsResourceCompiler(f model.Family, targetTriple string) bool {
	return strings.Contains(targetTriple, "windows") &&
		(f == model.FamilyMSVC || f == model.FamilyMinGWGCC || f == model.FamilyMinGWClang)
}

func resolveResourceCompiler(preferred string, f model.Family) (string, bool, error) {
	if f == model.FamilyMSVC {
		p, err := resolveTool(preferred, "rc.exe")
		return p, false, err
	}
	// MinGW: prefer windres, but llvm-rc is an acceptable substitute
	// under MinGW-Clang.
	p, err := resolveTool(preferred, "windres")
	if err != nil && f == model.FamilyMinGWClang {
		if lp := discovery.FindOnPath("llvm-rc"); lp != "" {
			return lp, true, nil
		}
	}
	return p, false, err
}

// probeMacros invokes the compiler with -dM -E against an empty stub to
// dump predefined macros (spec §4.1 step 2). MSVC is detected via a
// separate /EP probe since it has no -dM equivalent.
func probeMacros(ctx context.Context, cpp string) (map[string]bool, bool, error) {
	stub, err := os.CreateTemp("", "chalet-probe-*.cpp")
	if err != nil {
		return nil, false, fmt.Errorf("toolchainid: create macro probe stub: %w", err)
	}
	defer os.Remove(stub.Name())
	stub.Close()

	res := platform.Run(ctx, "", []string{cpp, "-dM", "-E", stub.Name()}, nil, 30*time.Second)
	if res.Err == nil && len(res.Stdout) > 0 {
		return parseMacroDump(string(res.Stdout)), false, nil
	}

	// Fall back to an MSVC-style probe: `cl /E` on a stub that prints
	// _MSC_VER via #pragma message is overkill here; cl accepts /EP on
	// stdin and still defines _MSC_VER in its own invocation environment,
	// so a plain /EP with the stub is sufficient to detect failure vs cl.
	msvcRes := platform.Run(ctx, "", []string{cpp, "/nologo", "/EP", stub.Name()}, nil, 30*time.Second)
	if msvcRes.Err == nil {
		return map[string]bool{"_MSC_VER": true}, true, nil
	}

	return nil, false, &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: cpp, Err: res.Err}
}

func parseMacroDump(dump string) map[string]bool {
	tags := map[string]bool{}
	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#define ") {
			continue
		}
		fields := strings.Fields(line[len("#define "):])
		if len(fields) == 0 {
			continue
		}
		tags[fields[0]] = true
	}
	return tags
}

func tagKeys(tags map[string]bool) []string {
	out := make([]string, 0, len(tags))
	for k := range tags {
		out = append(out, k)
	}
	return out
}

// parseVersion extracts (major, minor, patch) per family from the probed
// macro set (spec §4.1 step 4).
func parseVersion(family model.Family, tags map[string]bool, ctx context.Context, cpp string) (model.Version, error) {
	dump, err := redump(ctx, cpp)
	if err != nil {
		return model.Version{}, err
	}
	defines := defineValues(dump)

	switch family {
	case model.FamilyGCC, model.FamilyMinGWGCC:
		return model.Version{
			Major: atoiOr0(defines["__GNUC__"]),
			Minor: atoiOr0(defines["__GNUC_MINOR__"]),
			Patch: atoiOr0(defines["__GNUC_PATCHLEVEL__"]),
		}, nil
	case model.FamilyClang, model.FamilyAppleClang, model.FamilyMinGWClang:
		return model.Version{
			Major: atoiOr0(defines["__clang_major__"]),
			Minor: atoiOr0(defines["__clang_minor__"]),
			Patch: atoiOr0(defines["__clang_patchlevel__"]),
		}, nil
	case model.FamilyMSVC:
		msc := atoiOr0(defines["_MSC_VER"])
		return model.Version{Major: msc / 100, Minor: msc % 100, Patch: 0}, nil
	default:
		return model.Version{}, nil
	}
}

func redump(ctx context.Context, cpp string) (string, error) {
	stub, err := os.CreateTemp("", "chalet-probe-*.cpp")
	if err != nil {
		return "", fmt.Errorf("toolchainid: create version probe stub: %w", err)
	}
	defer os.Remove(stub.Name())
	stub.Close()
	res := platform.Run(ctx, "", []string{cpp, "-dM", "-E", stub.Name()}, nil, 30*time.Second)
	return string(res.Stdout), nil
}

func defineValues(dump string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#define ") {
			continue
		}
		fields := strings.Fields(line[len("#define "):])
		if len(fields) < 2 {
			continue
		}
		out[fields[0]] = fields[1]
	}
	return out
}

func atoiOr0(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// remapArchDir rewrites a resolved tool path when the requested
// architecture doesn't match the directory it was found under, e.g. a
// MinGW64 install being asked to produce x86, or an MSVC HostX64/x86
// cross layout (spec §4.1 "Architecture remapping").
func remapArchDir(rt *model.ResolvedToolchain, targetTriple string) error {
	wantsX86 := strings.HasPrefix(targetTriple, "i686") || strings.HasPrefix(targetTriple, "x86-")

	switch rt.Family {
	case model.FamilyMinGWGCC, model.FamilyMinGWClang:
		if wantsX86 && strings.Contains(rt.Cpp, "mingw64") {
			rt.Cpp = remapSibling(rt.Cpp, "mingw64", "mingw32")
			rt.Cc = remapSibling(rt.Cc, "mingw64", "mingw32")
		}
	case model.FamilyMSVC:
		if wantsX86 {
			rt.Linker = remapSibling(rt.Linker, "HostX64\\x64", "HostX64\\x86")
			rt.Archiver = remapSibling(rt.Archiver, "HostX64\\x64", "HostX64\\x86")
		}
	}
	return nil
}

func remapSibling(path, from, to string) string {
	if !strings.Contains(path, from) {
		return path
	}
	remapped := strings.Replace(path, from, to, 1)
	if _, err := os.Stat(remapped); err == nil {
		return remapped
	}
	return path
}

func captureVendorEnv(ctx context.Context, family model.Family) (map[string]string, error) {
	switch family {
	case model.FamilyMSVC:
		vcvars := discovery.SearchRoots("vcvarsall.bat")
		if vcvars == "" {
			return nil, fmt.Errorf("toolchainid: vcvarsall.bat not found")
		}
		arch := "x64"
		return discovery.CaptureEnvDelta(ctx, vcvars, []string{arch})
	case model.FamilyIntelClassic, model.FamilyIntelLLVM:
		setvars := discovery.SearchRoots("setvars.bat")
		if setvars == "" {
			return nil, fmt.Errorf("toolchainid: setvars.bat not found")
		}
		return discovery.CaptureEnvDelta(ctx, setvars, nil)
	default:
		return nil, nil
	}
}

func validateTools(rt *model.ResolvedToolchain, targetTriple string) error {
	if rt.Linker == "" {
		return &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: "linker"}
	}
	if rt.Archiver == "" {
		return &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: "archiver"}
	}
	if needsWindowsResourceCompiler(rt.Family, targetTriple) && rt.Rc == "" {
		return &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: "resource compiler"}
	}
	return nil
}
