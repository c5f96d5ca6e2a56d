// Package config decodes the JSON input-file format (spec §6) into the
// data model and resolves per-target conditional-suffix variants
// (<key>.<platform>, <key>.!debug, combinations) into a single effective
// value per configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/imdario/mergo"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/model"
)

// rawFile mirrors the top-level JSON shape (spec §6 "Input file format").
// Schema validation is explicitly out of scope (spec §1); fields decode
// permissively and downstream construction is where invariants are
// enforced (e.g. BuildConfiguration.Validate).
type rawFile struct {
	Workspace            string                     `json:"workspace"`
	Version              string                     `json:"version"`
	SearchPaths          []string                   `json:"searchPaths"`
	Configurations       map[string]json.RawMessage `json:"configurations"`
	Abstracts            map[string]json.RawMessage `json:"abstracts"`
	Targets              map[string]json.RawMessage `json:"targets"`
	Distribution         map[string]json.RawMessage `json:"distribution"`
	ExternalDependencies map[string]json.RawMessage `json:"externalDependencies"`
}

// Load reads and decodes path, returning a *rawFile for further
// resolution. A decode failure is a ParseError per spec §7.
func Load(path string) (*rawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &chkerr.Error{Kind: chkerr.IOFailure, File: path, Err: err}
	}
	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &chkerr.Error{Kind: chkerr.ParseError, File: path, Err: err}
	}
	return &raw, nil
}

// CanonicalJSON re-marshals raw for workspace-hash purposes (spec §4.5 rule
// 6, §3 "workspace hash"). encoding/json sorts the top-level map keys when
// marshaling, so the result is stable across re-parses of the same file;
// values held as json.RawMessage are only compacted, so reordering keys
// inside them changes the result.
func (raw *rawFile) CanonicalJSON() ([]byte, error) {
	return json.Marshal(raw)
}

// conditionalSuffixes returns the suffix strings that match the active
// platform and debug-ness, in increasing specificity, per spec §6:
// "<key>.<platform>", "<key>.!<other platform>", "<key>.debug"/"<key>.!debug",
// and their combinations.
func conditionalSuffixes(platform string, debug bool) []string {
	debugTag := "debug"
	if !debug {
		debugTag = "!debug"
	}
	var notPlatforms []string
	for _, p := range []string{"windows", "macos", "linux"} {
		if p != platform {
			notPlatforms = append(notPlatforms, "!"+p)
		}
	}
	suffixes := []string{"", "." + platform} // base key always applies
	for _, np := range notPlatforms {
		suffixes = append(suffixes, "."+np)
	}
	suffixes = append(suffixes, "."+debugTag, "."+platform+"."+debugTag)
	for _, np := range notPlatforms {
		suffixes = append(suffixes, "."+np+"."+debugTag)
	}
	return suffixes
}

// CurrentPlatform maps runtime.GOOS onto the platform tag vocabulary used
// by conditional suffixes.
func CurrentPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// MergeConditional resolves all keys in raw matching base or
// base+suffix (for any suffix returned by conditionalSuffixes) into a
// single effective map, deep-merging object values with mergo so that,
// e.g., a platform-specific target's `defines` array is concatenated
// with the base's rather than replacing it outright.
func MergeConditional(raw map[string]json.RawMessage, base string, platform string, debug bool) (map[string]any, error) {
	effective := map[string]any{}
	for _, suffix := range conditionalSuffixes(platform, debug) {
		key := base + suffix
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var variant map[string]any
		if err := json.Unmarshal(msg, &variant); err != nil {
			return nil, &chkerr.Error{Kind: chkerr.ParseError, Key: key, Err: err}
		}
		if err := mergo.Merge(&effective, variant, mergo.WithAppendSlice, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("config: merge %s: %w", key, err)
		}
	}
	return effective, nil
}

// knownSuffixTags is the vocabulary conditionalSuffixes draws from, used by
// TargetBaseNames to tell a conditional key's suffix from a dotted base name.
var knownSuffixTags = map[string]bool{
	"windows": true, "!windows": true,
	"macos": true, "!macos": true,
	"linux": true, "!linux": true,
	"debug": true, "!debug": true,
}

// baseTargetName strips any trailing conditional-suffix segments from a
// "<name>[.<suffix>...]" key, returning just "<name>".
func baseTargetName(key string) string {
	parts := strings.Split(key, ".")
	for i := 1; i < len(parts); i++ {
		if knownSuffixTags[parts[i]] {
			return strings.Join(parts[:i], ".")
		}
	}
	return key
}

// TargetBaseNames returns the distinct target names declared in raw.Targets,
// with any platform/debug conditional-suffix keys folded into their base.
func (raw *rawFile) TargetBaseNames() []string {
	seen := map[string]bool{}
	var names []string
	for key := range raw.Targets {
		base := baseTargetName(key)
		if !seen[base] {
			seen[base] = true
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names
}

// BuildSourceTargets resolves every declared target into a *model.SourceTarget
// for the active platform and configuration debug-ness, merging conditional
// suffixes per key (spec §6).
func (raw *rawFile) BuildSourceTargets(platform string, debug bool) ([]model.Target, error) {
	var out []model.Target
	for _, name := range raw.TargetBaseNames() {
		effective, err := MergeConditional(raw.Targets, name, platform, debug)
		if err != nil {
			return nil, err
		}
		t, err := SourceTargetFromKeys(name, effective)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// BuildBundles decodes raw.Distribution into *model.BundleTarget values.
// Everything past this (glob resolution, DMG/NSIS generation, .desktop
// file placement) is an external collaborator; the core's only active
// interest in a bundle is the macOS universal-binary merge (spec §9 open
// question, DESIGN.md decision #3).
func (raw *rawFile) BuildBundles() ([]*model.BundleTarget, error) {
	var out []*model.BundleTarget
	for name, msg := range raw.Distribution {
		var fields struct {
			Configuration    string   `json:"configuration"`
			IncludedTargets  []string `json:"includedTargets"`
			IncludeGlobs     []string `json:"includeGlobs"`
			ExcludeGlobs     []string `json:"excludeGlobs"`
			MainExecutable   string   `json:"mainExecutable"`
			LinuxDesktopFile string   `json:"linuxDesktopFile"`
			LinuxIconPath    string   `json:"linuxIconPath"`
			MacOSInfoPlist   string   `json:"macosInfoPlist"`
			MacOSUniversal   bool     `json:"macosUniversal"`
			MacOSDMG         bool     `json:"macosDMG"`
			WindowsNSIS      string   `json:"windowsNSISScript"`
			WindowsIconPath  string   `json:"windowsIconPath"`
		}
		if err := json.Unmarshal(msg, &fields); err != nil {
			return nil, &chkerr.Error{Kind: chkerr.ParseError, Key: "distribution." + name, Err: err}
		}
		out = append(out, &model.BundleTarget{
			ConfigurationName: fields.Configuration,
			IncludedTargets:   fields.IncludedTargets,
			IncludeGlobs:      fields.IncludeGlobs,
			ExcludeGlobs:      fields.ExcludeGlobs,
			MainExecutable:    fields.MainExecutable,
			LinuxDesktopFile:  fields.LinuxDesktopFile,
			LinuxIconPath:     fields.LinuxIconPath,
			MacOSInfoPlist:    fields.MacOSInfoPlist,
			MacOSUniversal:    fields.MacOSUniversal,
			MacOSDMG:          fields.MacOSDMG,
			WindowsNSISScript: fields.WindowsNSIS,
			WindowsIconPath:   fields.WindowsIconPath,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MainExecutable < out[j].MainExecutable })
	return out, nil
}

// BuildConfigurations decodes raw.Configurations into *model.BuildConfiguration,
// validating each against the lto/debugSymbols invariant (spec §3).
func (raw *rawFile) BuildConfigurations() ([]*model.BuildConfiguration, error) {
	var out []*model.BuildConfiguration
	for name, msg := range raw.Configurations {
		var fields struct {
			Optimization string `json:"optimization"`
			Lto          bool   `json:"lto"`
			Strip        bool   `json:"stripSymbols"`
			Debug        bool   `json:"debugSymbols"`
			Profiling    bool   `json:"profiling"`
			Ipo          bool   `json:"interproceduralOptimization"`
		}
		if err := json.Unmarshal(msg, &fields); err != nil {
			return nil, &chkerr.Error{Kind: chkerr.ParseError, Key: "configurations." + name, Err: err}
		}
		cfg := &model.BuildConfiguration{
			Name:                 name,
			Optimization:         model.OptimizationLevel(fields.Optimization),
			LinkTimeOptimization: fields.Lto,
			StripSymbols:         fields.Strip,
			DebugSymbols:         fields.Debug,
			Profiling:            fields.Profiling,
			InterproceduralOpt:   fields.Ipo,
		}
		if err := cfg.Validate(); err != nil {
			return nil, &chkerr.Error{Kind: chkerr.ParseError, Key: "configurations." + name, Err: err}
		}
		out = append(out, cfg)
	}
	return out, nil
}

// SourceTargetFromKeys decodes one resolved-and-merged target map (the
// output of MergeConditional) into a *model.SourceTarget, rejecting a
// target with zero input files (spec §8 Boundaries).
func SourceTargetFromKeys(name string, effective map[string]any) (*model.SourceTarget, error) {
	t := &model.SourceTarget{Name: name}

	if files, ok := effective["files"].([]any); ok {
		for _, f := range files {
			if s, ok := f.(string); ok {
				t.Files = append(t.Files, s)
			}
		}
	}
	if len(t.Files) == 0 {
		return nil, &chkerr.Error{Kind: chkerr.ParseError, Key: "targets." + name + ".files", Err: fmt.Errorf("target has zero input files")}
	}

	if kind, ok := effective["kind"].(string); ok {
		switch strings.ToLower(kind) {
		case "staticlibrary":
			t.Kind = model.StaticLibrary
		case "sharedlibrary":
			t.Kind = model.SharedLibrary
		case "objectlibrary":
			t.Kind = model.ObjectLibrary
		default:
			t.Kind = model.Executable
		}
	}
	if lang, ok := effective["language"].(string); ok {
		switch strings.ToLower(lang) {
		case "c":
			t.Language = model.LangC
		case "objective-c":
			t.Language = model.LangObjC
		case "objective-c++":
			t.Language = model.LangObjCxx
		default:
			t.Language = model.LangCxx
		}
	}
	if std, ok := effective["cppStandard"].(string); ok {
		t.LanguageStandard = std
	}
	t.IncludeDirs = stringSlice(effective["includeDirs"])
	t.LibDirs = stringSlice(effective["libDirs"])
	t.Defines = stringSlice(effective["defines"])
	t.Links = stringSlice(effective["links"])
	t.StaticLinks = stringSlice(effective["staticLinks"])
	t.CompileOptions = stringSlice(effective["compileOptions"])
	t.LinkerOptions = stringSlice(effective["linkerOptions"])

	if pch, ok := effective["pch"].(string); ok {
		t.PchSource = pch
	}
	if warn, ok := effective["warnings"].(string); ok {
		t.Warnings = model.WarningPreset(warn)
	}
	t.Rtti = boolOr(effective["rtti"], true)
	t.Exceptions = boolOr(effective["exceptions"], true)
	t.CppModules = boolOr(effective["cppModules"], false)
	t.HeaderUnits = stringSlice(effective["headerUnits"])
	t.DumpAssembly = boolOr(effective["dumpAssembly"], false)

	return t, nil
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func boolOr(v any, def bool) bool {
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
