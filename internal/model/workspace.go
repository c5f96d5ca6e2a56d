// Package model holds the build description's data types: the workspace,
// its build configurations, the tagged Target variants, bundle targets,
// and the toolchain preference/resolution types threaded through every
// later stage of planning.
package model

import "fmt"

// Workspace is the immutable root descriptor parsed from the input file.
type Workspace struct {
	Name          string
	Version       string
	HostTriple    string
	TargetTriple  string
	SearchPaths   []string
	Configurations []*BuildConfiguration
	Targets       []Target
	Bundles       []*BundleTarget
	PathStyle     PathStyle
}

// PathStyle selects how the "<configuration>-…" build directory segment
// is named (spec §5.1). Independent of ToolchainPreference.Strategy.
type PathStyle int

const (
	PathStyleConfiguration PathStyle = iota
	PathStyleArchConfiguration
	PathStyleTargetTriple
	PathStyleToolchainName
)

// OptimizationLevel enumerates the abstract optimization intents a
// BuildConfiguration can request; compile command synthesis maps each
// value to the native flag for the resolved toolchain family.
type OptimizationLevel string

const (
	Opt0    OptimizationLevel = "0"
	Opt1    OptimizationLevel = "1"
	Opt2    OptimizationLevel = "2"
	Opt3    OptimizationLevel = "3"
	OptSize OptimizationLevel = "Size"
	OptFast OptimizationLevel = "Fast"
	OptDebug OptimizationLevel = "Debug"
)

// BuildConfiguration is a named set of compile/link switches.
type BuildConfiguration struct {
	Name                string
	Optimization        OptimizationLevel
	LinkTimeOptimization bool
	StripSymbols        bool
	DebugSymbols        bool
	Profiling           bool
	InterproceduralOpt  bool
}

// Debuggable reports whether this configuration keeps debug symbols
// without LTO, per spec §3: "debuggable iff debug symbols ∧ ¬lto".
func (c *BuildConfiguration) Debuggable() bool {
	return c.DebugSymbols && !c.LinkTimeOptimization
}

// Validate enforces the parse-time invariant that LTO cannot coexist with
// debug symbols or profiling (spec §3, §8 Boundaries).
func (c *BuildConfiguration) Validate() error {
	if c.LinkTimeOptimization && (c.DebugSymbols || c.Profiling) {
		return fmt.Errorf("configuration %q: lto is incompatible with debugSymbols or profiling", c.Name)
	}
	return nil
}

// Target is the tagged variant over the four buildable node kinds.
type Target interface {
	TargetName() string
	isTarget()
}

// Kind enumerates the four Target variants for switch dispatch without a
// type assertion chain at every call site.
type Kind int

const (
	KindSource Kind = iota
	KindCMake
	KindSubChalet
	KindScript
)

func (t *SourceTarget) isTarget()    {}
func (t *CMakeTarget) isTarget()     {}
func (t *SubChaletTarget) isTarget() {}
func (t *ScriptTarget) isTarget()    {}

func (t *SourceTarget) TargetName() string    { return t.Name }
func (t *CMakeTarget) TargetName() string     { return t.Name }
func (t *SubChaletTarget) TargetName() string { return t.Name }
func (t *ScriptTarget) TargetName() string    { return t.Name }

// VariantKind reports the dynamic variant of a Target for dispatch in
// orchestrator/strategy code.
func VariantKind(t Target) Kind {
	switch t.(type) {
	case *SourceTarget:
		return KindSource
	case *CMakeTarget:
		return KindCMake
	case *SubChaletTarget:
		return KindSubChalet
	case *ScriptTarget:
		return KindScript
	default:
		panic(fmt.Sprintf("model: unreachable target variant %T", t))
	}
}
