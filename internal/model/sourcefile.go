package model

// SourceType classifies one input file for compile-command synthesis and
// module/PCH ordering. A file keeps exactly one SourceType for its
// lifetime within a build (spec §3).
type SourceType int

const (
	SourceC SourceType = iota
	SourceCxx
	SourceObjC
	SourceObjCxx
	SourceWindowsResource
	SourcePrecompiledHeader
	SourceCxxModule
	SourceCxxHeaderUnit
)

// SourceFileGroup is the derived-path record for one input file. It is
// created during plan construction (internal/layout), read-only during
// execution, and discarded at build end — nothing downstream persists it
// past one build (the Cache persists only the fields it needs, see
// internal/cache).
type SourceFileGroup struct {
	Source       string // absolute source path
	Object       string // derived object path
	Dependency   string // derived .d path
	Assembly     string // derived .s path, empty unless DumpAssembly
	ModuleOutput string // derived .pcm/.ifc path, empty unless a module TU
	Type         SourceType

	// ProvidesModule/ImportsModules/ImportsHeaderUnits are populated by
	// internal/modcxx during the scan phase for the C++ files (plain,
	// module and header-unit) of a CppModules target; zero value otherwise.
	ProvidesModule    string
	ImportsModules    []string
	ImportsHeaderUnits []string
	IsModuleImpl      bool
}
