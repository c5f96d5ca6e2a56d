package model

// SourceKind enumerates the binary shapes a SourceTarget can produce.
type SourceKind int

const (
	Executable SourceKind = iota
	StaticLibrary
	SharedLibrary
	ObjectLibrary
)

// Language is the source language of a SourceTarget. Individual files may
// still be classified per-file via SourceType (see sourcefile.go) when a
// target mixes C and C++ (e.g. ObjC++ calling into a C library).
type Language int

const (
	LangC Language = iota
	LangCxx
	LangObjC
	LangObjCxx
)

// WarningPreset names an abstract warning level; internal/compiler maps
// each preset to the native flags for a given compiler family.
type WarningPreset string

const (
	WarnNone           WarningPreset = "none"
	WarnMinimal        WarningPreset = "minimal"
	WarnExtra          WarningPreset = "extra"
	WarnPedantic       WarningPreset = "pedantic"
	WarnStrict         WarningPreset = "strict"
	WarnStrictPedantic WarningPreset = "strictPedantic"
	WarnVeryStrict     WarningPreset = "veryStrict"
	WarnError          WarningPreset = "error"
)

// ThreadModel selects the runtime threading model a SourceTarget links
// against (none or POSIX threads).
type ThreadModel int

const (
	ThreadsNone ThreadModel = iota
	ThreadsPosix
)

// SourceTarget is a native compile/link node: one of Executable,
// StaticLibrary, SharedLibrary, or ObjectLibrary.
type SourceTarget struct {
	Name    string
	Kind    SourceKind
	Language Language

	IncludeDirs      []string
	LibDirs          []string
	Defines          []string
	Links            []string // dynamic
	StaticLinks      []string
	CompileOptions   []string
	LinkerOptions    []string
	FrameworkPaths   []string // macOS
	Frameworks       []string // macOS
	Warnings         WarningPreset
	FileExtensions   []string
	Files            []string

	LanguageStandard string
	PchSource        string // optional
	OutputBaseName   string
	Rtti             bool
	Exceptions       bool
	Threads          ThreadModel
	StaticLinking    bool

	// Windows-only, except LinkerScript, which the GNU linkers use.
	WindowsSubsystem  string
	WindowsEntryPoint string
	WindowsManifest   string
	LinkerScript      string

	CppModules  bool
	HeaderUnits []string // paths compiled as header-unit BMIs ahead of their importers
	DumpAssembly bool
}

// CMakeTarget drives an external CMake sub-project as an atomic node.
type CMakeTarget struct {
	Name         string
	Location     string
	BuildFile    string
	Toolset      string
	Defines      map[string]string
	RunExecutable string
	Recheck      bool
	Rebuild      bool
}

// SubChaletTarget recursively invokes this same program against a nested
// build description.
type SubChaletTarget struct {
	Name          string
	Location      string
	SubBuildFile  string // optional
	Recheck       bool
	Rebuild       bool
	Clean         bool
	InnerTargets  []string
}

// ScriptTarget resolves an interpreter for a script file (see §4.8,
// internal/discovery for the extension-to-interpreter map and lookup).
type ScriptTarget struct {
	Name        string
	ScriptFile  string
	Interpreter string // resolved absolute path, filled in by discovery
	Args        []string
}

// BundleTarget is the thin packaging surface: it records the include/exclude
// globs and the main executable; the core does not resolve the globs, and
// packaging itself is an external collaborator (bundlers, NSIS, DMG,
// .desktop generation).
type BundleTarget struct {
	ConfigurationName string
	IncludedTargets    []string
	IncludeGlobs       []string
	ExcludeGlobs       []string
	MainExecutable     string

	LinuxDesktopFile string
	LinuxIconPath    string

	MacOSInfoPlist string
	MacOSUniversal bool
	MacOSDMG       bool

	WindowsNSISScript string
	WindowsIconPath   string
}
