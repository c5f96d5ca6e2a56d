// Package layout derives the fixed per-configuration path scheme of
// spec §5.1: build directory naming, object/dependency/assembly/PCH/BMI
// output paths, and final artifact filenames.
package layout

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chalet-org/chalet/internal/model"
)

// BuildRoot returns the "<buildRoot>/<configuration>-<arch-or-toolchain>"
// directory for one configuration, shaped by the workspace's PathStyle.
func BuildRoot(root string, ws *model.Workspace, cfg *model.BuildConfiguration, toolchainName string) string {
	var segment string
	switch ws.PathStyle {
	case model.PathStyleArchConfiguration:
		segment = fmt.Sprintf("%s_%s", ws.TargetTriple, cfg.Name)
	case model.PathStyleTargetTriple:
		segment = ws.TargetTriple
	case model.PathStyleToolchainName:
		segment = toolchainName
	default:
		segment = cfg.Name
	}
	return filepath.Join(root, segment)
}

// sourceRelPath turns an absolute/relative source path into the
// slash-joined relative form used under obj/, dep/, and asm/ (spec
// §5.1's "<source-path-with-slashes>").
func sourceRelPath(source string) string {
	cleaned := filepath.ToSlash(filepath.Clean(source))
	cleaned = strings.TrimPrefix(cleaned, "/")
	cleaned = strings.ReplaceAll(cleaned, "../", "up/")
	return cleaned
}

// ObjectPath derives "<buildRoot>/obj/<target>/<source>.o".
func ObjectPath(buildRoot, target, source string) string {
	return filepath.Join(buildRoot, "obj", target, sourceRelPath(source)+objectExt())
}

func objectExt() string {
	if runtime.GOOS == "windows" {
		return ".obj"
	}
	return ".o"
}

// DependencyPath derives "<buildRoot>/dep/<target>/<source>.d".
func DependencyPath(buildRoot, target, source string) string {
	return filepath.Join(buildRoot, "dep", target, sourceRelPath(source)+".d")
}

// AssemblyPath derives "<buildRoot>/asm/<target>/<source>.s", used only
// when a SourceTarget has DumpAssembly enabled.
func AssemblyPath(buildRoot, target, source string) string {
	return filepath.Join(buildRoot, "asm", target, sourceRelPath(source)+".s")
}

// PchPath derives "<buildRoot>/pch/<target>/<pch-basename>.gch|pch"
// depending on compiler family.
func PchPath(buildRoot, target, pchSource string, family model.Family) string {
	ext := ".gch"
	if family == model.FamilyMSVC {
		ext = ".pch"
	}
	base := filepath.Base(pchSource)
	return filepath.Join(buildRoot, "pch", target, base+ext)
}

// BmiPath derives "<buildRoot>/bmi/<target>/<module-name>.pcm|ifc".
func BmiPath(buildRoot, target, moduleName string, family model.Family) string {
	ext := ".pcm"
	if family == model.FamilyMSVC {
		ext = ".ifc"
	}
	return filepath.Join(buildRoot, "bmi", target, moduleName+ext)
}

// ArtifactName derives the final artifact filename for a SourceTarget,
// applying the lib prefix and platform extension conventions.
func ArtifactName(t *model.SourceTarget, family model.Family, targetTriple string) string {
	name := t.OutputBaseName
	if name == "" {
		name = t.Name
	}
	windows := strings.Contains(targetTriple, "windows")

	switch t.Kind {
	case model.Executable:
		if windows {
			return name + ".exe"
		}
		return name
	case model.StaticLibrary:
		if family == model.FamilyMSVC {
			return name + ".lib"
		}
		return "lib" + name + ".a"
	case model.SharedLibrary:
		switch {
		case windows:
			return name + ".dll"
		case strings.Contains(targetTriple, "apple"):
			return "lib" + name + ".dylib"
		default:
			return "lib" + name + ".so"
		}
	case model.ObjectLibrary:
		return name // never linked to a single artifact; obj/ entries are the product
	default:
		return name
	}
}

// ArtifactPath joins BuildRoot with the derived artifact filename.
func ArtifactPath(buildRoot string, t *model.SourceTarget, family model.Family, targetTriple string) string {
	return filepath.Join(buildRoot, ArtifactName(t, family, targetTriple))
}
