package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// DriveCMakeTarget materializes the sub-project's build dir, invokes
// `cmake -G <generator> <src-dir>` once (or on recheck), then invokes the
// generator's build tool in the build dir as a single child job (spec §4.7
// "CMake sub-targets"). Output of both steps is captured by platform.Run
// and not printed; a failure returns only the run error.
func DriveCMakeTarget(ctx context.Context, t *model.CMakeTarget, buildRoot, generator string) error {
	buildDir := filepath.Join(buildRoot, "cmake", t.Name)
	if err := platform.EnsureDir(buildDir); err != nil {
		return fmt.Errorf("strategy: cmake build dir: %w", err)
	}

	cacheFile := filepath.Join(buildDir, "CMakeCache.txt")
	needsConfigure := t.Recheck
	if _, err := os.Stat(cacheFile); err != nil {
		needsConfigure = true
	}

	if needsConfigure {
		argv := []string{"cmake", "-G", generator, t.Location}
		for k, v := range t.Defines {
			argv = append(argv, fmt.Sprintf("-D%s=%s", k, v))
		}
		if t.Toolset != "" {
			argv = append(argv, "-T", t.Toolset)
		}
		res := platform.Run(ctx, buildDir, argv, nil, 0)
		if res.Err != nil {
			return fmt.Errorf("strategy: cmake configure %s: %w", t.Name, res.Err)
		}
	}

	buildArgv := []string{"cmake", "--build", buildDir}
	if t.Rebuild {
		buildArgv = append(buildArgv, "--clean-first")
	}
	res := platform.Run(ctx, buildDir, buildArgv, nil, 0)
	if res.Err != nil {
		return fmt.Errorf("strategy: cmake build %s: %w", t.Name, res.Err)
	}
	return nil
}
