package strategy

import (
	"context"
	"fmt"

	"github.com/chalet-org/chalet/internal/platform"
)

// MergeUniversalBinary invokes `lipo -create` to combine per-architecture
// artifacts into one macOS universal binary. archPaths come from the
// bundle command (cli.universalArchPaths); merging is left as a
// strategy-level helper rather than a core orchestrator responsibility
// (spec §9 open question, DESIGN.md decision #3).
func MergeUniversalBinary(ctx context.Context, archPaths []string, outputPath string) error {
	if len(archPaths) == 0 {
		return fmt.Errorf("strategy: no per-architecture artifacts to merge into %s", outputPath)
	}
	argv := append([]string{"lipo", "-create", "-output", outputPath}, archPaths...)
	res := platform.Run(ctx, "", argv, nil, 0)
	if res.Err != nil {
		return fmt.Errorf("strategy: lipo merge failed: %w", res.Err)
	}
	return nil
}
