package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/chalet-org/chalet/internal/cache"
	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/discovery"
	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

func mtimeOf(path string) (int64, error) {
	return platform.MTime(path)
}

func artifactExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// isFileStale adapts internal/cache.IsStale's signature to the data this
// package has on hand during planning (spec §4.5 staleness rule).
func isFileStale(entry *cache.FileEntry, objectPath, commandHash string, mtime int64, toolchainChanged, workspaceChanged bool) (bool, error) {
	return cache.IsStale(entry, objectPath, commandHash, mtime, toolchainChanged, workspaceChanged)
}

func (o *Orchestrator) runScriptTarget(ctx context.Context, t *model.ScriptTarget) error {
	interpreter, args, err := discovery.ResolveInterpreter(t.ScriptFile)
	if err != nil {
		return &chkerr.Error{Kind: chkerr.ToolchainNotFound, Tool: t.ScriptFile, Err: err}
	}
	argv := append([]string{interpreter}, args...)
	argv = append(argv, t.ScriptFile)
	argv = append(argv, t.Args...)

	res := platform.Run(ctx, "", argv, nil, 0)
	if res.Err != nil {
		return fmt.Errorf("orchestrator: script target %s: %w", t.Name, res.Err)
	}
	return nil
}

// runSubChalet recursively invokes this same program against the nested
// build file with --only-required and the active configuration, per
// spec §4.7 "Sub-projects (recursive)".
func (o *Orchestrator) runSubChalet(ctx context.Context, t *model.SubChaletTarget) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("orchestrator: resolve self executable: %w", err)
	}
	argv := []string{self, "build", o.Configuration.Name, "--only-required"}
	if t.SubBuildFile != "" {
		argv = append(argv, "--input-file", t.SubBuildFile)
	}
	res := platform.Run(ctx, t.Location, argv, nil, 0)
	if res.Err != nil {
		return fmt.Errorf("orchestrator: sub-project %s: %w", t.Name, res.Err)
	}
	return nil
}
