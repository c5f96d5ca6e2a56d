// Package cache persists the workspace, global, and toolchain caches and
// answers the staleness question that gates every recompile decision
// (spec §4.5).
package cache

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// CommandHash computes a stable hash over a normalized argument vector:
// every path-shaped argument is canonicalized first so that two argv's
// differing only by an absolute path prefix resolving to the same
// canonical path hash equal (spec §8 property 6).
func CommandHash(argv []string) string {
	normalized := make([]string, len(argv))
	for i, a := range argv {
		normalized[i] = normalizeArg(a)
	}
	return hashStrings(normalized)
}

func normalizeArg(a string) string {
	// Flags carrying an embedded path (-I<dir>, -D<name>=<val> excluded,
	// /I<dir>, etc.) are normalized on their path suffix only.
	for _, prefix := range []string{"-I", "-L", "-F", "/I", "/LIBPATH:"} {
		if strings.HasPrefix(a, prefix) && len(a) > len(prefix) {
			return prefix + canonicalPath(a[len(prefix):])
		}
	}
	if looksLikePath(a) {
		return canonicalPath(a)
	}
	return a
}

// canonicalPath resolves p via platform.Canonicalize, falling back to the
// cleaned path when it cannot be resolved.
func canonicalPath(p string) string {
	if c, err := platform.Canonicalize(p); err == nil {
		return c
	}
	return filepath.Clean(p)
}

func looksLikePath(a string) bool {
	return strings.ContainsAny(a, "/\\") && !strings.HasPrefix(a, "-D")
}

// ToolchainIdentityHash hashes family + version + tool paths + target
// triple (spec §3 "Invariant: ... the identity hash ... is stable").
func ToolchainIdentityHash(rt *model.ResolvedToolchain) string {
	parts := []string{
		rt.Family.String(),
		rt.Version.String(),
		filepath.Clean(rt.Cpp),
		filepath.Clean(rt.Cc),
		filepath.Clean(rt.Linker),
		filepath.Clean(rt.Archiver),
		rt.TargetTriple,
	}
	return hashStrings(parts)
}

// WorkspaceHash hashes the parsed build description's canonical
// representation; callers pass a pre-serialized, key-sorted JSON blob
// (internal/config produces this). Any change to that blob, including one
// that touches a single target, changes the hash.
func WorkspaceHash(canonicalJSON []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(canonicalJSON))
}

// hashStrings hashes parts in the given order. Order matters for argv
// (flag order is semantically load-bearing), so callers must not sort
// before calling this.
func hashStrings(parts []string) string {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
