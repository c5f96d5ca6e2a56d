package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Canonicalize resolves p to an absolute, symlink-free path for use as a
// cache key or command-hash input. Two paths resolving to the same
// canonical form must hash identically (spec §8 property 6).
func Canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("platform: canonicalize %s: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// Not-yet-created output paths are legal inputs (e.g. a
			// derived object path before its first compile); fall back
			// to the absolute, cleaned form.
			return filepath.Clean(abs), nil
		}
		return "", fmt.Errorf("platform: resolve symlinks %s: %w", p, err)
	}
	return resolved, nil
}

// Glob expands a doublestar pattern rooted at root, returning paths
// relative to root. No other package calls it at present.
func Glob(root, pattern string) ([]string, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("platform: glob %s under %s: %w", pattern, root, err)
	}
	return matches, nil
}

// MatchGlob reports whether path (relative to some implicit root) matches
// pattern. No other package calls it at present.
func MatchGlob(pattern, path string) (bool, error) {
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false, fmt.Errorf("platform: match %s against %s: %w", pattern, path, err)
	}
	return ok, nil
}

// MTime returns the modification time of path as Unix nanoseconds, or -1
// if the path does not exist (treated as "older than anything" by the
// cache's staleness rule).
func MTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return -1, nil
		}
		return 0, fmt.Errorf("platform: stat %s: %w", path, err)
	}
	return info.ModTime().UnixNano(), nil
}

// EnsureDir creates dir and all parents if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("platform: mkdir %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to path by writing to a temp file in the
// same directory and renaming over the destination, so a signal-
// interrupted write never leaves a partial file (spec §8 Boundaries: "the
// partial PCH file is removed before exit"). It writes the caches, the
// compile-commands database and the generated Makefile/Ninja files; object
// and PCH files are written by the compiler itself, not through it.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("platform: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("platform: write temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("platform: close temp for %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("platform: chmod temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("platform: rename temp into %s: %w", path, err)
	}
	return nil
}

// RemoveIfExists deletes path, ignoring a not-exist error. No other
// package calls it at present.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("platform: remove %s: %w", path, err)
	}
	return nil
}
