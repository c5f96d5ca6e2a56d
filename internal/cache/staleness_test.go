package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStale_MissingObject(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "main.o")

	stale, err := IsStale(&FileEntry{}, obj, "hash", 0, false, false)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_CommandHashChanged(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "main.o")
	require.NoError(t, os.WriteFile(obj, []byte("x"), 0o644))

	entry := &FileEntry{CommandHash: "old", SourceMtime: 1}
	stale, err := IsStale(entry, obj, "new", 0, false, false)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestIsStale_Unchanged(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "main.o")
	require.NoError(t, os.WriteFile(obj, []byte("x"), 0o644))

	entry := &FileEntry{CommandHash: "same", SourceMtime: 100}
	stale, err := IsStale(entry, obj, "same", 0, false, false)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsStale_ToolchainChanged(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "main.o")
	require.NoError(t, os.WriteFile(obj, []byte("x"), 0o644))

	entry := &FileEntry{CommandHash: "same", SourceMtime: 100}
	stale, err := IsStale(entry, obj, "same", 0, true, false)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestCommandHash_PathPrefixInvariant(t *testing.T) {
	dir := t.TempDir()
	a := CommandHash([]string{"gcc", "-I" + dir + "/include", "-c", "main.cpp"})
	b := CommandHash([]string{"gcc", "-I" + filepath.Clean(dir+"/include/../include"), "-c", "main.cpp"})
	assert.Equal(t, a, b)
}
