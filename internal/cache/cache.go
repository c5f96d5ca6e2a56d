package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/platform"
)

// FileEntry is the per-source-file cache record (spec §4.5).
type FileEntry struct {
	SourcePath  string   `json:"sourcePath"`
	SourceMtime int64    `json:"sourceMtime"`
	CommandHash string   `json:"commandHash"`
	DepList     []string `json:"depList"`
	LastResult  bool     `json:"lastResult"`
}

// ToolchainEntry is keyed by "<name>/<target-triple>" in the toolchain
// cache (spec §6 "Persisted state").
type ToolchainEntry struct {
	Name         string `json:"name"`
	TargetTriple string `json:"targetTriple"`
	Cxx          string `json:"C++"`
	C            string `json:"C"`
	Linker       string `json:"linker"`
	Archiver     string `json:"archiver"`
	WindowsRc    string `json:"windowsResource,omitempty"`
	Strategy     string `json:"strategy"`
}

// WorkspaceCache is the per-project persisted cache (spec §6).
type WorkspaceCache struct {
	Settings struct {
		Strategy         string `json:"strategy"`
		WorkingDirectory string `json:"workingDirectory"`
	} `json:"settings"`
	Data map[string]string `json:"data"` // fixed 2-char tag -> hash

	Files map[string]*FileEntry `json:"files"`

	mu deadlock.RWMutex `json:"-"`
}

// Hash tag keys, matching spec §6's "fixed 2-char tag" convention.
const (
	TagWorkspaceHash  = "01"
	TagToolchainHash  = "02"
	TagAppBuildHash   = "03"
	TagLastStrategy   = "04"
)

// NewWorkspaceCache returns an empty, ready-to-use cache.
func NewWorkspaceCache() *WorkspaceCache {
	return &WorkspaceCache{
		Data:  map[string]string{},
		Files: map[string]*FileEntry{},
	}
}

// Load reads path into a WorkspaceCache, returning chkerr.CacheCorrupt
// (recoverable: spec §7) on a parse failure rather than a hard error.
func Load(path string) (*WorkspaceCache, error) {
	var wc WorkspaceCache
	wc.Data = map[string]string{}
	wc.Files = map[string]*FileEntry{}

	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &wc, nil
	}
	if err := json.Unmarshal(data, &wc); err != nil {
		return NewWorkspaceCache(), &chkerr.Error{Kind: chkerr.CacheCorrupt, Err: err}
	}
	if wc.Data == nil {
		wc.Data = map[string]string{}
	}
	if wc.Files == nil {
		wc.Files = map[string]*FileEntry{}
	}
	return &wc, nil
}

func readFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read %s: %w", path, err)
	}
	return data, nil
}

// Flush serializes the cache with stable key ordering and writes it
// atomically, satisfying spec §8 property 5 ("round-trip ... yields
// byte-identical JSON").
func (wc *WorkspaceCache) Flush(path string) error {
	wc.mu.RLock()
	defer wc.mu.RUnlock()

	out := struct {
		Settings struct {
			Strategy         string `json:"strategy"`
			WorkingDirectory string `json:"workingDirectory"`
		} `json:"settings"`
		Data  map[string]string     `json:"data"`
		Files map[string]*FileEntry `json:"files"`
	}{
		Settings: wc.Settings,
		Data:     wc.Data,
		Files:    wc.Files,
	}

	buf, err := marshalStable(out)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	return platform.WriteFileAtomic(path, buf, 0o644)
}

// marshalStable wraps json.MarshalIndent; Go's encoding/json already
// sorts map keys when marshaling map[string]T, so this alone satisfies
// the stable-ordering requirement without a custom encoder.
func marshalStable(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Get returns the cached entry for source, or nil if absent.
func (wc *WorkspaceCache) Get(source string) *FileEntry {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	return wc.Files[source]
}

// Put records or replaces the entry for source. The orchestrator is the
// sole writer (spec §3 "Ownership").
func (wc *WorkspaceCache) Put(entry *FileEntry) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.Files[entry.SourcePath] = entry
}

// SetHash records one of the fixed-tag hashes (workspace, toolchain,
// app-build, last-strategy).
func (wc *WorkspaceCache) SetHash(tag, value string) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.Data[tag] = value
}

// GetHash returns the previously recorded value for tag, or "".
func (wc *WorkspaceCache) GetHash(tag string) string {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	return wc.Data[tag]
}

// Reset drops every per-file entry, forcing every source to be treated as
// stale on the next planning pass (spec §6: an app-build hash change
// "invalidates the per-target build directory").
func (wc *WorkspaceCache) Reset() {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.Files = map[string]*FileEntry{}
}

// SortedFileKeys returns the keys of Files in sorted order.
func (wc *WorkspaceCache) SortedFileKeys() []string {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	keys := make([]string, 0, len(wc.Files))
	for k := range wc.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
