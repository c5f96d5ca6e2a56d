package cache

import (
	"encoding/json"
	"fmt"

	"github.com/chalet-org/chalet/internal/platform"
)

// ToolchainStore is the global, per-user toolchain cache (spec §6):
// `{ toolchains: { "<name>": {...} }, tools: {...} }`.
type ToolchainStore struct {
	Toolchains map[string]ToolchainEntry `json:"toolchains"`
	Tools      map[string]string         `json:"tools"`
}

func LoadToolchainStore(path string) (*ToolchainStore, error) {
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	store := &ToolchainStore{Toolchains: map[string]ToolchainEntry{}, Tools: map[string]string{}}
	if len(data) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, store); err != nil {
		return &ToolchainStore{Toolchains: map[string]ToolchainEntry{}, Tools: map[string]string{}}, nil
	}
	if store.Toolchains == nil {
		store.Toolchains = map[string]ToolchainEntry{}
	}
	if store.Tools == nil {
		store.Tools = map[string]string{}
	}
	return store, nil
}

func (s *ToolchainStore) Put(key string, entry ToolchainEntry) {
	s.Toolchains[key] = entry
}

func (s *ToolchainStore) Flush(path string) error {
	buf, err := marshalStable(s)
	if err != nil {
		return fmt.Errorf("cache: marshal toolchain store: %w", err)
	}
	return platform.WriteFileAtomic(path, buf, 0o644)
}

// CompileCommandsEntry is one record of compile_commands.json (spec §4.9).
type CompileCommandsEntry struct {
	File      string   `json:"file"`
	Directory string   `json:"directory"`
	Arguments []string `json:"arguments"`
}

// WriteCompileCommands rewrites the database atomically, one entry per
// TU in C/C++/ObjC[++] (spec §4.9 last paragraph).
func WriteCompileCommands(path string, entries []CompileCommandsEntry) error {
	buf, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal compile_commands.json: %w", err)
	}
	return platform.WriteFileAtomic(path, buf, 0o644)
}
