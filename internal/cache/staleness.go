package cache

import "github.com/chalet-org/chalet/internal/platform"

// IsStale implements the six-way staleness rule of spec §4.5. The caller
// passes the object path, whose existence is checked here; the dep list is
// the one stored in entry from the previous build, which for an unchanged
// file is the current list, so it is re-checked against current mtimes here.
func IsStale(entry *FileEntry, objectPath, currentCommandHash string, currentMtime int64, toolchainHashChanged, workspaceHashChanged bool) (bool, error) {
	if entry == nil {
		return true, nil
	}

	objMtime, err := platform.MTime(objectPath)
	if err != nil {
		return false, err
	}
	if objMtime < 0 {
		return true, nil // (1) object file missing
	}
	if entry.SourceMtime < currentMtime {
		return true, nil // (2) recorded source_mtime < current
	}
	if entry.CommandHash != currentCommandHash {
		return true, nil // (3) recorded command_hash != current
	}
	for _, dep := range entry.DepList {
		depMtime, err := platform.MTime(dep)
		if err != nil {
			return false, err
		}
		if depMtime > objMtime {
			return true, nil // (4) a dependency is newer than the object
		}
	}
	if toolchainHashChanged {
		return true, nil // (5)
	}
	if workspaceHashChanged {
		return true, nil // (6)
	}
	return false, nil
}
