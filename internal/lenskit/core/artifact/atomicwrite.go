package artifact

import (
	"fmt"
	"os"
)

// WriteAtomic writes data to path via a sibling ".tmp" file followed by
// a rename, the same write-then-rename pattern used throughout this
// codebase for artifact emission so a crash mid-write never leaves a
// partially written artifact in place.
func WriteAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// CleanupOnFailure removes every path in paths, used to strip partially
// emitted artifacts when a fatal failure aborts a run mid-emission.
func CleanupOnFailure(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
		_ = os.Remove(p + ".tmp")
	}
}
