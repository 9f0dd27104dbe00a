package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/raczzoli/bkp/internal/core/objects"
)

const headFileName = "last_snapshot"

// readHead reads the store's HEAD pointer: the ID of the most recent
// snapshot, or the zero ObjectID if none has been created yet. On disk
// this is the raw 20-byte SHA-1, not hex text.
func readHead(dir string) (objects.ObjectID, error) {
	path := filepath.Join(dir, headFileName)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return objects.ObjectID{}, nil
		}
		return objects.ObjectID{}, fmt.Errorf("failed to read %s: %w", headFileName, err)
	}

	if len(content) != objects.ObjectIDSize {
		return objects.ObjectID{}, fmt.Errorf("%s is corrupt: want %d bytes, got %d", headFileName, objects.ObjectIDSize, len(content))
	}

	var id objects.ObjectID
	copy(id[:], content)
	return id, nil
}

// writeHead advances the store's HEAD pointer to id, via a lock-file-then-
// rename so a reader never observes a half-written pointer. The rename
// only happens after every object the snapshot references is already
// durable on disk, guaranteeing HEAD never points at a missing snapshot.
func writeHead(dir string, id objects.ObjectID) error {
	path := filepath.Join(dir, headFileName)
	lockPath := path + ".lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", headFileName, err)
	}
	defer os.Remove(lockPath)

	if _, err := lockFile.Write(id[:]); err != nil {
		lockFile.Close()
		return fmt.Errorf("failed to write %s: %w", headFileName, err)
	}
	if err := lockFile.Sync(); err != nil {
		lockFile.Close()
		return fmt.Errorf("failed to sync %s: %w", headFileName, err)
	}
	if err := lockFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", headFileName, err)
	}

	return os.Rename(lockPath, path)
}
