// Package restore reconstructs a backed-up directory tree from a snapshot:
// snapshot → tree → chunks → blob, written out under an empty target
// directory.
package restore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raczzoli/bkp/internal/core/objects"
)

// ErrNonEmptyTarget is returned when the restore target directory already
// contains entries. Only empty directories are accepted as a restore
// target.
var ErrNonEmptyTarget = errors.New("restore target directory is not empty")

// Engine restores snapshots from a Store.
type Engine struct {
	store *objects.Store
}

// New returns an Engine reading from store.
func New(store *objects.Store) *Engine {
	return &Engine{store: store}
}

// Restore writes the content of the snapshot named by id into outDir,
// which must exist and be empty. subPath, if non-empty, restricts the
// restore to that path within the snapshot (and the directories that lead
// to it); an empty subPath restores everything.
func (e *Engine) Restore(id objects.ObjectID, outDir, subPath string) error {
	empty, err := dirIsEmpty(outDir)
	if err != nil {
		return fmt.Errorf("failed to inspect restore target %s: %w", outDir, err)
	}
	if !empty {
		return fmt.Errorf("%s: %w", outDir, ErrNonEmptyTarget)
	}

	snap, err := e.store.ReadSnapshot(id)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}

	subPath = filepath.ToSlash(filepath.Clean(strings.TrimPrefix(subPath, "/")))

	return e.restoreTree(snap.Tree, outDir, "", subPath)
}

// restoreTree restores one tree's entries into outDir. relPath is the
// entries' path relative to the snapshot root, used to match against
// subPath.
func (e *Engine) restoreTree(id objects.ObjectID, outDir, relPath, subPath string) error {
	tr, err := e.store.ReadTree(id)
	if err != nil {
		return fmt.Errorf("failed to read tree %s: %w", id, err)
	}

	for _, entry := range tr.Entries() {
		entryRel := entry.Name
		if relPath != "" {
			entryRel = relPath + "/" + entry.Name
		}

		if subPath != "." && !withinSubPath(entryRel, subPath) {
			continue
		}

		entryOut := filepath.Join(outDir, entry.Name)
		perm := os.FileMode(entry.Mode & 0o777)

		switch entry.Mode {
		case objects.ModeTree:
			if err := os.Mkdir(entryOut, perm|0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", entryOut, err)
			}
			if err := e.restoreTree(entry.ID, entryOut, entryRel, subPath); err != nil {
				return err
			}

		case objects.ModeBlob, objects.ModeExec:
			if err := e.restoreFile(entry.ID, entryOut, perm); err != nil {
				return err
			}

		default:
			return fmt.Errorf("tree entry %s has unsupported mode %o", entryRel, entry.Mode)
		}
	}

	return nil
}

// restoreFile writes the blobs referenced by the chunks object id, in
// order, to outPath.
func (e *Engine) restoreFile(id objects.ObjectID, outPath string, perm os.FileMode) error {
	chunks, err := e.store.ReadChunks(id)
	if err != nil {
		return fmt.Errorf("failed to read chunks object %s: %w", id, err)
	}

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outPath, err)
	}
	defer f.Close()

	for _, blobID := range chunks.Blobs() {
		blob, err := e.store.ReadBlob(blobID)
		if err != nil {
			return fmt.Errorf("failed to read blob %s for %s: %w", blobID, outPath, err)
		}
		if _, err := f.Write(blob.Data()); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
	}

	return nil
}

// withinSubPath reports whether path should be restored given a subPath
// filter: either path is an ancestor directory leading to subPath, or
// subPath is an ancestor of (or equal to) path. Comparison is by whole
// path segment, so a sibling whose name merely shares a string prefix
// (e.g. "sub" vs "subdir") is never mistaken for an ancestor/descendant.
func withinSubPath(path, subPath string) bool {
	return isPathPrefix(subPath, path) || isPathPrefix(path, subPath)
}

// isPathPrefix reports whether prefix is path itself or an ancestor
// directory of path, comparing "/"-separated segments rather than raw
// byte prefixes.
func isPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func dirIsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
