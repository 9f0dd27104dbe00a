// Package tree implements the recursive directory scan that builds one
// tree object per directory, reusing cached content hashes for files whose
// stat metadata hasn't meaningfully changed since the last scan.
package tree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/raczzoli/bkp/internal/core/cache"
	"github.com/raczzoli/bkp/internal/core/chunker"
	"github.com/raczzoli/bkp/internal/core/objects"
)

// Engine walks a directory tree, writing a tree object per directory and a
// blob/chunks object per file, consulting and updating cache along the way.
type Engine struct {
	store        *objects.Store
	chunker      *chunker.Chunker
	cache        *cache.Cache
	storeDirName string
}

// New returns an Engine. storeDirName is the name of the store's own
// directory (e.g. ".bkp-data"), which the scan always excludes from the
// tree it builds.
func New(store *objects.Store, ch *chunker.Chunker, c *cache.Cache, storeDirName string) *Engine {
	return &Engine{store: store, chunker: ch, cache: c, storeDirName: storeDirName}
}

// Scan walks root and returns the object ID of its root tree. File content
// is written through the engine's chunker; directories recurse into their
// own tree objects. Symlinks and other non-regular, non-directory entries
// are skipped.
func (e *Engine) Scan(root string) (objects.ObjectID, error) {
	return e.scanDir(root, "")
}

// scanDir scans the directory at absPath, whose path relative to the
// backup root is relPath (used as the cache key prefix). Keys are
// relative rather than absolute; see DESIGN.md for why that's a safe
// deviation from the documented absolute-path cache field.
func (e *Engine) scanDir(absPath, relPath string) (objects.ObjectID, error) {
	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to read directory %s: %w", absPath, err)
	}

	tr := objects.NewTree()

	for _, de := range dirEntries {
		name := de.Name()
		if name == e.storeDirName {
			continue
		}

		childAbs := filepath.Join(absPath, name)
		childRel := name
		if relPath != "" {
			childRel = filepath.Join(relPath, name)
		}

		info, err := os.Lstat(childAbs)
		if err != nil {
			return objects.ObjectID{}, fmt.Errorf("failed to stat %s: %w", childAbs, err)
		}

		switch {
		case info.IsDir():
			id, err := e.scanDir(childAbs, childRel)
			if err != nil {
				return objects.ObjectID{}, err
			}
			if err := tr.AddEntry(objects.ModeTree, name, id); err != nil {
				return objects.ObjectID{}, err
			}

		case info.Mode().IsRegular():
			id, mode, err := e.scanFile(childAbs, childRel, info)
			if err != nil {
				return objects.ObjectID{}, err
			}
			if err := tr.AddEntry(mode, name, id); err != nil {
				return objects.ObjectID{}, err
			}

		default:
			// Symlinks, devices, sockets and other special files carry no
			// portable content to back up.
			continue
		}
	}

	return e.store.Write(tr)
}

// scanFile resolves the object ID for one file, reusing the cached ID when
// the file's size hasn't changed, and re-chunking otherwise.
func (e *Engine) scanFile(absPath, relPath string, info os.FileInfo) (objects.ObjectID, objects.FileMode, error) {
	mode := objects.ModeBlob
	if info.Mode()&0o111 != 0 {
		mode = objects.ModeExec
	}

	fs, err := cache.Stat(absPath)
	if err != nil {
		return objects.ObjectID{}, 0, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}

	idx, found := e.cache.Find(relPath)
	if found {
		entry := e.cache.Entries()[idx]
		changed := entry.Changed(fs)

		// Content is addressed by size and bytes, not by mode or
		// timestamps, so a size match is enough to reuse the cached
		// object; a mode-only change just needs the cached metadata
		// refreshed, not a re-chunk.
		if changed&cache.ChangeSize == 0 {
			if changed != 0 {
				entry.Update(fs)
			}
			return entry.ID, mode, nil
		}
	}

	id, err := e.chunker.WriteFile(absPath)
	if err != nil {
		return objects.ObjectID{}, 0, fmt.Errorf("failed to chunk %s: %w", absPath, err)
	}

	entry := &cache.Entry{Path: relPath, ID: id}
	entry.Update(fs)
	e.cache.Upsert(entry)

	return id, mode, nil
}
