// Package snapshot implements snapshot creation and listing: composing a
// backup root's tree with a parent pointer and timestamp, and walking the
// resulting chain back through history.
package snapshot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/raczzoli/bkp/internal/core/cache"
	"github.com/raczzoli/bkp/internal/core/chunker"
	"github.com/raczzoli/bkp/internal/core/objects"
	"github.com/raczzoli/bkp/internal/core/tree"
	"github.com/raczzoli/bkp/internal/core/worker"
)

// dateLayout mirrors the fixed "YYYY-MM-DD HH:ii:ss" rendering the
// original tool stamped onto every snapshot.
const dateLayout = "2006-01-02 15:04:05"

// Engine creates and lists snapshots of a single backup root against a
// single object store.
type Engine struct {
	store      *objects.Store
	storeDir   string // directory holding last_snapshot and filecache, alongside the objects subdirectory
	backupRoot string
	chunkSize  int
	maxThreads int
	maxJobs    int
}

// NewEngine returns an Engine. chunkSize, maxThreads and maxJobs configure
// the chunker and worker pool a Create call spins up; zero values fall
// back to the package defaults.
func NewEngine(store *objects.Store, storeDir, backupRoot string, chunkSize, maxThreads, maxJobs int) *Engine {
	if maxThreads <= 0 {
		maxThreads = worker.MaxThreads
	}
	if maxJobs <= 0 {
		maxJobs = worker.MaxJobs
	}
	return &Engine{
		store:      store,
		storeDir:   storeDir,
		backupRoot: backupRoot,
		chunkSize:  chunkSize,
		maxThreads: maxThreads,
		maxJobs:    maxJobs,
	}
}

// Create scans the backup root, writes a snapshot tying the resulting tree
// to the current HEAD as parent, advances HEAD to the new snapshot, and
// returns its object ID. The updated cache and HEAD pointer are only
// persisted once every object the snapshot references is durably written;
// a failed scan or worker job leaves the store's prior state untouched.
func (e *Engine) Create() (objects.ObjectID, error) {
	c, err := cache.Load(e.storeDir)
	if err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to load cache: %w", err)
	}

	pool := worker.NewSized(e.maxThreads, e.maxJobs)
	ch := chunker.New(e.store, pool, e.chunkSize)
	engine := tree.New(e.store, ch, c, filepath.Base(e.storeDir))

	rootTree, err := engine.Scan(e.backupRoot)
	if err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to scan %s: %w", e.backupRoot, err)
	}

	if err := pool.Wait(); err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to write backed-up content: %w", err)
	}

	parent, err := readHead(e.storeDir)
	if err != nil {
		return objects.ObjectID{}, err
	}

	now := time.Now()
	snap := &objects.Snapshot{
		Parent: parent,
		Tree:   rootTree,
		Time:   now.Unix(),
		Date:   now.Format(dateLayout),
	}

	snapID, err := e.store.Write(snap)
	if err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to write snapshot object: %w", err)
	}

	if err := cache.Save(e.storeDir, c); err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to persist cache: %w", err)
	}

	if err := writeHead(e.storeDir, snapID); err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to advance HEAD: %w", err)
	}

	return snapID, nil
}

// Entry pairs a snapshot with the object ID it's stored under, for listing.
type Entry struct {
	ID       objects.ObjectID
	Snapshot *objects.Snapshot
}

// List walks the snapshot chain back from HEAD, returning up to limit
// entries in most-recent-first order. A limit of 0 returns the entire
// chain.
func (e *Engine) List(limit int) ([]Entry, error) {
	head, err := readHead(e.storeDir)
	if err != nil {
		return nil, err
	}
	if head.IsZero() {
		return nil, nil
	}

	var entries []Entry
	cur := head

	for !cur.IsZero() {
		snap, err := e.store.ReadSnapshot(cur)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", cur, err)
		}

		entries = append(entries, Entry{ID: cur, Snapshot: snap})
		if limit > 0 && len(entries) >= limit {
			break
		}

		cur = snap.Parent
	}

	return entries, nil
}
