// Package bkp ties the object store, cache, snapshot and restore engines
// together into the single entry point the CLI and any other caller
// opens a backup store through.
package bkp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/raczzoli/bkp/internal/config"
	"github.com/raczzoli/bkp/internal/core/objects"
	"github.com/raczzoli/bkp/internal/core/restore"
	"github.com/raczzoli/bkp/internal/core/snapshot"
)

// StoreDirName is the default name of the store directory created inside
// the directory a Repository is opened against.
const StoreDirName = ".bkp-data"

const objectsDirName = "objects"

// Repository is an opened (or freshly initialized) store directory bound
// to the working directory it backs up.
type Repository struct {
	root     string // the directory being backed up
	storeDir string // root/StoreDirName
	store    *objects.Store
	cfg      config.Config

	snapshots *snapshot.Engine
	restore   *restore.Engine
}

// Open opens the store under root, creating it (and writing a default
// config) if this is the first run. This mirrors the original tool's
// behavior of provisioning the store directory implicitly on first use,
// rather than requiring a separate init step.
func Open(root string) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	storeDir := filepath.Join(absRoot, StoreDirName)

	var cfg config.Config
	if config.Exists(storeDir) {
		cfg, err = config.Load(storeDir)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", storeDir, err)
		}
		if err := config.Save(storeDir, cfg); err != nil {
			return nil, err
		}
	}

	store := objects.NewStore(filepath.Join(storeDir, objectsDirName), cfg.VerifyOnRead)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	snapEngine := snapshot.NewEngine(store, storeDir, absRoot, cfg.ChunkSize, cfg.MaxThreads, cfg.MaxJobs)
	restoreEngine := restore.New(store)

	return &Repository{
		root:      absRoot,
		storeDir:  storeDir,
		store:     store,
		cfg:       cfg,
		snapshots: snapEngine,
		restore:   restoreEngine,
	}, nil
}

// Root returns the directory this repository backs up.
func (r *Repository) Root() string { return r.root }

// StoreDir returns the store directory (root/.bkp-data).
func (r *Repository) StoreDir() string { return r.storeDir }

// CreateSnapshot scans Root and records a new snapshot, returning its ID.
func (r *Repository) CreateSnapshot() (objects.ObjectID, error) {
	return r.snapshots.Create()
}

// ListSnapshots returns up to limit snapshots reachable from HEAD,
// most-recent-first. A limit of 0 returns the full chain.
func (r *Repository) ListSnapshots(limit int) ([]snapshot.Entry, error) {
	return r.snapshots.List(limit)
}

// RestoreSnapshot restores the snapshot named by id into outDir, which
// must exist and be empty. subPath, if non-empty, restricts the restore
// to that subtree.
func (r *Repository) RestoreSnapshot(id objects.ObjectID, outDir, subPath string) error {
	return r.restore.Restore(id, outDir, subPath)
}

// ReadObjectType reports the stored type of id without validating it
// against an expected type, for diagnostic display.
func (r *Repository) ReadObjectType(id objects.ObjectID) (objects.ObjectType, error) {
	return r.store.ProbeType(id)
}

func (r *Repository) Store() *objects.Store { return r.store }
