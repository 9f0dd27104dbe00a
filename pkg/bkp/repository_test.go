package bkp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesStoreOnFirstRun(t *testing.T) {
	root := t.TempDir()

	_, err := Open(root)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(root, StoreDirName))
	require.FileExists(t, filepath.Join(root, StoreDirName, "config"))
}

func TestOpen_ReusesExistingConfig(t *testing.T) {
	root := t.TempDir()

	repo1, err := Open(root)
	require.NoError(t, err)

	repo2, err := Open(root)
	require.NoError(t, err)

	require.Equal(t, repo1.cfg, repo2.cfg)
}

func TestRepository_CreateAndListSnapshots(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0o644))

	repo, err := Open(root)
	require.NoError(t, err)

	id, err := repo.CreateSnapshot()
	require.NoError(t, err)
	require.False(t, id.IsZero())

	entries, err := repo.ListSnapshots(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, id, entries[0].ID)
}

func TestRepository_CreateSnapshotSkipsUnchangedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("unchanged content"), 0o644))

	repo, err := Open(root)
	require.NoError(t, err)

	id1, err := repo.CreateSnapshot()
	require.NoError(t, err)

	id2, err := repo.CreateSnapshot()
	require.NoError(t, err)

	snap1, err := repo.Store().ReadSnapshot(id1)
	require.NoError(t, err)
	snap2, err := repo.Store().ReadSnapshot(id2)
	require.NoError(t, err)

	require.Equal(t, snap1.Tree, snap2.Tree, "unchanged tree should reuse the same tree object id")
	require.Equal(t, id1, snap2.Parent)
}

func TestRepository_RestoreSnapshot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("restore me"), 0o644))

	repo, err := Open(root)
	require.NoError(t, err)

	id, err := repo.CreateSnapshot()
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, repo.RestoreSnapshot(id, out, ""))

	data, err := os.ReadFile(filepath.Join(out, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "restore me", string(data))
}
