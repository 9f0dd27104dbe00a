package restore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raczzoli/bkp/internal/core/cache"
	"github.com/raczzoli/bkp/internal/core/chunker"
	"github.com/raczzoli/bkp/internal/core/objects"
	"github.com/raczzoli/bkp/internal/core/tree"
	"github.com/raczzoli/bkp/internal/core/worker"
)

// buildSnapshot backs up srcDir into a fresh store and returns the
// resulting snapshot ID along with the store used.
func buildSnapshot(t *testing.T, srcDir string) (*objects.Store, objects.ObjectID) {
	t.Helper()

	storeDir := t.TempDir()
	store := objects.NewStore(filepath.Join(storeDir, "objects"), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	pool := worker.New()
	ch := chunker.New(store, pool, 1024)
	c := cache.New()
	engine := tree.New(store, ch, c, ".bkp-data")

	rootTree, err := engine.Scan(srcDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if err := pool.Wait(); err != nil {
		t.Fatalf("pool.Wait() error = %v", err)
	}

	snap := &objects.Snapshot{Tree: rootTree, Time: 1700000000, Date: "2023-11-14 22:13:20"}
	id, err := store.Write(snap)
	if err != nil {
		t.Fatalf("Store.Write(snapshot) error = %v", err)
	}

	return store, id
}

func TestEngine_RestoreFullTree(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("file a content"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("file b content"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	store, id := buildSnapshot(t, src)

	out := t.TempDir()
	engine := New(store)
	if err := engine.Restore(id, out, ""); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	gotA, err := os.ReadFile(filepath.Join(out, "a.txt"))
	if err != nil {
		t.Fatalf("failed to read restored a.txt: %v", err)
	}
	if string(gotA) != "file a content" {
		t.Errorf("restored a.txt = %q, want %q", gotA, "file a content")
	}

	gotB, err := os.ReadFile(filepath.Join(out, "sub", "b.txt"))
	if err != nil {
		t.Fatalf("failed to read restored sub/b.txt: %v", err)
	}
	if string(gotB) != "file b content" {
		t.Errorf("restored sub/b.txt = %q, want %q", gotB, "file b content")
	}
}

func TestEngine_RestoreSubPath(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("not restored"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("restored"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	store, id := buildSnapshot(t, src)

	out := t.TempDir()
	engine := New(store)
	if err := engine.Restore(id, out, "sub"); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(out, "a.txt")); !os.IsNotExist(err) {
		t.Error("Restore() with subPath restored a.txt, which is outside the requested subtree")
	}

	data, err := os.ReadFile(filepath.Join(out, "sub", "b.txt"))
	if err != nil {
		t.Fatalf("failed to read restored sub/b.txt: %v", err)
	}
	if string(data) != "restored" {
		t.Errorf("restored sub/b.txt = %q, want %q", data, "restored")
	}
}

func TestEngine_RestoreSubPathDoesNotMatchSiblingPrefix(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("restored"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(src, "subdir"), 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "subdir", "c.txt"), []byte("not restored"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	store, id := buildSnapshot(t, src)

	out := t.TempDir()
	engine := New(store)
	if err := engine.Restore(id, out, "sub"); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(out, "sub", "b.txt")); err != nil {
		t.Errorf("expected sub/b.txt to be restored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "subdir")); !os.IsNotExist(err) {
		t.Error("Restore() with subPath \"sub\" restored sibling directory \"subdir\"")
	}
}

func TestEngine_RestoreRejectsNonEmptyTarget(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	store, id := buildSnapshot(t, src)

	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "preexisting"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to seed output dir: %v", err)
	}

	engine := New(store)
	if err := engine.Restore(id, out, ""); err == nil {
		t.Error("Restore() into non-empty directory: error = nil, want ErrNonEmptyTarget")
	}
}
