package objects

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_Init(t *testing.T) {
	tmpDir := t.TempDir()
	storeDir := filepath.Join(tmpDir, "objects")
	store := NewStore(storeDir, false)

	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	if _, err := os.Stat(storeDir); os.IsNotExist(err) {
		t.Error("object store directory not created")
	}
}

func TestStore_WriteAndRead(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	blob := NewBlob([]byte("test content"))
	id, err := store.Write(blob)
	if err != nil {
		t.Fatalf("Store.Write() error = %v", err)
	}

	if !store.Has(id) {
		t.Error("Store.Has() = false, want true")
	}

	read, err := store.ReadBlob(id)
	if err != nil {
		t.Fatalf("Store.ReadBlob() error = %v", err)
	}
	if string(read.Data()) != "test content" {
		t.Errorf("ReadBlob().Data() = %q, want %q", read.Data(), "test content")
	}
}

func TestStore_WriteIsNameByCompressedBytes(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	blob := NewBlob([]byte("hello world\n"))
	id, err := store.Write(blob)
	if err != nil {
		t.Fatalf("Store.Write() error = %v", err)
	}

	// The ID must be the hash of the stored (compressed) bytes, not of the
	// raw "blob\0hello world\n" payload a git-style store would use.
	stored, err := os.ReadFile(filepath.Join(store.Dir(), id.String()))
	if err != nil {
		t.Fatalf("failed to read stored object: %v", err)
	}
	if got := Sum(stored); got != id {
		t.Errorf("object name %v does not match hash of its compressed bytes %v", id, got)
	}
}

func TestStore_WriteDedup(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	blob := NewBlob([]byte("test content"))

	id1, err := store.Write(blob)
	if err != nil {
		t.Fatalf("first Store.Write() error = %v", err)
	}
	id2, err := store.Write(blob)
	if err != nil {
		t.Fatalf("second Store.Write() error = %v, want nil (dedup)", err)
	}
	if id1 != id2 {
		t.Errorf("Write() of identical content produced different ids: %v != %v", id1, id2)
	}
}

func TestStore_ReadNonExistent(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	id := Sum([]byte("never written"))
	if _, err := store.ReadBlob(id); err == nil {
		t.Error("Store.ReadBlob() of missing object: error = nil, want error")
	}
}

func TestStore_TypeMismatch(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	id, err := store.Write(NewBlob([]byte("payload")))
	if err != nil {
		t.Fatalf("Store.Write() error = %v", err)
	}

	if _, err := store.ReadTree(id); err == nil {
		t.Error("Store.ReadTree() of a blob object: error = nil, want ErrTypeMismatch")
	}
}

func TestStore_CorruptOnVerify(t *testing.T) {
	store := NewStore(t.TempDir(), true)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	id, err := store.Write(NewBlob([]byte("payload")))
	if err != nil {
		t.Fatalf("Store.Write() error = %v", err)
	}

	path := filepath.Join(store.Dir(), id.String())
	if err := os.WriteFile(path, []byte("tampered bytes that do not hash to id"), 0o644); err != nil {
		t.Fatalf("failed to tamper with object file: %v", err)
	}

	if _, err := store.ReadBlob(id); err == nil {
		t.Error("Store.ReadBlob() of tampered object with verify on: error = nil, want ErrCorrupt")
	}
}

func TestCompressObjectThenWriteCompressed(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	id, compressed, err := CompressObject(TypeBlob, []byte("async blob content"))
	if err != nil {
		t.Fatalf("CompressObject() error = %v", err)
	}

	if err := store.WriteCompressed(id, compressed); err != nil {
		t.Fatalf("Store.WriteCompressed() error = %v", err)
	}

	read, err := store.ReadBlob(id)
	if err != nil {
		t.Fatalf("Store.ReadBlob() error = %v", err)
	}
	if string(read.Data()) != "async blob content" {
		t.Errorf("ReadBlob().Data() = %q, want %q", read.Data(), "async blob content")
	}
}

func TestStore_TreeAndChunksRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), false)
	if err := store.Init(); err != nil {
		t.Fatalf("Store.Init() error = %v", err)
	}

	blobID, err := store.Write(NewBlob([]byte("file contents")))
	if err != nil {
		t.Fatalf("Store.Write(blob) error = %v", err)
	}

	chunksID, err := store.Write(NewChunks([]ObjectID{blobID}))
	if err != nil {
		t.Fatalf("Store.Write(chunks) error = %v", err)
	}

	tree := NewTree()
	if err := tree.AddEntry(ModeBlob, "file.txt", chunksID); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	treeID, err := store.Write(tree)
	if err != nil {
		t.Fatalf("Store.Write(tree) error = %v", err)
	}

	readTree, err := store.ReadTree(treeID)
	if err != nil {
		t.Fatalf("Store.ReadTree() error = %v", err)
	}
	if len(readTree.Entries()) != 1 || readTree.Entries()[0].ID != chunksID {
		t.Fatalf("ReadTree() entries = %+v", readTree.Entries())
	}

	readChunks, err := store.ReadChunks(readTree.Entries()[0].ID)
	if err != nil {
		t.Fatalf("Store.ReadChunks() error = %v", err)
	}
	if len(readChunks.Blobs()) != 1 || readChunks.Blobs()[0] != blobID {
		t.Fatalf("ReadChunks() blobs = %v", readChunks.Blobs())
	}
}
