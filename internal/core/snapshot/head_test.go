package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raczzoli/bkp/internal/core/objects"
)

func TestHead_ReadMissingIsZero(t *testing.T) {
	id, err := readHead(t.TempDir())
	if err != nil {
		t.Fatalf("readHead() error = %v", err)
	}
	if !id.IsZero() {
		t.Errorf("readHead() of missing file = %v, want zero", id)
	}
}

func TestHead_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	id := objects.Sum([]byte("a snapshot"))

	if err := writeHead(dir, id); err != nil {
		t.Fatalf("writeHead() error = %v", err)
	}

	got, err := readHead(dir)
	if err != nil {
		t.Fatalf("readHead() error = %v", err)
	}
	if got != id {
		t.Errorf("readHead() = %v, want %v", got, id)
	}
}

func TestHead_WriteFailsWhenLockHeld(t *testing.T) {
	dir := t.TempDir()

	lockFile, err := os.OpenFile(filepath.Join(dir, headFileName+".lock"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to pre-create lock file: %v", err)
	}
	defer lockFile.Close()

	if err := writeHead(dir, objects.Sum([]byte("x"))); err == nil {
		t.Error("writeHead() with lock already held: error = nil, want error")
	}
}
