package objects

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
)

// ErrTypeMismatch is returned by the typed Read* helpers when the object's
// stored type tag doesn't match what the caller asked for.
var ErrTypeMismatch = errors.New("object type mismatch")

// ErrCorrupt is returned when an object's compressed bytes don't hash back
// to the name it was read under, or its framing can't be parsed.
var ErrCorrupt = errors.New("corrupt object")

// Store is the content-addressed object store described in spec §4.B: a
// flat directory of deflate-compressed, type-tagged objects named by the
// SHA-1 of their compressed bytes rather than git's pre-compression hash.
type Store struct {
	dir    string
	verify bool
}

// NewStore returns a Store rooted at dir. verifyOnRead, when true, re-hashes
// every object's compressed bytes on read and fails with ErrCorrupt on
// mismatch; it costs a second pass over the bytes, so it's opt-in.
func NewStore(dir string, verifyOnRead bool) *Store {
	return &Store{dir: dir, verify: verifyOnRead}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the store directory if it doesn't already exist.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create object store directory: %w", err)
	}
	return nil
}

// objectPath returns the flat on-disk path for an object named by id.
func (s *Store) objectPath(id ObjectID) string {
	return filepath.Join(s.dir, id.String())
}

// CompressObject tags and compresses payload and returns the ObjectID it
// will be stored under (the SHA-1 of the compressed bytes) along with those
// bytes, without touching disk. The chunker uses this to learn a blob's ID
// synchronously while handing the actual disk write off to the worker pool.
func CompressObject(tag ObjectType, payload []byte) (ObjectID, []byte, error) {
	var tagged bytes.Buffer
	tagged.WriteString(string(tag))
	tagged.WriteByte(0)
	tagged.Write(payload)

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(tagged.Bytes()); err != nil {
		w.Close()
		return ObjectID{}, nil, fmt.Errorf("failed to compress object: %w", err)
	}
	if err := w.Close(); err != nil {
		return ObjectID{}, nil, fmt.Errorf("failed to compress object: %w", err)
	}

	id := Sum(compressed.Bytes())
	return id, compressed.Bytes(), nil
}

// WriteCompressed writes already-compressed bytes (as produced by
// CompressObject) to the store under id. It's a no-op dedup, not an error,
// if the object is already on disk.
func (s *Store) WriteCompressed(id ObjectID, compressed []byte) error {
	path := s.objectPath(id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create object file %s: %w", path, err)
	}
	defer f.Close()

	n, err := f.Write(compressed)
	if err != nil {
		return fmt.Errorf("failed to write object file %s: %w", path, err)
	}
	if n != len(compressed) {
		return fmt.Errorf("short write to object file %s: wrote %d of %d bytes", path, n, len(compressed))
	}

	return nil
}

// WriteRaw compresses tag+NUL+payload, names it by the SHA-1 of the
// compressed bytes, and writes it to the store under that name. Writing an
// object that already exists is a successful no-op dedup, not an error.
func (s *Store) WriteRaw(tag ObjectType, payload []byte) (ObjectID, error) {
	id, compressed, err := CompressObject(tag, payload)
	if err != nil {
		return ObjectID{}, err
	}
	if err := s.WriteCompressed(id, compressed); err != nil {
		return ObjectID{}, err
	}
	return id, nil
}

// Write serializes obj and stores it, returning its object ID.
func (s *Store) Write(obj Object) (ObjectID, error) {
	payload, err := obj.Serialize()
	if err != nil {
		return ObjectID{}, fmt.Errorf("failed to serialize %s object: %w", obj.Type(), err)
	}
	return s.WriteRaw(obj.Type(), payload)
}

// ReadRaw reads and inflates the object named by id, checks its type tag
// against expected, and returns the payload bytes that follow the tag.
func (s *Store) ReadRaw(id ObjectID, expected ObjectType) ([]byte, error) {
	path := s.objectPath(id)

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", id, err)
	}

	if s.verify {
		if got := Sum(compressed); got != id {
			return nil, fmt.Errorf("object %s: %w", id, ErrCorrupt)
		}
	}

	full, err := inflate(compressed)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w: %v", id, ErrCorrupt, err)
	}

	nullIdx := bytes.IndexByte(full, 0)
	if nullIdx == -1 {
		return nil, fmt.Errorf("object %s: %w: missing type tag", id, ErrCorrupt)
	}

	tag := ObjectType(full[:nullIdx])
	if tag != expected {
		return nil, fmt.Errorf("object %s: expected %s, got %s: %w", id, expected, tag, ErrTypeMismatch)
	}

	return full[nullIdx+1:], nil
}

// ProbeType returns the type tag of the object named by id without
// validating it against any expectation. Used by the show-file diagnostic,
// which accepts any object type.
func (s *Store) ProbeType(id ObjectID) (ObjectType, error) {
	path := s.objectPath(id)

	compressed, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read object %s: %w", id, err)
	}

	full, err := inflate(compressed)
	if err != nil {
		return "", fmt.Errorf("object %s: %w: %v", id, ErrCorrupt, err)
	}

	nullIdx := bytes.IndexByte(full, 0)
	if nullIdx == -1 {
		return "", fmt.Errorf("object %s: %w: missing type tag", id, ErrCorrupt)
	}

	return ObjectType(full[:nullIdx]), nil
}

// Has reports whether an object named by id exists in the store.
func (s *Store) Has(id ObjectID) bool {
	_, err := os.Stat(s.objectPath(id))
	return err == nil
}

// ReadBlob reads and parses the blob named by id.
func (s *Store) ReadBlob(id ObjectID) (*Blob, error) {
	payload, err := s.ReadRaw(id, TypeBlob)
	if err != nil {
		return nil, err
	}
	return ParseBlob(payload), nil
}

// ReadChunks reads and parses the chunks object named by id.
func (s *Store) ReadChunks(id ObjectID) (*Chunks, error) {
	payload, err := s.ReadRaw(id, TypeChunks)
	if err != nil {
		return nil, err
	}
	return ParseChunks(payload)
}

// ReadTree reads and parses the tree named by id.
func (s *Store) ReadTree(id ObjectID) (*Tree, error) {
	payload, err := s.ReadRaw(id, TypeTree)
	if err != nil {
		return nil, err
	}
	return ParseTree(payload)
}

// ReadSnapshot reads and parses the snapshot named by id.
func (s *Store) ReadSnapshot(id ObjectID) (*Snapshot, error) {
	payload, err := s.ReadRaw(id, TypeSnapshot)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(payload)
}

func inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var full bytes.Buffer
	if _, err := io.Copy(&full, zr); err != nil {
		return nil, err
	}
	return full.Bytes(), nil
}
