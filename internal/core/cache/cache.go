// Package cache implements the change-detection index the tree engine
// consults to decide whether a file's content needs re-chunking or its
// last known object ID can be reused unchanged.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/edsrzf/mmap-go"

	"github.com/raczzoli/bkp/internal/core/objects"
)

// ErrLocked is returned by Save when a concurrent Save is already in
// progress (the filecache.new staging file already exists).
var ErrLocked = errors.New("cache is locked by another update")

// ChangeFlag reports which stat fields differ between a cache entry and a
// fresh lstat of the file it describes.
type ChangeFlag int

const (
	ChangeMode ChangeFlag = 1 << iota
	ChangeTime
	ChangeSize
)

// growChunk mirrors the original implementation's realloc-by-1000 growth
// of its cache entry array.
const growChunk = 1000

const fileName = "filecache"
const stagingName = "filecache.new"

// entryHeaderSize is the size in bytes of a Entry's fixed-width fields,
// excluding the variable-length path that follows it on disk.
const entryHeaderSize = 4 + 8 + 8 + 8 + 8 + 8 + objects.ObjectIDSize + 2

// Entry records the last-seen stat metadata and content object ID for one
// path, so an unchanged file can skip re-chunking on the next snapshot.
type Entry struct {
	Mode      uint32
	Size      int64
	MTimeSec  int64
	MTimeNsec int64
	CTimeSec  int64
	CTimeNsec int64
	ID        objects.ObjectID // head object id for the file's content (always a chunks object)
	Path      string
}

// Changed compares entry against a fresh stat of the file and reports which
// fields differ. A change in mtime/ctime alone (ChangeTime) does not by
// itself mean the content changed — many tools touch a file's timestamp
// without touching its bytes — and neither does ChangeMode, so callers
// should only re-chunk on ChangeSize and otherwise just refresh the entry.
func (e *Entry) Changed(fs FileStat) ChangeFlag {
	var change ChangeFlag

	if e.MTimeSec != fs.MTimeSec || e.MTimeNsec != fs.MTimeNsec ||
		e.CTimeSec != fs.CTimeSec || e.CTimeNsec != fs.CTimeNsec {
		change |= ChangeTime
	}
	if e.Mode != fs.Mode {
		change |= ChangeMode
	}
	if e.Size != fs.Size {
		change |= ChangeSize
	}

	return change
}

// Update applies a fresh FileStat to entry in place.
func (e *Entry) Update(fs FileStat) {
	e.Mode = fs.Mode
	e.Size = fs.Size
	e.MTimeSec = fs.MTimeSec
	e.MTimeNsec = fs.MTimeNsec
	e.CTimeSec = fs.CTimeSec
	e.CTimeNsec = fs.CTimeNsec
}

// Cache is the in-memory, path-sorted array of cache entries backing the
// on-disk filecache file.
type Cache struct {
	entries []*Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Entries returns the cache's entries in sorted path order.
func (c *Cache) Entries() []*Entry {
	return c.entries
}

// Find does a binary search for path and returns its index. ok is false
// when path isn't present.
func (c *Cache) Find(path string) (idx int, ok bool) {
	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Path >= path
	})
	if i < len(c.entries) && c.entries[i].Path == path {
		return i, true
	}
	return i, false
}

// Upsert inserts entry in sorted position, or replaces the existing entry
// for the same path.
func (c *Cache) Upsert(entry *Entry) {
	idx, ok := c.Find(entry.Path)
	if ok {
		c.entries[idx] = entry
		return
	}

	if cap(c.entries) == len(c.entries) {
		grown := make([]*Entry, len(c.entries), len(c.entries)+growChunk)
		copy(grown, c.entries)
		c.entries = grown
	}

	c.entries = append(c.entries, nil)
	copy(c.entries[idx+1:], c.entries[idx:])
	c.entries[idx] = entry
}

// Load reads the filecache file under dir. A missing file is not an error:
// it just means nothing has been cached yet.
func Load(dir string) (*Cache, error) {
	path := filepath.Join(dir, fileName)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat cache file: %w", err)
	}
	if fi.Size() == 0 {
		return New(), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap cache file: %w", err)
	}
	// Copy out of the mapping before unmapping it; nothing here should
	// reference m's backing memory afterward.
	raw := make([]byte, len(m))
	copy(raw, m)
	if err := m.Unmap(); err != nil {
		return nil, fmt.Errorf("failed to unmap cache file: %w", err)
	}

	return parse(raw)
}

// Save persists c to the filecache file under dir, via a temp-file-then-
// rename so a reader never observes a partially written file. Creation of
// the staging file is exclusive: a concurrent Save returns ErrLocked
// instead of racing.
func Save(dir string, c *Cache) error {
	stagingPath := filepath.Join(dir, stagingName)

	f, err := os.OpenFile(stagingPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		if os.IsExist(err) {
			return ErrLocked
		}
		return fmt.Errorf("failed to create cache staging file: %w", err)
	}

	var buf bytes.Buffer
	for _, e := range c.entries {
		if err := writeEntry(&buf, e); err != nil {
			f.Close()
			os.Remove(stagingPath)
			return fmt.Errorf("failed to encode cache entry for %s: %w", e.Path, err)
		}
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(stagingPath)
		return fmt.Errorf("failed to write cache staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(stagingPath)
		return fmt.Errorf("failed to close cache staging file: %w", err)
	}

	if err := os.Rename(stagingPath, filepath.Join(dir, fileName)); err != nil {
		return fmt.Errorf("failed to install updated cache file: %w", err)
	}

	return nil
}

func writeEntry(buf *bytes.Buffer, e *Entry) error {
	if err := binary.Write(buf, binary.LittleEndian, e.Mode); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.Size); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.MTimeSec); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.MTimeNsec); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.CTimeSec); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.CTimeNsec); err != nil {
		return err
	}
	buf.Write(e.ID[:])
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(e.Path))); err != nil {
		return err
	}
	buf.WriteString(e.Path)
	buf.WriteByte(0)
	return nil
}

func parse(raw []byte) (*Cache, error) {
	c := New()
	offset := 0

	for offset < len(raw) {
		if offset+entryHeaderSize > len(raw) {
			return nil, fmt.Errorf("corrupt cache file: truncated entry header")
		}

		e := &Entry{}
		e.Mode = binary.LittleEndian.Uint32(raw[offset:])
		offset += 4
		e.Size = int64(binary.LittleEndian.Uint64(raw[offset:]))
		offset += 8
		e.MTimeSec = int64(binary.LittleEndian.Uint64(raw[offset:]))
		offset += 8
		e.MTimeNsec = int64(binary.LittleEndian.Uint64(raw[offset:]))
		offset += 8
		e.CTimeSec = int64(binary.LittleEndian.Uint64(raw[offset:]))
		offset += 8
		e.CTimeNsec = int64(binary.LittleEndian.Uint64(raw[offset:]))
		offset += 8
		copy(e.ID[:], raw[offset:offset+objects.ObjectIDSize])
		offset += objects.ObjectIDSize

		pathLen := int(binary.LittleEndian.Uint16(raw[offset:]))
		offset += 2

		// path_len bytes of path data plus the trailing NUL.
		if offset+pathLen+1 > len(raw) {
			return nil, fmt.Errorf("corrupt cache file: truncated path")
		}
		e.Path = string(raw[offset : offset+pathLen])
		offset += pathLen + 1

		c.entries = append(c.entries, e)
	}

	return c, nil
}
