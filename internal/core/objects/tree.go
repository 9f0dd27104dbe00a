package objects

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"strconv"
)

// FileMode is the mode recorded for a tree entry. Only directories and
// regular files are represented; symlinks and other special files never
// make it into a tree (the tree engine skips them during the scan).
type FileMode uint32

const (
	ModeTree FileMode = 0040000
	ModeBlob FileMode = 0100644
	ModeExec FileMode = 0100755
)

// TreeEntry names one child of a directory: either a subtree or the head
// object of a file, which is always a chunks object (even for a file that
// fits in a single blob).
type TreeEntry struct {
	Mode FileMode
	Name string
	ID   ObjectID
}

// Tree is a directory listing: mode, name and child object ID per entry.
// Entries are kept in the order they were added; the tree engine adds them
// in directory-scan order rather than re-sorting by name.
type Tree struct {
	entries []TreeEntry
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// AddEntry appends an entry to the tree. Names must be non-empty and unique
// within the tree.
func (t *Tree) AddEntry(mode FileMode, name string, id ObjectID) error {
	if name == "" {
		return fmt.Errorf("tree entry name cannot be empty")
	}

	for _, e := range t.entries {
		if e.Name == name {
			return fmt.Errorf("duplicate tree entry name: %s", name)
		}
	}

	t.entries = append(t.entries, TreeEntry{Mode: mode, Name: name, ID: id})
	return nil
}

// Entries returns the tree's entries in scan order.
func (t *Tree) Entries() []TreeEntry {
	return t.entries
}

// Type returns TypeTree.
func (t *Tree) Type() ObjectType {
	return TypeTree
}

// Serialize encodes each entry as "<octal mode> <name>\0<20-byte id>",
// concatenated in the tree's existing entry order.
func (t *Tree) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range t.entries {
		fmt.Fprintf(&buf, "%o %s\x00", entry.Mode, entry.Name)
		buf.Write(entry.ID[:])
	}
	return buf.Bytes(), nil
}

// ParseTree decodes a tree object payload back into a Tree.
func ParseTree(payload []byte) (*Tree, error) {
	tree := &Tree{}

	for len(payload) > 0 {
		spaceIdx := bytes.IndexByte(payload, ' ')
		if spaceIdx == -1 {
			return nil, fmt.Errorf("invalid tree format: no space found")
		}

		mode, err := strconv.ParseUint(string(payload[:spaceIdx]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid tree entry mode: %w", err)
		}
		payload = payload[spaceIdx+1:]

		nullIdx := bytes.IndexByte(payload, 0)
		if nullIdx == -1 {
			return nil, fmt.Errorf("invalid tree format: no null byte found")
		}
		name := string(payload[:nullIdx])
		payload = payload[nullIdx+1:]

		if len(payload) < sha1.Size {
			return nil, fmt.Errorf("invalid tree format: truncated entry id")
		}
		var id ObjectID
		copy(id[:], payload[:sha1.Size])
		payload = payload[sha1.Size:]

		tree.entries = append(tree.entries, TreeEntry{Mode: FileMode(mode), Name: name, ID: id})
	}

	return tree, nil
}
