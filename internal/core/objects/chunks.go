package objects

import (
	"crypto/sha1"
	"errors"
	"fmt"
)

// ErrMalformedChunks is returned when a chunks payload's length isn't a
// multiple of the SHA-1 digest size.
var ErrMalformedChunks = errors.New("malformed chunks object")

// Chunks is the ordered list of blob IDs a file was split into; every file,
// however small, gets one. A zero-length file is represented by a Chunks
// object with no entries.
type Chunks struct {
	blobs []ObjectID
}

// NewChunks builds a Chunks object from an ordered list of blob IDs.
func NewChunks(blobs []ObjectID) *Chunks {
	return &Chunks{blobs: blobs}
}

// Type returns TypeChunks.
func (c *Chunks) Type() ObjectType {
	return TypeChunks
}

// Blobs returns the ordered list of blob IDs making up the file.
func (c *Chunks) Blobs() []ObjectID {
	return c.blobs
}

// Serialize concatenates each blob ID's raw 20 bytes in order.
func (c *Chunks) Serialize() ([]byte, error) {
	buf := make([]byte, 0, len(c.blobs)*sha1.Size)
	for _, id := range c.blobs {
		buf = append(buf, id[:]...)
	}
	return buf, nil
}

// ParseChunks decodes a chunks object payload back into a Chunks.
func ParseChunks(payload []byte) (*Chunks, error) {
	if len(payload)%sha1.Size != 0 {
		return nil, fmt.Errorf("%w: payload length %d not a multiple of %d", ErrMalformedChunks, len(payload), sha1.Size)
	}

	count := len(payload) / sha1.Size
	blobs := make([]ObjectID, count)
	for i := 0; i < count; i++ {
		copy(blobs[i][:], payload[i*sha1.Size:(i+1)*sha1.Size])
	}

	return &Chunks{blobs: blobs}, nil
}
