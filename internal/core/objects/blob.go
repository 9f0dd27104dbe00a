package objects

import (
	"bytes"
	"io"
)

// Blob holds one chunk's worth of raw file content. A file larger than the
// chunker's chunk size is represented by several blobs tied together by a
// Chunks object; a small file is a Chunks object listing a single blob.
type Blob struct {
	data []byte
}

// NewBlob wraps data in a Blob. data is not copied.
func NewBlob(data []byte) *Blob {
	return &Blob{data: data}
}

// NewBlobFromReader reads r to completion and wraps the result in a Blob.
func NewBlobFromReader(r io.Reader) (*Blob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewBlob(data), nil
}

// Type returns TypeBlob.
func (b *Blob) Type() ObjectType {
	return TypeBlob
}

// Size returns the blob's payload length.
func (b *Blob) Size() int64 {
	return int64(len(b.data))
}

// Data returns the blob's raw content.
func (b *Blob) Data() []byte {
	return b.data
}

// Reader returns a reader over the blob's content.
func (b *Blob) Reader() io.Reader {
	return bytes.NewReader(b.data)
}

// Serialize returns the blob's raw content unchanged; blobs carry no
// internal framing beyond the type tag the store adds.
func (b *Blob) Serialize() ([]byte, error) {
	return b.data, nil
}

// ParseBlob wraps payload, the bytes already stripped of type tag and
// decompression, back into a Blob.
func ParseBlob(payload []byte) *Blob {
	return &Blob{data: payload}
}
