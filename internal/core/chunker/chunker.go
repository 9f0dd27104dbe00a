// Package chunker splits file content into fixed-size blobs and assembles
// the chunks object that ties them back together in order.
package chunker

import (
	"fmt"
	"io"
	"os"

	"github.com/raczzoli/bkp/internal/core/objects"
	"github.com/raczzoli/bkp/internal/core/worker"
)

// DefaultChunkSize is the size a file is split into before each piece
// becomes its own blob.
const DefaultChunkSize = 10 * 1024 * 1024

// Chunker reads files and writes their content as blob/chunks objects
// through a Store, handing each blob's disk write off to a Pool so large
// files don't serialize on I/O.
type Chunker struct {
	store     *objects.Store
	pool      *worker.Pool
	chunkSize int
}

// New returns a Chunker that writes through store using pool for the async
// blob writes, splitting files into chunkSize pieces.
func New(store *objects.Store, pool *worker.Pool, chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{store: store, pool: pool, chunkSize: chunkSize}
}

// WriteFile reads path in chunkSize pieces, queues each piece as a blob
// write on the pool, and writes (synchronously) the resulting chunks
// object once every piece's ID is known. A zero-length file produces a
// chunks object with no entries.
func (c *Chunker) WriteFile(path string) (objects.ObjectID, error) {
	f, err := os.Open(path)
	if err != nil {
		return objects.ObjectID{}, fmt.Errorf("failed to open %s for reading: %w", path, err)
	}
	defer f.Close()

	var blobIDs []objects.ObjectID
	buf := make([]byte, c.chunkSize)

	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			id, compressed, cerr := objects.CompressObject(objects.TypeBlob, chunk)
			if cerr != nil {
				return objects.ObjectID{}, fmt.Errorf("failed to compress blob for %s: %w", path, cerr)
			}

			c.pool.Submit(func() error {
				if err := c.store.WriteCompressed(id, compressed); err != nil {
					return fmt.Errorf("failed to write blob for %s: %w", path, err)
				}
				return nil
			})

			blobIDs = append(blobIDs, id)
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return objects.ObjectID{}, fmt.Errorf("failed to read %s: %w", path, readErr)
		}
	}

	return c.store.Write(objects.NewChunks(blobIDs))
}
