// Package codec decompresses column page bytes. The row-group reader never
// picks a codec itself; it looks one up in a Registry keyed by the
// compression codec recorded in the file's column metadata.
package codec

import (
	"fmt"
	"io"
	"sync"

	"github.com/columnario/parqrow/format"
)

// Decompressor turns compressed page bytes into their uncompressed form.
// dst is reused across calls when it has enough capacity; implementations
// must return a slice of exactly uncompressedSize bytes.
type Decompressor interface {
	Decompress(dst, src []byte, uncompressedSize int) ([]byte, error)
}

// Registry resolves a format.CompressionCodec to a Decompressor.
type Registry interface {
	Decompressor(c format.CompressionCodec) (Decompressor, error)
	// Register installs or overrides the Decompressor for a codec.
	Register(c format.CompressionCodec, d Decompressor)
}

type registry struct {
	mu      sync.RWMutex
	entries map[format.CompressionCodec]Decompressor
}

// NewRegistry returns a Registry pre-populated with the codecs the file
// format defines a meaning for: Snappy, Gzip, Zstd, Brotli, and the no-op
// Uncompressed codec. LZO and the two LZ4 variants are deliberately left
// unregistered — klauspost/compress carries no LZO implementation, and the
// format's LZ4/LZ4Raw history is murky enough upstream readers commonly
// reject it too; callers that need them can Register a Decompressor of
// their own.
func NewRegistry() Registry {
	r := &registry{entries: make(map[format.CompressionCodec]Decompressor)}
	r.entries[format.Uncompressed] = uncompressedCodec{}
	r.entries[format.Snappy] = snappyCodec{}
	r.entries[format.Gzip] = gzipCodec{}
	r.entries[format.Zstd] = newZstdCodec()
	r.entries[format.Brotli] = brotliCodec{}
	return r
}

// Register installs or overrides the Decompressor for a codec.
func (r *registry) Register(c format.CompressionCodec, d Decompressor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c] = d
}

func (r *registry) Decompressor(c format.CompressionCodec) (Decompressor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[c]
	if !ok {
		return nil, fmt.Errorf("codec: no decompressor registered for codec %d", c)
	}
	return d, nil
}

type uncompressedCodec struct{}

func (uncompressedCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	if len(src) != uncompressedSize {
		return nil, fmt.Errorf("codec: uncompressed page size mismatch: got %d, header says %d", len(src), uncompressedSize)
	}
	return src, nil
}

func readAllInto(dst []byte, r io.Reader, uncompressedSize int) ([]byte, error) {
	if cap(dst) < uncompressedSize {
		dst = make([]byte, uncompressedSize)
	}
	dst = dst[:uncompressedSize]
	if _, err := io.ReadFull(r, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
