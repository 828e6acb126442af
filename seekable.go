package parqrow

import (
	"io"
	"os"

	"go.uber.org/atomic"
)

// SeekableBytes is the storage abstraction the reader is built on: an
// io.ReaderAt with a known length. Callers supply their own implementation
// (local file, object-store range reader, in-memory buffer); the reader
// never assumes os.File.
type SeekableBytes interface {
	io.ReaderAt
	// Size returns the total length in bytes.
	Size() (int64, error)
}

// fileBytesSource is the SeekableBytes implementation OpenLocalFile
// returns for local files; it also implements io.Closer so Reader.Close
// releases the underlying file descriptor.
type fileBytesSource struct {
	f    *os.File
	size int64
}

// OpenLocalFile opens path and wraps it as a SeekableBytes, the
// convenience path for reading from local disk; callers reading from
// object storage or an in-memory buffer implement SeekableBytes
// themselves instead.
func OpenLocalFile(path string) (SeekableBytes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newReadError(ErrKindIO, "OpenLocalFile", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newReadError(ErrKindIO, "OpenLocalFile", err)
	}
	return &fileBytesSource{f: f, size: info.Size()}, nil
}

func (s *fileBytesSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *fileBytesSource) Size() (int64, error)                    { return s.size, nil }
func (s *fileBytesSource) Close() error                            { return s.f.Close() }

// countingReaderAt wraps a SeekableBytes and tracks cumulative bytes read,
// mirroring the BackendReaderAt accounting pattern: every ReadAt call adds
// to an atomic counter instead of threading counts through call sites.
type countingReaderAt struct {
	src       SeekableBytes
	bytesRead atomic.Uint64
}

func newCountingReaderAt(src SeekableBytes) *countingReaderAt {
	return &countingReaderAt{src: src}
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := c.src.ReadAt(p, off)
	c.bytesRead.Add(uint64(n))
	return n, err
}

func (c *countingReaderAt) Size() (int64, error) { return c.src.Size() }

func (c *countingReaderAt) BytesRead() uint64 { return c.bytesRead.Load() }
