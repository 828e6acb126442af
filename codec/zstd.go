package codec

import "github.com/klauspost/compress/zstd"

// zstdCodec wraps a single shared zstd.Decoder; zstd.Decoder is safe for
// concurrent DecodeAll calls, so one instance serves the whole registry.
type zstdCodec struct {
	dec *zstd.Decoder
}

func newZstdCodec() *zstdCodec {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		// Only returns an error for bad options; none are passed here.
		panic(err)
	}
	return &zstdCodec{dec: dec}
}

func (z *zstdCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, dst[:0])
	if err != nil {
		return nil, err
	}
	if len(out) != uncompressedSize {
		return nil, errSizeMismatch(len(out), uncompressedSize)
	}
	return out, nil
}
