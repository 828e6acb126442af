package codec

import (
	"bytes"

	"github.com/klauspost/compress/brotli"
)

type brotliCodec struct{}

func (brotliCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(src))
	out, err := readAllInto(dst, r, uncompressedSize)
	if err != nil {
		return nil, err
	}
	return out, nil
}
