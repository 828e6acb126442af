package codec

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
)

type gzipCodec struct{}

func (gzipCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := readAllInto(dst, zr, uncompressedSize)
	if err != nil {
		return nil, err
	}
	return out, nil
}
