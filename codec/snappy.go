package codec

import "github.com/klauspost/compress/s2"

// snappyCodec decompresses via klauspost/compress/s2, which is wire
// compatible with the Snappy block format the file format specifies.
type snappyCodec struct{}

func (snappyCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	out, err := s2.Decode(dst[:0], src)
	if err != nil {
		return nil, err
	}
	if len(out) != uncompressedSize {
		return nil, errSizeMismatch(len(out), uncompressedSize)
	}
	return out, nil
}
