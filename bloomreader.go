package parqrow

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
	"github.com/columnario/parqrow/internal/bloom"
)

// bloomFilterUpperBoundBytes mirrors BlockSplitBloomFilter.UPPER_BOUND_BYTES:
// a bitset bigger than this can't be a real split-block bloom filter and
// signals a corrupt or unsupported header.
const bloomFilterUpperBoundBytes = 1 << 27

// ReadBloomFilter returns a column chunk's bloom filter, or (nil, nil) if
// the chunk has none or its header advertises an algorithm/hash/
// compression/size combination this reader doesn't support -- logged as a
// warning, not surfaced as an error, since an unsupported tuple just means
// the predicate can't use this level, not that the file is broken. Unlike
// the original reader -- which silently treats any I/O failure while
// reading a bloom filter as "no filter present" -- a genuine I/O or decode
// failure is still reported, since a swallowed I/O error there can quietly
// turn a real match into a false negative for any predicate relying on it.
func (r *Reader) ReadBloomFilter(rg *RowGroupMetadata, c *ColumnChunkMetadata) (*bloom.Filter, error) {
	if !c.HasBloomFilter {
		return nil, nil
	}
	dec, err := r.columnDecryptor(c)
	if err != nil {
		return nil, err
	}

	var (
		header       *format.BloomFilterHeader
		bitsetOffset int64
	)
	if dec != nil {
		plain, size, derr := r.decryptSelfLengthedModule(c.BloomFilterOffset, crypto.ModuleBloomFilterHeader, rg, c, -1)
		if derr != nil {
			return nil, newReadError(ErrKindDecrypt, "ReadBloomFilter", errors.Wrap(derr, "decrypting bloom filter header"))
		}
		h, _, derr := format.DecodeBloomFilterHeader(plain)
		if derr != nil {
			return nil, newReadError(ErrKindFooterDecode, "ReadBloomFilter", errors.Wrap(derr, "decoding bloom filter header"))
		}
		header = h
		bitsetOffset = c.BloomFilterOffset + int64(size)
	} else {
		const headerWindow = 256
		window := make([]byte, headerWindow)
		n, rerr := r.io.ReadAt(window, c.BloomFilterOffset)
		if rerr != nil && n == 0 {
			return nil, newReadError(ErrKindIO, "ReadBloomFilter", rerr)
		}
		window = window[:n]

		h, consumed, derr := format.DecodeBloomFilterHeader(window)
		if derr != nil {
			return nil, newReadError(ErrKindFooterDecode, "ReadBloomFilter", errors.Wrap(derr, "decoding bloom filter header"))
		}
		header = h
		bitsetOffset = c.BloomFilterOffset + int64(consumed)
	}
	if unsupported := unsupportedBloomReason(header); unsupported != "" {
		level.Warn(r.cfg.Logger).Log("msg", "unsupported bloom filter, skipping", "path", c.Path, "reason", unsupported)
		return nil, nil
	}

	if dec != nil {
		aad := crypto.ModuleAAD(r.fileAAD, crypto.ModuleBloomFilterBitset, rg.Ordinal, c.Ordinal, -1)
		prefix := make([]byte, 4)
		if _, err := r.io.ReadAt(prefix, bitsetOffset); err != nil {
			return nil, newReadError(ErrKindIO, "ReadBloomFilter", err)
		}
		size, err := crypto.ModuleSize(prefix)
		if err != nil {
			return nil, newReadError(ErrKindFooterDecode, "ReadBloomFilter", errors.Wrap(err, "reading bloom filter bitset length"))
		}
		encoded := make([]byte, size)
		if _, err := r.io.ReadAt(encoded, bitsetOffset); err != nil {
			return nil, newReadError(ErrKindIO, "ReadBloomFilter", err)
		}
		plain, err := dec.Decrypt(encoded, aad)
		if err != nil {
			return nil, newReadError(ErrKindDecrypt, "ReadBloomFilter", errors.Wrap(err, "decrypting bloom filter bitset"))
		}
		if int32(len(plain)) != header.NumBytes {
			return nil, newReadError(ErrKindDecrypt, "ReadBloomFilter", errors.Errorf("decrypted bloom bitset length %d != header NumBytes %d", len(plain), header.NumBytes))
		}
		return bloom.New(plain), nil
	}

	bitset := make([]byte, header.NumBytes)
	if _, err := r.io.ReadAt(bitset, bitsetOffset); err != nil {
		return nil, newReadError(ErrKindIO, "ReadBloomFilter", err)
	}
	return bloom.New(bitset), nil
}

// unsupportedBloomReason reports why a bloom filter header falls outside
// the one tuple this reader knows how to evaluate (BLOCK algorithm, XXHASH
// hash, uncompressed bitset, size within bounds), or "" if it's supported.
func unsupportedBloomReason(header *format.BloomFilterHeader) string {
	switch {
	case header.NumBytes <= 0 || header.NumBytes > bloomFilterUpperBoundBytes:
		return "numBytes out of bounds"
	case header.Algorithm.Block == nil:
		return "algorithm is not BLOCK"
	case header.Hash.XxHash == nil:
		return "hash is not XXHASH"
	case header.Compression.Uncompressed == nil:
		return "compression is not UNCOMPRESSED"
	default:
		return ""
	}
}
