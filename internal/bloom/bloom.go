// Package bloom implements the file format's split-block bloom filter
// (BlockSplitBloomFilter), the only bloom filter algorithm the format
// defines. Hashing is XXHASH64 via cespare/xxhash/v2, as mandated by the
// bloom filter header's Hash union.
package bloom

import "github.com/cespare/xxhash/v2"

const (
	wordsPerBlock     = 8
	bytesPerBlock     = wordsPerBlock * 4
	lowMask           = 0x1f
)

// salt values from the reference split-block bloom filter algorithm,
// used to spread a single 32-bit hash half across the 8 words of a block.
var salt = [wordsPerBlock]uint32{
	0x47b6137b, 0x44974d91, 0x8824ad5b, 0xa2b7289d,
	0x705495c7, 0x2df1424b, 0x9efc4947, 0x5c6bfb31,
}

// Filter is a read-only view over a serialized BlockSplitBloomFilter
// bitset. It does not own the backing bytes.
type Filter struct {
	blocks []byte // bytesPerBlock-aligned
}

// New wraps bitset bytes as a Filter. len(bitset) must be a multiple of
// bytesPerBlock; the file format guarantees this when writing the filter.
func New(bitset []byte) *Filter {
	return &Filter{blocks: bitset}
}

// Hash returns the XXHASH64 of v, the value callers should pass to
// MightContain — it is exposed separately so callers hashing many
// candidate values can reuse Hash without reconstructing a Filter.
func Hash(v []byte) uint64 {
	return xxhash.Sum64(v)
}

// MightContain reports whether hash may have been inserted. A false
// result is a proof of absence; true may be a false positive.
func (f *Filter) MightContain(hash uint64) bool {
	if len(f.blocks) == 0 {
		return true
	}
	numBlocks := len(f.blocks) / bytesPerBlock
	blockIdx := ((hash >> 32) * uint64(numBlocks)) >> 32
	block := f.blocks[blockIdx*bytesPerBlock : blockIdx*bytesPerBlock+bytesPerBlock]
	key := uint32(hash)
	for i := 0; i < wordsPerBlock; i++ {
		word := key * salt[i]
		bitIdx := word >> 27
		wordOff := i * 4
		w := uint32(block[wordOff]) | uint32(block[wordOff+1])<<8 |
			uint32(block[wordOff+2])<<16 | uint32(block[wordOff+3])<<24
		if w&(1<<bitIdx) == 0 {
			return false
		}
	}
	return true
}

// NumBytesForHint returns the bitset size in bytes a writer would have
// chosen for numDistinct values at the format's default false-positive
// probability, rounded to the next full block. Not used by the reader
// directly, but kept alongside MightContain since both halves of the
// algorithm are easiest to audit together.
func NumBytesForHint(numDistinct int64) int32 {
	if numDistinct <= 0 {
		return bytesPerBlock
	}
	const bitsPerValue = 10 // ~1% false positive rate at 8 words/block
	bytes := int64(float64(numDistinct) * bitsPerValue / 8)
	blocks := (bytes + bytesPerBlock - 1) / bytesPerBlock
	if blocks < 1 {
		blocks = 1
	}
	return int32(blocks * bytesPerBlock)
}
