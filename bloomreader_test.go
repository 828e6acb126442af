package parqrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBloomHeaderBytes(algorithmID, hashID, compressionID int16, numBytes int32) []byte {
	var b []byte
	b = tEncodeField(b, 1, 0, 0x05)
	b = tAppendVarint(b, int64(numBytes))

	b = tEncodeField(b, 2, 1, 0x0c)
	if algorithmID > 0 {
		var alg []byte
		alg = tEncodeField(alg, algorithmID, 0, 0x0c)
		alg = append(alg, 0)
		alg = append(alg, 0)
		b = append(b, alg...)
	} else {
		b = append(b, 0)
	}

	b = tEncodeField(b, 3, 2, 0x0c)
	if hashID > 0 {
		var h []byte
		h = tEncodeField(h, hashID, 0, 0x0c)
		h = append(h, 0)
		h = append(h, 0)
		b = append(b, h...)
	} else {
		b = append(b, 0)
	}

	b = tEncodeField(b, 4, 3, 0x0c)
	if compressionID > 0 {
		var c []byte
		c = tEncodeField(c, compressionID, 0, 0x0c)
		c = append(c, 0)
		c = append(c, 0)
		b = append(b, c...)
	} else {
		b = append(b, 0)
	}

	return append(b, 0)
}

func readerOverBytes(b []byte) *Reader {
	return &Reader{io: newCountingReaderAt(memSource{b: b}), cfg: defaultConfig()}
}

func TestReadBloomFilterSupportedTuple(t *testing.T) {
	bitset := []byte{0xde, 0xad, 0xbe, 0xef}
	header := buildBloomHeaderBytes(1, 1, 1, int32(len(bitset)))
	file := append(append([]byte{}, header...), bitset...)

	r := readerOverBytes(file)
	c := &ColumnChunkMetadata{HasBloomFilter: true, BloomFilterOffset: 0}

	bf, err := r.ReadBloomFilter(&RowGroupMetadata{}, c)
	require.NoError(t, err)
	require.NotNil(t, bf)
}

func TestReadBloomFilterUnsupportedAlgorithmReturnsNilNoError(t *testing.T) {
	header := buildBloomHeaderBytes(2, 1, 1, 4) // algorithm field id 2 is not BLOCK's id 1
	file := append(append([]byte{}, header...), make([]byte, 4)...)

	r := readerOverBytes(file)
	c := &ColumnChunkMetadata{HasBloomFilter: true, BloomFilterOffset: 0}

	bf, err := r.ReadBloomFilter(&RowGroupMetadata{}, c)
	require.NoError(t, err, "an unsupported tuple must not surface as an error")
	assert.Nil(t, bf)
}

func TestReadBloomFilterUnsupportedHashReturnsNilNoError(t *testing.T) {
	header := buildBloomHeaderBytes(1, 2, 1, 4)
	file := append(append([]byte{}, header...), make([]byte, 4)...)

	r := readerOverBytes(file)
	c := &ColumnChunkMetadata{HasBloomFilter: true, BloomFilterOffset: 0}

	bf, err := r.ReadBloomFilter(&RowGroupMetadata{}, c)
	require.NoError(t, err)
	assert.Nil(t, bf)
}

func TestReadBloomFilterNumBytesOutOfBoundsReturnsNilNoError(t *testing.T) {
	header := buildBloomHeaderBytes(1, 1, 1, 0)
	file := append([]byte{}, header...)

	r := readerOverBytes(file)
	c := &ColumnChunkMetadata{HasBloomFilter: true, BloomFilterOffset: 0}

	bf, err := r.ReadBloomFilter(&RowGroupMetadata{}, c)
	require.NoError(t, err)
	assert.Nil(t, bf)
}

func TestReadBloomFilterAbsentWhenChunkHasNone(t *testing.T) {
	r := readerOverBytes(nil)
	c := &ColumnChunkMetadata{HasBloomFilter: false}

	bf, err := r.ReadBloomFilter(&RowGroupMetadata{}, c)
	require.NoError(t, err)
	assert.Nil(t, bf)
}
