package parqrow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnario/parqrow/format"
)

func TestSplitDictionaryValuesFixedWidth(t *testing.T) {
	payload := []byte{
		1, 0, 0, 0,
		2, 0, 0, 0,
		3, 0, 0, 0,
	}
	out, err := splitDictionaryValues(format.Int32, payload, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []byte{2, 0, 0, 0}, out[1])
}

func TestSplitDictionaryValuesByteArray(t *testing.T) {
	var payload []byte
	for _, s := range []string{"a", "bcd", ""} {
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(s)))
		payload = append(payload, lenBuf...)
		payload = append(payload, s...)
	}
	out, err := splitDictionaryValues(format.ByteArray, payload, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []byte("a"), out[0])
	assert.Equal(t, []byte("bcd"), out[1])
	assert.Equal(t, []byte(""), out[2])
}

func TestSplitDictionaryValuesByteArrayTruncated(t *testing.T) {
	payload := []byte{5, 0, 0, 0, 'a', 'b'} // claims 5 bytes, only has 2
	_, err := splitDictionaryValues(format.ByteArray, payload, 1)
	assert.Error(t, err)
}

func TestSplitDictionaryValuesFixedLenByteArrayInfersWidth(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6} // 2 values, width 3
	out, err := splitDictionaryValues(format.FixedLenByteArray, payload, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []byte{1, 2, 3}, out[0])
	assert.Equal(t, []byte{4, 5, 6}, out[1])
}

func TestSplitDictionaryValuesBooleanIsAlwaysEmpty(t *testing.T) {
	out, err := splitDictionaryValues(format.Boolean, []byte{1, 0, 1}, 3)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSplitDictionaryValuesZeroCount(t *testing.T) {
	out, err := splitDictionaryValues(format.Int32, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}
