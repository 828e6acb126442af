package codec

import (
	"bytes"
	"testing"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnario/parqrow/format"
)

func TestRegistryResolvesDefaults(t *testing.T) {
	r := NewRegistry()
	for _, c := range []format.CompressionCodec{format.Uncompressed, format.Snappy, format.Gzip, format.Zstd, format.Brotli} {
		_, err := r.Decompressor(c)
		assert.NoError(t, err, "codec %d should resolve", c)
	}
}

func TestRegistryUnregisteredCodec(t *testing.T) {
	r := NewRegistry()
	_, err := r.Decompressor(format.LZO)
	assert.Error(t, err)
}

func TestUncompressedCodecPassesThrough(t *testing.T) {
	src := []byte("hello world")
	out, err := uncompressedCodec{}.Decompress(nil, src, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestUncompressedCodecSizeMismatch(t *testing.T) {
	_, err := uncompressedCodec{}.Decompress(nil, []byte("abc"), 10)
	assert.Error(t, err)
}

func TestGzipCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	_, err := w.Write([]byte("compress me"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := gzipCodec{}.Decompress(nil, buf.Bytes(), len("compress me"))
	require.NoError(t, err)
	assert.Equal(t, "compress me", string(out))
}

func TestRegisterOverridesDefault(t *testing.T) {
	r := NewRegistry().(*registry)
	called := false
	r.Register(format.Snappy, fakeCodec{fn: func() { called = true }})
	d, err := r.Decompressor(format.Snappy)
	require.NoError(t, err)
	_, _ = d.Decompress(nil, nil, 0)
	assert.True(t, called)
}

type fakeCodec struct{ fn func() }

func (f fakeCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	f.fn()
	return nil, nil
}
