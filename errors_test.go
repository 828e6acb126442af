package parqrow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadErrorUnwrapsAndMatchesAs(t *testing.T) {
	inner := errors.New("boom")
	err := newReadError(ErrKindIO, "testOp", inner)

	var re *ReadError
	assert.True(t, errors.As(err, &re))
	assert.Equal(t, ErrKindIO, re.Kind)
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestErrorKindStringsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	kinds := []ErrorKind{
		ErrKindMagic, ErrKindFooterDecode, ErrKindChecksum, ErrKindDecrypt,
		ErrKindCodec, ErrKindIO, ErrKindClosed, ErrKindMalformedPage,
	}
	for _, k := range kinds {
		s := k.String()
		assert.False(t, seen[s], "duplicate ErrorKind string %q", s)
		seen[s] = true
	}
}
