package parqrow

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendToCopiesRowGroupBytesVerbatim(t *testing.T) {
	file := buildFixtureFile([]byte("hello"))
	r, err := Open(memSource{b: file})
	require.NoError(t, err)
	defer r.Close()

	c := r.Metadata.RowGroups[0].Columns[0]
	want := file[c.firstByteOffset():c.endByteOffset()]

	var out bytes.Buffer
	require.NoError(t, r.AppendTo(&out))
	assert.Equal(t, want, out.Bytes())
}

func TestAppendToRejectsClosedReader(t *testing.T) {
	file := buildFixtureFile([]byte("hello"))
	r, err := Open(memSource{b: file})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	var out bytes.Buffer
	err = r.AppendTo(&out)
	require.Error(t, err)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrKindClosed, re.Kind)
}
