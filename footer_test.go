package parqrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFooterRoundTrip(t *testing.T) {
	file := buildFixtureFile([]byte("xyz"))
	md, fileAAD, err := readFooter(memSource{b: file}, nil)
	require.NoError(t, err)
	assert.Nil(t, fileAAD)
	require.Len(t, md.RowGroups, 1)
	assert.EqualValues(t, 3, md.RowGroups[0].NumRows)
	assert.Equal(t, ColumnPath("col"), md.RowGroups[0].Columns[0].Path)
}

func TestReadFooterRejectsTruncatedFile(t *testing.T) {
	_, _, err := readFooter(memSource{b: []byte("PAR1")}, nil)
	require.Error(t, err)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrKindMagic, re.Kind)
}

func TestReadFooterRejectsBadLeadingMagic(t *testing.T) {
	file := buildFixtureFile([]byte("xyz"))
	file[0] = 'X'
	_, _, err := readFooter(memSource{b: file}, nil)
	require.Error(t, err)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrKindMagic, re.Kind)
}

func TestReadFooterRejectsBadTrailingMagic(t *testing.T) {
	file := buildFixtureFile([]byte("xyz"))
	file[len(file)-1] = 'X'
	_, _, err := readFooter(memSource{b: file}, nil)
	require.Error(t, err)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrKindMagic, re.Kind)
}

func TestReadFooterRejectsCorruptFooterLength(t *testing.T) {
	file := buildFixtureFile([]byte("xyz"))
	// Overwrite the footer length with something far larger than the file.
	file[len(file)-8] = 0xff
	file[len(file)-7] = 0xff
	file[len(file)-6] = 0xff
	file[len(file)-5] = 0x7f
	_, _, err := readFooter(memSource{b: file}, nil)
	require.Error(t, err)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrKindMagic, re.Kind)
}

func TestReadFootersBatchCapturesPerSourceErrors(t *testing.T) {
	good := buildFixtureFile([]byte("abc"))
	bad := []byte("not a parquet file")
	results := ReadFooters([]SeekableBytes{memSource{b: good}, memSource{b: bad}}, 2, nil)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Metadata)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Metadata)
}
