package parqrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/columnario/parqrow/format"
)

// fixedPagesPredicate is a test-only Predicate whose column-index level
// names exactly which page ordinals to keep, so the fixture below can
// pin down precisely which pages a filtered read is expected to emit.
type fixedPagesPredicate struct{ pages []int }

func (fixedPagesPredicate) KeepColumnChunk(format.Statistics, bool) bool { return true }
func (fixedPagesPredicate) KeepByDictionary([][]byte) bool               { return true }
func (fixedPagesPredicate) KeepByBloomFilter(func(uint64) bool) bool     { return true }
func (p fixedPagesPredicate) KeepByColumnIndex(*format.ColumnIndex) []int { return p.pages }

func buildOnePage(payload []byte, numValues int64) []byte {
	var h []byte
	h = tEncodeField(h, 1, 0, 0x05)
	h = tAppendVarint(h, int64(format.DataPage))
	h = tEncodeField(h, 2, 1, 0x05)
	h = tAppendVarint(h, int64(len(payload)))
	h = tEncodeField(h, 3, 2, 0x05)
	h = tAppendVarint(h, int64(len(payload)))
	h = tEncodeField(h, 5, 3, 0x0c)
	{
		var dph []byte
		dph = tEncodeField(dph, 1, 0, 0x05)
		dph = tAppendVarint(dph, numValues)
		dph = tEncodeField(dph, 2, 1, 0x05)
		dph = tAppendVarint(dph, 0)
		dph = append(dph, 0)
		h = append(h, dph...)
	}
	h = append(h, 0)
	return append(h, payload...)
}

func buildColumnIndexBytes(numPages int) []byte {
	var b []byte
	b = tEncodeField(b, 1, 0, 0x09)
	b = tAppendListHeader(b, numPages, 0x02) // typeFalse elements
	for i := 0; i < numPages; i++ {
		b = append(b, 0x02)
	}
	return append(b, 0)
}

type fixturePageLoc struct {
	offset        int64
	firstRowIndex int64
}

func buildOffsetIndexBytes(locs []fixturePageLoc) []byte {
	var b []byte
	b = tEncodeField(b, 1, 0, 0x09)
	b = tAppendListHeader(b, len(locs), 0x0c)
	for _, loc := range locs {
		var p []byte
		p = tEncodeField(p, 1, 0, 0x06)
		p = tAppendVarint(p, loc.offset)
		p = tEncodeField(p, 3, 1, 0x06)
		p = tAppendVarint(p, loc.firstRowIndex)
		p = append(p, 0)
		b = append(b, p...)
	}
	return append(b, 0)
}

// buildMultiPageFixture assembles a one-column, one-row-group file whose
// column carries three 10-row data pages plus a column index and offset
// index, so a column-index-driven filtered read can be pinned down to
// exactly which pages it fetched and decoded.
func buildMultiPageFixture(payloads [3][]byte) ([]byte, []int64) {
	pages := make([][]byte, 3)
	for i, p := range payloads {
		pages[i] = buildOnePage(p, 10)
	}

	dataStart := int64(4)
	offsets := make([]int64, 3)
	off := dataStart
	var pageBytes []byte
	for i, p := range pages {
		offsets[i] = off
		pageBytes = append(pageBytes, p...)
		off += int64(len(p))
	}
	totalPagesLen := off - dataStart

	ciBytes := buildColumnIndexBytes(3)
	ciOffset := off
	off += int64(len(ciBytes))

	oiBytes := buildOffsetIndexBytes([]fixturePageLoc{
		{offset: offsets[0], firstRowIndex: 0},
		{offset: offsets[1], firstRowIndex: 10},
		{offset: offsets[2], firstRowIndex: 20},
	})
	oiOffset := off
	off += int64(len(oiBytes))

	var colMeta []byte
	colMeta = tEncodeField(colMeta, 1, 0, 0x05)
	colMeta = tAppendVarint(colMeta, int64(format.ByteArray))
	colMeta = tEncodeField(colMeta, 2, 1, 0x09)
	colMeta = tAppendListHeader(colMeta, 1, 0x05)
	colMeta = tAppendVarint(colMeta, int64(format.Plain))
	colMeta = tEncodeField(colMeta, 3, 2, 0x09)
	colMeta = tAppendListHeader(colMeta, 1, 0x08)
	colMeta = tAppendString(colMeta, "col")
	colMeta = tEncodeField(colMeta, 4, 3, 0x05)
	colMeta = tAppendVarint(colMeta, int64(format.Uncompressed))
	colMeta = tEncodeField(colMeta, 5, 4, 0x06)
	colMeta = tAppendVarint(colMeta, 30)
	colMeta = tEncodeField(colMeta, 6, 5, 0x06)
	colMeta = tAppendVarint(colMeta, totalPagesLen)
	colMeta = tEncodeField(colMeta, 7, 6, 0x06)
	colMeta = tAppendVarint(colMeta, totalPagesLen)
	colMeta = tEncodeField(colMeta, 9, 7, 0x06)
	colMeta = tAppendVarint(colMeta, dataStart)
	colMeta = append(colMeta, 0)

	var colChunk []byte
	colChunk = tEncodeField(colChunk, 3, 0, 0x0c)
	colChunk = append(colChunk, colMeta...)
	colChunk = tEncodeField(colChunk, 4, 3, 0x06) // OffsetIndexOffset
	colChunk = tAppendVarint(colChunk, oiOffset)
	colChunk = tEncodeField(colChunk, 5, 4, 0x05) // OffsetIndexLength
	colChunk = tAppendVarint(colChunk, int64(len(oiBytes)))
	colChunk = tEncodeField(colChunk, 6, 5, 0x06) // ColumnIndexOffset
	colChunk = tAppendVarint(colChunk, ciOffset)
	colChunk = tEncodeField(colChunk, 7, 6, 0x05) // ColumnIndexLength
	colChunk = tAppendVarint(colChunk, int64(len(ciBytes)))
	colChunk = append(colChunk, 0)

	var rowGroup []byte
	rowGroup = tEncodeField(rowGroup, 1, 0, 0x09)
	rowGroup = tAppendListHeader(rowGroup, 1, 0x0c)
	rowGroup = append(rowGroup, colChunk...)
	rowGroup = tEncodeField(rowGroup, 3, 1, 0x06)
	rowGroup = tAppendVarint(rowGroup, 30)
	rowGroup = append(rowGroup, 0)

	var footer []byte
	footer = tEncodeField(footer, 1, 0, 0x05)
	footer = tAppendVarint(footer, 1)
	footer = tEncodeField(footer, 4, 1, 0x09)
	footer = tAppendListHeader(footer, 1, 0x0c)
	footer = append(footer, rowGroup...)
	footer = append(footer, 0)

	var file []byte
	file = append(file, 'P', 'A', 'R', '1')
	file = append(file, pageBytes...)
	file = append(file, ciBytes...)
	file = append(file, oiBytes...)
	file = append(file, footer...)
	var trailer [8]byte
	trailer[0] = byte(len(footer))
	trailer[1] = byte(len(footer) >> 8)
	trailer[2] = byte(len(footer) >> 16)
	trailer[3] = byte(len(footer) >> 24)
	copy(trailer[4:], "PAR1")
	file = append(file, trailer[:]...)
	return file, offsets
}

func TestFilteredReadSkipsInteriorUnselectedPage(t *testing.T) {
	payloads := [3][]byte{[]byte("firstpage-"), []byte("middlepage"), []byte("lastpage--")}
	file, _ := buildMultiPageFixture(payloads)

	r, err := Open(memSource{b: file},
		WithStatsFilter(false), WithDictionaryFilter(false), WithBloomFilterFilter(false))
	require.NoError(t, err)
	defer r.Close()

	pages, err := r.ReadNextFilteredRowGroup(fixedPagesPredicate{pages: []int{0, 2}})
	require.NoError(t, err)
	require.NotNil(t, pages)
	require.Len(t, pages.Columns, 1)

	assert.Equal(t, RowRanges{{FirstRow: 0, LastRow: 9}, {FirstRow: 20, LastRow: 29}}, pages.RowRanges)

	var got []*Page
	for {
		p, err := pages.Columns[0].Queue.next()
		require.NoError(t, err)
		if p == nil {
			break
		}
		got = append(got, p)
	}

	require.Len(t, got, 2, "the middle page was not selected and must not be emitted")
	assert.Equal(t, payloads[0], got[0].Bytes)
	assert.Equal(t, 0, got[0].Ordinal)
	assert.Equal(t, payloads[2], got[1].Bytes)
	assert.Equal(t, 2, got[1].Ordinal)
}

func TestSpansForRowsSplitsOnNonContiguousRuns(t *testing.T) {
	payloads := [3][]byte{[]byte("firstpage-"), []byte("middlepage"), []byte("lastpage--")}
	file, offsets := buildMultiPageFixture(payloads)

	r, err := Open(memSource{b: file})
	require.NoError(t, err)
	defer r.Close()

	rg := &r.Metadata.RowGroups[0]
	c := &rg.Columns[0]
	ranges := RowRanges{{FirstRow: 0, LastRow: 9}, {FirstRow: 20, LastRow: 29}}

	spans, sel, err := r.spansForRows(rg, c, ranges)
	require.NoError(t, err)
	require.Len(t, spans, 2, "one span per contiguous run, not one span covering the whole chunk")

	assert.Equal(t, offsets[0], spans[0].r.Start)
	assert.Equal(t, offsets[1], spans[0].r.End)
	assert.Equal(t, offsets[2], spans[1].r.Start)

	assert.True(t, sel.selects(0))
	assert.False(t, sel.selects(1))
	assert.True(t, sel.selects(2))
}
