package parqrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(dataOffset, compressedSize int64) *ColumnChunkMetadata {
	return &ColumnChunkMetadata{DataPageOffset: dataOffset, TotalCompressedSize: compressedSize}
}

func TestPlanConsecutivePartsMergesAdjacent(t *testing.T) {
	cols := []*ColumnChunkMetadata{
		col(0, 100),
		col(100, 100),
		col(200, 100),
	}
	parts := planConsecutiveParts(cols, 0)
	require.Len(t, parts, 1)
	assert.EqualValues(t, 0, parts[0].offsetRange.Start)
	assert.EqualValues(t, 300, parts[0].offsetRange.End)
	assert.Len(t, parts[0].chunks, 3)
}

func TestPlanConsecutivePartsSplitsOnLargeGap(t *testing.T) {
	cols := []*ColumnChunkMetadata{
		col(0, 100),
		col(0, 0), // placeholder replaced below
	}
	cols[1] = col(100+maxGapToMerge+1, 100)
	parts := planConsecutiveParts(cols, 0)
	require.Len(t, parts, 2)
}

func TestPlanConsecutivePartsRespectsMaxAllocation(t *testing.T) {
	cols := []*ColumnChunkMetadata{
		col(0, 100),
		col(100, 100),
	}
	parts := planConsecutiveParts(cols, 150)
	assert.Len(t, parts, 2, "merged size would exceed the allocation cap")
}

func TestPlanFilteredPartsUsesNarrowedSpans(t *testing.T) {
	c := col(1000, 500)
	spans := []chunkSpan{
		{chunk: c, r: OffsetRange{Start: 1100, End: 1200}, startPageOrdinal: 3},
	}
	parts := planFilteredParts(spans, 0)
	require.Len(t, parts, 1)
	assert.EqualValues(t, 1100, parts[0].offsetRange.Start)
	assert.EqualValues(t, 1200, parts[0].offsetRange.End)
	assert.Equal(t, 3, parts[0].chunks[0].startPageOrdinal)
}
