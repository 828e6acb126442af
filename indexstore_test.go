package parqrow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/columnario/parqrow/format"
)

func TestRowRangesFromPages(t *testing.T) {
	oi := &format.OffsetIndex{
		PageLocations: []format.PageLocation{
			{FirstRowIndex: 0},
			{FirstRowIndex: 100},
			{FirstRowIndex: 250},
		},
	}
	ranges := rowRangesFromPages(oi, []int{1}, 400)
	assert.Equal(t, RowRanges{{FirstRow: 100, LastRow: 249}}, ranges)

	lastPage := rowRangesFromPages(oi, []int{2}, 400)
	assert.Equal(t, RowRanges{{FirstRow: 250, LastRow: 399}}, lastPage)

	assert.Nil(t, rowRangesFromPages(oi, nil, 400))
	assert.Nil(t, rowRangesFromPages(nil, []int{0}, 400))
}

func TestRowRangesFromPagesIgnoresOutOfBoundsOrdinals(t *testing.T) {
	oi := &format.OffsetIndex{PageLocations: []format.PageLocation{{FirstRowIndex: 0}}}
	ranges := rowRangesFromPages(oi, []int{-1, 5}, 10)
	assert.Empty(t, ranges)
}
