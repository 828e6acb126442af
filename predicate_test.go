package parqrow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/columnario/parqrow/format"
)

func TestStatsPredicateKeepColumnChunk(t *testing.T) {
	p := &StatsPredicate{InSet: [][]byte{[]byte("m")}}

	assert.True(t, p.KeepColumnChunk(format.Statistics{}, false), "no stats means cannot prune")

	inRange := format.Statistics{MinValue: []byte("a"), MaxValue: []byte("z")}
	assert.True(t, p.KeepColumnChunk(inRange, true))

	outOfRange := format.Statistics{MinValue: []byte("n"), MaxValue: []byte("z")}
	assert.False(t, p.KeepColumnChunk(outOfRange, true))
}

func TestStatsPredicateKeepByDictionary(t *testing.T) {
	p := &StatsPredicate{InSet: [][]byte{[]byte("x")}}
	assert.True(t, p.KeepByDictionary([][]byte{[]byte("w"), []byte("x")}))
	assert.False(t, p.KeepByDictionary([][]byte{[]byte("w"), []byte("y")}))
	assert.True(t, p.KeepByDictionary(nil), "no dictionary means cannot prune")
}

func TestStatsPredicateKeepByColumnIndex(t *testing.T) {
	p := &StatsPredicate{InSet: [][]byte{[]byte("c")}}
	idx := &format.ColumnIndex{
		NullPages: []bool{false, false, true},
		MinValues: [][]byte{[]byte("a"), []byte("d"), nil},
		MaxValues: [][]byte{[]byte("b"), []byte("f"), nil},
	}
	pages := p.KeepByColumnIndex(idx)
	assert.Empty(t, pages, "c falls in neither page 0 [a,b] nor page 1 [d,f]")

	p2 := &StatsPredicate{InSet: [][]byte{[]byte("e")}}
	pages2 := p2.KeepByColumnIndex(idx)
	assert.Equal(t, []int{1}, pages2)
}

func TestStatsPredicateEmptyInSetKeepsEverything(t *testing.T) {
	p := &StatsPredicate{}
	assert.True(t, p.KeepColumnChunk(format.Statistics{MinValue: []byte("a"), MaxValue: []byte("b")}, true))
	assert.True(t, p.KeepByDictionary([][]byte{[]byte("z")}))
}
