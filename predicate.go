package parqrow

import (
	"bytes"

	"github.com/columnario/parqrow/format"
	"github.com/columnario/parqrow/internal/bloom"
)

// Predicate is the row-group/page selection collaborator. Compiling a
// predicate expression into this interface stays an external concern
// (this package never parses a query language); what's in scope is
// calling it at each of the four elimination levels as cheaply as
// possible, cheapest first: stats, dictionary, bloom filter, column index.
type Predicate interface {
	// KeepColumnChunk is given a chunk's statistics (if present) and
	// reports whether the chunk could possibly contain a match. Returning
	// false here prunes the whole row group for this predicate.
	KeepColumnChunk(stats format.Statistics, hasStats bool) bool
	// KeepByDictionary is given a chunk's full dictionary (if the chunk
	// is dictionary-encoded and a dictionary page is present) and reports
	// whether any dictionary entry could match.
	KeepByDictionary(dictionary [][]byte) bool
	// KeepByBloomFilter is given a bloom filter membership test function
	// and reports whether the predicate's value(s) might be present.
	KeepByBloomFilter(mightContain func(hash uint64) bool) bool
	// KeepByColumnIndex is given a page-level ColumnIndex and returns the
	// row ranges (by page ordinal converted to row ranges by the caller)
	// that could contain a match; returning all pages is always safe.
	KeepByColumnIndex(index *format.ColumnIndex) []int
}

// StatsPredicate is a ready-to-use Predicate built from a column's min/max
// range, grounded on the teacher's StringInPredicate dictionary-first /
// column-index-fallback shape: exercise it directly instead of leaving
// the predicate interface untested by anything but a mock.
type StatsPredicate struct {
	Path ColumnPath
	// InSet, when non-empty, restricts matches to exactly these encoded
	// values (byte-comparable, e.g. plain-encoded scalars).
	InSet [][]byte
}

func (p *StatsPredicate) KeepColumnChunk(stats format.Statistics, hasStats bool) bool {
	if !hasStats || len(p.InSet) == 0 {
		return true
	}
	min, max := stats.MinValue, stats.MaxValue
	if min == nil {
		min = stats.Min
	}
	if max == nil {
		max = stats.Max
	}
	if min == nil || max == nil {
		return true
	}
	for _, v := range p.InSet {
		if bytes.Compare(v, min) >= 0 && bytes.Compare(v, max) <= 0 {
			return true
		}
	}
	return false
}

func (p *StatsPredicate) KeepByDictionary(dictionary [][]byte) bool {
	if len(p.InSet) == 0 || dictionary == nil {
		return true
	}
	for _, v := range p.InSet {
		for _, d := range dictionary {
			if bytes.Equal(v, d) {
				return true
			}
		}
	}
	return false
}

func (p *StatsPredicate) KeepByBloomFilter(mightContain func(hash uint64) bool) bool {
	if len(p.InSet) == 0 || mightContain == nil {
		return true
	}
	for _, v := range p.InSet {
		if mightContain(bloom.Hash(v)) {
			return true
		}
	}
	return false
}

func (p *StatsPredicate) KeepByColumnIndex(index *format.ColumnIndex) []int {
	if len(p.InSet) == 0 || index == nil {
		return allPages(index)
	}
	var pages []int
	for i := range index.MinValues {
		if i < len(index.NullPages) && index.NullPages[i] {
			continue
		}
		min, max := index.MinValues[i], index.MaxValues[i]
		for _, v := range p.InSet {
			if bytes.Compare(v, min) >= 0 && bytes.Compare(v, max) <= 0 {
				pages = append(pages, i)
				break
			}
		}
	}
	return pages
}

func allPages(index *format.ColumnIndex) []int {
	if index == nil {
		return nil
	}
	pages := make([]int, len(index.MinValues))
	for i := range pages {
		pages[i] = i
	}
	return pages
}
