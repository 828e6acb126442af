package parqrow

import "sort"

// chunkSpan is the byte range of one column chunk that a read actually
// needs: the whole chunk on the unfiltered path, or a narrowed
// [start,end) plus the page ordinal start corresponds to on the filtered
// path.
type chunkSpan struct {
	chunk            *ColumnChunkMetadata
	r                OffsetRange
	startPageOrdinal int
}

// consecutivePart is one coalesced, contiguous byte range this row group
// read will satisfy with a single ReadAt, grounded on
// ConsecutivePartList: adjacent column chunks get merged into one part so
// the I/O engine issues one seek instead of one per column.
type consecutivePart struct {
	offsetRange OffsetRange
	chunks      []chunkSpan
}

// maxGapToMerge bounds how far apart two chunks' byte ranges can be and
// still be coalesced into one read on the unfiltered path; merging across a large gap would read
// (and discard) too many unrelated bytes. The original reader has no such
// cap because row groups there are laid out densely; a conservative cap
// keeps this planner from doing something pathological on a sparse or
// reordered footer.
const maxGapToMerge = 1 << 20 // 1 MiB

// planConsecutiveParts merges a row group's column chunk byte ranges into
// the fewest contiguous reads, in file order. Used on the unfiltered read
// path, where every chunk's pages will all be read.
func planConsecutiveParts(columns []*ColumnChunkMetadata, maxAllocationSize int64) []consecutivePart {
	spans := make([]chunkSpan, len(columns))
	for i, c := range columns {
		spans[i] = chunkSpan{chunk: c, r: OffsetRange{Start: c.firstByteOffset(), End: c.endByteOffset()}}
	}
	return planParts(spans, maxGapToMerge, maxAllocationSize)
}

// planFilteredParts is the same coalescing over the narrowed byte ranges
// a RowRanges filter produced (one per contiguous run of selected pages
// per column), used on the filtered read path once a predicate has
// narrowed which pages to fetch. It only merges spans that touch exactly,
// so the bytes of pages the filter ruled out are never fetched.
func planFilteredParts(spans []chunkSpan, maxAllocationSize int64) []consecutivePart {
	return planParts(spans, 0, maxAllocationSize)
}

func planParts(spans []chunkSpan, maxGap, maxAllocationSize int64) []consecutivePart {
	sorted := append([]chunkSpan(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].r.Start < sorted[j].r.Start })

	var parts []consecutivePart
	for _, sp := range sorted {
		if n := len(parts); n > 0 {
			last := &parts[n-1]
			gap := sp.r.Start - last.offsetRange.End
			merged := sp.r.End
			if last.offsetRange.End > merged {
				merged = last.offsetRange.End
			}
			if gap >= 0 && gap <= maxGap && (maxAllocationSize <= 0 || merged-last.offsetRange.Start <= maxAllocationSize) {
				if sp.r.End > last.offsetRange.End {
					last.offsetRange.End = sp.r.End
				}
				last.chunks = append(last.chunks, sp)
				continue
			}
		}
		parts = append(parts, consecutivePart{offsetRange: sp.r, chunks: []chunkSpan{sp}})
	}
	return parts
}
