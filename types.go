package parqrow

import (
	"strings"

	"github.com/columnario/parqrow/format"
)

// ColumnPath identifies a column by its dotted path through the schema,
// e.g. "a.b.c". It is comparable and usable as a map key.
type ColumnPath string

// ColumnPathFromStrings joins schema path segments into a ColumnPath.
func ColumnPathFromStrings(parts []string) ColumnPath {
	return ColumnPath(strings.Join(parts, "."))
}

// FileMetadata is the decoded trailer of a file: its schema, row groups,
// and any key/value metadata the writer attached.
type FileMetadata struct {
	Version          int32
	Schema           []format.SchemaElement
	NumRows          int64
	RowGroups        []RowGroupMetadata
	KeyValueMetadata map[string]string
	CreatedBy        string
}

// RowGroupMetadata describes one row group: its column chunks and the
// byte range they occupy in the file.
type RowGroupMetadata struct {
	Ordinal             int
	Columns             []ColumnChunkMetadata
	NumRows             int64
	TotalByteSize       int64
	TotalCompressedSize int64
	FileOffset          int64
}

// ColumnChunkMetadata describes one column's chunk within a row group:
// where its pages live, how they're encoded and compressed, and where its
// optional dictionary, column index, offset index, and bloom filter live.
type ColumnChunkMetadata struct {
	Path                 ColumnPath
	// Ordinal is this column's position within its row group's Columns
	// slice, which the columnOrdinal AAD derivation uses. (The index
	// caches key on Path.)
	Ordinal              int
	Type                 format.Type
	Codec                format.CompressionCodec
	Encodings            []format.Encoding
	NumValues            int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	DataPageOffset        int64
	DictionaryPageOffset  int64
	HasDictionaryPage     bool
	Statistics            format.Statistics
	HasStatistics         bool
	ColumnIndexOffset     int64
	ColumnIndexLength     int32
	HasColumnIndex        bool
	OffsetIndexOffset     int64
	OffsetIndexLength     int32
	HasOffsetIndex        bool
	BloomFilterOffset     int64
	BloomFilterLength     int32
	HasBloomFilter        bool
	EncryptedMetadata     []byte // non-nil only when column crypto metadata marks this chunk encrypted
	FirstDataPageOffset   int64
}

// firstByteOffset is the lowest file offset this chunk occupies, used by
// the range planner to build consecutive byte ranges (dictionary page, if
// present, precedes the first data page).
func (c *ColumnChunkMetadata) firstByteOffset() int64 {
	if c.HasDictionaryPage && c.DictionaryPageOffset > 0 && c.DictionaryPageOffset < c.DataPageOffset {
		return c.DictionaryPageOffset
	}
	return c.DataPageOffset
}

func (c *ColumnChunkMetadata) endByteOffset() int64 {
	return c.firstByteOffset() + c.TotalCompressedSize
}

// OffsetRange is a half-open [Start, End) byte range within the file.
type OffsetRange struct {
	Start int64
	End   int64
}

func (r OffsetRange) Len() int64 { return r.End - r.Start }

// RowRange is a closed [FirstRow, LastRow] row range, both ends inclusive, the
// shape column-index-derived row ranges are expressed in.
type RowRange struct {
	FirstRow int64
	LastRow  int64
}

// RowRanges is a sorted, non-overlapping set of RowRange, the output of
// intersecting per-column filtered row ranges within one row group.
type RowRanges []RowRange

// RowCount sums the number of rows covered by all ranges.
func (rr RowRanges) RowCount() int64 {
	var n int64
	for _, r := range rr {
		n += r.LastRow - r.FirstRow + 1
	}
	return n
}

// IsEmpty reports whether the ranges cover zero rows.
func (rr RowRanges) IsEmpty() bool { return len(rr) == 0 }

// intersectRowRanges intersects two sorted, non-overlapping RowRanges.
func intersectRowRanges(a, b RowRanges) RowRanges {
	var out RowRanges
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max64(a[i].FirstRow, b[j].FirstRow)
		hi := min64(a[i].LastRow, b[j].LastRow)
		if lo <= hi {
			out = append(out, RowRange{FirstRow: lo, LastRow: hi})
		}
		if a[i].LastRow < b[j].LastRow {
			i++
		} else {
			j++
		}
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
