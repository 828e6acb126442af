package parqrow

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
)

// indexStore lazily loads and caches the column index and offset index of
// each column chunk in a row group, one rowGroupIndexes per row group,
// grounded on ColumnChunkHelper's lazy Dictionary()/NextPage() caching:
// an index is only ever read off disk the first time something asks for
// it, and never again after that.
type indexStore struct {
	reader *Reader
	mu     sync.Mutex
	groups map[int]*rowGroupIndexes
}

func newIndexStore(r *Reader) *indexStore {
	return &indexStore{reader: r, groups: make(map[int]*rowGroupIndexes)}
}

type rowGroupIndexes struct {
	mu           sync.Mutex
	columnIndex  map[ColumnPath]*format.ColumnIndex
	offsetIndex  map[ColumnPath]*format.OffsetIndex
}

func (s *indexStore) forRowGroup(ordinal int) *rowGroupIndexes {
	s.mu.Lock()
	defer s.mu.Unlock()
	rgi, ok := s.groups[ordinal]
	if !ok {
		rgi = &rowGroupIndexes{
			columnIndex: make(map[ColumnPath]*format.ColumnIndex),
			offsetIndex: make(map[ColumnPath]*format.OffsetIndex),
		}
		s.groups[ordinal] = rgi
	}
	return rgi
}

// columnIndex returns the column's ColumnIndex, reading it from the file
// on first use. Returns (nil, nil) when the chunk has no column index.
func (s *indexStore) columnIndex(rg *RowGroupMetadata, col *ColumnChunkMetadata) (*format.ColumnIndex, error) {
	if !col.HasColumnIndex {
		return nil, nil
	}
	rgi := s.forRowGroup(rg.Ordinal)
	rgi.mu.Lock()
	defer rgi.mu.Unlock()
	if ci, ok := rgi.columnIndex[col.Path]; ok {
		return ci, nil
	}
	buf := make([]byte, col.ColumnIndexLength)
	if _, err := s.reader.io.ReadAt(buf, col.ColumnIndexOffset); err != nil {
		return nil, newReadError(ErrKindIO, "columnIndex", err)
	}
	plain, err := s.reader.decryptModule(buf, crypto.ModuleColumnIndex, rg, col)
	if err != nil {
		return nil, newReadError(ErrKindDecrypt, "columnIndex", errors.Wrap(err, "decrypting column index"))
	}
	ci, err := format.DecodeColumnIndex(plain)
	if err != nil {
		return nil, newReadError(ErrKindFooterDecode, "columnIndex", errors.Wrap(err, "decoding column index"))
	}
	rgi.columnIndex[col.Path] = ci
	return ci, nil
}

// offsetIndex returns the column's OffsetIndex, reading it from the file
// on first use. Returns (nil, nil) when the chunk has no offset index.
func (s *indexStore) offsetIndex(rg *RowGroupMetadata, col *ColumnChunkMetadata) (*format.OffsetIndex, error) {
	if !col.HasOffsetIndex {
		return nil, nil
	}
	rgi := s.forRowGroup(rg.Ordinal)
	rgi.mu.Lock()
	defer rgi.mu.Unlock()
	if oi, ok := rgi.offsetIndex[col.Path]; ok {
		return oi, nil
	}
	buf := make([]byte, col.OffsetIndexLength)
	if _, err := s.reader.io.ReadAt(buf, col.OffsetIndexOffset); err != nil {
		return nil, newReadError(ErrKindIO, "offsetIndex", err)
	}
	plain, err := s.reader.decryptModule(buf, crypto.ModuleOffsetIndex, rg, col)
	if err != nil {
		return nil, newReadError(ErrKindDecrypt, "offsetIndex", errors.Wrap(err, "decrypting offset index"))
	}
	oi, err := format.DecodeOffsetIndex(plain)
	if err != nil {
		return nil, newReadError(ErrKindFooterDecode, "offsetIndex", errors.Wrap(err, "decoding offset index"))
	}
	rgi.offsetIndex[col.Path] = oi
	return oi, nil
}

// rowRangesFromPages converts page ordinals (as returned by
// Predicate.KeepByColumnIndex) into RowRanges using the offset index's
// FirstRowIndex of each page plus the row group's total row count for the
// last page's upper bound.
func rowRangesFromPages(oi *format.OffsetIndex, pages []int, numRows int64) RowRanges {
	if oi == nil || len(pages) == 0 {
		return nil
	}
	out := make(RowRanges, 0, len(pages))
	for _, p := range pages {
		if p < 0 || p >= len(oi.PageLocations) {
			continue
		}
		first := oi.PageLocations[p].FirstRowIndex
		last := numRows - 1
		if p+1 < len(oi.PageLocations) {
			last = oi.PageLocations[p+1].FirstRowIndex - 1
		}
		out = append(out, RowRange{FirstRow: first, LastRow: last})
	}
	return out
}
