// Package parqrow reads the row-group/page layer of a self-describing
// columnar file: trailer, row groups, column chunks, pages, column and
// offset indexes, bloom filters, and (optionally) per-page encryption.
// Value-level decoding and predicate compilation are left to callers;
// this package hands back decompressed, decrypted page bytes in the
// shape their encoding expects.
package parqrow

import (
	"io"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
)

// ChunkPages is one column's page stream within a materialized row
// group: pull pages off Queue until it returns (nil, nil).
type ChunkPages struct {
	Column *ColumnChunkMetadata
	Queue  *pageQueue
}

// RowGroupPages is the result of ReadNextRowGroup/ReadNextFilteredRowGroup:
// every column chunk of one row group, each with its own page queue so a
// caller can decode columns independently (and, with an async executor,
// concurrently).
type RowGroupPages struct {
	Metadata   *RowGroupMetadata
	Columns    []ChunkPages
	RowRanges  RowRanges // nil on the unfiltered path; set on the filtered path
}

// Reader opens one columnar file and iterates its row groups.
type Reader struct {
	src     SeekableBytes
	io      *countingReaderAt
	cfg     Config
	fileAAD []byte

	Metadata *FileMetadata

	index *indexStore

	// projection restricts which columns materializeRowGroup fetches and
	// decodes pages for, set by SetRequestedSchema. nil means every
	// column. It never restricts predicate evaluation (KeepColumnChunk
	// and friends still see every column of the row group), only the
	// range planner and chunk decode path.
	projection map[ColumnPath]bool

	nextRowGroup           int
	nextDictionaryRowGroup int
	closed                 bool
	metrics                *metrics
}

// Open decodes src's footer and returns a Reader positioned before the
// first row group.
func Open(src SeekableBytes, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	md, fileAAD, err := readFooter(src, cfg.DecryptionProperties)
	if err != nil {
		return nil, err
	}
	md.RowGroups = cfg.MetadataFilter.filterRowGroups(md.RowGroups)

	r := &Reader{
		src:      src,
		io:       newCountingReaderAt(src),
		cfg:      cfg,
		fileAAD:  fileAAD,
		Metadata: md,
		metrics:  newMetrics(),
	}
	r.index = newIndexStore(r)
	level.Debug(cfg.Logger).Log("msg", "opened file", "row_groups", len(md.RowGroups), "num_rows", md.NumRows)
	return r, nil
}

func (r *Reader) chunkSource() chunkSource {
	if r.cfg.AsyncReaderEnabled {
		return newAsyncChunkSource(r.io, r.cfg.IOExecutor)
	}
	return newSyncChunkSource(r.io)
}

// ReadNextRowGroup materializes the next row group in full: every
// column's pages, unfiltered. Returns (nil, nil) once there are no more
// row groups.
func (r *Reader) ReadNextRowGroup() (*RowGroupPages, error) {
	if r.closed {
		return nil, newReadError(ErrKindClosed, "ReadNextRowGroup", nil)
	}
	if r.nextRowGroup >= len(r.Metadata.RowGroups) {
		return nil, nil
	}
	rg := &r.Metadata.RowGroups[r.nextRowGroup]
	r.nextRowGroup++
	return r.materializeRowGroup(rg, nil)
}

// SkipNextRowGroup advances past the next row group without reading it.
func (r *Reader) SkipNextRowGroup() {
	if r.nextRowGroup < len(r.Metadata.RowGroups) {
		r.nextRowGroup++
	}
}

// SetRequestedSchema restricts every subsequent materialized row group to
// the given columns: the range planner skips any column not named here
// before fetching or decoding its pages. Passing no paths clears the
// projection, restoring the default of every column. Row-group and page
// elimination (KeepColumnChunk, KeepByDictionary, KeepByBloomFilter,
// KeepByColumnIndex) always evaluate every column regardless of
// projection, since a column excluded from the result can still carry
// the only information that proves a row group can be skipped.
func (r *Reader) SetRequestedSchema(paths []ColumnPath) {
	if len(paths) == 0 {
		r.projection = nil
		return
	}
	r.projection = make(map[ColumnPath]bool, len(paths))
	for _, p := range paths {
		r.projection[p] = true
	}
}

func (r *Reader) isProjected(path ColumnPath) bool {
	return r.projection == nil || r.projection[path]
}

// GetRecordCount returns the file's total row count, across every row
// group MetadataFilter left in Metadata.RowGroups.
func (r *Reader) GetRecordCount() int64 {
	var total int64
	for i := range r.Metadata.RowGroups {
		total += r.Metadata.RowGroups[i].NumRows
	}
	return total
}

// GetFilteredRecordCount applies pred's elimination cascade to every row
// group (independently of ReadNextFilteredRowGroup's own cursor) and sums
// the row count that survives: a row group's full NumRows if no column
// index narrowed it, or its RowRanges.RowCount() if it did. pred == nil
// returns the same total as GetRecordCount.
func (r *Reader) GetFilteredRecordCount(pred Predicate) (int64, error) {
	var total int64
	for i := range r.Metadata.RowGroups {
		rg := &r.Metadata.RowGroups[i]
		if pred == nil {
			total += rg.NumRows
			continue
		}
		ranges, keep, err := r.evaluateFilter(rg, pred)
		if err != nil {
			return 0, err
		}
		if !keep {
			continue
		}
		if ranges == nil {
			total += rg.NumRows
		} else {
			total += ranges.RowCount()
		}
	}
	return total, nil
}

// ReadRowGroup materializes row group i unfiltered, independent of the
// ReadNextRowGroup cursor.
func (r *Reader) ReadRowGroup(i int) (*RowGroupPages, error) {
	if r.closed {
		return nil, newReadError(ErrKindClosed, "ReadRowGroup", nil)
	}
	if i < 0 || i >= len(r.Metadata.RowGroups) {
		return nil, newReadError(ErrKindIO, "ReadRowGroup", errors.Errorf("row group %d out of range [0,%d)", i, len(r.Metadata.RowGroups)))
	}
	return r.materializeRowGroup(&r.Metadata.RowGroups[i], nil)
}

// ReadFilteredRowGroup applies pred's elimination cascade to row group i,
// independent of the ReadNextFilteredRowGroup cursor, and returns either
// nil (pruned) or its surviving pages.
func (r *Reader) ReadFilteredRowGroup(i int, pred Predicate) (*RowGroupPages, error) {
	if r.closed {
		return nil, newReadError(ErrKindClosed, "ReadFilteredRowGroup", nil)
	}
	if i < 0 || i >= len(r.Metadata.RowGroups) {
		return nil, newReadError(ErrKindIO, "ReadFilteredRowGroup", errors.Errorf("row group %d out of range [0,%d)", i, len(r.Metadata.RowGroups)))
	}
	rg := &r.Metadata.RowGroups[i]
	if pred == nil {
		return r.materializeRowGroup(rg, nil)
	}
	ranges, keep, err := r.evaluateFilter(rg, pred)
	if err != nil {
		return nil, err
	}
	if !keep {
		return nil, nil
	}
	return r.materializeRowGroup(rg, ranges)
}

// ReadColumnIndex returns col's ColumnIndex, decrypting it first if col
// is encrypted. Wraps the indexStore so callers don't need access to it.
func (r *Reader) ReadColumnIndex(rg *RowGroupMetadata, col *ColumnChunkMetadata) (*format.ColumnIndex, error) {
	return r.index.columnIndex(rg, col)
}

// ReadOffsetIndex returns col's OffsetIndex, decrypting it first if col
// is encrypted. Wraps the indexStore so callers don't need access to it.
func (r *Reader) ReadOffsetIndex(rg *RowGroupMetadata, col *ColumnChunkMetadata) (*format.OffsetIndex, error) {
	return r.index.offsetIndex(rg, col)
}

// DictionaryReader exposes one row group's per-column dictionaries
// without decoding any data page, the same lazy-as-asked-for shape
// ReadDictionary already provides for a single column.
type DictionaryReader struct {
	reader *Reader
	rg     *RowGroupMetadata
}

// RowGroup returns the row group this DictionaryReader was built for.
func (d *DictionaryReader) RowGroup() *RowGroupMetadata { return d.rg }

// ColumnDictionary returns path's dictionary entries within this row
// group, or nil if the column has no dictionary page.
func (d *DictionaryReader) ColumnDictionary(path ColumnPath) ([][]byte, error) {
	for i := range d.rg.Columns {
		c := &d.rg.Columns[i]
		if c.Path == path {
			return d.reader.ReadDictionary(d.rg, c)
		}
	}
	return nil, nil
}

// GetDictionaryReader returns a DictionaryReader for row group i,
// independent of GetNextDictionaryReader's cursor.
func (r *Reader) GetDictionaryReader(i int) (*DictionaryReader, error) {
	if i < 0 || i >= len(r.Metadata.RowGroups) {
		return nil, newReadError(ErrKindIO, "GetDictionaryReader", errors.Errorf("row group %d out of range [0,%d)", i, len(r.Metadata.RowGroups)))
	}
	return &DictionaryReader{reader: r, rg: &r.Metadata.RowGroups[i]}, nil
}

// GetNextDictionaryReader returns a DictionaryReader for the next row
// group in sequence, or (nil, nil) once every row group has been
// returned. Its cursor is independent of ReadNextRowGroup's.
func (r *Reader) GetNextDictionaryReader() (*DictionaryReader, error) {
	if r.nextDictionaryRowGroup >= len(r.Metadata.RowGroups) {
		return nil, nil
	}
	dr, err := r.GetDictionaryReader(r.nextDictionaryRowGroup)
	if err != nil {
		return nil, err
	}
	r.nextDictionaryRowGroup++
	return dr, nil
}

// ReadNextFilteredRowGroup applies pred at every elimination level
// (statistics, dictionary, bloom filter, column index, cheapest first)
// and returns either nil (the whole row group was pruned, caller should
// call again to advance) or the surviving pages restricted to the row
// ranges the column index narrowed it to.
func (r *Reader) ReadNextFilteredRowGroup(pred Predicate) (*RowGroupPages, error) {
	if r.closed {
		return nil, newReadError(ErrKindClosed, "ReadNextFilteredRowGroup", nil)
	}
	if r.nextRowGroup >= len(r.Metadata.RowGroups) {
		return nil, nil
	}
	rg := &r.Metadata.RowGroups[r.nextRowGroup]
	r.nextRowGroup++

	if pred == nil {
		return r.materializeRowGroup(rg, nil)
	}

	ranges, keep, err := r.evaluateFilter(rg, pred)
	if err != nil {
		return nil, err
	}
	if !keep {
		return nil, nil
	}
	return r.materializeRowGroup(rg, ranges)
}

// evaluateFilter runs pred through every enabled elimination level for
// rg, cheapest first, and reports whether rg survives plus the
// column-index-narrowed RowRanges (nil if UseColumnIndexFilter is off or
// the row group has no column index). It never touches rg's cursor, so
// GetFilteredRecordCount and ReadFilteredRowGroup can use it independently
// of ReadNextFilteredRowGroup's own sequential traversal.
func (r *Reader) evaluateFilter(rg *RowGroupMetadata, pred Predicate) (RowRanges, bool, error) {
	if r.cfg.UseStatsFilter && !r.keepByStats(rg, pred) {
		r.metrics.rowGroupsPrunedStats.Inc()
		return nil, false, nil
	}
	if r.cfg.UseDictionaryFilter {
		keep, err := r.keepByDictionary(rg, pred)
		if err != nil {
			return nil, false, err
		}
		if !keep {
			r.metrics.rowGroupsPrunedDictionary.Inc()
			return nil, false, nil
		}
	}
	if r.cfg.UseBloomFilterFilter {
		keep, err := r.keepByBloomFilter(rg, pred)
		if err != nil {
			return nil, false, err
		}
		if !keep {
			r.metrics.rowGroupsPrunedBloom.Inc()
			return nil, false, nil
		}
	}

	var ranges RowRanges
	if r.cfg.UseColumnIndexFilter {
		var err error
		ranges, err = r.rowRangesFromColumnIndex(rg, pred)
		if err != nil {
			return nil, false, err
		}
		if ranges != nil && ranges.IsEmpty() {
			r.metrics.rowGroupsPrunedColumnIndex.Inc()
			return nil, false, nil
		}
	}
	return ranges, true, nil
}

func (r *Reader) keepByStats(rg *RowGroupMetadata, pred Predicate) bool {
	for i := range rg.Columns {
		c := &rg.Columns[i]
		if !pred.KeepColumnChunk(c.Statistics, c.HasStatistics) {
			return false
		}
	}
	return true
}

func (r *Reader) keepByDictionary(rg *RowGroupMetadata, pred Predicate) (bool, error) {
	for i := range rg.Columns {
		c := &rg.Columns[i]
		if !c.HasDictionaryPage {
			continue
		}
		dict, err := r.ReadDictionary(rg, c)
		if err != nil {
			return false, err
		}
		if dict == nil {
			continue
		}
		if !pred.KeepByDictionary(dict) {
			return false, nil
		}
	}
	return true, nil
}

func (r *Reader) keepByBloomFilter(rg *RowGroupMetadata, pred Predicate) (bool, error) {
	for i := range rg.Columns {
		c := &rg.Columns[i]
		if !c.HasBloomFilter {
			continue
		}
		bf, err := r.ReadBloomFilter(rg, c)
		if err != nil {
			return false, err
		}
		if bf == nil {
			continue
		}
		if !pred.KeepByBloomFilter(bf.MightContain) {
			return false, nil
		}
	}
	return true, nil
}

func (r *Reader) rowRangesFromColumnIndex(rg *RowGroupMetadata, pred Predicate) (RowRanges, error) {
	var ranges RowRanges
	first := true
	for i := range rg.Columns {
		c := &rg.Columns[i]
		if !c.HasColumnIndex {
			continue
		}
		ci, err := r.index.columnIndex(rg, c)
		if err != nil {
			return nil, err
		}
		pages := pred.KeepByColumnIndex(ci)
		oi, err := r.index.offsetIndex(rg, c)
		if err != nil {
			return nil, err
		}
		colRanges := rowRangesFromPages(oi, pages, rg.NumRows)
		if first {
			ranges = colRanges
			first = false
		} else {
			ranges = intersectRowRanges(ranges, colRanges)
		}
	}
	return ranges, nil
}

// materializeRowGroup fetches and decodes pages for rg's projected
// columns only: a column whose path SetRequestedSchema didn't name is
// skipped entirely, before it ever reaches the range planner or the I/O
// layer, since reading and decoding a column's pages just to discard
// them defeats the point of a projection.
func (r *Reader) materializeRowGroup(rg *RowGroupMetadata, ranges RowRanges) (*RowGroupPages, error) {
	var cols []*ColumnChunkMetadata
	for i := range rg.Columns {
		c := &rg.Columns[i]
		if r.isProjected(c.Path) {
			cols = append(cols, c)
		}
	}
	out := &RowGroupPages{Metadata: rg, RowRanges: ranges}

	if ranges == nil {
		parts := planConsecutiveParts(cols, r.cfg.MaxAllocationSize)
		chunkData, err := r.chunkSource().fetch(parts)
		if err != nil {
			return nil, err
		}
		byPath := make(map[ColumnPath]chunkBytes, len(chunkData))
		for _, cb := range chunkData {
			byPath[cb.chunk.Path] = cb
		}
		for _, c := range cols {
			cb, ok := byPath[c.Path]
			if !ok {
				continue
			}
			pr, err := r.newPageReader(rg, c, nil)
			if err != nil {
				return nil, err
			}
			out.Columns = append(out.Columns, ChunkPages{Column: c, Queue: pr.start([]chunkBytes{cb})})
		}
		return out, nil
	}

	// Filtered path: a column contributes zero, one, or several spans --
	// one per contiguous run of pages the row ranges selected -- so
	// neither the I/O layer nor the chunk decoder ever touches an
	// interior page the predicate ruled out.
	colSelection := make(map[ColumnPath]*pageSelection, len(cols))
	var allSpans []chunkSpan
	for _, c := range cols {
		spans, sel, err := r.spansForRows(rg, c, ranges)
		if err != nil {
			return nil, err
		}
		colSelection[c.Path] = sel
		allSpans = append(allSpans, spans...)
	}

	parts := planFilteredParts(allSpans, r.cfg.MaxAllocationSize)
	chunkData, err := r.chunkSource().fetch(parts)
	if err != nil {
		return nil, err
	}
	byPath := make(map[ColumnPath][]chunkBytes, len(chunkData))
	for _, cb := range chunkData {
		byPath[cb.chunk.Path] = append(byPath[cb.chunk.Path], cb)
	}

	for _, c := range cols {
		cbs := byPath[c.Path]
		if len(cbs) == 0 {
			out.Columns = append(out.Columns, ChunkPages{Column: c, Queue: newEmptyPageQueue()})
			continue
		}
		pr, err := r.newPageReader(rg, c, colSelection[c.Path])
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, ChunkPages{Column: c, Queue: pr.start(cbs)})
	}
	return out, nil
}

// newPageReader builds the producer for one column, wiring its
// decryptor (if the chunk is encrypted) and the page selection a
// row-range filter narrowed it to (nil on the unfiltered path).
func (r *Reader) newPageReader(rg *RowGroupMetadata, c *ColumnChunkMetadata, selection *pageSelection) (*pageReader, error) {
	pr := &pageReader{
		reader:          r,
		rg:              rg,
		rowGroupOrdinal: rg.Ordinal,
		columnOrdinal:   c.Ordinal,
		chunk:           c,
		selection:       selection,
	}
	dec, err := r.columnDecryptor(c)
	if err != nil {
		return nil, err
	}
	if dec != nil {
		pr.columnDecryptor = dec
		pr.fileAAD = r.fileAAD
	}
	return pr, nil
}

func (r *Reader) columnKey(c *ColumnChunkMetadata) ([]byte, error) {
	props := r.cfg.DecryptionProperties
	if props.ColumnKeyRetriever == nil {
		return props.FooterKey, nil
	}
	return props.ColumnKeyRetriever(c.Path, c.EncryptedMetadata)
}

// columnDecryptor builds c's page-body decryptor if c is encrypted and
// the Reader was given DecryptionProperties, or returns (nil, nil)
// otherwise. It underlies every encrypted-module read this package does
// -- page bodies, page headers, dictionaries, bloom filters, and column/
// offset indexes all key off the same per-chunk decryptor.
func (r *Reader) columnDecryptor(c *ColumnChunkMetadata) (*crypto.AESGCMDecryptor, error) {
	if r.cfg.DecryptionProperties == nil || len(c.EncryptedMetadata) == 0 {
		return nil, nil
	}
	key, err := r.columnKey(c)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}
	dec, err := crypto.NewAESGCMDecryptor(key)
	if err != nil {
		return nil, newReadError(ErrKindDecrypt, "columnDecryptor", err)
	}
	return dec, nil
}

// decryptModule decrypts buf in place as module belonging to col within
// rg, or returns buf unchanged if col isn't encrypted (or the Reader has
// no DecryptionProperties). Used for column and offset index blobs,
// whose on-disk length the caller already knows exactly (unlike a page
// or bloom filter header, which must be read self-lengthed).
func (r *Reader) decryptModule(buf []byte, module crypto.ModuleType, rg *RowGroupMetadata, col *ColumnChunkMetadata) ([]byte, error) {
	dec, err := r.columnDecryptor(col)
	if err != nil {
		return nil, err
	}
	if dec == nil {
		return buf, nil
	}
	aad := crypto.ModuleAAD(r.fileAAD, module, rg.Ordinal, col.Ordinal, -1)
	return dec.Decrypt(buf, aad)
}

// decryptSelfLengthedModule reads the on-disk module at offset (a
// 4-byte length prefix followed by a nonce, ciphertext, and tag, with no
// length recorded anywhere else) and decrypts it against the AAD for
// (module, rg, col, pageOrdinal), returning the plaintext and the total
// on-disk size consumed. Used for page headers and bloom filter headers,
// neither of which has its encoded length known before it's decoded.
// pageOrdinal is -1 for a module that isn't scoped to one page (a bloom
// filter header).
func (r *Reader) decryptSelfLengthedModule(offset int64, module crypto.ModuleType, rg *RowGroupMetadata, col *ColumnChunkMetadata, pageOrdinal int) ([]byte, int, error) {
	dec, err := r.columnDecryptor(col)
	if err != nil {
		return nil, 0, err
	}
	if dec == nil {
		return nil, 0, nil
	}
	prefix := make([]byte, 4)
	if _, err := r.io.ReadAt(prefix, offset); err != nil {
		return nil, 0, err
	}
	size, err := crypto.ModuleSize(prefix)
	if err != nil {
		return nil, 0, err
	}
	encoded := make([]byte, size)
	if _, err := r.io.ReadAt(encoded, offset); err != nil {
		return nil, 0, err
	}
	aad := crypto.ModuleAAD(r.fileAAD, module, rg.Ordinal, col.Ordinal, pageOrdinal)
	plain, err := dec.Decrypt(encoded, aad)
	if err != nil {
		return nil, 0, err
	}
	return plain, size, nil
}

// spansForRows derives the ordered list of OffsetRanges a column
// contributes to a filtered read: one chunkSpan per contiguous run of
// pages (per the column's offset index) that overlap ranges, so neither
// the I/O layer nor the chunk decoder ever has to touch a page the
// predicate ruled out. It also returns a pageSelection recording the
// exact absolute page ordinals selected, which the page pipeline
// consults independently of the span boundaries -- belt and suspenders
// against a page ever being decoded from a span it wasn't the reason
// for. Without an offset index, there's no way to know where a row lands
// in the chunk, so the whole chunk is returned as a single unfiltered
// span (nil selection, meaning "every page").
func (r *Reader) spansForRows(rg *RowGroupMetadata, c *ColumnChunkMetadata, ranges RowRanges) ([]chunkSpan, *pageSelection, error) {
	if !c.HasOffsetIndex {
		whole := chunkSpan{chunk: c, r: OffsetRange{Start: c.firstByteOffset(), End: c.endByteOffset()}}
		return []chunkSpan{whole}, nil, nil
	}
	oi, err := r.index.offsetIndex(rg, c)
	if err != nil {
		return nil, nil, err
	}

	// OffsetIndex.PageLocations only enumerates data pages; a leading
	// dictionary page, if present, is ordinal 0, so every data page
	// ordinal shifts by one.
	ordinalBase := 0
	if c.HasDictionaryPage {
		ordinalBase = 1
	}

	var (
		spans    []chunkSpan
		ordinals []int
		runStart = -1
	)
	flush := func(runEnd int) {
		start := oi.PageLocations[runStart].Offset
		end := c.endByteOffset()
		if runEnd+1 < len(oi.PageLocations) {
			end = oi.PageLocations[runEnd+1].Offset
		}
		spans = append(spans, chunkSpan{
			chunk:            c,
			r:                OffsetRange{Start: start, End: end},
			startPageOrdinal: ordinalBase + runStart,
		})
		for i := runStart; i <= runEnd; i++ {
			ordinals = append(ordinals, ordinalBase+i)
		}
	}

	for i, loc := range oi.PageLocations {
		firstRow := loc.FirstRowIndex
		lastRow := rg.NumRows - 1
		if i+1 < len(oi.PageLocations) {
			lastRow = oi.PageLocations[i+1].FirstRowIndex - 1
		}
		switch match := rangesOverlap(ranges, firstRow, lastRow); {
		case match && runStart < 0:
			runStart = i
		case !match && runStart >= 0:
			flush(i - 1)
			runStart = -1
		}
	}
	if runStart >= 0 {
		flush(len(oi.PageLocations) - 1)
	}

	if len(spans) == 0 {
		return nil, nil, nil
	}
	return spans, newPageSelection(ordinals), nil
}

func rangesOverlap(ranges RowRanges, first, last int64) bool {
	for _, rr := range ranges {
		if rr.FirstRow <= last && first <= rr.LastRow {
			return true
		}
	}
	return false
}

// Close releases the Reader. If the SeekableBytes it was opened with
// implements io.Closer (as OpenLocalFile's does), Close closes it too.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs error
	if closer, ok := r.src.(io.Closer); ok {
		errs = multierr.Append(errs, errors.Wrap(closer.Close(), "closing source"))
	}
	return errs
}
