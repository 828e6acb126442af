package parqrow

import (
	"github.com/pkg/errors"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
)

// chunkAccounting tracks the page/value bookkeeping a chunk's decode is
// specified to keep across every page decoded from one column chunk,
// however many byte spans a filtered read split it into, catching
// corruption a purely positional decoder can't: a repeated dictionary
// page, or a final page/value count that doesn't match what the offset
// index or chunk metadata declared.
type chunkAccounting struct {
	valuesCountReadSoFar   int64
	dataPageCountReadSoFar int
	dictionaryPageSeen     bool
}

func (a *chunkAccounting) record(rp *rawPage, chunk *ColumnChunkMetadata) error {
	switch rp.header.Type {
	case format.DictionaryPage:
		if a.dictionaryPageSeen {
			return errors.Errorf("duplicate dictionary page in chunk %s", chunk.Path)
		}
		a.dictionaryPageSeen = true
		return nil
	case format.DataPage:
		if rp.header.DataPageHeader != nil {
			a.valuesCountReadSoFar += int64(rp.header.DataPageHeader.NumValues)
		}
	case format.DataPageV2:
		if rp.header.DataPageHeaderV2 != nil {
			a.valuesCountReadSoFar += int64(rp.header.DataPageHeaderV2.NumValues)
		}
	}
	a.dataPageCountReadSoFar++
	return nil
}

// finish checks the chunk's page/value totals against its declared
// bounds once every page has been decoded. Skipped when selection is
// non-nil (a row-range filter narrowed which pages get read), since only
// a subset of the chunk's pages is ever decoded there by design.
func (a *chunkAccounting) finish(oi *format.OffsetIndex, chunk *ColumnChunkMetadata, selection *pageSelection) error {
	if selection != nil {
		return nil
	}
	if oi != nil {
		if a.dataPageCountReadSoFar != len(oi.PageLocations) {
			return errors.Errorf("chunk %s: read %d data pages, offset index declares %d", chunk.Path, a.dataPageCountReadSoFar, len(oi.PageLocations))
		}
		return nil
	}
	if a.valuesCountReadSoFar != chunk.NumValues {
		return errors.Errorf("chunk %s: read %d values, metadata declares %d", chunk.Path, a.valuesCountReadSoFar, chunk.NumValues)
	}
	return nil
}

// pageQueueDepth bounds how many decoded pages can sit ahead of the
// consumer, the bounded-FIFO-with-sentinel shape the page pipeline is
// specified to use so a fast producer can't run the decoder arbitrarily
// far ahead of whatever is draining the queue.
const pageQueueDepth = 8

// pageQueue is a bounded producer/consumer channel of decoded pages,
// terminated by endOfPages once the producer has nothing left to send.
type pageQueue struct {
	ch chan *pageOrError
}

func newPageQueue() *pageQueue {
	return &pageQueue{ch: make(chan *pageOrError, pageQueueDepth)}
}

func (q *pageQueue) send(p *Page) { q.ch <- &pageOrError{page: p} }
func (q *pageQueue) fail(err error) { q.ch <- &pageOrError{err: err} }
func (q *pageQueue) close() { q.ch <- endOfPages }

// newEmptyPageQueue returns a queue that is already at end-of-stream, for
// a column a row-range filter selected zero pages from.
func newEmptyPageQueue() *pageQueue {
	q := newPageQueue()
	q.close()
	return q
}

// pageSelection records which absolute page ordinals within a column
// chunk a row-range filter selected, the filtered offset index the page
// pipeline consults to decide what to emit. nil means every page is
// selected (the unfiltered path, or a filtered chunk with no offset
// index to filter by).
type pageSelection struct {
	ordinals map[int]bool
}

func newPageSelection(ordinals []int) *pageSelection {
	if ordinals == nil {
		return nil
	}
	m := make(map[int]bool, len(ordinals))
	for _, o := range ordinals {
		m[o] = true
	}
	return &pageSelection{ordinals: m}
}

func (s *pageSelection) selects(ordinal int) bool {
	return s == nil || s.ordinals[ordinal]
}

// next returns the next page, or (nil, nil) once the queue is exhausted,
// or a non-nil error if the producer failed.
func (q *pageQueue) next() (*Page, error) {
	item := <-q.ch
	if item.isEnd() {
		return nil, nil
	}
	return item.page, item.err
}

// pageReader is the page pipeline's producer: it decodes every page of
// one column chunk and pushes each decompressed Page onto a pageQueue,
// running on the Reader's ProcessingExecutor so it can overlap with the
// consumer decoding values from previously queued pages.
type pageReader struct {
	reader          *Reader
	rg              *RowGroupMetadata
	rowGroupOrdinal int
	columnOrdinal   int
	chunk           *ColumnChunkMetadata
	fileAAD         []byte
	columnDecryptor *crypto.AESGCMDecryptor
	selection       *pageSelection
}

// start launches the producer and returns the queue it feeds. cbs is the
// column's byte spans in ascending file order -- one on the unfiltered
// path, zero or more (one per contiguous run of matching pages) on the
// filtered path. A page whose ordinal the selection doesn't cover is
// decoded just far enough to advance past it (its header is always read,
// since that's the only way to know how many bytes to skip) but never
// decompressed or handed to the consumer.
func (p *pageReader) start(cbs []chunkBytes) *pageQueue {
	q := newPageQueue()
	p.reader.cfg.ProcessingExecutor.Submit(func() {
		defer q.close()

		var offsetIndex *format.OffsetIndex
		if p.chunk.HasOffsetIndex {
			oi, err := p.reader.index.offsetIndex(p.rg, p.chunk)
			if err != nil {
				q.fail(err)
				return
			}
			offsetIndex = oi
		}

		acct := &chunkAccounting{}
		for _, cb := range cbs {
			dec := newChunkDecoder(p, cb)
			for dec.hasMorePages() {
				rp, err := dec.nextPage()
				if err != nil {
					q.fail(err)
					return
				}
				if err := acct.record(rp, p.chunk); err != nil {
					q.fail(newReadError(ErrKindCorruptPage, "pageReader.start", err))
					return
				}
				if !p.selection.selects(rp.pageOrdinal) {
					continue
				}
				page, err := p.decodePage(rp)
				if err != nil {
					q.fail(err)
					return
				}
				q.send(page)
			}
		}
		if err := acct.finish(offsetIndex, p.chunk, p.selection); err != nil {
			q.fail(newReadError(ErrKindCorruptPage, "pageReader.start", err))
		}
	})
	return q
}

func (p *pageReader) decodePage(rp *rawPage) (*Page, error) {
	payload := rp.payload
	if p.columnDecryptor != nil {
		aad := crypto.ModuleAAD(p.fileAAD, pageModuleType(rp.header.Type), p.rowGroupOrdinal, p.columnOrdinal, rp.pageOrdinal)
		plain, err := p.columnDecryptor.Decrypt(payload, aad)
		if err != nil {
			return nil, newReadError(ErrKindDecrypt, "decodePage", err)
		}
		payload = plain
	}

	uncompressedSize := int(rp.header.UncompressedPageSize)
	compressed := payload
	if rp.header.Type == format.DataPageV2 && rp.header.DataPageHeaderV2 != nil {
		h := rp.header.DataPageHeaderV2
		levelsLen := int(h.DefinitionLevelsByteLength + h.RepetitionLevelsByteLength)
		isCompressed := h.IsCompressed == nil || *h.IsCompressed
		levels := compressed[:levelsLen]
		rest := compressed[levelsLen:]
		var values []byte
		var err error
		if isCompressed && p.chunk.Codec != format.Uncompressed {
			values, err = p.decompress(rest, uncompressedSize-levelsLen)
		} else {
			values = rest
		}
		if err != nil {
			return nil, newReadError(ErrKindCodec, "decodePage", err)
		}
		page := &Page{
			Type:       rp.header.Type,
			NumValues:  h.NumValues,
			Bytes:      values,
			Ordinal:    rp.pageOrdinal,
			Statistics: h.Statistics,
			HasStatistics: hasNonEmptyStatistics(h.Statistics),
			Encoding:   h.Encoding,
		}
		page.DefinitionLevelBytes = levels[:h.DefinitionLevelsByteLength]
		page.RepetitionLevelBytes = levels[h.DefinitionLevelsByteLength:]
		return page, nil
	}

	values := compressed
	if p.chunk.Codec != format.Uncompressed {
		var err error
		values, err = p.decompress(compressed, uncompressedSize)
		if err != nil {
			return nil, newReadError(ErrKindCodec, "decodePage", err)
		}
	}

	switch rp.header.Type {
	case format.DictionaryPage:
		h := rp.header.DictionaryPageHeader
		return &Page{
			Type:               rp.header.Type,
			NumValues:          h.NumValues,
			Bytes:              values,
			Ordinal:            rp.pageOrdinal,
			Encoding:           h.Encoding,
			IsDictionary:       true,
			DictionaryIsSorted: h.IsSorted,
		}, nil
	case format.DataPage:
		h := rp.header.DataPageHeader
		return &Page{
			Type:          rp.header.Type,
			NumValues:     h.NumValues,
			Bytes:         values,
			Ordinal:       rp.pageOrdinal,
			Encoding:      h.Encoding,
			Statistics:    h.Statistics,
			HasStatistics: hasNonEmptyStatistics(h.Statistics),
		}, nil
	default:
		return nil, newReadError(ErrKindMalformedPage, "decodePage", errors.Errorf("unexpected page type %d", rp.header.Type))
	}
}

func (p *pageReader) decompress(src []byte, uncompressedSize int) ([]byte, error) {
	d, err := p.reader.cfg.CodecRegistry.Decompressor(p.chunk.Codec)
	if err != nil {
		return nil, err
	}
	return d.Decompress(nil, src, uncompressedSize)
}

func pageModuleType(t format.PageType) crypto.ModuleType {
	if t == format.DictionaryPage {
		return crypto.ModuleDictionaryPage
	}
	return crypto.ModuleDataPage
}
