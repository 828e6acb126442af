package parqrow

import "github.com/columnario/parqrow/format"

// Page is one decoded, decompressed page handed to the caller. Value
// decoding stays out of scope (per the Non-goal on codec beyond framing);
// what this package guarantees is that Bytes is the plain, decrypted,
// decompressed page payload exactly as the page's encoding expects it.
type Page struct {
	Type                 format.PageType
	Encoding             format.Encoding
	NumValues            int32
	Bytes                []byte
	Ordinal              int
	Statistics           format.Statistics
	HasStatistics        bool
	DefinitionLevelBytes []byte // only set for DataPageV2
	RepetitionLevelBytes []byte // only set for DataPageV2
	IsDictionary         bool
	DictionaryIsSorted   bool
}

// endOfPages is the sentinel sent on a pageQueue's channel once a chunk
// has no more pages, standing in for the FIFO's "None" terminal marker.
var endOfPages = &pageOrError{}

type pageOrError struct {
	page *Page
	err  error
}

func (p *pageOrError) isEnd() bool { return p.page == nil && p.err == nil }
