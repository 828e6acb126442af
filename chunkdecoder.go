package parqrow

import (
	"fmt"
	"hash/crc32"

	"github.com/pkg/errors"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
)

// rawPage is one decoded page header plus its still-compressed payload,
// the unit the page pipeline passes downstream.
type rawPage struct {
	header      *format.PageHeader
	payload     []byte
	pageOrdinal int
}

// chunkDecoder walks a column chunk's byte span, decoding one page header
// at a time and handing back the header plus a slice of the still
// (possibly) compressed page bytes that follow it.
type chunkDecoder struct {
	reader      *Reader
	chunk       *ColumnChunkMetadata
	data        []byte // dataBase-aligned bytes already in hand
	dataBase    int64  // file offset data[0] corresponds to
	pos         int64  // current file offset
	end         int64  // file offset this chunk's scanned span ends at
	pageOrdinal int

	rowGroupOrdinal int
	columnOrdinal   int
	columnDecryptor *crypto.AESGCMDecryptor
	fileAAD         []byte
}

func newChunkDecoder(p *pageReader, cb chunkBytes) *chunkDecoder {
	return &chunkDecoder{
		reader:          p.reader,
		chunk:           cb.chunk,
		data:            cb.data,
		dataBase:        cb.start,
		pos:             cb.start,
		end:             cb.end,
		pageOrdinal:     cb.startPageOrdinal,
		rowGroupOrdinal: p.rowGroupOrdinal,
		columnOrdinal:   p.columnOrdinal,
		columnDecryptor: p.columnDecryptor,
		fileAAD:         p.fileAAD,
	}
}

func (d *chunkDecoder) hasMorePages() bool {
	return d.pos < d.end
}

// buffered returns the bytes of d.data starting at the current file
// position.
func (d *chunkDecoder) buffered() []byte {
	off := d.pos - d.dataBase
	if off < 0 || off >= int64(len(d.data)) {
		return nil
	}
	return d.data[off:]
}

// nextPage decodes the header at the current position and returns the
// header plus its payload, advancing past both. If the header or payload
// runs past the bytes already in hand, it falls back to a direct read
// of that whole span from the file -- the same mark/reset-then-stitch
// behavior WorkaroundChunk uses for a dictionary page whose header
// crosses a buffer boundary, except here every page gets the same
// treatment since pages are read out of a fixed in-memory window rather
// than a resumable stream.
func (d *chunkDecoder) nextPage() (*rawPage, error) {
	var (
		header       *format.PageHeader
		payloadStart int64
	)
	if d.columnDecryptor != nil {
		h, hdrSize, err := d.decodeEncryptedHeader()
		if err != nil {
			return nil, newReadError(ErrKindMalformedPage, "nextPage", errors.Wrap(err, "decoding encrypted page header"))
		}
		header = h
		payloadStart = d.pos + int64(hdrSize)
	} else {
		buf := d.buffered()
		h, consumed, err := format.DecodePageHeader(buf)
		if err != nil {
			h, consumed, err = d.decodeHeaderAcrossBoundary()
			if err != nil {
				return nil, newReadError(ErrKindMalformedPage, "nextPage", errors.Wrap(err, "decoding page header"))
			}
		}
		header = h
		payloadStart = d.pos + int64(consumed)
	}
	payloadEnd := payloadStart + int64(header.CompressedPageSize)
	payload, err := d.readSpan(payloadStart, payloadEnd)
	if err != nil {
		return nil, newReadError(ErrKindIO, "nextPage", err)
	}
	if d.reader.cfg.UsePageChecksumVerification && header.HasCRC {
		if err := verifyChecksum(payload, header.CRC); err != nil {
			d.reader.metrics.checksumFailures.Inc()
			return nil, newReadError(ErrKindChecksum, "nextPage", err)
		}
	}
	rp := &rawPage{header: header, payload: payload, pageOrdinal: d.pageOrdinal}
	d.pageOrdinal++
	d.pos = payloadEnd
	d.reader.metrics.pagesDecoded.Inc()
	return rp, nil
}

// decodeHeaderAcrossBoundary re-reads a larger window directly from the
// file when the header didn't fully fit in the bytes already buffered --
// this only happens near the end of a chunk's reserved allocation, the
// same edge the original reader's WorkaroundChunk exists for.
func (d *chunkDecoder) decodeHeaderAcrossBoundary() (*format.PageHeader, int, error) {
	const maxHeaderSize = 8192
	end := d.pos + maxHeaderSize
	size, err := d.reader.io.Size()
	if err != nil {
		return nil, 0, err
	}
	if end > size {
		end = size
	}
	window, err := d.readSpan(d.pos, end)
	if err != nil {
		return nil, 0, err
	}
	return format.DecodePageHeader(window)
}

// decodeEncryptedHeader reads and decrypts the page header at the
// current position, which on an encrypted chunk is itself a module
// (length prefix, nonce, ciphertext, tag) rather than bare thrift bytes.
// The only page that ever carries the DictionaryPageHeader module
// instead of DataPageHeader is the chunk's dictionary page, always page
// ordinal 0 when the chunk has one -- decidable before the header is
// even decrypted, since the file format never mixes the two within a
// chunk. Returns the decoded header and the module's total on-disk size.
func (d *chunkDecoder) decodeEncryptedHeader() (*format.PageHeader, int, error) {
	prefix, err := d.readSpan(d.pos, d.pos+4)
	if err != nil {
		return nil, 0, err
	}
	size, err := crypto.ModuleSize(prefix)
	if err != nil {
		return nil, 0, err
	}
	module, err := d.readSpan(d.pos, d.pos+int64(size))
	if err != nil {
		return nil, 0, err
	}

	moduleType := crypto.ModuleDataPageHeader
	if d.chunk.HasDictionaryPage && d.pageOrdinal == 0 {
		moduleType = crypto.ModuleDictionaryPageHeader
	}
	aad := crypto.ModuleAAD(d.fileAAD, moduleType, d.rowGroupOrdinal, d.columnOrdinal, d.pageOrdinal)
	plain, err := d.columnDecryptor.Decrypt(module, aad)
	if err != nil {
		return nil, 0, err
	}

	header, _, err := format.DecodePageHeader(plain)
	if err != nil {
		return nil, 0, err
	}
	return header, size, nil
}

// readSpan returns the bytes for [start, end), using the buffer already
// in hand where the whole range lies inside it, and otherwise reading the
// whole range with one direct ReadAt.
func (d *chunkDecoder) readSpan(start, end int64) ([]byte, error) {
	lo := start - d.dataBase
	hi := end - d.dataBase
	if lo >= 0 && hi <= int64(len(d.data)) {
		return d.data[lo:hi], nil
	}
	buf := make([]byte, end-start)
	if _, err := d.reader.io.ReadAt(buf, start); err != nil {
		return nil, err
	}
	return buf, nil
}

func verifyChecksum(payload []byte, want int32) error {
	got := int32(crc32.ChecksumIEEE(payload))
	if got != want {
		return fmt.Errorf("page checksum mismatch: got %d, header says %d", got, want)
	}
	return nil
}
