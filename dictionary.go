package parqrow

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
)

// ReadDictionary returns a column chunk's dictionary entries as raw
// plain-encoded byte slices (one per distinct value), or nil if the chunk
// has no dictionary page. This is used both directly by callers and
// internally by the dictionary elimination level of
// ReadNextFilteredRowGroup.
func (r *Reader) ReadDictionary(rg *RowGroupMetadata, c *ColumnChunkMetadata) ([][]byte, error) {
	if !c.HasDictionaryPage {
		return nil, nil
	}
	dec, err := r.columnDecryptor(c)
	if err != nil {
		return nil, err
	}

	var (
		header       *format.PageHeader
		payloadStart int64
	)
	if dec != nil {
		plain, size, derr := r.decryptSelfLengthedModule(c.DictionaryPageOffset, crypto.ModuleDictionaryPageHeader, rg, c, 0)
		if derr != nil {
			return nil, newReadError(ErrKindDecrypt, "ReadDictionary", errors.Wrap(derr, "decrypting dictionary page header"))
		}
		h, _, derr := format.DecodePageHeader(plain)
		if derr != nil {
			return nil, newReadError(ErrKindFooterDecode, "ReadDictionary", errors.Wrap(derr, "decoding dictionary page header"))
		}
		header = h
		payloadStart = c.DictionaryPageOffset + int64(size)
	} else {
		const headerWindow = 8192
		window := make([]byte, headerWindow)
		n, rerr := r.io.ReadAt(window, c.DictionaryPageOffset)
		if rerr != nil && n == 0 {
			return nil, newReadError(ErrKindIO, "ReadDictionary", rerr)
		}
		window = window[:n]

		h, consumed, derr := format.DecodePageHeader(window)
		if derr != nil {
			return nil, newReadError(ErrKindFooterDecode, "ReadDictionary", errors.Wrap(derr, "decoding dictionary page header"))
		}
		header = h
		payloadStart = c.DictionaryPageOffset + int64(consumed)
	}
	if header.Type != format.DictionaryPage || header.DictionaryPageHeader == nil {
		return nil, newReadError(ErrKindMalformedPage, "ReadDictionary", errors.Errorf("expected DICTIONARY_PAGE, got %d", header.Type))
	}

	compressed := make([]byte, header.CompressedPageSize)
	if _, err := r.io.ReadAt(compressed, payloadStart); err != nil {
		return nil, newReadError(ErrKindIO, "ReadDictionary", err)
	}
	if dec != nil {
		aad := crypto.ModuleAAD(r.fileAAD, crypto.ModuleDictionaryPage, rg.Ordinal, c.Ordinal, 0)
		plain, derr := dec.Decrypt(compressed, aad)
		if derr != nil {
			return nil, newReadError(ErrKindDecrypt, "ReadDictionary", errors.Wrap(derr, "decrypting dictionary page"))
		}
		compressed = plain
	}

	values := compressed
	if c.Codec != format.Uncompressed {
		d, err := r.cfg.CodecRegistry.Decompressor(c.Codec)
		if err != nil {
			return nil, newReadError(ErrKindCodec, "ReadDictionary", err)
		}
		values, err = d.Decompress(nil, compressed, int(header.UncompressedPageSize))
		if err != nil {
			return nil, newReadError(ErrKindCodec, "ReadDictionary", errors.Wrap(err, "decompressing dictionary page"))
		}
	}

	return splitDictionaryValues(c.Type, values, int(header.DictionaryPageHeader.NumValues))
}

// splitDictionaryValues slices a plain-encoded dictionary page's payload
// into one byte slice per value: fixed-width for numeric types,
// length-prefixed for BYTE_ARRAY, and for FIXED_LEN_BYTE_ARRAY a width
// inferred from payload length divided by numValues (the schema's
// declared width is not consulted; the reader only needs consistent
// comparable slices).
func splitDictionaryValues(typ format.Type, payload []byte, numValues int) ([][]byte, error) {
	if numValues == 0 {
		return nil, nil
	}
	switch typ {
	case format.Boolean:
		return nil, nil // dictionary-encoded booleans don't occur in practice
	case format.Int32, format.Float:
		return splitFixedWidth(payload, numValues, 4)
	case format.Int64, format.Double:
		return splitFixedWidth(payload, numValues, 8)
	case format.Int96:
		return splitFixedWidth(payload, numValues, 12)
	case format.FixedLenByteArray:
		if numValues == 0 || len(payload)%numValues != 0 {
			return nil, errors.Errorf("dictionary: cannot infer fixed width from %d bytes / %d values", len(payload), numValues)
		}
		return splitFixedWidth(payload, numValues, len(payload)/numValues)
	case format.ByteArray:
		return splitLengthPrefixed(payload, numValues)
	default:
		return nil, errors.Errorf("dictionary: unsupported type %d", typ)
	}
}

func splitFixedWidth(payload []byte, numValues, width int) ([][]byte, error) {
	if len(payload) < numValues*width {
		return nil, errors.Errorf("dictionary: payload too short: need %d bytes, have %d", numValues*width, len(payload))
	}
	out := make([][]byte, numValues)
	for i := 0; i < numValues; i++ {
		out[i] = payload[i*width : (i+1)*width]
	}
	return out, nil
}

func splitLengthPrefixed(payload []byte, numValues int) ([][]byte, error) {
	out := make([][]byte, 0, numValues)
	pos := 0
	for i := 0; i < numValues; i++ {
		if pos+4 > len(payload) {
			return nil, errors.Errorf("dictionary: truncated length prefix at value %d", i)
		}
		n := int(binary.LittleEndian.Uint32(payload[pos : pos+4]))
		pos += 4
		if pos+n > len(payload) {
			return nil, errors.Errorf("dictionary: truncated value %d", i)
		}
		out = append(out, payload[pos:pos+n])
		pos += n
	}
	return out, nil
}
