package parqrow

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/columnario/parqrow/crypto"
	"github.com/columnario/parqrow/format"
)

// Magic bytes that open and close every file; EFMAGIC marks a file whose
// footer is encrypted.
var (
	magic   = [4]byte{'P', 'A', 'R', '1'}
	efMagic = [4]byte{'P', 'A', 'R', 'E'}
)

const footerTrailerSize = 8 // 4-byte footer length + 4-byte magic

// readFooter locates and decodes a file's trailer: the footer length and
// magic live in the last 8 bytes, the footer itself immediately precedes
// them. Mirrors ParquetFileReader.readFooter's magic/length bookkeeping,
// including the encrypted-footer branch.
func readFooter(src SeekableBytes, decrypt *DecryptionProperties) (*FileMetadata, []byte, error) {
	size, err := src.Size()
	if err != nil {
		return nil, nil, newReadError(ErrKindIO, "readFooter", err)
	}
	if size < int64(len(magic))+footerTrailerSize {
		return nil, nil, newReadError(ErrKindMagic, "readFooter", fmt.Errorf("file too small: %d bytes", size))
	}

	var head [4]byte
	if _, err := src.ReadAt(head[:], 0); err != nil {
		return nil, nil, newReadError(ErrKindIO, "readFooter", err)
	}
	if head != magic && head != efMagic {
		return nil, nil, newReadError(ErrKindMagic, "readFooter", fmt.Errorf("bad leading magic %q", head))
	}

	var tail [footerTrailerSize]byte
	if _, err := src.ReadAt(tail[:], size-footerTrailerSize); err != nil {
		return nil, nil, newReadError(ErrKindIO, "readFooter", err)
	}
	var tailMagic [4]byte
	copy(tailMagic[:], tail[4:])
	encryptedFooterMode := tailMagic == efMagic
	if !encryptedFooterMode && tailMagic != magic {
		return nil, nil, newReadError(ErrKindMagic, "readFooter", fmt.Errorf("bad trailing magic %q", tailMagic))
	}

	footerLength := int64(binary.LittleEndian.Uint32(tail[:4]))
	footerIndex := size - footerTrailerSize - footerLength
	if footerIndex < int64(len(magic)) {
		return nil, nil, newReadError(ErrKindMagic, "readFooter", fmt.Errorf("corrupt footer length %d", footerLength))
	}

	footerBytes := make([]byte, footerLength)
	if _, err := src.ReadAt(footerBytes, footerIndex); err != nil {
		return nil, nil, newReadError(ErrKindIO, "readFooter", err)
	}

	var (
		fmd *format.FileMetaData
		fileAAD []byte
	)
	if encryptedFooterMode {
		fcmd, consumed, err := format.DecodeFileCryptoMetaData(footerBytes)
		if err != nil {
			return nil, nil, newReadError(ErrKindFooterDecode, "readFooter", errors.Wrap(err, "decoding file crypto metadata"))
		}
		if decrypt == nil {
			return nil, nil, newReadError(ErrKindDecrypt, "readFooter", fmt.Errorf("file footer is encrypted but no decryption properties were supplied"))
		}
		dec, aad, err := footerDecryptor(fcmd, decrypt)
		if err != nil {
			return nil, nil, newReadError(ErrKindDecrypt, "readFooter", err)
		}
		fileAAD = aad
		plain, err := dec.Decrypt(footerBytes[consumed:], crypto.ModuleAAD(fileAAD, crypto.ModuleFooter, -1, -1, -1))
		if err != nil {
			return nil, nil, newReadError(ErrKindDecrypt, "readFooter", errors.Wrap(err, "decrypting footer"))
		}
		fmd, err = format.DecodeFileMetaData(plain)
		if err != nil {
			return nil, nil, newReadError(ErrKindFooterDecode, "readFooter", errors.Wrap(err, "decoding file metadata"))
		}
	} else {
		var (
			consumed int
			err      error
		)
		fmd, consumed, err = format.DecodeFileMetaDataWithLength(footerBytes)
		if err != nil {
			return nil, nil, newReadError(ErrKindFooterDecode, "readFooter", errors.Wrap(err, "decoding file metadata"))
		}
		if err := verifyFooterSignature(fmd, footerBytes[consumed:], decrypt); err != nil {
			return nil, nil, newReadError(ErrKindDecrypt, "readFooter", errors.Wrap(err, "verifying signed footer"))
		}
	}

	md := convertFileMetaData(fmd)
	return md, fileAAD, nil
}

func footerDecryptor(fcmd *format.FileCryptoMetaData, props *DecryptionProperties) (*crypto.AESGCMDecryptor, []byte, error) {
	return algorithmDecryptor(fcmd.EncryptionAlgorithm, props)
}

func algorithmDecryptor(alg format.EncryptionAlgorithm, props *DecryptionProperties) (*crypto.AESGCMDecryptor, []byte, error) {
	if props.FooterKey == nil {
		return nil, nil, fmt.Errorf("encrypted footer requires DecryptionProperties.FooterKey")
	}
	dec, err := crypto.NewAESGCMDecryptor(props.FooterKey)
	if err != nil {
		return nil, nil, err
	}
	var aad []byte
	switch {
	case alg.AesGcmV1 != nil:
		aad = append(append([]byte{}, alg.AesGcmV1.AadPrefix...), alg.AesGcmV1.AadFileUnique...)
	case alg.AesGcmCtrV1 != nil:
		aad = append(append([]byte{}, alg.AesGcmCtrV1.AadPrefix...), alg.AesGcmCtrV1.AadFileUnique...)
	}
	if len(aad) == 0 && props.AADPrefix != nil {
		aad = props.AADPrefix
	}
	return dec, aad, nil
}

// verifyFooterSignature authenticates a plaintext footer's trailing GCM
// signature module in signed-footer mode: the footer magic stays PAR1 (the
// metadata itself isn't encrypted) but a file written with an
// EncryptionAlgorithm still appends a footer-key-bound tag so a reader can
// detect tampering. sig is empty when the footer carries no
// EncryptionAlgorithm (the ordinary, unsigned case), which is always valid.
// Verification is skipped, not failed, when no decryption properties were
// supplied -- an unverified signed footer is no worse than an ordinary
// unsigned one for a caller that never asked to check it.
func verifyFooterSignature(fmd *format.FileMetaData, sig []byte, props *DecryptionProperties) error {
	alg := fmd.EncryptionAlgorithm
	if alg.AesGcmV1 == nil && alg.AesGcmCtrV1 == nil {
		return nil
	}
	if len(sig) == 0 || props == nil {
		return nil
	}
	dec, aad, err := algorithmDecryptor(alg, props)
	if err != nil {
		return err
	}
	_, err = dec.Decrypt(sig, crypto.ModuleAAD(aad, crypto.ModuleFooter, -1, -1, -1))
	return err
}

// convertFileMetaData maps the wire-format FileMetaData onto the public
// data model, converting every row group and applying no MetadataFilter
// (Open calls filterRowGroups on the converted result afterwards).
func convertFileMetaData(fmd *format.FileMetaData) *FileMetadata {
	md := &FileMetadata{
		Version:   fmd.Version,
		Schema:    fmd.Schema,
		NumRows:   fmd.NumRows,
		CreatedBy: fmd.CreatedBy,
	}
	if len(fmd.KeyValueMetadata) > 0 {
		md.KeyValueMetadata = make(map[string]string, len(fmd.KeyValueMetadata))
		for _, kv := range fmd.KeyValueMetadata {
			md.KeyValueMetadata[kv.Key] = kv.Value
		}
	}
	md.RowGroups = make([]RowGroupMetadata, len(fmd.RowGroups))
	for i, rg := range fmd.RowGroups {
		md.RowGroups[i] = convertRowGroup(i, rg)
	}
	return md
}

func convertRowGroup(ordinal int, rg format.RowGroup) RowGroupMetadata {
	out := RowGroupMetadata{
		Ordinal:             ordinal,
		NumRows:             rg.NumRows,
		TotalByteSize:       rg.TotalByteSize,
		TotalCompressedSize: rg.TotalCompressedSize,
		FileOffset:          rg.FileOffset,
	}
	out.Columns = make([]ColumnChunkMetadata, len(rg.Columns))
	for i, cc := range rg.Columns {
		out.Columns[i] = convertColumnChunk(cc)
		out.Columns[i].Ordinal = i
	}
	if out.FileOffset == 0 && len(out.Columns) > 0 {
		out.FileOffset = out.Columns[0].firstByteOffset()
	}
	return out
}

func convertColumnChunk(cc format.ColumnChunk) ColumnChunkMetadata {
	md := cc.MetaData
	out := ColumnChunkMetadata{
		Path:                  ColumnPathFromStrings(md.PathInSchema),
		Type:                  md.Type,
		Codec:                 md.Codec,
		Encodings:             md.Encoding,
		NumValues:             md.NumValues,
		TotalUncompressedSize: md.TotalUncompressedSize,
		TotalCompressedSize:   md.TotalCompressedSize,
		DataPageOffset:        md.DataPageOffset,
		ColumnIndexOffset:     cc.ColumnIndexOffset,
		ColumnIndexLength:     cc.ColumnIndexLength,
		HasColumnIndex:        cc.ColumnIndexLength > 0,
		OffsetIndexOffset:     cc.OffsetIndexOffset,
		OffsetIndexLength:     cc.OffsetIndexLength,
		HasOffsetIndex:        cc.OffsetIndexLength > 0,
		BloomFilterOffset:     md.BloomFilterOffset,
		BloomFilterLength:     md.BloomFilterLength,
		HasBloomFilter:        md.BloomFilterOffset > 0,
		EncryptedMetadata:     cc.EncryptedColumnMetadata,
	}
	if md.DictionaryPageOffset > 0 {
		out.HasDictionaryPage = true
		out.DictionaryPageOffset = md.DictionaryPageOffset
	}
	if hasNonEmptyStatistics(md.Statistics) {
		out.Statistics = md.Statistics
		out.HasStatistics = true
	}
	out.FirstDataPageOffset = out.firstByteOffset()
	return out
}

func hasNonEmptyStatistics(s format.Statistics) bool {
	return s.HasNullCount || s.Min != nil || s.Max != nil || s.MinValue != nil || s.MaxValue != nil
}

// FooterResult is one entry of a ReadFooters batch call: either a decoded
// FileMetadata or the error that prevented decoding it. One source
// failing never aborts the others.
type FooterResult struct {
	Metadata *FileMetadata
	Err      error
}

// ReadFooters decodes the footer of every source concurrently, bounded by
// parallelism (at least 1). This supplements the single-file Open path
// the way the original reader's batch footer-reading helper does, useful
// for callers enumerating many files (e.g. a compaction planner) that
// only need schema/row-group metadata up front.
func ReadFooters(sources []SeekableBytes, parallelism int, decrypt *DecryptionProperties) []FooterResult {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]FooterResult, len(sources))
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			md, _, err := readFooter(src, decrypt)
			results[i] = FooterResult{Metadata: md, Err: err}
			return nil
		})
	}
	_ = g.Wait() // per-source errors are captured in results, never escalated
	return results
}
