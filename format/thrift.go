package format

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Thrift compact-protocol type tags, as laid out on the wire.
const (
	typeStop   = 0
	typeTrue   = 1
	typeFalse  = 2
	typeI8     = 3
	typeI16    = 4
	typeI32    = 5
	typeI64    = 6
	typeDouble = 7
	typeBinary = 8
	typeList   = 9
	typeSet    = 10
	typeMap    = 11
	typeStruct = 12
)

// decoder reads Thrift compact-protocol values out of an in-memory byte
// slice. Footers, page headers, and index blobs are all read in one bulk
// seek+read (per spec.md §4.1/§4.6), so a slice-backed cursor is all the
// row-group reader ever needs; there is no streaming variant.
type decoder struct {
	data []byte
	pos  int
}

func newDecoder(b []byte) *decoder { return &decoder{data: b} }

// consumed reports how many bytes have been read so far, letting callers
// (the chunk decoder, principally) learn the on-wire size of a page header
// without a second pass.
func (d *decoder) consumed() int { return d.pos }

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := d.data[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) readSlice(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, io.ErrUnexpectedEOF
	}
	s := d.data[d.pos : d.pos+n]
	d.pos += n
	return s, nil
}

func (d *decoder) skip(n int) error {
	if n < 0 || d.pos+n > len(d.data) {
		return io.ErrUnexpectedEOF
	}
	d.pos += n
	return nil
}

func (d *decoder) readUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; ; i++ {
		if d.pos >= len(d.data) {
			return 0, io.ErrUnexpectedEOF
		}
		v := d.data[d.pos]
		d.pos++
		if v < 0x80 {
			if i >= binary.MaxVarintLen64 || (i == binary.MaxVarintLen64-1 && v > 1) {
				return 0, fmt.Errorf("format: varint overflows uint64")
			}
			return x | uint64(v)<<s, nil
		}
		x |= uint64(v&0x7f) << s
		s += 7
	}
}

func (d *decoder) readVarint() (int64, error) {
	ux, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	x := int64(ux >> 1)
	if ux&1 != 0 {
		x = ^x
	}
	return x, nil
}

func (d *decoder) readLength() (int, error) {
	n, err := d.readUvarint()
	return int(n), err
}

func (d *decoder) readBytesRef() ([]byte, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return d.readSlice(n)
}

func (d *decoder) readString() (string, error) {
	b, err := d.readBytesRef()
	if err != nil || len(b) == 0 {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) readI32() (int32, error) {
	v, err := d.readVarint()
	return int32(v), err
}

func (d *decoder) readI64() (int64, error) {
	return d.readVarint()
}

func (d *decoder) readI16() (int16, error) {
	v, err := d.readVarint()
	return int16(v), err
}

func (d *decoder) readBool(typ byte) (bool, error) {
	switch typ {
	case typeTrue:
		return true, nil
	case typeFalse:
		return false, nil
	default:
		return false, fmt.Errorf("format: expected BOOL, got type %d", typ)
	}
}

func (d *decoder) readField(lastID int16) (id int16, typ byte, err error) {
	v, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	typ = v & 0x0f
	if typ == typeStop {
		return 0, typeStop, nil
	}
	if delta := v >> 4; delta != 0 {
		id = lastID + int16(delta)
	} else {
		raw, err := d.readVarint()
		if err != nil {
			return 0, 0, err
		}
		id = int16(raw)
	}
	return id, typ, nil
}

func (d *decoder) readListHeader() (size int, elemType byte, err error) {
	v, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	elemType = v & 0x0f
	size = int(v >> 4)
	if size == 0x0f {
		n, err := d.readUvarint()
		if err != nil {
			return 0, 0, err
		}
		size = int(n)
	}
	return size, elemType, nil
}

func (d *decoder) skipValue(typ byte) error {
	switch typ {
	case typeTrue, typeFalse:
		return nil
	case typeI8:
		return d.skip(1)
	case typeI16, typeI32, typeI64:
		_, err := d.readVarint()
		return err
	case typeDouble:
		return d.skip(8)
	case typeBinary:
		n, err := d.readLength()
		if err != nil {
			return err
		}
		return d.skip(n)
	case typeList, typeSet:
		size, elemType, err := d.readListHeader()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := d.skipValue(elemType); err != nil {
				return err
			}
		}
		return nil
	case typeMap:
		n, err := d.readUvarint()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		kv, err := d.readByte()
		if err != nil {
			return err
		}
		keyType, valType := kv>>4, kv&0x0f
		for i := uint64(0); i < n; i++ {
			if err := d.skipValue(keyType); err != nil {
				return err
			}
			if err := d.skipValue(valType); err != nil {
				return err
			}
		}
		return nil
	case typeStruct:
		return d.skipStruct()
	default:
		return fmt.Errorf("format: unknown thrift type %d", typ)
	}
}

func (d *decoder) skipStruct() error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		if err := d.skipValue(typ); err != nil {
			return err
		}
		lastID = id
	}
}

func expect(field string, got, want byte) error {
	if got != want {
		return fmt.Errorf("format: %s: expected thrift type %d, got %d", field, want, got)
	}
	return nil
}

func (d *decoder) decodeKeyValue(kv *KeyValue) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			if err := expect("KeyValue.Key", typ, typeBinary); err != nil {
				return err
			}
			kv.Key, err = d.readString()
		case 2:
			if err := expect("KeyValue.Value", typ, typeBinary); err != nil {
				return err
			}
			kv.Value, err = d.readString()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeSortingColumn(sc *SortingColumn) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			sc.ColumnIdx, err = d.readI32()
		case 2:
			sc.Descending, err = d.readBool(typ)
		case 3:
			sc.NullsFirst, err = d.readBool(typ)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeStatistics(st *Statistics) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			st.Max, err = d.readBytesRef()
		case 2:
			st.Min, err = d.readBytesRef()
		case 3:
			st.NullCount, err = d.readVarint()
			st.HasNullCount = err == nil
		case 4:
			st.DistinctCount, err = d.readVarint()
		case 5:
			st.MaxValue, err = d.readBytesRef()
		case 6:
			st.MinValue, err = d.readBytesRef()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeSchemaElement(se *SchemaElement) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			v, e := d.readI32()
			err = e
			t := Type(v)
			se.Type = &t
		case 2:
			v, e := d.readI32()
			err = e
			se.TypeLength = &v
		case 3:
			v, e := d.readI32()
			err = e
			rt := FieldRepetitionType(v)
			se.RepetitionType = &rt
		case 4:
			se.Name, err = d.readString()
		case 5:
			v, e := d.readI32()
			err = e
			se.NumChildren = &v
		case 6:
			v, e := d.readI32()
			err = e
			se.ConvertedType = &v
		case 7:
			v, e := d.readI32()
			err = e
			se.Scale = &v
		case 8:
			v, e := d.readI32()
			err = e
			se.Precision = &v
		case 9:
			se.FieldID, err = d.readI32()
		case 10:
			err = d.skipStruct() // logical type detail isn't needed by the row-group reader
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodePageEncodingStats(p *PageEncodingStats) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			v, e := d.readI32()
			err = e
			p.PageType = PageType(v)
		case 2:
			v, e := d.readI32()
			err = e
			p.Encoding = Encoding(v)
		case 3:
			p.Count, err = d.readI32()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeColumnMetaData(cmd *ColumnMetaData) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			v, e := d.readI32()
			err = e
			cmd.Type = Type(v)
		case 2:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnMetaData.Encoding", elemType, typeI32); err != nil {
				return err
			}
			cmd.Encoding = make([]Encoding, size)
			for i := 0; i < size; i++ {
				v, e := d.readI32()
				if e != nil {
					return e
				}
				cmd.Encoding[i] = Encoding(v)
			}
		case 3:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnMetaData.PathInSchema", elemType, typeBinary); err != nil {
				return err
			}
			cmd.PathInSchema = make([]string, size)
			for i := 0; i < size; i++ {
				if cmd.PathInSchema[i], err = d.readString(); err != nil {
					return err
				}
			}
		case 4:
			v, e := d.readI32()
			err = e
			cmd.Codec = CompressionCodec(v)
		case 5:
			cmd.NumValues, err = d.readI64()
		case 6:
			cmd.TotalUncompressedSize, err = d.readI64()
		case 7:
			cmd.TotalCompressedSize, err = d.readI64()
		case 8:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnMetaData.KeyValueMetadata", elemType, typeStruct); err != nil {
				return err
			}
			cmd.KeyValueMetadata = make([]KeyValue, size)
			for i := 0; i < size; i++ {
				if err := d.decodeKeyValue(&cmd.KeyValueMetadata[i]); err != nil {
					return err
				}
			}
		case 9:
			cmd.DataPageOffset, err = d.readI64()
		case 10:
			cmd.IndexPageOffset, err = d.readI64()
		case 11:
			cmd.DictionaryPageOffset, err = d.readI64()
		case 12:
			err = d.decodeStatistics(&cmd.Statistics)
		case 13:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnMetaData.EncodingStats", elemType, typeStruct); err != nil {
				return err
			}
			cmd.EncodingStats = make([]PageEncodingStats, size)
			for i := 0; i < size; i++ {
				if err := d.decodePageEncodingStats(&cmd.EncodingStats[i]); err != nil {
					return err
				}
			}
		case 14:
			cmd.BloomFilterOffset, err = d.readI64()
		case 15:
			cmd.BloomFilterLength, err = d.readI32()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeEncryptionWithColumnKey(e *EncryptionWithColumnKey) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			size, elemType, e2 := d.readListHeader()
			if e2 != nil {
				return e2
			}
			if err := expect("EncryptionWithColumnKey.PathInSchema", elemType, typeBinary); err != nil {
				return err
			}
			e.PathInSchema = make([]string, size)
			for i := 0; i < size; i++ {
				if e.PathInSchema[i], err = d.readString(); err != nil {
					return err
				}
			}
		case 2:
			e.KeyMetadata, err = d.readBytesRef()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeColumnCryptoMetaData(ccmd *ColumnCryptoMetaData) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			ccmd.EncryptionWithFooterKey = &EncryptionWithFooterKey{}
			err = d.skipStruct()
		case 2:
			ccmd.EncryptionWithColumnKey = &EncryptionWithColumnKey{}
			err = d.decodeEncryptionWithColumnKey(ccmd.EncryptionWithColumnKey)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeColumnChunk(cc *ColumnChunk) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			cc.FilePath, err = d.readString()
		case 2:
			cc.FileOffset, err = d.readI64()
		case 3:
			err = d.decodeColumnMetaData(&cc.MetaData)
		case 4:
			cc.OffsetIndexOffset, err = d.readI64()
		case 5:
			cc.OffsetIndexLength, err = d.readI32()
		case 6:
			cc.ColumnIndexOffset, err = d.readI64()
		case 7:
			cc.ColumnIndexLength, err = d.readI32()
		case 8:
			cc.CryptoMetadata = &ColumnCryptoMetaData{}
			err = d.decodeColumnCryptoMetaData(cc.CryptoMetadata)
		case 9:
			cc.EncryptedColumnMetadata, err = d.readBytesRef()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeRowGroup(rg *RowGroup) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("RowGroup.Columns", elemType, typeStruct); err != nil {
				return err
			}
			rg.Columns = make([]ColumnChunk, size)
			for i := 0; i < size; i++ {
				if err := d.decodeColumnChunk(&rg.Columns[i]); err != nil {
					return err
				}
			}
		case 2:
			rg.TotalByteSize, err = d.readI64()
		case 3:
			rg.NumRows, err = d.readI64()
		case 4:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("RowGroup.SortingColumns", elemType, typeStruct); err != nil {
				return err
			}
			rg.SortingColumns = make([]SortingColumn, size)
			for i := 0; i < size; i++ {
				if err := d.decodeSortingColumn(&rg.SortingColumns[i]); err != nil {
					return err
				}
			}
		case 5:
			rg.FileOffset, err = d.readI64()
		case 6:
			rg.TotalCompressedSize, err = d.readI64()
		case 7:
			rg.Ordinal, err = d.readI16()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeAesGcmV1(a *AesGcmV1) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			a.AadPrefix, err = d.readBytesRef()
		case 2:
			a.AadFileUnique, err = d.readBytesRef()
		case 3:
			a.SupplyAadPrefix, err = d.readBool(typ)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeAesGcmCtrV1(a *AesGcmCtrV1) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			a.AadPrefix, err = d.readBytesRef()
		case 2:
			a.AadFileUnique, err = d.readBytesRef()
		case 3:
			a.SupplyAadPrefix, err = d.readBool(typ)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeEncryptionAlgorithm(ea *EncryptionAlgorithm) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			ea.AesGcmV1 = &AesGcmV1{}
			err = d.decodeAesGcmV1(ea.AesGcmV1)
		case 2:
			ea.AesGcmCtrV1 = &AesGcmCtrV1{}
			err = d.decodeAesGcmCtrV1(ea.AesGcmCtrV1)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeFileMetaData(fmd *FileMetaData) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			fmd.Version, err = d.readI32()
		case 2:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("FileMetaData.Schema", elemType, typeStruct); err != nil {
				return err
			}
			fmd.Schema = make([]SchemaElement, size)
			for i := 0; i < size; i++ {
				if err := d.decodeSchemaElement(&fmd.Schema[i]); err != nil {
					return err
				}
			}
		case 3:
			fmd.NumRows, err = d.readI64()
		case 4:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("FileMetaData.RowGroups", elemType, typeStruct); err != nil {
				return err
			}
			fmd.RowGroups = make([]RowGroup, size)
			for i := 0; i < size; i++ {
				if err := d.decodeRowGroup(&fmd.RowGroups[i]); err != nil {
					return err
				}
			}
		case 5:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("FileMetaData.KeyValueMetadata", elemType, typeStruct); err != nil {
				return err
			}
			fmd.KeyValueMetadata = make([]KeyValue, size)
			for i := 0; i < size; i++ {
				if err := d.decodeKeyValue(&fmd.KeyValueMetadata[i]); err != nil {
					return err
				}
			}
		case 6:
			fmd.CreatedBy, err = d.readString()
		case 7:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			err = d.skip(0)
			for i := 0; i < size && elemType == typeStruct; i++ {
				if err := d.skipStruct(); err != nil {
					return err
				}
			}
		case 8:
			err = d.decodeEncryptionAlgorithm(&fmd.EncryptionAlgorithm)
		case 9:
			fmd.FooterSigningKeyMetadata, err = d.readBytesRef()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeFileCryptoMetaData(fcmd *FileCryptoMetaData) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			err = d.decodeEncryptionAlgorithm(&fcmd.EncryptionAlgorithm)
		case 2:
			fcmd.KeyMetadata, err = d.readBytesRef()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodePageLocation(p *PageLocation) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			p.Offset, err = d.readI64()
		case 2:
			p.CompressedPageSize, err = d.readI32()
		case 3:
			p.FirstRowIndex, err = d.readI64()
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeOffsetIndex(o *OffsetIndex) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("OffsetIndex.PageLocations", elemType, typeStruct); err != nil {
				return err
			}
			o.PageLocations = make([]PageLocation, size)
			for i := 0; i < size; i++ {
				if err := d.decodePageLocation(&o.PageLocations[i]); err != nil {
					return err
				}
			}
		case 2:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("OffsetIndex.UnencodedByteArrayDataBytes", elemType, typeI64); err != nil {
				return err
			}
			o.UnencodedByteArrayDataBytes = make([]int64, size)
			for i := 0; i < size; i++ {
				if o.UnencodedByteArrayDataBytes[i], err = d.readI64(); err != nil {
					return err
				}
			}
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeColumnIndex(c *ColumnIndex) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if elemType != typeTrue && elemType != typeFalse {
				return fmt.Errorf("format: ColumnIndex.NullPages: expected BOOL elements, got %d", elemType)
			}
			c.NullPages = make([]bool, size)
			for i := 0; i < size; i++ {
				v, e := d.readByte()
				if e != nil {
					return e
				}
				c.NullPages[i] = v == typeTrue
			}
		case 2:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnIndex.MinValues", elemType, typeBinary); err != nil {
				return err
			}
			c.MinValues = make([][]byte, size)
			for i := 0; i < size; i++ {
				if c.MinValues[i], err = d.readBytesRef(); err != nil {
					return err
				}
			}
		case 3:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnIndex.MaxValues", elemType, typeBinary); err != nil {
				return err
			}
			c.MaxValues = make([][]byte, size)
			for i := 0; i < size; i++ {
				if c.MaxValues[i], err = d.readBytesRef(); err != nil {
					return err
				}
			}
		case 4:
			v, e := d.readI32()
			err = e
			c.BoundaryOrder = BoundaryOrder(v)
		case 5:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnIndex.NullCounts", elemType, typeI64); err != nil {
				return err
			}
			c.NullCounts = make([]int64, size)
			for i := 0; i < size; i++ {
				if c.NullCounts[i], err = d.readI64(); err != nil {
					return err
				}
			}
		case 6:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnIndex.RepetitionLevelHistogram", elemType, typeI64); err != nil {
				return err
			}
			c.RepetitionLevelHistogram = make([]int64, size)
			for i := 0; i < size; i++ {
				if c.RepetitionLevelHistogram[i], err = d.readI64(); err != nil {
					return err
				}
			}
		case 7:
			size, elemType, e := d.readListHeader()
			if e != nil {
				return e
			}
			if err := expect("ColumnIndex.DefinitionLevelHistogram", elemType, typeI64); err != nil {
				return err
			}
			c.DefinitionLevelHistogram = make([]int64, size)
			for i := 0; i < size; i++ {
				if c.DefinitionLevelHistogram[i], err = d.readI64(); err != nil {
					return err
				}
			}
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeDataPageHeader(h *DataPageHeader) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			h.NumValues, err = d.readI32()
		case 2:
			v, e := d.readI32()
			err = e
			h.Encoding = Encoding(v)
		case 3:
			v, e := d.readI32()
			err = e
			h.DefinitionLevelEncoding = Encoding(v)
		case 4:
			v, e := d.readI32()
			err = e
			h.RepetitionLevelEncoding = Encoding(v)
		case 5:
			err = d.decodeStatistics(&h.Statistics)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeDictionaryPageHeader(h *DictionaryPageHeader) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			h.NumValues, err = d.readI32()
		case 2:
			v, e := d.readI32()
			err = e
			h.Encoding = Encoding(v)
		case 3:
			h.IsSorted, err = d.readBool(typ)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeDataPageHeaderV2(h *DataPageHeaderV2) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			h.NumValues, err = d.readI32()
		case 2:
			h.NumNulls, err = d.readI32()
		case 3:
			h.NumRows, err = d.readI32()
		case 4:
			v, e := d.readI32()
			err = e
			h.Encoding = Encoding(v)
		case 5:
			h.DefinitionLevelsByteLength, err = d.readI32()
		case 6:
			h.RepetitionLevelsByteLength, err = d.readI32()
		case 7:
			v, e := d.readBool(typ)
			err = e
			h.IsCompressed = &v
		case 8:
			err = d.decodeStatistics(&h.Statistics)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodePageHeader(h *PageHeader) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			v, e := d.readI32()
			err = e
			h.Type = PageType(v)
		case 2:
			h.UncompressedPageSize, err = d.readI32()
		case 3:
			h.CompressedPageSize, err = d.readI32()
		case 4:
			h.CRC, err = d.readI32()
			h.HasCRC = err == nil
		case 5:
			h.DataPageHeader = &DataPageHeader{}
			err = d.decodeDataPageHeader(h.DataPageHeader)
		case 6:
			h.IndexPageHeader = &IndexPageHeader{}
			err = d.skipStruct()
		case 7:
			h.DictionaryPageHeader = &DictionaryPageHeader{}
			err = d.decodeDictionaryPageHeader(h.DictionaryPageHeader)
		case 8:
			h.DataPageHeaderV2 = &DataPageHeaderV2{}
			err = d.decodeDataPageHeaderV2(h.DataPageHeaderV2)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeBloomFilterHeader(h *BloomFilterHeader) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		switch id {
		case 1:
			h.NumBytes, err = d.readI32()
		case 2:
			err = d.decodeBloomFilterAlgorithm(&h.Algorithm)
		case 3:
			err = d.decodeBloomFilterHash(&h.Hash)
		case 4:
			err = d.decodeBloomFilterCompression(&h.Compression)
		default:
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeBloomFilterAlgorithm(a *BloomFilterAlgorithm) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		if id == 1 {
			a.Block = &SplitBlockAlgorithm{}
			err = d.skipStruct()
		} else {
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeBloomFilterHash(h *BloomFilterHash) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		if id == 1 {
			h.XxHash = &XxHash{}
			err = d.skipStruct()
		} else {
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

func (d *decoder) decodeBloomFilterCompression(c *BloomFilterCompression) error {
	var lastID int16
	for {
		id, typ, err := d.readField(lastID)
		if err != nil {
			return err
		}
		if typ == typeStop {
			return nil
		}
		if id == 1 {
			c.Uncompressed = &BloomFilterUncompressed{}
			err = d.skipStruct()
		} else {
			err = d.skipValue(typ)
		}
		if err != nil {
			return err
		}
		lastID = id
	}
}

// DecodeFileMetaData decodes a FileMetaData from compact-protocol bytes.
func DecodeFileMetaData(b []byte) (*FileMetaData, error) {
	fmd, _, err := DecodeFileMetaDataWithLength(b)
	return fmd, err
}

// DecodeFileMetaDataWithLength decodes a FileMetaData and also reports how
// many leading bytes of b the thrift struct consumed. A plaintext footer in
// signed-footer mode appends a GCM signature module after those bytes; the
// consumed count is what lets a caller locate it without being told the
// split point out of band.
func DecodeFileMetaDataWithLength(b []byte) (*FileMetaData, int, error) {
	fmd := &FileMetaData{}
	d := newDecoder(b)
	if err := d.decodeFileMetaData(fmd); err != nil {
		return nil, 0, err
	}
	return fmd, d.consumed(), nil
}

// DecodeFileCryptoMetaData decodes the unencrypted FileCryptoMetaData
// prefix of an encrypted-footer file.
func DecodeFileCryptoMetaData(b []byte) (*FileCryptoMetaData, int, error) {
	fcmd := &FileCryptoMetaData{}
	d := newDecoder(b)
	if err := d.decodeFileCryptoMetaData(fcmd); err != nil {
		return nil, 0, err
	}
	return fcmd, d.consumed(), nil
}

// DecodeColumnIndex decodes a ColumnIndex from compact-protocol bytes.
func DecodeColumnIndex(b []byte) (*ColumnIndex, error) {
	ci := &ColumnIndex{}
	if err := newDecoder(b).decodeColumnIndex(ci); err != nil {
		return nil, err
	}
	return ci, nil
}

// DecodeOffsetIndex decodes an OffsetIndex from compact-protocol bytes.
func DecodeOffsetIndex(b []byte) (*OffsetIndex, error) {
	oi := &OffsetIndex{}
	if err := newDecoder(b).decodeOffsetIndex(oi); err != nil {
		return nil, err
	}
	return oi, nil
}

// DecodeBloomFilterHeader decodes a BloomFilterHeader and reports how many
// bytes of b it consumed, so the caller can seek past it to the bitset.
func DecodeBloomFilterHeader(b []byte) (*BloomFilterHeader, int, error) {
	h := &BloomFilterHeader{}
	d := newDecoder(b)
	if err := d.decodeBloomFilterHeader(h); err != nil {
		return nil, 0, err
	}
	return h, d.consumed(), nil
}

// DecodePageHeader decodes a PageHeader and reports how many bytes of b it
// consumed, so the chunk decoder knows where the page payload begins.
func DecodePageHeader(b []byte) (*PageHeader, int, error) {
	h := &PageHeader{}
	d := newDecoder(b)
	if err := d.decodePageHeader(h); err != nil {
		return nil, 0, err
	}
	return h, d.consumed(), nil
}
