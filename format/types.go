// Package format mirrors the on-disk Thrift compact-protocol structures of
// a columnar file's footer, page headers, and index blobs. Field numbering
// follows the wire layout; this package has no opinion on what the values
// mean beyond that.
package format

type Type int32

const (
	Boolean Type = iota
	Int32
	Int64
	Int96
	Float
	Double
	ByteArray
	FixedLenByteArray
)

type FieldRepetitionType int32

const (
	Required FieldRepetitionType = iota
	Optional
	Repeated
)

type Encoding int32

const (
	Plain Encoding = iota
	_                 // GROUP_VAR_INT, deprecated
	PlainDictionary
	RLE
	BitPacked
	DeltaBinaryPacked
	DeltaLengthByteArray
	DeltaByteArray
	RLEDictionary
	ByteStreamSplit
)

type CompressionCodec int32

const (
	Uncompressed CompressionCodec = iota
	Snappy
	Gzip
	LZO
	Brotli
	LZ4
	Zstd
	Lz4Raw
)

type PageType int32

const (
	DataPage PageType = iota
	IndexPage
	DictionaryPage
	DataPageV2
)

type BoundaryOrder int32

const (
	Unordered BoundaryOrder = iota
	Ascending
	Descending
)

type KeyValue struct {
	Key   string
	Value string
}

type SortingColumn struct {
	ColumnIdx  int32
	Descending bool
	NullsFirst bool
}

type SchemaElement struct {
	Type           *Type
	TypeLength     *int32
	RepetitionType *FieldRepetitionType
	Name           string
	NumChildren    *int32
	ConvertedType  *int32
	Scale          *int32
	Precision      *int32
	FieldID        int32
}

type Statistics struct {
	Max           []byte
	Min           []byte
	NullCount     int64
	HasNullCount  bool
	DistinctCount int64
	MaxValue      []byte
	MinValue      []byte
}

type PageEncodingStats struct {
	PageType PageType
	Encoding Encoding
	Count    int32
}

type ColumnMetaData struct {
	Type                  Type
	Encoding              []Encoding
	PathInSchema          []string
	Codec                 CompressionCodec
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	KeyValueMetadata      []KeyValue
	DataPageOffset        int64
	IndexPageOffset       int64
	DictionaryPageOffset  int64
	Statistics            Statistics
	EncodingStats         []PageEncodingStats
	BloomFilterOffset     int64
	BloomFilterLength     int32
}

type EncryptionWithFooterKey struct{}

type EncryptionWithColumnKey struct {
	PathInSchema []string
	KeyMetadata  []byte
}

type ColumnCryptoMetaData struct {
	EncryptionWithFooterKey *EncryptionWithFooterKey
	EncryptionWithColumnKey *EncryptionWithColumnKey
}

type ColumnChunk struct {
	FilePath                string
	FileOffset              int64
	MetaData                ColumnMetaData
	OffsetIndexOffset       int64
	OffsetIndexLength       int32
	ColumnIndexOffset       int64
	ColumnIndexLength       int32
	CryptoMetadata          *ColumnCryptoMetaData
	EncryptedColumnMetadata []byte
}

type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize        int64
	NumRows              int64
	SortingColumns       []SortingColumn
	FileOffset           int64
	TotalCompressedSize  int64
	Ordinal              int16
}

type AesGcmV1 struct {
	AadPrefix       []byte
	AadFileUnique   []byte
	SupplyAadPrefix bool
}

type AesGcmCtrV1 struct {
	AadPrefix       []byte
	AadFileUnique   []byte
	SupplyAadPrefix bool
}

type EncryptionAlgorithm struct {
	AesGcmV1    *AesGcmV1
	AesGcmCtrV1 *AesGcmCtrV1
}

type FileMetaData struct {
	Version                  int32
	Schema                   []SchemaElement
	NumRows                  int64
	RowGroups                []RowGroup
	KeyValueMetadata         []KeyValue
	CreatedBy                string
	EncryptionAlgorithm      EncryptionAlgorithm
	FooterSigningKeyMetadata []byte
}

type FileCryptoMetaData struct {
	EncryptionAlgorithm EncryptionAlgorithm
	KeyMetadata         []byte
}

type DataPageHeader struct {
	NumValues               int32
	Encoding                Encoding
	DefinitionLevelEncoding Encoding
	RepetitionLevelEncoding Encoding
	Statistics              Statistics
}

type DataPageHeaderV2 struct {
	NumValues                  int32
	NumNulls                   int32
	NumRows                    int32
	Encoding                   Encoding
	DefinitionLevelsByteLength int32
	RepetitionLevelsByteLength int32
	IsCompressed               *bool
	Statistics                 Statistics
}

type DictionaryPageHeader struct {
	NumValues int32
	Encoding  Encoding
	IsSorted  bool
}

type IndexPageHeader struct{}

type PageHeader struct {
	Type                 PageType
	UncompressedPageSize int32
	CompressedPageSize   int32
	CRC                  int32
	HasCRC               bool
	DataPageHeader       *DataPageHeader
	IndexPageHeader      *IndexPageHeader
	DictionaryPageHeader *DictionaryPageHeader
	DataPageHeaderV2     *DataPageHeaderV2
}

type PageLocation struct {
	Offset             int64
	CompressedPageSize int32
	FirstRowIndex      int64
}

type OffsetIndex struct {
	PageLocations               []PageLocation
	UnencodedByteArrayDataBytes []int64
}

type ColumnIndex struct {
	NullPages                []bool
	MinValues                [][]byte
	MaxValues                [][]byte
	BoundaryOrder            BoundaryOrder
	NullCounts               []int64
	RepetitionLevelHistogram []int64
	DefinitionLevelHistogram []int64
}

type SplitBlockAlgorithm struct{}

type BloomFilterAlgorithm struct {
	Block *SplitBlockAlgorithm
}

type XxHash struct{}

type BloomFilterHash struct {
	XxHash *XxHash
}

type BloomFilterUncompressed struct{}

type BloomFilterCompression struct {
	Uncompressed *BloomFilterUncompressed
}

type BloomFilterHeader struct {
	NumBytes    int32
	Algorithm   BloomFilterAlgorithm
	Hash        BloomFilterHash
	Compression BloomFilterCompression
}
