package parqrow

import (
	"github.com/go-kit/log"

	"github.com/columnario/parqrow/codec"
)

// MetadataFilter narrows which row groups a Reader keeps in
// Metadata.RowGroups. Open applies it to the converted row groups after
// the whole footer has been decoded and converted, so row groups it drops
// are still decoded once; they are only left out of every later read.
type MetadataFilter interface {
	filterRowGroups(groups []RowGroupMetadata) []RowGroupMetadata
}

// NoFilter keeps every row group; it's the default.
type noFilter struct{}

func (noFilter) filterRowGroups(groups []RowGroupMetadata) []RowGroupMetadata { return groups }

// NoFilter returns a MetadataFilter that keeps all row groups.
func NoFilter() MetadataFilter { return noFilter{} }

// SkipRowGroups returns a MetadataFilter that drops every row group.
// Used to open a file for its schema/key-value metadata only.
func SkipRowGroups() MetadataFilter { return skipFilter{} }

type skipFilter struct{}

func (skipFilter) filterRowGroups([]RowGroupMetadata) []RowGroupMetadata { return nil }

// RowGroupRange returns a MetadataFilter keeping row groups whose file
// byte offset falls in [start, end).
func RowGroupRange(start, end int64) MetadataFilter {
	return rangeFilter{start: start, end: end}
}

type rangeFilter struct{ start, end int64 }

func (f rangeFilter) filterRowGroups(groups []RowGroupMetadata) []RowGroupMetadata {
	out := groups[:0]
	for _, g := range groups {
		if g.FileOffset >= f.start && g.FileOffset < f.end {
			out = append(out, g)
		}
	}
	return out
}

// RowGroupOrdinals returns a MetadataFilter keeping only the row groups
// at the given ordinals (0-based, in any order).
func RowGroupOrdinals(ordinals ...int) MetadataFilter {
	set := make(map[int]struct{}, len(ordinals))
	for _, o := range ordinals {
		set[o] = struct{}{}
	}
	return ordinalFilter{set: set}
}

type ordinalFilter struct{ set map[int]struct{} }

func (f ordinalFilter) filterRowGroups(groups []RowGroupMetadata) []RowGroupMetadata {
	out := groups[:0]
	for _, g := range groups {
		if _, ok := f.set[g.Ordinal]; ok {
			out = append(out, g)
		}
	}
	return out
}

// DecryptionProperties carries the key material needed to open an
// encrypted file. Either FooterKey (uniform encryption) or a
// ColumnKeyRetriever (per-column keys) must be set for an encrypted file
// to open successfully.
type DecryptionProperties struct {
	FooterKey         []byte
	ColumnKeyRetriever func(columnPath ColumnPath, keyMetadata []byte) ([]byte, error)
	AADPrefix         []byte
}

// Config holds every tunable the reader exposes, set through Option
// functions passed to Open.
type Config struct {
	UseStatsFilter             bool
	UseDictionaryFilter        bool
	UseBloomFilterFilter       bool
	UseColumnIndexFilter       bool
	UsePageChecksumVerification bool
	AsyncReaderEnabled         bool
	MaxAllocationSize          int64
	MetadataFilter             MetadataFilter
	DecryptionProperties       *DecryptionProperties
	Parallelism                int
	Logger                     log.Logger
	CodecRegistry              codec.Registry
	IOExecutor                 Executor
	ProcessingExecutor         Executor
}

// Executor runs a unit of work, typically backed by a bounded goroutine
// pool. The synchronous default runs fn inline.
type Executor interface {
	Submit(fn func())
}

type inlineExecutor struct{}

func (inlineExecutor) Submit(fn func()) { fn() }

type goroutineExecutor struct{}

func (goroutineExecutor) Submit(fn func()) { go fn() }

const defaultMaxAllocationSize = 64 << 20 // 64 MiB, mirrors the original reader's default cap

func defaultConfig() Config {
	return Config{
		UseStatsFilter:              true,
		UseDictionaryFilter:         true,
		UseBloomFilterFilter:        true,
		UseColumnIndexFilter:        true,
		UsePageChecksumVerification: false,
		AsyncReaderEnabled:          false,
		MaxAllocationSize:           defaultMaxAllocationSize,
		MetadataFilter:              NoFilter(),
		Parallelism:                 1,
		Logger:                      log.NewNopLogger(),
		CodecRegistry:               codec.NewRegistry(),
		IOExecutor:                  inlineExecutor{},
		ProcessingExecutor:          inlineExecutor{},
	}
}

// Option configures a Reader at Open time.
type Option func(*Config)

func WithStatsFilter(enabled bool) Option {
	return func(c *Config) { c.UseStatsFilter = enabled }
}

func WithDictionaryFilter(enabled bool) Option {
	return func(c *Config) { c.UseDictionaryFilter = enabled }
}

func WithBloomFilterFilter(enabled bool) Option {
	return func(c *Config) { c.UseBloomFilterFilter = enabled }
}

func WithColumnIndexFilter(enabled bool) Option {
	return func(c *Config) { c.UseColumnIndexFilter = enabled }
}

func WithPageChecksumVerification(enabled bool) Option {
	return func(c *Config) { c.UsePageChecksumVerification = enabled }
}

func WithAsyncReader(enabled bool) Option {
	return func(c *Config) {
		c.AsyncReaderEnabled = enabled
		if enabled {
			c.IOExecutor = goroutineExecutor{}
			c.ProcessingExecutor = goroutineExecutor{}
		}
	}
}

func WithMaxAllocationSize(n int64) Option {
	return func(c *Config) { c.MaxAllocationSize = n }
}

func WithMetadataFilter(f MetadataFilter) Option {
	return func(c *Config) { c.MetadataFilter = f }
}

func WithDecryptionProperties(d *DecryptionProperties) Option {
	return func(c *Config) { c.DecryptionProperties = d }
}

func WithParallelism(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Parallelism = n
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithCodecRegistry(r codec.Registry) Option {
	return func(c *Config) { c.CodecRegistry = r }
}

func WithIOExecutor(e Executor) Option {
	return func(c *Config) { c.IOExecutor = e }
}

func WithProcessingExecutor(e Executor) Option {
	return func(c *Config) { c.ProcessingExecutor = e }
}
