package parqrow

import "github.com/prometheus/client_golang/prometheus"

// metrics holds per-Reader counters, grounded on the teacher's
// tempodb/backend/*/instrumentation.go pattern of wrapping backend I/O
// with prometheus counters. Every Reader gets its own registered-or-not
// set so opening many files in a process doesn't panic on duplicate
// registration; callers that want metrics exported call Collectors() and
// register them with their own registry.
type metrics struct {
	rowGroupsPrunedStats       prometheus.Counter
	rowGroupsPrunedDictionary  prometheus.Counter
	rowGroupsPrunedBloom       prometheus.Counter
	rowGroupsPrunedColumnIndex prometheus.Counter
	checksumFailures           prometheus.Counter
	pagesDecoded               prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		rowGroupsPrunedStats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parqrow_row_groups_pruned_stats_total",
			Help: "Row groups eliminated by the statistics filter level.",
		}),
		rowGroupsPrunedDictionary: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parqrow_row_groups_pruned_dictionary_total",
			Help: "Row groups eliminated by the dictionary filter level.",
		}),
		rowGroupsPrunedBloom: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parqrow_row_groups_pruned_bloom_total",
			Help: "Row groups eliminated by the bloom filter level.",
		}),
		rowGroupsPrunedColumnIndex: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parqrow_row_groups_pruned_column_index_total",
			Help: "Row groups eliminated by the column index filter level.",
		}),
		checksumFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parqrow_page_checksum_failures_total",
			Help: "Pages whose CRC-32 did not match their compressed bytes.",
		}),
		pagesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parqrow_pages_decoded_total",
			Help: "Pages successfully decoded across all chunks.",
		}),
	}
}

// Collectors returns this Reader's metrics for registration with a
// prometheus.Registerer of the caller's choosing.
func (r *Reader) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.metrics.rowGroupsPrunedStats,
		r.metrics.rowGroupsPrunedDictionary,
		r.metrics.rowGroupsPrunedBloom,
		r.metrics.rowGroupsPrunedColumnIndex,
		r.metrics.checksumFailures,
		r.metrics.pagesDecoded,
	}
}

// BytesRead returns the cumulative bytes read from the underlying source.
func (r *Reader) BytesRead() uint64 { return r.io.BytesRead() }
