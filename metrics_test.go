package parqrow

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface {
	Write(*dto.Metric) error
}) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsCollectorsAndPageCount(t *testing.T) {
	file := buildFixtureFile([]byte("hello"))
	r, err := Open(memSource{b: file})
	require.NoError(t, err)
	defer r.Close()

	assert.Len(t, r.Collectors(), 6)
	assert.Zero(t, r.BytesRead())

	pages, err := r.ReadNextRowGroup()
	require.NoError(t, err)
	_, err = pages.Columns[0].Queue.next()
	require.NoError(t, err)

	assert.EqualValues(t, 1, counterValue(t, r.metrics.pagesDecoded))
	assert.NotZero(t, r.BytesRead(), "reading a row group should move the byte counter")
}
