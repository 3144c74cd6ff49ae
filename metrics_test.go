package lzblock

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersCollector(t *testing.T) {
	job := NewJob(Config{})
	_, err := job.Run(make([]byte, BlockSize))
	require.NoError(t, err)

	col := NewCountersCollector(job.Counters)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(col))

	require.Equal(t, 10, testutil.CollectAndCount(col))

	expected := strings.NewReader(`
# HELP lzblock_bytes_processed_total Input bytes covered by committed results.
# TYPE lzblock_bytes_processed_total counter
lzblock_bytes_processed_total 32768
`)
	require.NoError(t, testutil.CollectAndCompare(col, expected, "lzblock_bytes_processed_total"))
}
