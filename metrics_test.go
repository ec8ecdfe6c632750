package sharedkernel

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NoopMetrics{}

	m.IncCounter("test_counter", map[string]string{"tag": "value"})
	m.ObserveHistogram("test_histogram", 1.5, map[string]string{"tag": "value"})
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "kernel")

	t.Run("IncCounter", func(t *testing.T) {
		tags := map[string]string{"tag2": "value2", "tag1": "value1"}

		m.IncCounter("test_counter", tags)
		m.IncCounter("test_counter", tags)

		vec, ok := m.counters["test_counter"]
		require.True(t, ok, "counter should be registered")
		assert.Equal(t, 2.0, testutil.ToFloat64(vec.With(tags)))
	})

	t.Run("ObserveHistogram", func(t *testing.T) {
		m.ObserveHistogram("test_histogram", 2.5, map[string]string{"tag1": "value1"})
		m.ObserveHistogram("test_histogram", 0.5, map[string]string{"tag1": "value1"})

		n, err := testutil.GatherAndCount(reg, "kernel_test_histogram")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("registered once", func(t *testing.T) {
		count, err := testutil.GatherAndCount(reg, "kernel_test_counter")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestPrometheusMetricsDefaultRegisterer(t *testing.T) {
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	t.Cleanup(func() { prometheus.DefaultRegisterer = prev })

	m := NewPrometheusMetrics(nil, "")
	assert.NotPanics(t, func() { m.IncCounter("default_counter", nil) })
}

func TestLabelNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, labelNames(map[string]string{"c": "", "a": "", "b": ""}))
}
