package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("commission_sync").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("commission_sync").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("commission_sync", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("commission_sync", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("commission_sync")))
	require.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("commission_sync")))
}

func TestFailedRunLeavesLastSuccessUnset(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	_ = m.Track("low_stock").End(errors.New("redis down"))
	require.Zero(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("low_stock")))
}

func TestGaugesAndCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetLowStock(4)
	m.AddCommissionsSynced(2)
	m.AddCommissionsSynced(0)

	require.Equal(t, 4.0, testutil.ToFloat64(m.lowStock))
	require.Equal(t, 2.0, testutil.ToFloat64(m.commissionsSynced))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	err := errors.New("x")
	require.Equal(t, err, m.Track("noop").End(err))
	m.SetLowStock(1)
}
