package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Skipped("Leave_Log", 2)
	m.Skipped("Leave_Log", 0)
	m.Skipped("Fees_Log", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("Leave_Log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("Fees_Log")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIgnoreSkips(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Skipped("Students", 3) })
}

func TestUnregistered(t *testing.T) {
	m := New(nil)
	m.RateLimited.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}
