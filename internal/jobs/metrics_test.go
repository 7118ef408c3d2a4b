package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("sessions:cleanup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("sessions:cleanup").End(boom), boom)

	assert.Equal(t, 1.0, counterValue(t, reg, "procureflow_jobs_total", map[string]string{"job": "sessions:cleanup", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "procureflow_jobs_total", map[string]string{"job": "sessions:cleanup", "status": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "procureflow_jobs_failures_total", map[string]string{"job": "sessions:cleanup"}))
}

func TestAddPrunedIgnoresEmptyRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddPruned("sessions", 0)
	m.AddPruned("sessions", 4)
	assert.Equal(t, 4.0, counterValue(t, reg, "procureflow_jobs_pruned_rows_total", map[string]string{"kind": "sessions"}))

	var nilMetrics *Metrics
	nilMetrics.AddPruned("sessions", 1)
	assert.NoError(t, nilMetrics.Track("noop").End(nil))
}
