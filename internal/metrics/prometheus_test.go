package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestSetRingVersion(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetRingVersion(42)
	assert.Equal(t, float64(42), gaugeValue(t, m.RingVersion))
}

func TestRecordPendingRangeRecompute(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordPendingRangeRecompute(3)
	assert.Equal(t, float64(3), gaugeValue(t, m.PendingRangeCount))
}

func TestRecordMutation_IncrementsCounter(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordMutation("update_normal_tokens", "ok", 0.01)

	var out dto.Metric
	require.NoError(t, m.MutationsTotal.WithLabelValues("update_normal_tokens", "ok").Write(&out))
	assert.Equal(t, float64(1), out.GetCounter().GetValue())
}
