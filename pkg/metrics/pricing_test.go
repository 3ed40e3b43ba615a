package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestIncResolutionCountsBySourceAndPromo(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPricingMetrics(reg)

	m.IncResolution(SourceDefaultTable, false)
	m.IncResolution(SourceDefaultTable, false)
	m.IncResolution(SourceBasePrice, true)

	family := gatherFamily(t, reg, "price_resolutions_total")
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 2)

	counts := map[string]float64{}
	for _, metric := range family.GetMetric() {
		labels := map[string]string{}
		for _, pair := range metric.GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		counts[labels["source"]+"/"+labels["promo"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), counts[SourceDefaultTable+"/false"])
	assert.Equal(t, float64(1), counts[SourceBasePrice+"/true"])
}

func TestObserveDurationRecordsSeconds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPricingMetrics(reg)

	m.ObserveDuration("resolve", 150*time.Millisecond)

	family := gatherFamily(t, reg, "pricing_operation_duration_seconds")
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 1)
	histogram := family.GetMetric()[0].GetHistogram()
	assert.EqualValues(t, 1, histogram.GetSampleCount())
	assert.InDelta(t, 0.15, histogram.GetSampleSum(), 0.001)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PricingMetrics
	m.IncResolution(SourceNone, false)
	m.ObserveDuration("resolve", time.Second)
	m.IncCache("hit")

	unregistered := NewPricingMetrics(nil)
	unregistered.IncResolution(SourceNone, false)
	unregistered.IncCache("miss")
}
