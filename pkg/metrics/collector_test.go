package metrics

import (
	"testing"

	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExportsTrackedContextCounters(t *testing.T) {
	ctx := pipectx.New()
	ctx.Stats.PacketsProcessed.Add(42)
	ctx.Stats.PacketsDropped.Add(3)

	c := New("gdpi", nil)
	c.Track("eth0", ctx)

	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	found := map[string]float64{}
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		found[m.Desc().String()] = pb.GetCounter().GetValue()
	}

	var sawProcessed, sawDropped bool
	for desc, v := range found {
		if contains(desc, "packets_processed_total") {
			assert.Equal(t, 42.0, v)
			sawProcessed = true
		}
		if contains(desc, "packets_dropped_total") {
			assert.Equal(t, 3.0, v)
			sawDropped = true
		}
	}
	assert.True(t, sawProcessed)
	assert.True(t, sawDropped)
}

func TestCollector_UntrackStopsExporting(t *testing.T) {
	ctx := pipectx.New()
	c := New("gdpi", nil)
	c.Track("eth0", ctx)
	c.Untrack("eth0")

	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Zero(t, count)
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
