// Package metrics exposes a pipeline's running Stats as a Prometheus
// collector, adapted from the teacher's TCPInfoCollector shape
// (Describe/Collect reading under a lock) but reading fixed atomic
// counters instead of live per-connection TCP_INFO.
package metrics

import (
	"sync"

	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/prometheus/client_golang/prometheus"
)

// field pairs a Stats counter with the Prometheus descriptor it's
// exported as.
type field struct {
	desc   *prometheus.Desc
	valueType prometheus.ValueType
	value  func(pipectx.StatsSnapshot) uint64
}

// Collector exports a pipeline Context's Stats as Prometheus counters.
// One Collector can track several contexts (e.g. one per NIC, or one
// per worker in a future multi-queue orchestrator), each distinguished
// by its own label values.
type Collector struct {
	mu     sync.Mutex
	ctxs   map[string]*pipectx.Context
	fields []field
}

// New creates a Collector exporting the standard set of pipeline
// counters, each metric name prefixed with prefix (e.g. "gdpi").
func New(prefix string, constLabels prometheus.Labels) *Collector {
	c := &Collector{ctxs: make(map[string]*pipectx.Context)}
	c.addFields(prefix, constLabels)
	return c
}

func (c *Collector) addFields(prefix string, constLabels prometheus.Labels) {
	add := func(name, help string, get func(pipectx.StatsSnapshot) uint64) {
		c.fields = append(c.fields, field{
			desc:      prometheus.NewDesc(prefix+"_"+name, help, []string{"context"}, constLabels),
			valueType: prometheus.CounterValue,
			value:     get,
		})
	}

	add("packets_processed_total", "Total packets that entered the pipeline.", func(s pipectx.StatsSnapshot) uint64 { return s.PacketsProcessed })
	add("packets_fragmented_total", "Total packets split by the fragmentation strategy.", func(s pipectx.StatsSnapshot) uint64 { return s.PacketsFragmented })
	add("fake_packets_sent_total", "Total decoy packets injected by the fake-packet strategy.", func(s pipectx.StatsSnapshot) uint64 { return s.FakePacketsSent })
	add("headers_modified_total", "Total HTTP requests rewritten by the header-mangle strategy.", func(s pipectx.StatsSnapshot) uint64 { return s.HeadersModified })
	add("quic_blocked_total", "Total QUIC Initial packets dropped.", func(s pipectx.StatsSnapshot) uint64 { return s.QUICBlocked })
	add("dns_redirected_total", "Total DNS queries redirected to an upstream resolver.", func(s pipectx.StatsSnapshot) uint64 { return s.DNSRedirected })
	add("packets_dropped_total", "Total packets dropped (passive-DPI RSTs).", func(s pipectx.StatsSnapshot) uint64 { return s.PacketsDropped })
}

// Track registers a pipeline Context under label, so its Stats are
// included in subsequent Collect calls.
func (c *Collector) Track(label string, ctx *pipectx.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctxs[label] = ctx
}

// Untrack removes a previously tracked Context.
func (c *Collector) Untrack(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ctxs, label)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, f := range c.fields {
		descs <- f.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for label, ctx := range c.ctxs {
		snap := ctx.Stats.Snapshot()
		for _, f := range c.fields {
			metrics <- prometheus.MustNewConstMetric(f.desc, f.valueType, float64(f.value(snap)), label)
		}
	}
}
