// Package pipectx implements the shared execution context strategies
// receive on every call: connection-tracking tables, the domain filter,
// and running statistics.
package pipectx

import "sync/atomic"

// Stats are the pipeline's running counters. Every field is updated with
// atomic adds so concurrent strategy goroutines (should the orchestrator
// ever fan packets out across workers) never race on them; Snapshot
// returns a point-in-time copy for exporting.
type Stats struct {
	PacketsProcessed  atomic.Uint64
	PacketsFragmented atomic.Uint64
	FakePacketsSent   atomic.Uint64
	HeadersModified   atomic.Uint64
	QUICBlocked       atomic.Uint64
	DNSRedirected     atomic.Uint64
	PacketsDropped    atomic.Uint64
}

// StatsSnapshot is a copyable point-in-time view of Stats, suitable for
// handing to a metrics exporter.
type StatsSnapshot struct {
	PacketsProcessed  uint64
	PacketsFragmented uint64
	FakePacketsSent   uint64
	HeadersModified   uint64
	QUICBlocked       uint64
	DNSRedirected     uint64
	PacketsDropped    uint64
}

// Snapshot copies every counter's current value.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PacketsProcessed:  s.PacketsProcessed.Load(),
		PacketsFragmented: s.PacketsFragmented.Load(),
		FakePacketsSent:   s.FakePacketsSent.Load(),
		HeadersModified:   s.HeadersModified.Load(),
		QUICBlocked:       s.QUICBlocked.Load(),
		DNSRedirected:     s.DNSRedirected.Load(),
		PacketsDropped:    s.PacketsDropped.Load(),
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.PacketsProcessed.Store(0)
	s.PacketsFragmented.Store(0)
	s.FakePacketsSent.Store(0)
	s.HeadersModified.Store(0)
	s.QUICBlocked.Store(0)
	s.DNSRedirected.Store(0)
	s.PacketsDropped.Store(0)
}
