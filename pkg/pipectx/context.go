package pipectx

import (
	"github.com/gdpi-go/engine/pkg/conntrack"
	"github.com/gdpi-go/engine/pkg/filter"
	"github.com/gdpi-go/engine/pkg/packet"
)

// Context is the shared, per-pipeline state every strategy's Apply call
// receives: connection-tracking tables, a domain filter, and the running
// statistics the orchestrator exports.
type Context struct {
	Stats  Stats
	Filter *filter.DomainFilter

	TCPHop *conntrack.TCPHopTable
	DNS    *conntrack.DNSQueryTable
}

// New creates a context with a disabled (pass-everything) filter and
// default table timeouts.
func New() *Context {
	return &Context{
		Filter: filter.New(),
		TCPHop: conntrack.NewTCPHopTable(),
		DNS:    conntrack.NewDNSQueryTable(),
	}
}

// NewWithFilter creates a context using a caller-supplied filter — the
// orchestrator builds one from Config and passes it in here.
func NewWithFilter(f *filter.DomainFilter) *Context {
	return &Context{
		Filter: f,
		TCPHop: conntrack.NewTCPHopTable(),
		DNS:    conntrack.NewDNSQueryTable(),
	}
}

// ShouldBypass reports whether hostname should have bypass strategies
// applied, per the context's domain filter.
func (c *Context) ShouldBypass(hostname string) bool {
	return c.Filter.Check(hostname) == filter.ApplyBypass
}

// RecordConnectionTTL records p's TTL in the TCP hop table if p is a
// SYN-ACK — the moment the original engine captures the server's
// distance for later Auto-TTL calculations.
func (c *Context) RecordConnectionTTL(p *packet.Packet) {
	if !p.IsSYNACK() {
		return
	}
	c.TCPHop.Record(p.SrcAddr, p.SrcPort, p.DstAddr, p.DstPort, p.TTL)
}

// ConnectionTTL looks up the hop-table TTL recorded for p's connection,
// keyed the other way around from RecordConnectionTTL: p here is the
// outbound packet asking "what TTL did the server's SYN-ACK arrive
// with".
func (c *Context) ConnectionTTL(p *packet.Packet) (uint8, bool) {
	return c.TCPHop.GetTTL(p.DstAddr, p.DstPort, p.SrcAddr, p.SrcPort)
}

// Sweep evicts expired entries from both conntrack tables. The
// orchestrator calls this on a timer.
func (c *Context) Sweep() {
	c.TCPHop.Sweep()
	c.DNS.Sweep()
}
