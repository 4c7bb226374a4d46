package conntrack

import (
	"net"
	"strconv"
	"time"
)

// DefaultDNSQueryTimeout matches the original engine's default: a
// redirected DNS query's original destination is remembered for 5
// seconds, long enough for a normal round trip but short enough not to
// accumulate stale entries under query floods.
const DefaultDNSQueryTimeout = 5 * time.Second

// DNSQueryRecord is what DNS-Redirect needs to remember about a query it
// sent to a different server than the client asked for, so the response
// can be rewritten to look like it came from the original server.
type DNSQueryRecord struct {
	OriginalDstIP   net.IP
	OriginalDstPort uint16
	created         time.Time
}

// DNSQueryTable maps a query's source port to where it was originally
// headed, keyed purely on source port the way the original tracker is —
// a single client only has one outstanding DNS query per source port at
// a time, so this is sufficient without also keying on destination.
type DNSQueryTable struct {
	m       *shardedMap
	timeout time.Duration
}

// NewDNSQueryTable creates a table with the default 5s timeout.
func NewDNSQueryTable() *DNSQueryTable {
	return NewDNSQueryTableWithTimeout(DefaultDNSQueryTimeout)
}

// NewDNSQueryTableWithTimeout creates a table with a custom entry timeout.
func NewDNSQueryTableWithTimeout(timeout time.Duration) *DNSQueryTable {
	return &DNSQueryTable{m: newShardedMap(), timeout: timeout}
}

func portKey(srcPort uint16) string {
	return strconv.Itoa(int(srcPort))
}

// TrackQuery records that a query from srcPort was really headed to
// originalDstIP:originalDstPort before being redirected.
func (t *DNSQueryTable) TrackQuery(srcPort uint16, originalDstIP net.IP, originalDstPort uint16) {
	t.m.store(portKey(srcPort), &DNSQueryRecord{
		OriginalDstIP:   originalDstIP,
		OriginalDstPort: originalDstPort,
		created:         time.Now(),
	})
}

// GetOriginal returns the original destination for a query from srcPort,
// if a live record exists. An expired record is evicted as a side
// effect, same as TCPHopTable.GetTTL.
func (t *DNSQueryTable) GetOriginal(srcPort uint16) (net.IP, uint16, bool) {
	v, ok := t.m.load(portKey(srcPort))
	if !ok {
		return nil, 0, false
	}
	rec := v.(*DNSQueryRecord)
	if time.Since(rec.created) >= t.timeout {
		t.m.delete(portKey(srcPort))
		return nil, 0, false
	}
	return rec.OriginalDstIP, rec.OriginalDstPort, true
}

// Remove drops a query's record once its response has been handled,
// enforcing at-most-one redirect rewrite per query.
func (t *DNSQueryTable) Remove(srcPort uint16) {
	t.m.delete(portKey(srcPort))
}

// Sweep removes every expired entry.
func (t *DNSQueryTable) Sweep() {
	now := time.Now()
	t.m.sweep(func(value any) bool {
		rec := value.(*DNSQueryRecord)
		return now.Sub(rec.created) < t.timeout
	})
}

// Len reports the current (approximate) number of tracked queries.
func (t *DNSQueryTable) Len() int {
	return t.m.len()
}
