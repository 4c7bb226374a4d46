// Package conntrack implements the engine's connection-tracking tables:
// a TCP hop-TTL table (feeds the Fake-Packet strategy's Auto-TTL
// calculation) and a DNS query table (lets DNS-Redirect rewrite
// responses back to look like they came from the original server).
//
// Both tables are sharded, lock-striped maps rather than a single
// mutex-guarded map: a lookup only ever takes the RWMutex of the shard
// its key hashes into, so concurrent lookups on different connections
// never contend with each other or with a sweep of a different shard.
package conntrack

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// shardFor picks a stable shard index for a string key.
func shardFor(key string) uint64 {
	return xxhash.Sum64String(key) % shardCount
}

// shardedMap is a fixed number of independently-locked buckets. It is
// deliberately unexported and untyped (map[string]any per shard) —
// TCPHopTable (tcphop.go) and DNSQueryTable (dns.go) wrap it with typed
// accessors so callers never see the any.
type shardedMap struct {
	shards [shardCount]struct {
		mu   sync.RWMutex
		data map[string]any
	}
}

func newShardedMap() *shardedMap {
	m := &shardedMap{}
	for i := range m.shards {
		m.shards[i].data = make(map[string]any)
	}
	return m
}

func (m *shardedMap) shard(key string) *struct {
	mu   sync.RWMutex
	data map[string]any
} {
	return &m.shards[shardFor(key)]
}

func (m *shardedMap) store(key string, value any) {
	s := m.shard(key)
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (m *shardedMap) load(key string) (any, bool) {
	s := m.shard(key)
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	return v, ok
}

func (m *shardedMap) delete(key string) {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

// sweep removes every entry for which keep returns false. Each shard is
// locked and swept independently, so a sweep never blocks a lookup
// against a different shard for longer than one bucket's worth of work.
func (m *shardedMap) sweep(keep func(value any) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, v := range s.data {
			if !keep(v) {
				delete(s.data, k)
			}
		}
		s.mu.Unlock()
	}
}

// len sums the size of every shard. Callers needing this should expect
// an approximate snapshot under concurrent mutation, not an atomic count.
func (m *shardedMap) len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		n += len(m.shards[i].data)
		m.shards[i].mu.RUnlock()
	}
	return n
}
