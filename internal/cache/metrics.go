package cache

import "sync/atomic"

// Metrics counts cache lookups. Counters are owned by the sink instance
// rather than package-level state, so each store can be measured in
// isolation and tests don't bleed into each other.
type Metrics struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (m *Metrics) Hit() {
	m.hits.Add(1)
}

func (m *Metrics) Miss() {
	m.misses.Add(1)
}

func (m *Metrics) Hits() int64 {
	return m.hits.Load()
}

func (m *Metrics) Misses() int64 {
	return m.misses.Load()
}
