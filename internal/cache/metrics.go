package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics counts cache outcomes. Safe for concurrent use.
type CacheMetrics struct {
	hits, misses, errors, sets, deletes atomic.Int64
	startTime                           time.Time
}

// MetricsSnapshot is a point-in-time copy of CacheMetrics.
type MetricsSnapshot struct {
	Hits    int64     `json:"hits"`
	Misses  int64     `json:"misses"`
	Errors  int64     `json:"errors"`
	Sets    int64     `json:"sets"`
	Deletes int64     `json:"deletes"`
	Since   time.Time `json:"since"`
}

func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{startTime: time.Now()}
}

func (m *CacheMetrics) RecordHit()    { m.hits.Add(1) }
func (m *CacheMetrics) RecordMiss()   { m.misses.Add(1) }
func (m *CacheMetrics) RecordError()  { m.errors.Add(1) }
func (m *CacheMetrics) RecordSet()    { m.sets.Add(1) }
func (m *CacheMetrics) RecordDelete() { m.deletes.Add(1) }

func (m *CacheMetrics) GetStats() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Errors:  m.errors.Load(),
		Sets:    m.sets.Load(),
		Deletes: m.deletes.Load(),
		Since:   m.startTime,
	}
}

// HitRate returns hits as a percentage of lookups.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
