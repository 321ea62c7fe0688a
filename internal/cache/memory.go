package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is the process-local L1. Values are stored JSON-encoded so a
// reader never shares memory with the writer.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	maxSize int
	now     func() time.Time
}

func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, ok := m.entries[key]; !ok && m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictLocked(now)
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// evictLocked drops expired entries, then the entry closest to expiry if the
// cache is still full.
func (m *MemoryCache) evictLocked(now time.Time) {
	var victim string
	var victimExp time.Time
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			continue
		}
		if victim == "" || (!e.expiresAt.IsZero() && (victimExp.IsZero() || e.expiresAt.Before(victimExp))) {
			victim, victimExp = k, e.expiresAt
		}
	}
	if len(m.entries) >= m.maxSize && victim != "" {
		delete(m.entries, victim)
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return ErrCacheMiss
	}
	if entry.expired(m.now()) {
		m.mu.Lock()
		// A Set may have replaced the entry since the read lock was released.
		if current, ok := m.entries[key]; ok && current.expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Incr adds one to the integer stored at key, starting from zero when the key
// is missing or expired. ttl applies to the updated entry.
func (m *MemoryCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	if entry, ok := m.entries[key]; ok && !entry.expired(now) {
		if err := json.Unmarshal(entry.data, &n); err != nil {
			return 0, fmt.Errorf("value at %s is not an integer: %w", key, err)
		}
	} else if !ok && m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictLocked(now)
	}
	n++

	data, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return n, nil
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"entries":  m.Len(),
		"max_size": m.maxSize,
	}
}
