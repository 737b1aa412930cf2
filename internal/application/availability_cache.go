package application

import (
	"strings"
	"sync"
	"time"
)

// availabilityCache stores recently computed advisory conflict lists so
// repeated availability probes for the same slot skip the detector while the
// reservation set is unchanged. Every reservation write invalidates it; the
// commit-time transaction guard never consults it.
type availabilityCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]availabilityCacheEntry
}

type availabilityCacheEntry struct {
	conflicts []ConflictDetail
	expiresAt time.Time
}

func newAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &availabilityCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]availabilityCacheEntry),
	}
}

func (c *availabilityCache) Get(key string) ([]ConflictDetail, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneConflicts(entry.conflicts), true
}

func (c *availabilityCache) Store(key string, conflicts []ConflictDetail) {
	if c == nil {
		return
	}
	cloned := cloneConflicts(conflicts)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = availabilityCacheEntry{conflicts: cloned, expiresAt: expiry}
}

func (c *availabilityCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]availabilityCacheEntry)
	c.mu.Unlock()
}

func (c *availabilityCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *availabilityCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneConflicts(conflicts []ConflictDetail) []ConflictDetail {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]ConflictDetail, len(conflicts))
	copy(out, conflicts)
	return out
}

func availabilityCacheKey(roomID, excludeID string, start, end time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(roomID)
	builder.WriteString("|")
	builder.WriteString(excludeID)
	builder.WriteString("|")
	builder.WriteString(start.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(end.UTC().Format(time.RFC3339Nano))
	return builder.String()
}
