package cache

import (
	"sync"
	"time"

	"smartbin-backend/internal/models"
)

// ReadingCache keeps the latest reading per bin so dashboard reads skip the
// database right after an ingestion. Bounded by capacity and TTL; the original
// deployment grew a process-lifetime map instead, which only worked because
// bin cardinality stayed small.
type ReadingCache struct {
	entries    map[string]*entry
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
	stats      Stats
}

type entry struct {
	reading      models.BinReading
	createdAt    time.Time
	lastAccessed time.Time
}

// Stats tracks cache performance
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	mutex     sync.RWMutex
}

// NewReadingCache creates a reading cache with an injected capacity and TTL.
func NewReadingCache(maxEntries int, ttl time.Duration) *ReadingCache {
	return &ReadingCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached latest reading for a bin, if fresh.
func (c *ReadingCache) Get(binID string) (models.BinReading, bool) {
	c.mutex.RLock()
	e, found := c.entries[binID]
	c.mutex.RUnlock()

	if !found {
		c.recordMiss()
		return models.BinReading{}, false
	}

	// Check if expired
	if time.Since(e.createdAt) > c.ttl {
		c.mutex.Lock()
		delete(c.entries, binID)
		c.mutex.Unlock()
		c.recordMiss()
		c.recordEviction()
		return models.BinReading{}, false
	}

	c.mutex.Lock()
	e.lastAccessed = time.Now()
	c.mutex.Unlock()

	c.recordHit()
	return e.reading, true
}

// Put stores the latest reading for a bin. Last write wins.
func (c *ReadingCache) Put(binID string, reading models.BinReading) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.entries[binID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[binID] = &entry{
		reading:      reading,
		createdAt:    time.Now(),
		lastAccessed: time.Now(),
	}
}

// Invalidate drops the cache entry for a bin. Used when its history is cleared.
func (c *ReadingCache) Invalidate(binID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, binID)
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *ReadingCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.recordEviction()
	}
}

// CleanupExpired removes every expired entry and returns how many went.
func (c *ReadingCache) CleanupExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, key)
			c.recordEviction()
			removed++
		}
	}
	return removed
}

// CleanupLoop periodically removes expired entries until stop is closed.
func (c *ReadingCache) CleanupLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}

func (c *ReadingCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Hits++
}

func (c *ReadingCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Misses++
}

func (c *ReadingCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

// GetStats returns cache statistics
func (c *ReadingCache) GetStats() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	c.mutex.RLock()
	size := len(c.entries)
	c.mutex.RUnlock()

	return map[string]interface{}{
		"cache_size":  size,
		"max_entries": c.maxEntries,
		"hits":        c.stats.Hits,
		"misses":      c.stats.Misses,
		"evictions":   c.stats.Evictions,
		"ttl_seconds": int(c.ttl.Seconds()),
	}
}
