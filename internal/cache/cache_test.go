package cache

import (
	"testing"
	"time"

	"smartbin-backend/internal/models"
)

func testReading(binID string, fill float64) models.BinReading {
	return models.BinReading{
		ID:             "reading-" + binID,
		BinID:          binID,
		FillPercentage: fill,
		Status:         models.ClassifyFillLevel(fill),
		RecordedAt:     time.Now().Unix(),
	}
}

func TestPutAndGet(t *testing.T) {
	c := NewReadingCache(10, time.Minute)

	c.Put("BIN-1", testReading("BIN-1", 42))

	got, ok := c.Get("BIN-1")
	if !ok {
		t.Fatal("expected cache hit for BIN-1")
	}
	if got.FillPercentage != 42 {
		t.Errorf("got fill %v, want 42", got.FillPercentage)
	}

	if _, ok := c.Get("BIN-2"); ok {
		t.Error("expected cache miss for unknown bin")
	}
}

func TestLastWriteWins(t *testing.T) {
	c := NewReadingCache(10, time.Minute)

	c.Put("BIN-1", testReading("BIN-1", 42))
	c.Put("BIN-1", testReading("BIN-1", 85))

	got, ok := c.Get("BIN-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.FillPercentage != 85 {
		t.Errorf("got fill %v, want 85", got.FillPercentage)
	}
}

func TestExpiry(t *testing.T) {
	c := NewReadingCache(10, 10*time.Millisecond)

	c.Put("BIN-1", testReading("BIN-1", 42))
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("BIN-1"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestInvalidate(t *testing.T) {
	c := NewReadingCache(10, time.Minute)

	c.Put("BIN-1", testReading("BIN-1", 42))
	c.Invalidate("BIN-1")

	if _, ok := c.Get("BIN-1"); ok {
		t.Error("expected miss after invalidation")
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	c := NewReadingCache(2, time.Minute)

	c.Put("BIN-1", testReading("BIN-1", 10))
	time.Sleep(time.Millisecond)
	c.Put("BIN-2", testReading("BIN-2", 20))
	time.Sleep(time.Millisecond)

	// Touch BIN-1 so BIN-2 becomes the least recently used.
	c.Get("BIN-1")
	time.Sleep(time.Millisecond)

	c.Put("BIN-3", testReading("BIN-3", 30))

	if _, ok := c.Get("BIN-2"); ok {
		t.Error("expected least recently used BIN-2 to be evicted")
	}
	if _, ok := c.Get("BIN-1"); !ok {
		t.Error("expected recently accessed BIN-1 to survive")
	}
	if _, ok := c.Get("BIN-3"); !ok {
		t.Error("expected newly inserted BIN-3 to be present")
	}
}

func TestCleanupExpired(t *testing.T) {
	c := NewReadingCache(10, 10*time.Millisecond)

	c.Put("BIN-1", testReading("BIN-1", 10))
	c.Put("BIN-2", testReading("BIN-2", 20))
	time.Sleep(20 * time.Millisecond)
	c.Put("BIN-3", testReading("BIN-3", 30))

	removed := c.CleanupExpired()
	if removed != 2 {
		t.Errorf("removed %d entries, want 2", removed)
	}
	if _, ok := c.Get("BIN-3"); !ok {
		t.Error("expected fresh BIN-3 to survive cleanup")
	}
}

func TestStats(t *testing.T) {
	c := NewReadingCache(10, time.Minute)

	c.Put("BIN-1", testReading("BIN-1", 42))
	c.Get("BIN-1") // hit
	c.Get("BIN-2") // miss

	stats := c.GetStats()
	if stats["hits"] != int64(1) {
		t.Errorf("hits = %v, want 1", stats["hits"])
	}
	if stats["misses"] != int64(1) {
		t.Errorf("misses = %v, want 1", stats["misses"])
	}
	if stats["cache_size"] != 1 {
		t.Errorf("cache_size = %v, want 1", stats["cache_size"])
	}
}
