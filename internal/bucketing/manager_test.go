package bucketing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBucketStable(t *testing.T) {
	m := NewManager(64)

	first := m.EventBucket("event-123")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.EventBucket("event-123"))
	}
}

func TestEventBucketRange(t *testing.T) {
	m := NewManager(16)

	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		b := m.EventBucket(fmt.Sprintf("event-%d", i))
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 16)
		seen[b] = true
	}
	assert.Greater(t, len(seen), 8, "hash should spread across buckets")
}

func TestManagerDefaultsBucketCount(t *testing.T) {
	m := NewManager(0)
	b := m.EventBucket("event-123")
	assert.GreaterOrEqual(t, b, 0)
	assert.Less(t, b, 64)
}

func TestDateBucket(t *testing.T) {
	m := NewManager(64)

	at := time.Date(2025, 6, 15, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "2025-06-15", m.DateBucket(at), "partitions are UTC dates")
}
