package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// Manager assigns security events to stable buckets so the audit archive can
// partition writes without hotspots.
type Manager struct {
	eventBuckets int
	hasherPool   sync.Pool
}

func NewManager(eventBuckets int) *Manager {
	if eventBuckets <= 0 {
		eventBuckets = 64
	}
	m := &Manager{eventBuckets: eventBuckets}

	// Pool of hash functions to avoid allocation overhead on the hot path.
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return m
}

// EventBucket returns a consistent bucket in [0, eventBuckets) for an
// identifier such as an event ID or origin address.
func (m *Manager) EventBucket(identifier string) int {
	h := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(h)

	h.Reset()
	_, _ = h.Write([]byte(identifier))
	return int(h.Sum64() % uint64(m.eventBuckets))
}

// DateBucket returns the UTC date partition for an event timestamp.
func (m *Manager) DateBucket(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}
