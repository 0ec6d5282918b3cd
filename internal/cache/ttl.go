// Package cache holds the in-process read caches in front of the repository.
package cache

import (
	"sync"
	"time"
)

// TTLValue holds one value for at most ttl. Fills are tagged with the
// generation they started in, so a fill that raced with Invalidate is
// dropped instead of resurrecting stale data.
type TTLValue[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	value     T
	loaded    bool
	expiresAt time.Time
	gen       uint64
}

func NewTTLValue[T any](ttl time.Duration) *TTLValue[T] {
	return &TTLValue[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value and the generation a refill must present to
// Set.
func (v *TTLValue[T]) Get() (T, uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.loaded && v.now().Before(v.expiresAt) {
		return v.value, v.gen, true
	}
	var zero T
	v.value, v.loaded = zero, false
	return zero, v.gen, false
}

// Set stores value unless the cache was invalidated after gen was read.
func (v *TTLValue[T]) Set(gen uint64, value T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen {
		return false
	}
	v.value = value
	v.loaded = true
	v.expiresAt = v.now().Add(v.ttl)
	return true
}

func (v *TTLValue[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	v.value, v.loaded = zero, false
	v.gen++
}
