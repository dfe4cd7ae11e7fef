// Package cache provides small in-process caches for derived values that
// are expensive to recompute, such as parsed previews.
package cache

import (
	"sync"
	"time"
)

// Cache is a generic key/value cache with per-entry expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// Cleaner is implemented by caches that can evict expired entries on demand.
type Cleaner interface {
	RemoveExpired() int
}

// Manager runs periodic cleanup across a set of registered caches.
type Manager struct {
	mu      sync.Mutex
	caches  map[string]Cleaner
	stop    chan struct{}
	stopped bool
}

func NewManager() *Manager {
	return &Manager{
		caches: make(map[string]Cleaner),
		stop:   make(chan struct{}),
	}
}

// Register adds a cache to the cleanup cycle under the given name.
// Registering the same name twice replaces the previous entry.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Start launches a background goroutine that evicts expired entries on the
// given interval until Stop is called.
func (m *Manager) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanAll()
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
}

func (m *Manager) cleanAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.RemoveExpired()
	}
}
