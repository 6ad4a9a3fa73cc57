package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"face-gallery/internal/domain/gallery"
)

// sweepInterval is the minimum time between two full scans for expired
// entries. Keys that are never read again are dropped by the scan.
const sweepInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is an in-process JSON cache used when Redis/Valkey is disabled.
// Values are stored encoded so callers never share state with the cache.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time
	nextSweep  time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, result interface{}) error {
	m.mu.Lock()
	entry, ok := m.lookup(key)
	m.mu.Unlock()
	if !ok {
		return gallery.ErrCacheMiss
	}

	if err := json.Unmarshal(entry.data, result); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	m.mu.Lock()
	m.store(key, data, ttl)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(m.now())
	return len(m.entries)
}

// sweep drops every expired entry; must be called with mu held
func (m *MemoryCache) sweep(now time.Time) {
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
	m.nextSweep = now.Add(sweepInterval)
}

// lookup must be called with mu held
func (m *MemoryCache) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// store must be called with mu held
func (m *MemoryCache) store(key string, data []byte, ttl time.Duration) {
	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
	}

	if ttl == 0 {
		ttl = m.defaultTTL
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
}

// MemoryViewStore keeps views in process memory
type MemoryViewStore struct {
	cache *MemoryCache
	ttl   time.Duration
}

// NewMemoryViewStore creates an in-process view store
func NewMemoryViewStore(ttl time.Duration) *MemoryViewStore {
	return &MemoryViewStore{cache: NewMemoryCache(ttl), ttl: ttl}
}

func (s *MemoryViewStore) Save(ctx context.Context, view *gallery.View) error {
	return s.cache.Set(ctx, viewKey(view.ID), view, s.ttl)
}

func (s *MemoryViewStore) Get(ctx context.Context, id string) (*gallery.View, error) {
	var view gallery.View
	if err := s.cache.Get(ctx, viewKey(id), &view); err != nil {
		return nil, fmt.Errorf("%w: %s", gallery.ErrViewNotFound, id)
	}
	return &view, nil
}

// Update runs fn under the store lock, so updates to a view are serialized.
// The view keeps its original expiry.
func (s *MemoryViewStore) Update(_ context.Context, id string, fn func(*gallery.View) error) (*gallery.View, error) {
	key := viewKey(id)

	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	entry, ok := s.cache.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", gallery.ErrViewNotFound, id)
	}

	var view gallery.View
	if err := json.Unmarshal(entry.data, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view: %w", err)
	}

	if err := fn(&view); err != nil {
		return nil, err
	}

	data, err := json.Marshal(&view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal view: %w", err)
	}
	entry.data = data
	s.cache.entries[key] = entry

	return &view, nil
}

func (s *MemoryViewStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, viewKey(id))
}
