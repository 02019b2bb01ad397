package clientcache

import (
	"context"
	"sync"
	"time"

	"sladash-backend/internal/invalidation"

	"go.uber.org/zap"
)

// FetchFunc loads the authoritative value for a query key over the network.
type FetchFunc func(ctx context.Context, key string) (interface{}, error)

// TTLFunc returns the freshness window for a query key. TTL is a
// per-resource-type policy, not a constant.
type TTLFunc func(key string) time.Duration

type entry struct {
	value     interface{}
	fetchedAt time.Time
	ttl       time.Duration

	// loaded distinguishes "no value yet" from a cached nil. Subscribing
	// creates an entry before the first fetch completes.
	loaded bool

	// stale marks explicit invalidation; age-based staleness is computed
	// from fetchedAt.
	stale bool

	subscribers int

	// Refetch ordering: results apply last-writer-wins by issue order, so a
	// slow older response never overwrites newer data.
	issued   uint64
	applied  uint64
	fetching bool
}

func (e *entry) isStale(now time.Time) bool {
	return e.stale || now.Sub(e.fetchedAt) > e.ttl
}

// Store is a per-tab key/value cache with TTL, explicit subscriber lists
// and stale-while-revalidate reads. It is deliberately independent of any
// rendering layer.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	fetch   FetchFunc
	ttlFor  TTLFunc
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewStore(fetch FetchFunc, ttlFor TTLFunc, logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		fetch:   fetch,
		ttlFor:  ttlFor,
		logger:  logger,
	}
}

// Get returns the cached value without ever blocking the caller. A stale
// entry is served as-is with stale=true while a background refetch is
// scheduled; a missing key schedules the initial fetch and reports
// found=false.
func (s *Store) Get(key string) (value interface{}, stale bool, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded {
		s.scheduleRefetchLocked(key, false)
		return nil, false, false
	}

	if e.isStale(time.Now()) {
		s.scheduleRefetchLocked(key, false)
		return e.value, true, true
	}
	return e.value, false, true
}

// Peek reads the current value without scheduling anything. Mutation
// rollback snapshots are taken through it.
func (s *Store) Peek(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.loaded {
		return e.value, true
	}
	return nil, false
}

// Set writes a value locally without touching freshness bookkeeping. Used
// by optimistic updates: the value changes now, authority arrives with the
// next refetch.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.upsertLocked(key)
	e.value = value
	e.loaded = true
}

// Restore puts a key back to a rollback snapshot. A key that did not exist
// at snapshot time is removed again.
func (s *Store) Restore(key string, value interface{}, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !existed {
		delete(s.entries, key)
		return
	}
	e := s.upsertLocked(key)
	e.value = value
	e.loaded = true
}

// Subscribe registers an active reader for a key and returns its
// unsubscribe function. Entries with no subscribers are evicted instead of
// refetched when they go stale.
func (s *Store) Subscribe(key string) func() {
	s.mu.Lock()
	e := s.upsertLocked(key)
	e.subscribers++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if e, ok := s.entries[key]; ok {
				e.subscribers--
				if e.subscribers <= 0 && e.isStale(time.Now()) {
					delete(s.entries, key)
				}
			}
		})
	}
}

// Invalidate marks keys stale and refetches those with subscribers; the
// next Get on an invalidated key is a refetch, not a cache hit, regardless
// of remaining TTL. Unsubscribed entries are evicted outright.
func (s *Store) Invalidate(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if key == invalidation.KeyEverything {
			s.invalidateAllLocked()
			return
		}
		s.invalidateOneLocked(key)
	}
}

// InvalidateAll treats the whole cache as stale. Required after a bus
// reconnect: the tab cannot know how many events it missed.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateAllLocked()
}

// ApplyEvent applies a bus invalidation event.
func (s *Store) ApplyEvent(affectedKeys []string) {
	s.Invalidate(affectedKeys...)
}

// Wait blocks until all in-flight refetches settle. Test and shutdown hook.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) upsertLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{fetchedAt: time.Now(), ttl: s.ttlFor(key)}
		s.entries[key] = e
	}
	return e
}

func (s *Store) invalidateAllLocked() {
	for key, e := range s.entries {
		if e.subscribers <= 0 {
			delete(s.entries, key)
			continue
		}
		e.stale = true
		s.scheduleRefetchLocked(key, true)
	}
}

func (s *Store) invalidateOneLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	if e.subscribers <= 0 {
		delete(s.entries, key)
		return
	}
	e.stale = true
	// Force a fresh request even if one is already in flight: the in-flight
	// response may predate the write this invalidation announces.
	s.scheduleRefetchLocked(key, true)
}

// scheduleRefetchLocked issues a background refetch for key. Unless forced,
// an already in-flight refetch is not duplicated. Completion applies
// last-writer-wins by issue order.
func (s *Store) scheduleRefetchLocked(key string, force bool) {
	e := s.upsertLocked(key)
	if e.fetching && !force {
		return
	}

	e.issued++
	seq := e.issued
	e.fetching = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		value, err := s.fetch(context.Background(), key)

		s.mu.Lock()
		defer s.mu.Unlock()

		cur, ok := s.entries[key]
		if !ok {
			return // evicted while in flight
		}
		if seq == cur.issued {
			cur.fetching = false
		}
		if err != nil {
			s.logger.Warn("refetch failed, keeping stale value",
				zap.String("key", key), zap.Error(err))
			return
		}
		if seq <= cur.applied {
			// An out-of-order older response; a newer result already landed.
			return
		}

		cur.value = value
		cur.fetchedAt = time.Now()
		cur.ttl = s.ttlFor(key)
		cur.stale = false
		cur.loaded = true
		cur.applied = seq
	}()
}
