package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

type memoryItem struct {
	value    []byte
	expireAt time.Time
	access   time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && now.After(m.expireAt)
}

type shard struct {
	mu    sync.Mutex
	items map[string]*memoryItem
}

// MemoryStore implements Store in process memory. Keys are spread over
// independently locked shards; each shard evicts its least recently used
// key when full.
type MemoryStore struct {
	shards        []*shard
	maxPerShard   int
	now           func() time.Time
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{
		MaxSize:         10000,
		Shards:          32,
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	perShard := cfg.MaxSize / cfg.Shards
	if perShard < 1 {
		perShard = 1
	}

	ms := &MemoryStore{
		shards:      make([]*shard, cfg.Shards),
		maxPerShard: perShard,
		now:         cfg.Now,
		done:        make(chan struct{}),
	}
	for i := range ms.shards {
		ms.shards[i] = &shard{items: make(map[string]*memoryItem)}
	}

	if cfg.CleanupInterval > 0 {
		ms.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
		go ms.cleanupExpired()
	}
	return ms
}

func (ms *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return ms.shards[h.Sum32()%uint32(len(ms.shards))]
}

func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	now := ms.now()
	item := &memoryItem{value: append([]byte(nil), value...), access: now}
	if expiration > 0 {
		item.expireAt = now.Add(expiration)
	}

	s := ms.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists && len(s.items) >= ms.maxPerShard {
		s.evictLRU()
	}
	s.items[key] = item
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	now := ms.now()
	s := ms.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if item.expired(now) {
		delete(s.items, key)
		return nil, ErrCacheMiss
	}
	item.access = now
	return append([]byte(nil), item.value...), nil
}

func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s := ms.shardFor(key)
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
	}
	return nil
}

// Len returns the number of stored keys, expired or not.
func (ms *MemoryStore) Len() int {
	n := 0
	for _, s := range ms.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

func (s *shard) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range s.items {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey = key
			oldest = item.access
		}
	}
	if oldestKey != "" {
		delete(s.items, oldestKey)
	}
}

func (ms *MemoryStore) cleanupExpired() {
	for {
		select {
		case <-ms.done:
			return
		case <-ms.cleanupTicker.C:
			now := ms.now()
			for _, s := range ms.shards {
				s.mu.Lock()
				for key, item := range s.items {
					if item.expired(now) {
						delete(s.items, key)
					}
				}
				s.mu.Unlock()
			}
		}
	}
}

// Close stops the cleanup loop.
func (ms *MemoryStore) Close() error {
	ms.closeOnce.Do(func() {
		if ms.cleanupTicker != nil {
			ms.cleanupTicker.Stop()
		}
		close(ms.done)
	})
	return nil
}
