package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCleanupInterval = time.Minute

// MemoryCache is an in-process cache with LRU eviction bounded by entry
// count. Expired entries are dropped lazily on Get and swept by a background
// routine.
type MemoryCache struct {
	config    Config
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	lru       *lruList
	stats     CacheStats
	closeOnce sync.Once
	closeChan chan struct{}
	cleanupWG sync.WaitGroup
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *lruElement
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Doubly linked LRU list with sentinel head and tail.
type lruElement struct {
	key  string
	prev *lruElement
	next *lruElement
}

type lruList struct {
	head *lruElement
	tail *lruElement
	size int
}

func newLRUList() *lruList {
	head := &lruElement{}
	tail := &lruElement{}
	head.next = tail
	tail.prev = head
	return &lruList{head: head, tail: tail}
}

func (l *lruList) moveToFront(elem *lruElement) {
	if elem.prev == l.head {
		return
	}
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
}

func (l *lruList) pushFront(key string) *lruElement {
	elem := &lruElement{key: key}
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
	l.size++
	return elem
}

func (l *lruList) removeElement(elem *lruElement) {
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	l.size--
}

func (l *lruList) back() *lruElement {
	if l.tail.prev == l.head {
		return nil
	}
	return l.tail.prev
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(cfg Config) *MemoryCache {
	c := &MemoryCache{
		config:    cfg,
		entries:   make(map[string]*memoryEntry),
		lru:       newLRUList(),
		closeChan: make(chan struct{}),
		stats:     CacheStats{MaxEntries: int64(cfg.MaxEntries)},
	}

	c.cleanupWG.Add(1)
	go c.cleanupRoutine()

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	if entry.expired(time.Now()) {
		c.removeLocked(entry)
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	c.lru.moveToFront(entry.element)
	atomic.AddInt64(&c.stats.Hits, 1)
	c.stats.LastAccess = time.Now()

	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	} else if c.config.DefaultTTL > 0 {
		expiresAt = time.Now().Add(c.config.DefaultTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.entries[key]; exists {
		existing.value = value
		existing.expiresAt = expiresAt
		c.lru.moveToFront(existing.element)
	} else {
		if c.config.MaxEntries > 0 && c.lru.size >= c.config.MaxEntries {
			c.evictLRULocked()
		}
		element := c.lru.pushFront(key)
		c.entries[key] = &memoryEntry{
			key:       key,
			value:     value,
			expiresAt: expiresAt,
			element:   element,
		}
	}

	atomic.AddInt64(&c.stats.Sets, 1)
	atomic.StoreInt64(&c.stats.Entries, int64(c.lru.size))
	c.stats.LastAccess = time.Now()

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		c.removeLocked(entry)
		atomic.AddInt64(&c.stats.Deletes, 1)
	}
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)
	c.lru = newLRUList()

	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Deletes, 0)
	atomic.StoreInt64(&c.stats.Entries, 0)

	return nil
}

func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	lastAccess := c.stats.LastAccess
	c.mu.Unlock()

	return CacheStats{
		Hits:       atomic.LoadInt64(&c.stats.Hits),
		Misses:     atomic.LoadInt64(&c.stats.Misses),
		Sets:       atomic.LoadInt64(&c.stats.Sets),
		Deletes:    atomic.LoadInt64(&c.stats.Deletes),
		Entries:    atomic.LoadInt64(&c.stats.Entries),
		MaxEntries: int64(c.config.MaxEntries),
		LastAccess: lastAccess,
	}
}

func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.cleanupWG.Wait()
	return nil
}

// removeLocked drops one entry. Callers hold c.mu.
func (c *MemoryCache) removeLocked(entry *memoryEntry) {
	delete(c.entries, entry.key)
	c.lru.removeElement(entry.element)
	atomic.StoreInt64(&c.stats.Entries, int64(c.lru.size))
}

// evictLRULocked drops the least recently used entry. Callers hold c.mu.
func (c *MemoryCache) evictLRULocked() {
	elem := c.lru.back()
	if elem == nil {
		return
	}
	if entry, exists := c.entries[elem.key]; exists {
		c.removeLocked(entry)
	}
}

func (c *MemoryCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			c.cleanupExpired()
		}
	}
}

func (c *MemoryCache) cleanupExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.entries {
		if entry.expired(now) {
			c.removeLocked(entry)
		}
	}
}
