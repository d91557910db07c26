// Package cache holds completion responses keyed by a fingerprint of the
// exact input text. It lives for the process lifetime only.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fingerprint returns the hex SHA-256 of text exactly as given.
// No case or whitespace normalization is applied.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Stats counts cache activity since construction
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type entry struct {
	key      string
	response string
}

// Cache is a least-recently-used map of fingerprint to response.
// A maxEntries of 0 disables eviction. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List
	items      map[string]*list.Element
	stats      Stats
}

// New creates an empty cache
func New(maxEntries int) *Cache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Cache{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Lookup returns the stored response for fingerprint, if any
func (c *Cache) Lookup(fingerprint string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[fingerprint]
	if !ok {
		c.stats.Misses++
		return "", false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*entry).response, true
}

// Store records response under fingerprint, replacing any previous value
func (c *Cache) Store(fingerprint, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[fingerprint]; ok {
		el.Value.(*entry).response = response
		c.order.MoveToFront(el)
		return
	}

	c.items[fingerprint] = c.order.PushFront(&entry{key: fingerprint, response: response})

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
		c.stats.Evictions++
	}
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
