package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/fieldlead/renderbatch/models"
)

// sweepInterval is how often the background sweeper looks for stale entries.
const sweepInterval = 5 * time.Minute

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  *models.RenderResponse
	createdAt time.Time
}

// Cache is an in-memory cache for render responses, safe for concurrent use.
// Entries never outlive maxTTL regardless of what callers ask for.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	maxTTL     time.Duration
}

// New creates a Cache bounded to maxEntries entries. A background goroutine
// sweeps entries older than maxTTL every five minutes.
func New(maxEntries int, maxTTL time.Duration) *Cache {
	if maxTTL <= 0 {
		maxTTL = time.Hour
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		maxTTL:     maxTTL,
	}

	go c.sweepLoop()
	return c
}

// Key derives the cache key from the normalized URL, output format and
// extract mode. Two requests that differ in any of the three never collide.
func Key(url, outputFormat, extractMode string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(outputFormat))
	h.Write([]byte("|"))
	h.Write([]byte(extractMode))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached response younger than maxAgeMs milliseconds.
// maxAgeMs <= 0 disables the lookup entirely.
func (c *Cache) Get(key string, maxAgeMs int) (*models.RenderResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if maxAge > c.maxTTL {
		maxAge = c.maxTTL
	}
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}

	return e.response, true
}

// Set stores a response. At capacity one arbitrary entry is evicted to make
// room (map iteration order is random in Go, which is good enough here).
func (c *Cache) Set(key string, resp *models.RenderResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  resp,
		createdAt: time.Now(),
	}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.maxTTL)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
