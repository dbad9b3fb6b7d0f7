// Package postal resolves listing city/state pairs to US postal codes.
package postal

import (
	"strings"
	"sync"
)

type Status string

const (
	StatusSearching Status = "searching"
	StatusFound     Status = "found"
	StatusNotFound  Status = "not_found"
)

// Key is the listing's own city and state, never the alias-corrected form.
type Key struct {
	City  string
	State string
}

func KeyFor(city, state string) Key {
	return Key{City: strings.TrimSpace(city), State: strings.TrimSpace(state)}
}

func (k Key) Valid() bool {
	return k.City != "" && k.State != ""
}

type entry struct {
	code  string
	found bool
}

// Cache is write-once per key: a failed lookup is stored as not found and
// never retried until Reset.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry
	pending map[Key]struct{}
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]entry),
		pending: make(map[Key]struct{}),
	}
}

// Get returns the cached code. Unresolved keys report StatusSearching.
func (c *Cache) Get(k Key) (string, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	switch {
	case !ok:
		return "", StatusSearching
	case e.found:
		return e.code, StatusFound
	default:
		return "", StatusNotFound
	}
}

// claim marks k as in flight. It fails when k is resolved or already claimed.
func (c *Cache) claim(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[k]; ok {
		return false
	}
	if _, ok := c.pending[k]; ok {
		return false
	}
	c.pending[k] = struct{}{}
	return true
}

func (c *Cache) release(k Key) {
	c.mu.Lock()
	delete(c.pending, k)
	c.mu.Unlock()
}

func (c *Cache) put(k Key, code string, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, k)
	if _, ok := c.entries[k]; ok {
		return
	}
	c.entries[k] = entry{code: code, found: found}
}

// Reset drops every entry; the next batch starts from scratch.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
	c.pending = make(map[Key]struct{})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
