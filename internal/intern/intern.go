// Package intern shares one Go string across the repeated block names
// and item IDs decoded across a region's 1024 slots, instead of
// allocating a fresh string per palette entry.
package intern

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/cespare/xxhash/v2"
)

// DefaultCapacity bounds the number of distinct strings a Cache keeps
// before evicting the least recently used entry. A region's block name
// vocabulary is small (typically a few hundred distinct names), so this
// is sized generously above that.
const DefaultCapacity = 4096

// Cache interns byte slices into shared strings, keyed by their xxhash
// digest rather than the string itself, so a lookup never allocates a
// string just to test membership.
type Cache struct {
	entries *lru.Cache[uint64, string]
}

// New returns a Cache with the given capacity. A non-positive capacity
// is replaced with DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[uint64, string](capacity)
	if err != nil {
		// Only returned by golang-lru for a non-positive size, which
		// New already guards against.
		panic(err)
	}
	return &Cache{entries: entries}
}

// Intern returns a string equal to name, reusing a previously interned
// value on a cache hit. xxhash collisions between distinct names are
// possible in principle, so a hit is still verified against name before
// being trusted.
func (c *Cache) Intern(name []byte) string {
	digest := xxhash.Sum64(name)
	if existing, ok := c.entries.Get(digest); ok && existing == string(name) {
		return existing
	}
	s := string(name)
	c.entries.Add(digest, s)
	return s
}

// InternString is a convenience for callers that already hold a string
// (e.g. decoded from a document leaf) rather than a byte slice.
func (c *Cache) InternString(name string) string {
	return c.Intern([]byte(name))
}
