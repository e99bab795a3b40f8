package geocode

import (
	"container/list"
	"sync"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// lruCache is a thread-safe LRU cache for forward-geocode results, built
// on container/list with the front of the list holding the most recently
// used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type lruEntry struct {
	key    string
	coords domain.Coordinates
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (domain.Coordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.Coordinates{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).coords, true
}

func (c *lruCache) put(key string, coords domain.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry).coords = coords
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&lruEntry{key: key, coords: coords})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry).key)
		}
	}
}
