// ABOUTME: In-process cache of rendered HTML views keyed by name
// ABOUTME: Mutations invalidate by name; invalidation never fails the mutation

package views

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Key builds a group-scoped view name. Rendered pages are tenant-specific, so
// every cache entry carries the group id in its name.
func Key(groupID, name string) string {
	return groupID + "/" + name
}

// Cache holds rendered pages by view name ("threads", "thread/42", "todos"),
// scoped per group via Key. Entries live until a mutation invalidates them;
// there is no TTL.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string

	logger        *slog.Logger
	invalidations prometheus.Counter // may be nil
}

// NewCache creates an empty view cache. invalidations may be nil when metrics
// are disabled.
func NewCache(logger *slog.Logger, invalidations prometheus.Counter) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:       make(map[string]string),
		logger:        logger,
		invalidations: invalidations,
	}
}

// Get returns the cached rendering of a view, if any.
func (c *Cache) Get(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	html, ok := c.entries[name]
	return html, ok
}

// Put stores a rendered view.
func (c *Cache) Put(name, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = html
}

// Invalidate drops the named views. It runs after a mutation has already
// committed, so it only ever logs; a miss is not an error and nothing here can
// fail the mutation.
func (c *Cache) Invalidate(names ...string) {
	c.mu.Lock()
	var dropped int
	for _, name := range names {
		if _, ok := c.entries[name]; ok {
			delete(c.entries, name)
			dropped++
		}
	}
	c.mu.Unlock()

	if c.invalidations != nil && dropped > 0 {
		c.invalidations.Add(float64(dropped))
	}
	if dropped > 0 {
		c.logger.Debug("invalidated views", "names", names, "dropped", dropped)
	}
}

// Len reports the number of cached views.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
