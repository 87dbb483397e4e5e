// Package txcache amortizes transaction opens within a single query
// (spec §4.C). A Cache maps feed_hex[@version] to an already-open
// boundary.Transaction, coalescing concurrent requests for the same key
// into a single open, and closes every cached transaction together when
// the owning query ends.
package txcache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// Cache is the per-query transaction cache. The zero value is not usable;
// construct with New.
type Cache struct {
	store boundary.Corestore
	group singleflight.Group

	mu   sync.Mutex
	open map[string]boundary.Transaction
}

// New returns a Cache that opens transactions through store.
func New(store boundary.Corestore) *Cache {
	return &Cache{
		store: store,
		open:  make(map[string]boundary.Transaction),
	}
}

// Key renders the cache key for a feed at a given version; version == 0
// means "current length" and is rendered without a "@version" suffix so
// repeated unpinned reads within a query share one transaction.
func Key(feed vertex.Feed, version uint64) string {
	if version == 0 {
		return feed.Hex()
	}
	return fmt.Sprintf("%s@%d", feed.Hex(), version)
}

// GetOrOpen returns the cached transaction for (feed, version), opening one
// via the Corestore if absent. Concurrent callers requesting the same key
// coalesce onto a single open call.
func (c *Cache) GetOrOpen(feed vertex.Feed, version uint64) (boundary.Transaction, error) {
	key := Key(feed, version)

	c.mu.Lock()
	if tx, ok := c.open[key]; ok {
		c.mu.Unlock()
		return tx, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if tx, ok := c.open[key]; ok {
			c.mu.Unlock()
			return tx, nil
		}
		c.mu.Unlock()

		f, err := c.store.Get(feed)
		if err != nil {
			return nil, fmt.Errorf("txcache: opening feed %s: %w", feed.Hex(), err)
		}
		tx, err := f.Transaction(version)
		if err != nil {
			return nil, fmt.Errorf("txcache: opening transaction on %s: %w", key, err)
		}

		c.mu.Lock()
		c.open[key] = tx
		c.mu.Unlock()
		return tx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(boundary.Transaction), nil
}

// CloseAll releases every transaction opened through this cache. Called
// once, when the owning query ends (successfully, on error, or on
// cancellation) — see spec §5's cancellation guarantee.
func (c *Cache) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, tx := range c.open {
		if err := tx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("txcache: closing %s: %w", key, err)
		}
	}
	c.open = make(map[string]boundary.Transaction)
	return firstErr
}
