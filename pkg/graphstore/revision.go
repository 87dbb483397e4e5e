package graphstore

import (
	"fmt"
	"sync"

	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// revisionCache resolves a possibly-stale vertex id to the latest revision
// an edge's frozen Ref may have been superseded by. Re-persisting a vertex
// appends a new revision under a new id and links it back to the id it
// replaced via Envelope.PriorID (spec §3); an edge wired before that
// re-persist still points at the old id, so every read has to chase that
// link forward before touching storage.
//
// One cache is shared by every transaction opened against a Store, keyed
// by feed. Entries are learned incrementally: each resolve scans only the
// ids a feed has gained since the last scan, so the cost of repeated reads
// on a stable feed is amortized to nothing.
type revisionCache struct {
	mu      sync.Mutex
	scanned map[string]uint64            // feed hex -> highest id scanned so far
	links   map[string]map[uint64]uint64 // feed hex -> prior id -> superseding id
}

func newRevisionCache() *revisionCache {
	return &revisionCache{
		scanned: make(map[string]uint64),
		links:   make(map[string]map[uint64]uint64),
	}
}

// resolve follows id's supersession chain as far as it can be followed
// without stepping past tx's pinned version, returning the newest id a
// reader at that version should see.
func (c *revisionCache) resolve(tx boundary.Transaction, feed vertex.Feed, id vertex.ID) (vertex.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := feed.Hex()
	limit := tx.Version()
	if err := c.scanUpTo(tx, key, limit); err != nil {
		return 0, err
	}

	links := c.links[key]
	cur := uint64(id)
	for {
		next, ok := links[cur]
		if !ok || next > limit {
			break
		}
		cur = next
	}
	return vertex.ID(cur), nil
}

// scanUpTo extends the feed's known links to cover every id through limit,
// decoding each new record's envelope for its PriorID backlink. Bounding
// the scan by the caller's tx.Version() is what makes resolution respect
// version pinning: an older snapshot never learns about links a later
// write introduced, without any special-casing beyond reusing Version().
func (c *revisionCache) scanUpTo(tx boundary.Transaction, key string, limit uint64) error {
	scanned := c.scanned[key]
	if scanned >= limit {
		return nil
	}

	links, ok := c.links[key]
	if !ok {
		links = make(map[uint64]uint64)
		c.links[key] = links
	}

	for i := scanned + 1; i <= limit; i++ {
		raw, err := tx.Get(i)
		if err != nil {
			return fmt.Errorf("graphstore: scanning revision links at id %d: %w", i, err)
		}
		env, err := vertex.Decode(raw)
		if err != nil {
			return fmt.Errorf("graphstore: scanning revision links at id %d: %w", i, err)
		}
		if env.PriorID != 0 {
			links[env.PriorID] = i
		}
	}
	c.scanned[key] = limit
	return nil
}
