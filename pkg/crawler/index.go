package crawler

import (
	"sort"
	"sync"

	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// Hit is one inverted-index entry: the (feed, id) of a vertex that an
// extract rule matched under some key.
type Hit struct {
	Feed vertex.Feed
	ID   vertex.ID
}

// Index is one rule's inverted index: key -> ordered list of hits.
// Mutation (insert, during a crawl) is serialized with lookup via an
// RWMutex — spec §4.G's "single-writer crawler, multi-reader queries."
// Indexes are in-memory only; nothing here persists across restarts.
type Index struct {
	mu      sync.RWMutex
	name    string
	entries map[string][]Hit
}

func newIndex(name string) *Index {
	return &Index{name: name, entries: make(map[string][]Hit)}
}

func (ix *Index) insert(key string, h Hit) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[key] = append(ix.entries[key], h)
}

// Get returns the hits recorded under key, in insertion order. The
// returned slice is a copy; callers may not observe future writes through it.
func (ix *Index) Get(key string) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	hits := ix.entries[key]
	out := make([]Hit, len(hits))
	copy(out, hits)
	return out
}

// Len reports the number of distinct keys currently indexed.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Keys returns every indexed key, sorted for deterministic inspection.
func (ix *Index) Keys() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	keys := make([]string, 0, len(ix.entries))
	for k := range ix.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Name is the IndexName of the Rule that produced this index.
func (ix *Index) Name() string { return ix.name }
