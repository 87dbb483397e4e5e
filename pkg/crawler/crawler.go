// Package crawler implements spec §4.G: a bounded graph walk rooted at a
// vertex that feeds one or more named inverted indexes, plus the
// queryIndex composition that turns an index lookup back into a query
// engine stream.
//
// Grounded on the queue/visited/level shape of a breadth-first walker
// (github.com/katalvlaran/lvlath's bfs.walker), generalized from a single
// string-keyed graph to feed/id pairs loaded through the core store, and
// from one distance computation to N independent extract rules feeding N
// independent indexes from the same walk.
package crawler

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/query"
	"github.com/hypergraphdb/hypergraphdb/pkg/txcache"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
	"github.com/hypergraphdb/hypergraphdb/pkg/view"
)

// loadConcurrency bounds how many vertices are loaded at once while
// expanding one BFS level.
const loadConcurrency = 8

// Entry is one (key, weight) pair a Rule's Extract produces for a vertex.
// Weight is optional ranking data; the index itself does not interpret it.
type Entry struct {
	Key    string
	Weight float64
}

// Rule binds one named index to the function that populates it and the
// function that names the edge labels the crawl follows from a vertex.
// Every rule's Traverse is called for every visited vertex, whether or not
// that rule's Extract produced entries for it, and the labels of all rules
// are followed together. Traverse may return nil to add no labels.
type Rule struct {
	IndexName string
	Extract   func(*vertex.Vertex) []Entry
	Traverse  func(*vertex.Vertex) []string
}

// CrawlReport summarizes one Run: how many vertices were actually visited,
// and whether the crawl stopped early because it hit its bound rather than
// exhausting the queue.
type CrawlReport struct {
	Visited  int
	BoundHit bool
}

// Option configures a Crawler at construction.
type Option func(*Crawler)

// WithBound caps the number of vertices a single Run visits. 0 (the
// default) means unbounded.
func WithBound(n int) Option {
	return func(c *Crawler) { c.bound = n }
}

// Crawler runs bounded BFS walks over a graphstore.Store, applying Rules
// along the way.
type Crawler struct {
	store   *graphstore.Store
	rules   []Rule
	indexes map[string]*Index
	bound   int
}

// New builds a Crawler with one Index per rule's IndexName. Two rules
// sharing an IndexName share that Index.
func New(store *graphstore.Store, rules []Rule, opts ...Option) *Crawler {
	c := &Crawler{store: store, rules: rules, indexes: make(map[string]*Index)}
	for _, r := range rules {
		if _, ok := c.indexes[r.IndexName]; !ok {
			c.indexes[r.IndexName] = newIndex(r.IndexName)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Index returns the named index, if any rule populates it.
func (c *Crawler) Index(name string) (*Index, bool) {
	ix, ok := c.indexes[name]
	return ix, ok
}

// Indexes returns every index this crawler maintains, one per distinct
// rule IndexName, in the order rules were supplied to New.
func (c *Crawler) Indexes() []*Index {
	out := make([]*Index, 0, len(c.indexes))
	seen := make(map[string]bool, len(c.indexes))
	for _, r := range c.rules {
		if seen[r.IndexName] {
			continue
		}
		seen[r.IndexName] = true
		out = append(out, c.indexes[r.IndexName])
	}
	return out
}

type queueEntry struct {
	feed vertex.Feed
	id   vertex.ID
}

func entryKey(feed vertex.Feed, id vertex.ID) string {
	return feed.Hex() + "/" + strconv.FormatUint(uint64(id), 10)
}

// Run walks the graph starting at root, level by level: each level's
// vertices are loaded concurrently (bounded by loadConcurrency) but rules
// are applied, and the next level is built, in a fixed order so index
// insertion order stays deterministic regardless of load completion order.
func (c *Crawler) Run(root *vertex.Vertex) (CrawlReport, error) {
	if !root.Bound() {
		return CrawlReport{}, errors.New("crawler: root vertex has not been persisted")
	}

	visited := map[string]bool{entryKey(root.Feed(), root.ID()): true}
	frontier := []queueEntry{{feed: root.Feed(), id: root.ID()}}

	var report CrawlReport
	for len(frontier) > 0 {
		loaded := make([]*vertex.Vertex, len(frontier))
		g := new(errgroup.Group)
		g.SetLimit(loadConcurrency)
		for i, e := range frontier {
			i, e := i, e
			g.Go(func() error {
				v, err := c.store.Get(e.feed, e.id, 0)
				if err != nil {
					return fmt.Errorf("crawler: loading %s/%d: %w", e.feed.Hex(), e.id, err)
				}
				loaded[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		var next []queueEntry
		for _, v := range loaded {
			if c.bound > 0 && report.Visited >= c.bound {
				report.BoundHit = true
				break
			}
			report.Visited++
			c.applyRules(v)

			for _, label := range c.traverseLabels(v) {
				for _, e := range v.Edges(label) {
					targetFeed := e.TargetFeed(v.Feed())
					key := entryKey(targetFeed, e.Ref)
					if visited[key] {
						continue
					}
					visited[key] = true
					next = append(next, queueEntry{feed: targetFeed, id: e.Ref})
				}
			}
		}
		if report.BoundHit {
			break
		}
		frontier = next
	}
	return report, nil
}

func (c *Crawler) applyRules(v *vertex.Vertex) {
	h := Hit{Feed: v.Feed(), ID: v.ID()}
	for _, r := range c.rules {
		if r.Extract == nil {
			continue
		}
		ix := c.indexes[r.IndexName]
		for _, entry := range r.Extract(v) {
			ix.insert(entry.Key, h)
		}
	}
}

func (c *Crawler) traverseLabels(v *vertex.Vertex) []string {
	var labels []string
	for _, r := range c.rules {
		if r.Traverse == nil {
			continue
		}
		labels = append(labels, r.Traverse(v)...)
	}
	return labels
}

// QueryIndex implements spec §4.G's queryIndex composition: resolve the
// named index, collect its hits for key, coalesce one transaction per
// distinct feed via cache, load each hit, and hand the resulting states to
// the query engine bound to v.
func (c *Crawler) QueryIndex(name, key string, v view.View, cache *txcache.Cache) (*query.Query, error) {
	ix, ok := c.Index(name)
	if !ok {
		return nil, &ErrIndexNotFound{Name: name}
	}

	hits := ix.Get(key)
	states := make([]view.QueryState, 0, len(hits))
	for _, h := range hits {
		tx, err := cache.GetOrOpen(h.Feed, 0)
		if err != nil {
			return nil, fmt.Errorf("crawler: opening transaction for %s: %w", h.Feed.Hex(), err)
		}
		vtx, err := c.store.GetInTransaction(h.ID, tx, h.Feed)
		if err != nil {
			return nil, fmt.Errorf("crawler: loading indexed vertex %s/%d: %w", h.Feed.Hex(), h.ID, err)
		}
		states = append(states, view.NewState(vtx))
	}
	return query.FromStates(v, states), nil
}
