package crawler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergraphdb/hypergraphdb/pkg/codec"
	"github.com/hypergraphdb/hypergraphdb/pkg/corestore/badgerstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/crawler"
	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/txcache"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
	"github.com/hypergraphdb/hypergraphdb/pkg/view"
)

// tagged builds the default (JSON opaque-map) content this package's tests
// put on vertices: round-tripping through graphstore.Store decodes it back
// as map[string]any, not the original Go type, so rules must read it that
// way too.
func tagged(tag string) map[string]any {
	return map[string]any{"tag": tag}
}

func byTagRule() crawler.Rule {
	return crawler.Rule{
		IndexName: "by-tag",
		Extract: func(v *vertex.Vertex) []crawler.Entry {
			m, ok := v.Content().(map[string]any)
			if !ok {
				return nil
			}
			tag, ok := m["tag"].(string)
			if !ok {
				return nil
			}
			return []crawler.Entry{{Key: tag}}
		},
		Traverse: func(*vertex.Vertex) []string { return []string{""} },
	}
}

func TestRunIndexesEveryVisitedVertex(t *testing.T) {
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	store := graphstore.New(bs, codec.NewRegistry())
	feed, err := store.GetDefaultFeedID()
	require.NoError(t, err)

	a := vertex.New()
	a.SetContent(tagged("fruit"))
	require.NoError(t, store.Put(feed, a))

	b := vertex.New()
	b.SetContent(tagged("fruit"))
	require.NoError(t, store.Put(feed, b))

	root := vertex.New()
	root.SetContent(tagged("root"))
	root.AddEdgeTo(a, "child")
	root.AddEdgeTo(b, "child")
	require.NoError(t, store.Put(feed, root))

	loadedRoot, err := store.Get(feed, root.ID(), 0)
	require.NoError(t, err)

	c := crawler.New(store, []crawler.Rule{byTagRule()})
	report, err := c.Run(loadedRoot)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Visited)
	assert.False(t, report.BoundHit)

	ix, ok := c.Index("by-tag")
	require.True(t, ok)
	assert.Len(t, ix.Get("fruit"), 2)
	assert.Len(t, ix.Get("root"), 1)
}

func TestRunStopsAtBound(t *testing.T) {
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	store := graphstore.New(bs, codec.NewRegistry())
	feed, err := store.GetDefaultFeedID()
	require.NoError(t, err)

	a, b, c2 := vertex.New(), vertex.New(), vertex.New()
	a.SetContent(tagged("a"))
	b.SetContent(tagged("b"))
	c2.SetContent(tagged("c"))
	require.NoError(t, store.PutAll(feed, []*vertex.Vertex{a, b, c2}))

	root := vertex.New()
	root.SetContent(tagged("root"))
	root.AddEdgeTo(a, "child")
	root.AddEdgeTo(b, "child")
	root.AddEdgeTo(c2, "child")
	require.NoError(t, store.Put(feed, root))

	loadedRoot, err := store.Get(feed, root.ID(), 0)
	require.NoError(t, err)

	cr := crawler.New(store, []crawler.Rule{byTagRule()}, crawler.WithBound(2))
	report, err := cr.Run(loadedRoot)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Visited)
	assert.True(t, report.BoundHit)
}

func TestQueryIndexResolvesHitsThroughSharedCache(t *testing.T) {
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	store := graphstore.New(bs, codec.NewRegistry())
	feed, err := store.GetDefaultFeedID()
	require.NoError(t, err)

	a := vertex.New()
	a.SetContent(tagged("fruit"))
	require.NoError(t, store.Put(feed, a))
	root := vertex.New()
	root.SetContent(tagged("root"))
	root.AddEdgeTo(a, "child")
	require.NoError(t, store.Put(feed, root))

	loadedRoot, err := store.Get(feed, root.ID(), 0)
	require.NoError(t, err)

	c := crawler.New(store, []crawler.Rule{byTagRule()})
	_, err = c.Run(loadedRoot)
	require.NoError(t, err)

	cache := txcache.New(bs)
	sess := view.NewFactory().NewSession(store, cache)
	defer sess.Close()

	q, err := c.QueryIndex("by-tag", "fruit", sess.Default(), cache)
	require.NoError(t, err)
	vs, errs := q.Vertices()
	require.Empty(t, errs)
	require.Len(t, vs, 1)
	assert.Equal(t, tagged("fruit"), vs[0].Content())
}

func TestQueryIndexUnknownNameErrors(t *testing.T) {
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	store := graphstore.New(bs, codec.NewRegistry())

	c := crawler.New(store, []crawler.Rule{byTagRule()})
	sess := view.NewFactory().NewSession(store, txcache.New(bs))
	defer sess.Close()

	_, err = c.QueryIndex("nonexistent", "x", sess.Default(), txcache.New(bs))
	require.Error(t, err)
	var notFound *crawler.ErrIndexNotFound
	assert.ErrorAs(t, err, &notFound)
}
