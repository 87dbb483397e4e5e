package hypergraphdb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
	"github.com/hypergraphdb/hypergraphdb/pkg/corestore/badgerstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/crawler"
	hgdb "github.com/hypergraphdb/hypergraphdb/pkg/hypergraphdb"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
	"github.com/hypergraphdb/hypergraphdb/pkg/view"
)

func newGraph(t *testing.T, opts ...hgdb.Option) *hgdb.Graph {
	t.Helper()
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return hgdb.New(bs, opts...)
}

func TestPutGetRoundTripsOnDefaultFeed(t *testing.T) {
	g := newGraph(t)

	v := g.Create()
	v.SetContent("hello")
	require.NoError(t, g.Put(v))

	loaded, err := g.Get(v.ID())
	require.NoError(t, err)
	assert.Equal(t, "hello", loaded.Content())
}

func TestQueryAtVertexFollowsOutEdges(t *testing.T) {
	g := newGraph(t)

	root := g.Create()
	root.SetContent("root")
	child := g.Create()
	child.SetContent("child")
	require.NoError(t, g.PutAll([]*vertex.Vertex{root, child}))

	root.AddEdgeTo(child, "next")
	require.NoError(t, g.Put(root))

	loadedRoot, err := g.Get(root.ID())
	require.NoError(t, err)

	values, errs := g.QueryAtVertex(loadedRoot).Out("next").Values(func(s view.QueryState) any {
		return s.Value.Content()
	})
	require.Empty(t, errs)
	require.Len(t, values, 1)
	assert.Equal(t, "child", values[0])
}

func TestQueryPathAtVertexWithEmptyPathEqualsQueryAtVertex(t *testing.T) {
	g := newGraph(t)

	root := g.Create()
	root.SetContent("root")
	require.NoError(t, g.Put(root))

	loaded, err := g.Get(root.ID())
	require.NoError(t, err)

	vs, errs := g.QueryPathAtVertex("", loaded).Vertices()
	require.Empty(t, errs)
	require.Len(t, vs, 1)
	assert.Equal(t, loaded.ID(), vs[0].ID())
}

// spyCorestore counts Transaction opens per feed key, wrapping a real
// badgerstore so a traversal's transaction count can be asserted without
// reaching into txcache's internals.
type spyCorestore struct {
	*badgerstore.Store
	opens map[string]int
}

func (s *spyCorestore) Get(key []byte) (boundary.Feed, error) {
	f, err := s.Store.Get(key)
	if err != nil {
		return nil, err
	}
	return &spyFeed{Feed: f, key: string(key), opens: s.opens}, nil
}

type spyFeed struct {
	boundary.Feed
	key   string
	opens map[string]int
}

func (f *spyFeed) Transaction(version uint64) (boundary.Transaction, error) {
	f.opens[f.key]++
	return f.Feed.Transaction(version)
}

func TestSharedSessionOpensOneTransactionPerFeedAcrossEdges(t *testing.T) {
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	spy := &spyCorestore{Store: bs, opens: make(map[string]int)}
	g := hgdb.New(spy)

	root := g.Create()
	root.SetContent("root")
	require.NoError(t, g.Put(root))
	a := g.Create()
	a.SetContent("a")
	require.NoError(t, g.Put(a))
	b := g.Create()
	b.SetContent("b")
	require.NoError(t, g.Put(b))

	root.AddEdgeTo(a, "next")
	root.AddEdgeTo(b, "next")
	require.NoError(t, g.Put(root))

	loadedRoot, err := g.Get(root.ID())
	require.NoError(t, err)

	for k := range spy.opens {
		delete(spy.opens, k)
	}

	vs, errs := g.QueryAtVertex(loadedRoot).Out("next").Vertices()
	require.Empty(t, errs)
	require.Len(t, vs, 2)

	// Both edges target the same feed, and the query's session shares one
	// transaction cache across hops, so only one transaction should have
	// been opened for that feed despite resolving two edges through it.
	assert.Len(t, spy.opens, 1)
	for _, n := range spy.opens {
		assert.Equal(t, 1, n)
	}
}

func TestCreateEdgesToPathDelegatesToPathmat(t *testing.T) {
	g := newGraph(t)

	root := g.Create()
	root.SetContent("root")
	require.NoError(t, g.Put(root))
	loaded, err := g.Get(root.ID())
	require.NoError(t, err)

	created, err := g.CreateEdgesToPath("a/b", loaded)
	require.NoError(t, err)
	assert.Len(t, created, 2)

	second, err := g.CreateEdgesToPath("a/b", loaded)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestIndexesAndCrawlPopulateViaRules(t *testing.T) {
	rule := crawler.Rule{
		IndexName: "by-tag",
		Extract: func(v *vertex.Vertex) []crawler.Entry {
			m, ok := v.Content().(map[string]any)
			if !ok {
				return nil
			}
			tag, _ := m["tag"].(string)
			if tag == "" {
				return nil
			}
			return []crawler.Entry{{Key: tag}}
		},
		Traverse: func(v *vertex.Vertex) []string { return []string{"next"} },
	}
	g := newGraph(t, hgdb.WithIndexRules(rule))

	root := g.Create()
	root.SetContent(map[string]any{"tag": "a"})
	require.NoError(t, g.Put(root))

	loaded, err := g.Get(root.ID())
	require.NoError(t, err)

	report, err := g.Crawl(loaded)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Visited)

	indexes := g.Indexes()
	require.Len(t, indexes, 1)
	assert.Equal(t, "by-tag", indexes[0].Name())

	q, err := g.QueryIndex("by-tag", "a")
	require.NoError(t, err)
	vs, errs := q.Vertices()
	require.Empty(t, errs)
	require.Len(t, vs, 1)
	assert.Equal(t, loaded.ID(), vs[0].ID())
}

func TestQueryIndexUnknownNameErrors(t *testing.T) {
	g := newGraph(t)
	_, err := g.QueryIndex("missing", "a")
	require.Error(t, err)
}
