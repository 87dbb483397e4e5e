package graphstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergraphdb/hypergraphdb/pkg/codec"
	"github.com/hypergraphdb/hypergraphdb/pkg/corestore/badgerstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

func newTestStore(t *testing.T) (*graphstore.Store, vertex.Feed) {
	t.Helper()
	bs, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	s := graphstore.New(bs, codec.NewRegistry())
	feed, err := s.GetDefaultFeedID()
	require.NoError(t, err)
	return s, feed
}

func TestPutBindsIDAndFeed(t *testing.T) {
	s, feed := newTestStore(t)

	v := vertex.New()
	v.SetContent(map[string]any{"name": "alice"})

	require.False(t, v.Bound())
	require.NoError(t, s.Put(feed, v))
	assert.True(t, v.Bound())
	assert.Equal(t, vertex.ID(1), v.ID())
	assert.Equal(t, feed, v.Feed())
	assert.NotZero(t, v.Timestamp())
}

func TestRepersistAppendsNewRevision(t *testing.T) {
	s, feed := newTestStore(t)

	v := vertex.New()
	v.SetContent(map[string]any{"v": float64(1)})
	require.NoError(t, s.Put(feed, v))
	firstID := v.ID()

	v.SetContent(map[string]any{"v": float64(2)})
	require.NoError(t, s.Put(feed, v))
	assert.NotEqual(t, firstID, v.ID())

	loaded, err := s.Get(feed, v.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": float64(2)}, loaded.Content())
}

func TestGetRoundTripsEdges(t *testing.T) {
	s, feed := newTestStore(t)

	a := vertex.New()
	b := vertex.New()
	b.SetContent("leaf")
	require.NoError(t, s.Put(feed, b))

	a.SetContent("root")
	a.AddEdgeTo(b, "child")
	require.NoError(t, s.Put(feed, a))

	loaded, err := s.Get(feed, a.ID(), 0)
	require.NoError(t, err)
	edges := loaded.Edges("")
	require.Len(t, edges, 1)
	assert.Equal(t, "child", edges[0].Label)
	assert.Equal(t, b.ID(), edges[0].Ref)
}

func TestPutAllWritesInOrderWithinOneTransaction(t *testing.T) {
	s, feed := newTestStore(t)

	a, b, c := vertex.New(), vertex.New(), vertex.New()
	a.SetContent("a")
	b.SetContent("b")
	c.SetContent("c")

	require.NoError(t, s.PutAll(feed, []*vertex.Vertex{a, b, c}))
	assert.Equal(t, vertex.ID(1), a.ID())
	assert.Equal(t, vertex.ID(2), b.ID())
	assert.Equal(t, vertex.ID(3), c.ID())
}

func TestPutAllAbortsWithoutPersistingAnyVertex(t *testing.T) {
	s, feed := newTestStore(t)

	a := vertex.New()
	a.SetContent("a")
	bad := vertex.New()
	bad.SetContent(make(chan int)) // unencodable: json.Marshal fails
	c := vertex.New()
	c.SetContent("c")

	err := s.PutAll(feed, []*vertex.Vertex{a, bad, c})
	require.Error(t, err)

	_, err = s.Get(feed, vertex.ID(1), 0)
	require.Error(t, err)
	assert.True(t, graphstore.IsNotFound(err), "a failure partway through PutAll must leave no vertex durably persisted, including ones that preceded the failure")
}

func TestGetMissingIDIsNotFound(t *testing.T) {
	s, feed := newTestStore(t)

	_, err := s.Get(feed, vertex.ID(42), 0)
	require.Error(t, err)
	assert.True(t, graphstore.IsNotFound(err))

	var vle *graphstore.VertexLoadingError
	require.ErrorAs(t, err, &vle)
	assert.EqualValues(t, 42, vle.ID)
}

func TestGetInTransactionReusesOpenTransaction(t *testing.T) {
	s, feed := newTestStore(t)

	a := vertex.New()
	a.SetContent("x")
	require.NoError(t, s.Put(feed, a))

	tx, err := s.Transaction(feed, 0)
	require.NoError(t, err)
	defer tx.Close()

	loaded, err := s.GetInTransaction(a.ID(), tx, feed)
	require.NoError(t, err)
	assert.Equal(t, "x", loaded.Content())
}

func TestLoadedVertexWriteableReflectsFeedOwnership(t *testing.T) {
	s, feed := newTestStore(t)

	v := vertex.New()
	v.SetContent("x")
	require.NoError(t, s.Put(feed, v))

	loaded, err := s.Get(feed, v.ID(), 0)
	require.NoError(t, err)
	assert.True(t, loaded.Writeable())
}
