// Package hypergraphdb is the public facade (spec §6): it wires the codec
// registry, the transactional core store, the view factory, the query
// engine, the crawler, and path materialization behind the surface
// spec.md names, and nothing more — a thin constructor-and-delegate
// wrapper, deliberately kept small.
package hypergraphdb

import (
	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
	"github.com/hypergraphdb/hypergraphdb/pkg/codec"
	"github.com/hypergraphdb/hypergraphdb/pkg/crawler"
	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/pathmat"
	"github.com/hypergraphdb/hypergraphdb/pkg/query"
	"github.com/hypergraphdb/hypergraphdb/pkg/txcache"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
	"github.com/hypergraphdb/hypergraphdb/pkg/view"
)

// Graph is the public entry point, built by New(corestore, opts...). New
// takes no feed key: calls that omit a feed use the corestore's local
// default feed.
type Graph struct {
	corestore boundary.Corestore
	store     *graphstore.Store
	factory   *view.Factory
	crawler   *crawler.Crawler
}

type settings struct {
	codecs      []codec.Codec
	rules       []crawler.Rule
	crawlBound  int
	viewFactory *view.Factory
}

// Option configures New.
type Option func(*settings)

// WithCodec registers an additional content codec, beyond the default
// opaque-map one every Registry starts with.
func WithCodec(c codec.Codec) Option {
	return func(s *settings) { s.codecs = append(s.codecs, c) }
}

// WithIndexRules registers the crawler rules this graph's indexes and
// crawls run. Without this option the graph has no indexes and Crawl
// visits only the root vertex: with no rule there are no labels to follow
// and nothing to populate.
func WithIndexRules(rules ...crawler.Rule) Option {
	return func(s *settings) { s.rules = append(s.rules, rules...) }
}

// WithCrawlBound caps the number of vertices a single Crawl call visits.
func WithCrawlBound(n int) Option {
	return func(s *settings) { s.crawlBound = n }
}

// WithViewFactory overrides the default Factory (GraphView + StaticView)
// with one pre-registered with additional custom views.
func WithViewFactory(f *view.Factory) Option {
	return func(s *settings) { s.viewFactory = f }
}

// New builds a Graph over corestore.
func New(corestore boundary.Corestore, opts ...Option) *Graph {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	codecs := codec.NewRegistry()
	for _, c := range s.codecs {
		codecs.Register(c)
	}

	store := graphstore.New(corestore, codecs)

	factory := s.viewFactory
	if factory == nil {
		factory = view.NewFactory()
	}

	var crawlerOpts []crawler.Option
	if s.crawlBound > 0 {
		crawlerOpts = append(crawlerOpts, crawler.WithBound(s.crawlBound))
	}

	return &Graph{
		corestore: corestore,
		store:     store,
		factory:   factory,
		crawler:   crawler.New(store, s.rules, crawlerOpts...),
	}
}

// Create returns a new, unpersisted vertex.
func (g *Graph) Create() *vertex.Vertex {
	return vertex.New()
}

// Put persists v, binding it to feed (the local default feed if omitted).
func (g *Graph) Put(v *vertex.Vertex, feed ...vertex.Feed) error {
	f, err := g.resolveFeed(feed)
	if err != nil {
		return err
	}
	return g.store.Put(f, v)
}

// PutAll persists every vertex in vs within a single transaction, in
// insertion order.
func (g *Graph) PutAll(vs []*vertex.Vertex, feed ...vertex.Feed) error {
	f, err := g.resolveFeed(feed)
	if err != nil {
		return err
	}
	return g.store.PutAll(f, vs)
}

// Get loads the vertex at id on feed (the local default feed if omitted).
func (g *Graph) Get(id vertex.ID, feed ...vertex.Feed) (*vertex.Vertex, error) {
	f, err := g.resolveFeed(feed)
	if err != nil {
		return nil, err
	}
	return g.store.Get(f, id, 0)
}

func (g *Graph) resolveFeed(feed []vertex.Feed) (vertex.Feed, error) {
	if len(feed) > 0 {
		return feed[0], nil
	}
	return g.store.GetDefaultFeedID()
}

func (g *Graph) newSession() (*view.Session, *txcache.Cache) {
	cache := txcache.New(g.corestore)
	return g.factory.NewSession(g.store, cache), cache
}

// QueryAtVertex starts a query at v using the default view. The returned
// Query owns its own transaction cache; call Close (or let a terminal
// combinator do it) when done.
func (g *Graph) QueryAtVertex(v *vertex.Vertex) *Query {
	sess, _ := g.newSession()
	return &Query{Query: query.FromState(sess.Default(), view.NewState(v)), session: sess}
}

// QueryAtId loads the vertex at (feed, id) and starts a query at it.
func (g *Graph) QueryAtId(id vertex.ID, feed vertex.Feed) (*Query, error) {
	v, err := g.store.Get(feed, id, 0)
	if err != nil {
		return nil, err
	}
	return g.QueryAtVertex(v), nil
}

// QueryPathAtVertex follows path one label per segment from v. An empty
// path is equivalent to QueryAtVertex(v) (spec §8's boundary case).
func (g *Graph) QueryPathAtVertex(path string, v *vertex.Vertex) *Query {
	q := g.QueryAtVertex(v)
	for _, seg := range pathmat.SplitPath(path) {
		q.Query = q.Query.Out(seg)
	}
	return q
}

// QueryIndex resolves name's index, loads key's hits (coalescing one
// transaction per distinct feed), and returns a query engine stream over
// them (spec §4.G's queryIndex composition).
func (g *Graph) QueryIndex(name, key string) (*Query, error) {
	sess, cache := g.newSession()
	qq, err := g.crawler.QueryIndex(name, key, sess.Default(), cache)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	return &Query{Query: qq, session: sess}, nil
}

// CreateEdgesToPath implements spec §4.H: idempotently materialize path
// from root, returning only the vertices newly created.
func (g *Graph) CreateEdgesToPath(path string, root *vertex.Vertex) ([]*vertex.Vertex, error) {
	return pathmat.CreateEdgesToPath(g.store, path, root)
}

// Crawl walks the graph from root, applying every registered index rule.
func (g *Graph) Crawl(root *vertex.Vertex) (crawler.CrawlReport, error) {
	return g.crawler.Run(root)
}

// Indexes returns every index this graph's crawler maintains.
func (g *Graph) Indexes() []*crawler.Index {
	return g.crawler.Indexes()
}

// Query wraps pkg/query.Query with the per-query view.Session it was
// issued from, so a terminal combinator also releases the session's cached
// transactions (spec §5: "the query is the scoped owner").
//
// Out, Matches and Repeat are re-declared (not just inherited through the
// embedded *query.Query) because the embedded versions return a bare
// *query.Query — chaining through them would silently drop this wrapper and
// the session it owns, so a later terminal call would never close it.
type Query struct {
	*query.Query
	session *view.Session
}

// Out follows label, keeping the query bound to its originating session.
func (q *Query) Out(label string) *Query {
	return &Query{Query: q.Query.Out(label), session: q.session}
}

// Matches filters the current frontier by predicate, keeping the query
// bound to its originating session.
func (q *Query) Matches(predicate func(view.QueryState) bool) *Query {
	return &Query{Query: q.Query.Matches(predicate), session: q.session}
}

// Repeat applies query.Query.Repeat, keeping the query bound to its
// originating session.
func (q *Query) Repeat(label string, opts query.RepeatOptions) *Query {
	return &Query{Query: q.Query.Repeat(label, opts), session: q.session}
}

// Vertices materializes the stream and releases the query's transactions.
func (q *Query) Vertices() ([]*vertex.Vertex, []error) {
	defer q.Close()
	return q.Query.Vertices()
}

// Values materializes the stream via selector and releases the query's
// transactions.
func (q *Query) Values(selector func(view.QueryState) any) ([]any, []error) {
	defer q.Close()
	return q.Query.Values(selector)
}

// Close releases this query's cached transactions without materializing
// it — used when abandoning a partially-consumed Generator stream (spec
// §5's cancellation guarantee: "dropping the terminal consumer" must still
// release transactions).
func (q *Query) Close() error {
	return q.session.Close()
}
