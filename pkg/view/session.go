package view

import (
	"sync"

	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/txcache"
)

// Constructor builds a View bound to one query Session.
type Constructor func(sess *Session) View

// Factory maps view names to constructors. Registration is expected at
// startup (mirrors the codec registry's write-once discipline); use
// NewSession per query to get independent, cache-sharing View instances.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	defaultName  string
}

// NewFactory returns a Factory pre-registered with GraphView (the
// spec-mandated default) and StaticView.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register(GraphViewName, func(sess *Session) View { return newGraphView(sess) })
	f.Register(StaticViewName, func(sess *Session) View { return newStaticView(sess) })
	f.defaultName = GraphViewName
	return f
}

// Register associates name with a constructor. Re-registering a name
// overwrites the prior constructor.
func (f *Factory) Register(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) lookup(name string) (Constructor, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ctor, ok := f.constructors[name]
	return ctor, ok
}

// NewSession starts a query-scoped session: every view constructed through
// it shares the given transaction cache, per spec §4.E.
func (f *Factory) NewSession(store *graphstore.Store, cache *txcache.Cache) *Session {
	return &Session{
		factory:   f,
		store:     store,
		cache:     cache,
		instances: make(map[string]View),
	}
}

// Session is the query-scoped set of view instances sharing one
// transaction cache.
type Session struct {
	factory   *Factory
	store     *graphstore.Store
	cache     *txcache.Cache
	mu        sync.Mutex
	instances map[string]View
}

// Resolve returns the (lazily constructed, memoized) View for name. The
// second return value is false when name was never registered.
func (s *Session) Resolve(name string) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.instances[name]; ok {
		return v, true
	}
	ctor, ok := s.factory.lookup(name)
	if !ok {
		return nil, false
	}
	v := ctor(s)
	s.instances[name] = v
	return v, true
}

// Default returns the factory's default view (GraphView unless overridden).
func (s *Session) Default() View {
	v, ok := s.Resolve(s.factory.defaultName)
	if !ok {
		panic("view: default view " + s.factory.defaultName + " not registered")
	}
	return v
}

// Close releases the session's shared transaction cache.
func (s *Session) Close() error {
	return s.cache.CloseAll()
}
