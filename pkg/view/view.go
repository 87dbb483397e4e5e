// Package view implements spec §4.E: pluggable strategies for interpreting
// a vertex's outgoing edges. GraphView (the default) lets an edge hand off
// interpretation to another named view via Edge.View; StaticView ignores
// that hand-off and always interprets edges itself, yielding deterministic,
// metadata-free traversal.
//
// Per spec §9's guidance to "prefer composition with a shared base
// behavior struct," both built-in views embed baseView, which owns the
// transaction cache and the restriction-propagation rule (toResult).
package view

import (
	"errors"
	"fmt"

	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/txcache"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// QueryState is the per-path state the query engine threads through a
// traversal: the vertex currently being visited, plus every restriction
// accumulated along the path so far (spec §4.F).
type QueryState struct {
	Value        *vertex.Vertex
	Restrictions []vertex.Restriction
}

// NewState seeds traversal state at v with no restrictions.
func NewState(v *vertex.Vertex) QueryState {
	return QueryState{Value: v}
}

// AddRestrictions returns a new state at vertex v with rs appended to the
// existing restriction list. The receiver's slice is never mutated in
// place, so sibling hops sharing the same parent state stay independent.
func (s QueryState) AddRestrictions(v *vertex.Vertex, rs []vertex.Restriction) QueryState {
	if len(rs) == 0 {
		return QueryState{Value: v, Restrictions: s.Restrictions}
	}
	merged := make([]vertex.Restriction, 0, len(s.Restrictions)+len(rs))
	merged = append(merged, s.Restrictions...)
	merged = append(merged, rs...)
	return QueryState{Value: v, Restrictions: merged}
}

// Hop is one lazily-resolvable outgoing edge, as returned by View.Out.
// Each Hop resolves independently: a failure in one does not prevent
// siblings from resolving (spec §4.E/§7 — "sibling hops continue").
type Hop struct {
	Label   string
	Edge    vertex.Edge
	Resolve func() (QueryState, error)
}

// View is the capability set spec §4.E requires of every view variant.
type View interface {
	// Name is this view's unique, registrable name.
	Name() string
	// Get loads the vertex at (feed, id) at the given version (0 = current
	// length). If viewDesc names another registered view, delegation is
	// mandatory; an unrecognized viewDesc falls back to this view
	// (spec §7). metadata carries edge-supplied hints (e.g. decryption
	// parameters for a custom view).
	Get(feed vertex.Feed, id vertex.ID, version uint64, viewDesc string, metadata map[string][]byte) (*vertex.Vertex, error)
	// Out returns one Hop per outgoing edge of state.Value matching label
	// ("" matches every label).
	Out(state QueryState, label string) []Hop
}

// baseView shares transaction-cache access and restriction propagation
// across every view constructed within one query/session (spec §4.E/§9).
type baseView struct {
	store   *graphstore.Store
	cache   *txcache.Cache
	session *Session
}

// getViaOwnCache loads (feed, id) through this view's shared per-query
// transaction cache — the "reads via the core in its own transaction
// cache" branch of spec §4.E's Get contract. viewName tags any resulting
// VertexLoadingError with the view that attempted the read (spec §7).
func (b *baseView) getViaOwnCache(feed vertex.Feed, id vertex.ID, version uint64, viewName string) (*vertex.Vertex, error) {
	tx, err := b.cache.GetOrOpen(feed, version)
	if err != nil {
		return nil, fmt.Errorf("view: opening transaction for %s/%d: %w", feed.Hex(), id, err)
	}
	v, err := b.store.GetInTransaction(id, tx, feed)
	if err != nil {
		var loadErr *graphstore.VertexLoadingError
		if errors.As(err, &loadErr) {
			loadErr.View = viewName
		}
		return nil, err
	}
	return v, nil
}

// toResult implements spec §4.E's toResult: restrictions propagate into
// state' only when the followed edge carried any.
func (b *baseView) toResult(v *vertex.Vertex, edge vertex.Edge, state QueryState) QueryState {
	return state.AddRestrictions(v, edge.Restrictions)
}

func edgeVersion(e vertex.Edge) uint64 {
	if e.Version == nil {
		return 0
	}
	return *e.Version
}
