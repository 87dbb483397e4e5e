package view

import (
	"fmt"

	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// StaticViewName is the name StaticView registers under.
const StaticViewName = "static"

// staticView enumerates edges identically to graphView but always
// interprets the hop itself, ignoring Edge.View — deterministic,
// metadata-free traversal (spec §4.E).
type staticView struct{ baseView }

func newStaticView(sess *Session) View {
	return &staticView{baseView{store: sess.store, cache: sess.cache, session: sess}}
}

func (v *staticView) Name() string { return StaticViewName }

// Get never delegates: viewDesc is accepted for interface compatibility
// but ignored, matching StaticView's determinism guarantee.
func (v *staticView) Get(feed vertex.Feed, id vertex.ID, version uint64, _ string, _ map[string][]byte) (*vertex.Vertex, error) {
	return v.getViaOwnCache(feed, id, version, v.Name())
}

func (v *staticView) Out(state QueryState, label string) []Hop {
	edges := state.Value.Edges(label)
	hops := make([]Hop, 0, len(edges))
	for _, e := range edges {
		e := e
		targetFeed := e.TargetFeed(state.Value.Feed())
		hops = append(hops, Hop{
			Label: e.Label,
			Edge:  e,
			Resolve: func() (QueryState, error) {
				target, err := v.Get(targetFeed, e.Ref, edgeVersion(e), "", nil)
				if err != nil {
					return QueryState{}, fmt.Errorf("view: static: resolving edge %q -> %s/%d: %w", e.Label, targetFeed.Hex(), e.Ref, err)
				}
				return v.toResult(target, e, state), nil
			},
		})
	}
	return hops
}
