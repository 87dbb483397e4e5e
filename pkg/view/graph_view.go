package view

import (
	"fmt"

	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// GraphViewName is the name GraphView registers under.
const GraphViewName = "graph"

// graphView is the default view (spec §4.E): for each edge it resolves
// (edge.feed ?? vertex.feed, edge.ref) through Get, handing interpretation
// off to edge.View when the edge names one.
type graphView struct{ baseView }

func newGraphView(sess *Session) View {
	return &graphView{baseView{store: sess.store, cache: sess.cache, session: sess}}
}

func (v *graphView) Name() string { return GraphViewName }

// Get implements the mandatory-delegation rule: when viewDesc names a
// registered view, that view interprets the read; an unknown viewDesc
// falls back to this view per spec §7.
func (v *graphView) Get(feed vertex.Feed, id vertex.ID, version uint64, viewDesc string, metadata map[string][]byte) (*vertex.Vertex, error) {
	if viewDesc != "" {
		if target, ok := v.session.Resolve(viewDesc); ok {
			return target.Get(feed, id, version, "", metadata)
		}
	}
	return v.getViaOwnCache(feed, id, version, v.Name())
}

func (v *graphView) Out(state QueryState, label string) []Hop {
	edges := state.Value.Edges(label)
	hops := make([]Hop, 0, len(edges))
	for _, e := range edges {
		e := e
		targetFeed := e.TargetFeed(state.Value.Feed())
		hops = append(hops, Hop{
			Label: e.Label,
			Edge:  e,
			Resolve: func() (QueryState, error) {
				target, err := v.Get(targetFeed, e.Ref, edgeVersion(e), e.View, e.Metadata)
				if err != nil {
					return QueryState{}, fmt.Errorf("view: graph: resolving edge %q -> %s/%d: %w", e.Label, targetFeed.Hex(), e.Ref, err)
				}
				return v.toResult(target, e, state), nil
			},
		})
	}
	return hops
}
