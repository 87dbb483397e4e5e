package query

import (
	"strconv"

	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
	"github.com/hypergraphdb/hypergraphdb/pkg/view"
)

// RepeatOptions configures Repeat. Until and Max are both optional; when
// neither is set, Repeat expands every reachable state (bounded only by
// Dedup, if set, or by the graph's actual structure).
type RepeatOptions struct {
	// Until, when non-nil, stops expanding a branch once it returns true
	// for a state at the given depth (the matching state is still emitted).
	Until func(state view.QueryState, depth int) bool
	// Max caps the number of hops taken from any starting state. 0 means
	// unbounded.
	Max int
	// Dedup tracks visited vertices by (feed, id) and skips re-visiting
	// them, per spec §4.F's explicit opt-in "seen" set.
	Dedup bool
}

type frontierItem struct {
	state view.QueryState
	depth int
}

// Repeat applies Out(label) breadth-first: every input state is emitted,
// then expanded one level at a time until Until holds for a branch or Max
// depth is reached. Each level preserves the source states' insertion
// order (spec §4.F's "BFS-like" guarantee).
func (q *Query) Repeat(label string, opts RepeatOptions) *Query {
	upstream := q.src
	v := q.view
	return &Query{
		view: v,
		src: func(yield func(view.QueryState, error) bool) {
			seen := make(map[string]bool)

			var frontier []frontierItem
			for state, err := range upstream {
				if err != nil {
					if !yield(view.QueryState{}, err) {
						return
					}
					continue
				}
				if opts.Dedup && !markSeen(seen, state.Value) {
					continue
				}
				frontier = append(frontier, frontierItem{state: state, depth: 0})
			}

			for len(frontier) > 0 {
				var next []frontierItem
				for _, it := range frontier {
					if !yield(it.state, nil) {
						return
					}
					if opts.Until != nil && opts.Until(it.state, it.depth) {
						continue
					}
					if opts.Max > 0 && it.depth >= opts.Max {
						continue
					}
					hops := v.Out(it.state, label)
					for _, res := range resolveHops(it.state, hops) {
						if res.err != nil {
							if !yield(view.QueryState{}, res.err) {
								return
							}
							continue
						}
						if opts.Dedup && !markSeen(seen, res.state.Value) {
							continue
						}
						next = append(next, frontierItem{state: res.state, depth: it.depth + 1})
					}
				}
				frontier = next
			}
		},
	}
}

// markSeen reports whether v is newly seen, recording it if so.
func markSeen(seen map[string]bool, v *vertex.Vertex) bool {
	key := v.Feed().Hex() + "/" + strconv.FormatUint(uint64(v.ID()), 10)
	if seen[key] {
		return false
	}
	seen[key] = true
	return true
}
