// Package query implements spec §4.F: a lazy stream of QueryState over a
// view, built from range-over-func iterators so that nothing runs until a
// terminal combinator pulls on it.
package query

import (
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
	"github.com/hypergraphdb/hypergraphdb/pkg/view"
)

// hopConcurrency bounds how many outgoing edges of one vertex are resolved
// at once. Resolution order in the output is always the edge's insertion
// order regardless of which goroutine finishes first.
const hopConcurrency = 8

// Stream is a pull-based sequence of (state, error) pairs. An error is
// attached to its position rather than aborting the sequence — consistent
// with spec §7's "sibling hops continue" rule.
type Stream = iter.Seq2[view.QueryState, error]

// Query is one lazy pipeline stage. Building a Query (Out, Matches, Repeat)
// does no I/O; only a terminal (Vertices, Values, Generator) pulls.
type Query struct {
	view view.View
	src  Stream
}

// FromState starts a query at a single already-loaded state.
func FromState(v view.View, start view.QueryState) *Query {
	return &Query{
		view: v,
		src: func(yield func(view.QueryState, error) bool) {
			yield(start, nil)
		},
	}
}

// FromStates starts a query over several states, preserving their order
// (the "input stream order" spec §4.F's ordering guarantee is defined
// against).
func FromStates(v view.View, states []view.QueryState) *Query {
	return &Query{
		view: v,
		src: func(yield func(view.QueryState, error) bool) {
			for _, s := range states {
				if !yield(s, nil) {
					return
				}
			}
		},
	}
}

// Out applies the bound view's Out(state, label) to every input state and
// flattens the results, one output per matched edge, in edge insertion
// order (spec §4.F).
func (q *Query) Out(label string) *Query {
	upstream := q.src
	v := q.view
	return &Query{
		view: v,
		src: func(yield func(view.QueryState, error) bool) {
			for state, err := range upstream {
				if err != nil {
					if !yield(view.QueryState{}, err) {
						return
					}
					continue
				}
				hops := v.Out(state, label)
				for _, res := range resolveHops(state, hops) {
					if !yield(res.state, res.err) {
						return
					}
				}
			}
		},
	}
}

// Matches filters the stream by predicate; errors pass through untouched
// so a failed hop is never silently dropped.
func (q *Query) Matches(predicate func(view.QueryState) bool) *Query {
	upstream := q.src
	return &Query{
		view: q.view,
		src: func(yield func(view.QueryState, error) bool) {
			for state, err := range upstream {
				if err != nil {
					if !yield(view.QueryState{}, err) {
						return
					}
					continue
				}
				if !predicate(state) {
					continue
				}
				if !yield(state, nil) {
					return
				}
			}
		},
	}
}

// Generator exposes the pipeline as a raw Stream for manual iteration.
func (q *Query) Generator() Stream {
	return q.src
}

// Vertices materializes every successfully resolved state's vertex.
// Failures are collected separately, per-hop, rather than aborting
// materialization (spec §7's failure-isolation example).
func (q *Query) Vertices() (vertices []*vertex.Vertex, errs []error) {
	for state, err := range q.src {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		vertices = append(vertices, state.Value)
	}
	return vertices, errs
}

// Values materializes the stream and applies selector to each successfully
// resolved state.
func (q *Query) Values(selector func(view.QueryState) any) (values []any, errs []error) {
	for state, err := range q.src {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values = append(values, selector(state))
	}
	return values, errs
}

type hopResult struct {
	state view.QueryState
	err   error
}

// resolveHops resolves hops with bounded concurrency while preserving
// their original order in the returned slice; one hop's failure does not
// prevent its siblings from resolving.
func resolveHops(source view.QueryState, hops []view.Hop) []hopResult {
	results := make([]hopResult, len(hops))
	g := new(errgroup.Group)
	g.SetLimit(hopConcurrency)
	for i, h := range hops {
		i, h := i, h
		g.Go(func() error {
			state, err := h.Resolve()
			if err != nil {
				results[i] = hopResult{err: newEdgeTraversingError(source.Value, h.Edge, err)}
				return nil
			}
			results[i] = hopResult{state: state}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
