// Package pathmat implements spec §4.H: idempotent materialization of a
// slash-separated chain of vertices and edges along a single writer's feed,
// with a timestamp/id tie-break when concurrent writers have each created a
// candidate for the same path segment.
package pathmat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
	"github.com/hypergraphdb/hypergraphdb/pkg/graphstore"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// SplitPath normalizes separators (accepting both "/" and "\\") and drops
// empty segments. An empty or all-separator path yields an empty slice — the
// facade treats that as "no path," equivalent to not materializing at all.
func SplitPath(path string) []string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	raw := strings.Split(normalized, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

type routeEntry struct {
	parent *vertex.Vertex
	child  *vertex.Vertex
	label  string
}

// CreateEdgesToPath walks path from root, creating whichever segments do
// not already have a same-feed matching edge, and returns only the newly
// created vertices (empty when every segment already existed — the
// idempotence property spec §8 requires).
func CreateEdgesToPath(store *graphstore.Store, path string, root *vertex.Vertex) ([]*vertex.Vertex, error) {
	if !root.Writeable() {
		return nil, errors.New("pathmat: passed root vertex has to be writeable")
	}

	parts := SplitPath(path)
	if len(parts) == 0 {
		return nil, nil
	}

	tx, err := store.Transaction(root.Feed(), 0)
	if err != nil {
		return nil, fmt.Errorf("pathmat: opening transaction on %s: %w", root.Feed().Hex(), err)
	}
	defer tx.Close()
	feed := vertex.Feed(tx.StoreKey())

	var created []*vertex.Vertex
	var route []routeEntry
	cursor := root

	for _, seg := range parts {
		candidates, err := loadCandidates(store, tx, feed, cursor, seg)
		if err != nil {
			return nil, err
		}

		var next *vertex.Vertex
		switch len(candidates) {
		case 0:
			next = vertex.New()
			route = append(route, routeEntry{parent: cursor, child: next, label: seg})
			created = append(created, next)
		case 1:
			next = candidates[0]
		default:
			next = pickByTiebreak(candidates)
		}
		cursor = next
	}

	if len(created) > 0 {
		if err := store.PutAll(feed, created); err != nil {
			return nil, fmt.Errorf("pathmat: persisting created vertices: %w", err)
		}
	}

	for _, r := range route {
		r.parent.AddEdgeTo(r.child, r.label)
	}
	for _, p := range distinctParents(route) {
		if err := store.Put(feed, p); err != nil {
			return nil, fmt.Errorf("pathmat: persisting parent %s/%d: %w", feed.Hex(), p.ID(), err)
		}
	}

	return created, nil
}

// loadCandidates returns the vertices referenced by cursor's same-feed
// edges labeled seg — "absent edge.feed means same feed" per spec §4.B.
func loadCandidates(store *graphstore.Store, tx boundary.Transaction, feed vertex.Feed, cursor *vertex.Vertex, seg string) ([]*vertex.Vertex, error) {
	var out []*vertex.Vertex
	for _, e := range cursor.Edges(seg) {
		if len(e.Feed) != 0 && !e.Feed.Equal(feed) {
			continue
		}
		v, err := store.GetInTransaction(e.Ref, tx, feed)
		if err != nil {
			return nil, fmt.Errorf("pathmat: loading candidate %s/%d: %w", feed.Hex(), e.Ref, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// pickByTiebreak selects the highest-timestamp candidate, breaking ties by
// the higher id (spec §4.H step 4.e).
func pickByTiebreak(candidates []*vertex.Vertex) *vertex.Vertex {
	best := candidates[0]
	for _, v := range candidates[1:] {
		if v.Timestamp() > best.Timestamp() || (v.Timestamp() == best.Timestamp() && v.ID() > best.ID()) {
			best = v
		}
	}
	return best
}

// distinctParents returns each route entry's parent once, in first-seen
// order, so re-persisting them (step 7) doesn't write the same parent twice.
func distinctParents(route []routeEntry) []*vertex.Vertex {
	seen := make(map[*vertex.Vertex]bool, len(route))
	out := make([]*vertex.Vertex, 0, len(route))
	for _, r := range route {
		if seen[r.parent] {
			continue
		}
		seen[r.parent] = true
		out = append(out, r.parent)
	}
	return out
}
