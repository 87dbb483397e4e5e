package query

import (
	"fmt"

	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// EdgeTraversingError reports that one outgoing edge of a vertex failed to
// resolve during Out/Repeat. It is attached to the failed hop's result
// rather than aborting the stream, so sibling hops still resolve (spec §7).
//
// It carries sanitized metadata hints, not the raw edge: edge.Metadata may
// hold opaque bytes such as decryption hints (spec §3), so only each key's
// first two hex chars are recorded — enough to distinguish hints in a log
// line without leaking key material.
type EdgeTraversingError struct {
	Source struct {
		Feed string
		ID   uint64
	}
	Label        string
	Ref          uint64
	TargetFeed   string
	MetadataHint map[string]string
	Cause        error
}

func (e *EdgeTraversingError) Error() string {
	return fmt.Sprintf("query: traversing edge %q from %s/%d to %s/%d: %v", e.Label, e.Source.Feed, e.Source.ID, e.TargetFeed, e.Ref, e.Cause)
}

func (e *EdgeTraversingError) Unwrap() error { return e.Cause }

func newEdgeTraversingError(source *vertex.Vertex, edge vertex.Edge, cause error) *EdgeTraversingError {
	err := &EdgeTraversingError{
		Label:      edge.Label,
		Ref:        uint64(edge.Ref),
		TargetFeed: edge.TargetFeed(source.Feed()).Hex(),
		Cause:      cause,
	}
	err.Source.Feed = source.Feed().Hex()
	err.Source.ID = uint64(source.ID())
	if len(edge.Metadata) > 0 {
		err.MetadataHint = make(map[string]string, len(edge.Metadata))
		for k, v := range edge.Metadata {
			err.MetadataHint[k] = hexHint(v)
		}
	}
	return err
}

// hexHint renders the first byte of v as two hex chars, or "" for empty v.
func hexHint(v []byte) string {
	h := vertex.Feed(v).Hex()
	if len(h) > 2 {
		return h[:2]
	}
	return h
}
