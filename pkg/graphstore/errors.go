package graphstore

import "fmt"

// VertexLoadingError is returned when an underlying read fails or the
// requested record does not exist (spec §7). View is set by the view layer
// (pkg/view) when the read was made on a view's behalf; it is empty for
// reads made directly against a Store.
type VertexLoadingError struct {
	Feed    string
	ID      uint64
	Version uint64
	View    string
	Cause   error
}

func (e *VertexLoadingError) Error() string {
	if e.View != "" {
		return fmt.Sprintf("graphstore: loading vertex %s/%d@%d via view %q: %v", e.Feed, e.ID, e.Version, e.View, e.Cause)
	}
	return fmt.Sprintf("graphstore: loading vertex %s/%d@%d: %v", e.Feed, e.ID, e.Version, e.Cause)
}

func (e *VertexLoadingError) Unwrap() error { return e.Cause }

// VertexDecodingError is returned when a record's binary envelope is
// malformed or its codec rejects the decoded bytes (spec §7).
type VertexDecodingError struct {
	Feed  string
	ID    uint64
	Cause error
}

func (e *VertexDecodingError) Error() string {
	return fmt.Sprintf("graphstore: decoding vertex %s/%d: %v", e.Feed, e.ID, e.Cause)
}

func (e *VertexDecodingError) Unwrap() error { return e.Cause }
