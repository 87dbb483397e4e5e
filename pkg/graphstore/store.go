// Package graphstore is the transactional core store (spec §4.D): it
// binary-encodes vertices through a codec registry and writes them to
// feeds via the boundary.Corestore contract, stamping timestamps and
// binding (id, feed) on first persist.
package graphstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
	"github.com/hypergraphdb/hypergraphdb/pkg/codec"
	"github.com/hypergraphdb/hypergraphdb/pkg/vertex"
)

// Store is the transactional vertex store over a boundary.Corestore.
type Store struct {
	corestore boundary.Corestore
	codecs    *codec.Registry
	now       func() uint64 // overridable for tests; defaults to wall-clock millis
	revisions *revisionCache
}

// New returns a Store writing through corestore and encoding content via
// codecs.
func New(corestore boundary.Corestore, codecs *codec.Registry) *Store {
	return &Store{
		corestore: corestore,
		codecs:    codecs,
		now:       func() uint64 { return uint64(time.Now().UnixMilli()) },
		revisions: newRevisionCache(),
	}
}

// GetDefaultFeedID returns (creating if absent) the local writable default
// feed's key.
func (s *Store) GetDefaultFeedID() (vertex.Feed, error) {
	key, err := s.corestore.DefaultKey()
	if err != nil {
		return nil, fmt.Errorf("graphstore: resolving default feed: %w", err)
	}
	return vertex.Feed(key), nil
}

// Transaction opens a fresh snapshot on feed at the given length (0 means
// "current length"). Callers that want amortized opens across a query
// should go through pkg/txcache instead of calling this directly per hop.
func (s *Store) Transaction(feed vertex.Feed, version uint64) (boundary.Transaction, error) {
	f, err := s.corestore.Get(feed)
	if err != nil {
		return nil, fmt.Errorf("graphstore: opening feed %s: %w", feed.Hex(), err)
	}
	tx, err := f.Transaction(version)
	if err != nil {
		return nil, fmt.Errorf("graphstore: opening transaction on %s: %w", feed.Hex(), err)
	}
	return tx, nil
}

// Put persists v to feed. If v has never been persisted, it is stamped,
// encoded, and appended, binding (id, feed) on v. Otherwise a new revision
// is appended under a new id on the same feed, per spec §3's "re-persisting
// a vertex appends a new revision with a new id."
func (s *Store) Put(feed vertex.Feed, v *vertex.Vertex) error {
	tx, err := s.Transaction(feed, 0)
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := s.putInTransaction(tx, feed, v); err != nil {
		return err
	}
	return tx.Commit()
}

// PutAll writes every vertex in vs to feed within a single transaction, in
// insertion order. A failure on any vertex aborts the whole batch — the
// transaction is never committed, so none of its writes (including earlier
// vertices in vs) become visible — and the first error is returned, per
// spec §4.D.
func (s *Store) PutAll(feed vertex.Feed, vs []*vertex.Vertex) error {
	tx, err := s.Transaction(feed, 0)
	if err != nil {
		return err
	}
	defer tx.Close()

	for i, v := range vs {
		if err := s.putInTransaction(tx, feed, v); err != nil {
			return fmt.Errorf("graphstore: putAll aborted at vertex %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *Store) putInTransaction(tx boundary.Transaction, feed vertex.Feed, v *vertex.Vertex) error {
	var priorID uint64
	if v.Bound() {
		priorID = uint64(v.ID())
	}

	v.SetTimestamp(s.now())
	if v.CodecTag() == "" {
		v.SetCodecTag(codec.DefaultTag)
	}

	content, err := s.codecs.Encode(v.CodecTag(), v.Content())
	if err != nil {
		return fmt.Errorf("graphstore: encoding vertex content: %w", err)
	}

	env := vertex.Envelope{
		PriorID:   priorID,
		Timestamp: v.Timestamp(),
		CodecTag:  v.CodecTag(),
		Content:   content,
		Edges:     v.AllEdges(),
	}
	id, err := tx.Put(vertex.Encode(env))
	if err != nil {
		return fmt.Errorf("graphstore: writing vertex to feed %s: %w", feed.Hex(), err)
	}

	v.Bind(feed, vertex.ID(id), v.Timestamp())
	return nil
}

// Get loads the vertex at (feed, id), opening its own transaction at
// version (0 means current length).
func (s *Store) Get(feed vertex.Feed, id vertex.ID, version uint64) (*vertex.Vertex, error) {
	tx, err := s.Transaction(feed, version)
	if err != nil {
		return nil, &VertexLoadingError{Feed: feed.Hex(), ID: uint64(id), Version: version, Cause: err}
	}
	defer tx.Close()
	return s.GetInTransaction(id, tx, feed)
}

// GetInTransaction loads the vertex at (feed, id) using an already-open
// transaction, without opening a fresh one — the fast path views and the
// query engine use via pkg/txcache. id is resolved to its latest revision
// first: an edge's Ref is frozen at the id its target held when the edge
// was added, and a later re-persist of that target appends a new revision
// under a new id, so a stale Ref must be chased forward before it is read
// (spec §3).
func (s *Store) GetInTransaction(id vertex.ID, tx boundary.Transaction, feed vertex.Feed) (*vertex.Vertex, error) {
	resolved, err := s.revisions.resolve(tx, feed, id)
	if err != nil {
		return nil, &VertexLoadingError{Feed: feed.Hex(), ID: uint64(id), Version: tx.Version(), Cause: err}
	}

	raw, err := tx.Get(uint64(resolved))
	if err != nil {
		return nil, &VertexLoadingError{Feed: feed.Hex(), ID: uint64(id), Version: tx.Version(), Cause: err}
	}

	env, err := vertex.Decode(raw)
	if err != nil {
		return nil, &VertexDecodingError{Feed: feed.Hex(), ID: uint64(id), Cause: err}
	}

	content, err := s.codecs.Decode(env.CodecTag, env.Content)
	if err != nil {
		return nil, &VertexDecodingError{Feed: feed.Hex(), ID: uint64(id), Cause: err}
	}

	out := vertex.New()
	out.Bind(feed, resolved, env.Timestamp)
	out.SetContentWithTag(env.CodecTag, content)
	out.SetEdges(env.Edges)
	out.SetWriteable(s.feedWritable(feed))
	return out, nil
}

// feedWritable asks the corestore whether feed is locally writable, used
// to set Vertex.Writeable on load. Errors are treated as non-writable —
// pathmat and other writers re-check writability explicitly before mutating.
func (s *Store) feedWritable(feed vertex.Feed) bool {
	f, err := s.corestore.Get(feed)
	if err != nil {
		return false
	}
	return f.Writable()
}

// IsNotFound reports whether err (as returned by Get/GetInTransaction)
// reflects a missing record rather than some other I/O failure.
func IsNotFound(err error) bool {
	return errors.Is(err, boundary.ErrNotFound)
}
