// Package vertex holds the in-memory graph node type and its edges.
//
// A Vertex is mutable until it is first persisted: Id and Feed are unset,
// Writeable is meaningless. Once a core store assigns an id and feed the
// vertex is considered bound; it may still be mutated in memory and
// re-persisted, which appends a new revision under a new id on the same
// feed (see pkg/graphstore).
package vertex

// ID is the 1-based position of a vertex within its feed.
type ID uint64

// Feed is an opaque append-only log key, compared byte-wise.
type Feed []byte

// Hex renders a feed key as lowercase hex, the canonical form used in every
// cross-feed identifier.
func (f Feed) Hex() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(f)*2)
	for i, b := range f {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

func (f Feed) Equal(o Feed) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if f[i] != o[i] {
			return false
		}
	}
	return true
}

// Restriction is a path rule attached to query state by a followed edge.
// Restrictions are pure data: a glob-style pattern plus whether matching
// paths are included or excluded from further traversal.
type Restriction struct {
	Pattern string
	Exclude bool
}

// Edge is a directed, labeled reference from a vertex to a (feed, id) pair.
// An absent Feed means "same feed as the source vertex" by convention.
type Edge struct {
	Label        string
	Ref          ID
	Feed         Feed // nil ≡ same feed as source vertex
	View         string
	Metadata     map[string][]byte
	Restrictions []Restriction
	Version      *uint64 // pinned feed length for reproducible reads; see graphstore
}

// sameFeed reports whether e targets the given source feed, applying the
// "absent feed means same feed" convention.
func (e Edge) sameFeed(source Feed) bool {
	return len(e.Feed) == 0 || e.Feed.Equal(source)
}

// TargetFeed resolves the edge's target feed given the feed of the vertex
// the edge was read from.
func (e Edge) TargetFeed(source Feed) Feed {
	if len(e.Feed) == 0 {
		return source
	}
	return e.Feed
}

// equalKey is the identity spec §4.B defines for edges: (label, ref, feed, view).
func (e Edge) equalKey(o Edge) bool {
	return e.Label == o.Label && e.Ref == o.Ref && e.View == o.View && e.Feed.Equal(o.Feed)
}

// EdgeOptions carries the optional fields of AddEdgeTo.
type EdgeOptions struct {
	View         string
	Metadata     map[string][]byte
	Restrictions []Restriction
}

// Vertex is the unit of storage: a timestamped, codec-decoded payload plus
// an ordered list of outgoing edges.
//
// Id and Feed are first bound on persist (see pkg/graphstore.Store.Put);
// each re-persist rebinds Id to the new revision's id. Content and Edges
// may be freely mutated before a (re-)persist.
type Vertex struct {
	id        ID
	idBound   bool
	feed      Feed
	timestamp uint64
	content   any
	codecTag  string
	edges     []Edge
	writeable bool
}

// New returns a transient vertex with no id or feed bound yet.
func New() *Vertex {
	return &Vertex{}
}

// Bind assigns id, feed and timestamp to a vertex. It is called on every
// persist: re-binding (on a re-persist) replaces id with the new revision's
// id. Bind does not check that feed matches the vertex's original feed.
func (v *Vertex) Bind(feed Feed, id ID, timestamp uint64) {
	v.feed = feed
	v.id = id
	v.timestamp = timestamp
	v.idBound = true
}

// Bound reports whether the vertex has ever been persisted.
func (v *Vertex) Bound() bool { return v.idBound }

func (v *Vertex) ID() ID            { return v.id }
func (v *Vertex) Feed() Feed        { return v.feed }
func (v *Vertex) Timestamp() uint64 { return v.timestamp }
func (v *Vertex) Content() any      { return v.content }
func (v *Vertex) Writeable() bool   { return v.writeable }

// SetWriteable is set by the core store when a vertex is loaded, derived
// from whether the owning feed is locally writable.
func (v *Vertex) SetWriteable(w bool) { v.writeable = w }

// SetContent replaces the vertex's decoded payload, keeping its current
// codec tag (or codec.DefaultTag if none was ever set).
func (v *Vertex) SetContent(c any) { v.content = c }

// SetContentWithTag replaces the payload and the codec tag it should be
// encoded with on next persist. Use this when a vertex's content is not
// the default opaque map (spec §4.A allows multiple registered codecs).
func (v *Vertex) SetContentWithTag(tag string, c any) {
	v.codecTag = tag
	v.content = c
}

// CodecTag is the tag this vertex's content will be (or was) encoded
// under. Defaults to "" until SetContentWithTag is called or the vertex
// is loaded from storage; the core store substitutes codec.DefaultTag
// when persisting a vertex whose tag is still unset.
func (v *Vertex) CodecTag() string { return v.codecTag }

// SetCodecTag is used by the core store when persisting a vertex whose tag
// is still unset, to record the tag (codec.DefaultTag) its content is
// encoded under.
func (v *Vertex) SetCodecTag(tag string) { v.codecTag = tag }

// SetTimestamp is used by the core store when stamping a new revision.
func (v *Vertex) SetTimestamp(ts uint64) { v.timestamp = ts }

// Edges returns all edges, or only those matching label when label != "".
// Order is insertion order, per spec §4.B.
func (v *Vertex) Edges(label string) []Edge {
	if label == "" {
		out := make([]Edge, len(v.edges))
		copy(out, v.edges)
		return out
	}
	var out []Edge
	for _, e := range v.edges {
		if e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges returns every edge regardless of label, for callers (like the
// binary envelope writer) that need the raw slice.
func (v *Vertex) AllEdges() []Edge {
	return v.Edges("")
}

// AddEdgeTo appends an edge to target, recording target's feed only when it
// differs from v's own feed.
func (v *Vertex) AddEdgeTo(target *Vertex, label string, opts ...EdgeOptions) Edge {
	e := Edge{Label: label, Ref: target.id}
	if !target.feed.Equal(v.feed) {
		e.Feed = target.feed
	}
	if len(opts) > 0 {
		e.View = opts[0].View
		e.Metadata = opts[0].Metadata
		e.Restrictions = opts[0].Restrictions
	}
	v.edges = append(v.edges, e)
	return e
}

// ReplaceEdgeTo applies transform to every edge matching target's (feed,
// id), replacing it in place.
func (v *Vertex) ReplaceEdgeTo(target *Vertex, transform func(Edge) Edge) {
	for i, e := range v.edges {
		if e.Ref == target.id && e.TargetFeed(v.feed).Equal(target.feed) {
			v.edges[i] = transform(e)
		}
	}
}

// RemoveEdge drops every edge for which match returns true.
func (v *Vertex) RemoveEdge(match func(Edge) bool) {
	kept := v.edges[:0]
	for _, e := range v.edges {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	v.edges = kept
}

// SetEdges replaces the edge list wholesale; used by the envelope decoder.
func (v *Vertex) SetEdges(edges []Edge) { v.edges = edges }
