package vertex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Envelope is the binary record appended to a feed for one vertex revision,
// per spec §6:
//
//	preamble    varint prior-revision id (0 = no prior revision)
//	timestamp   varint milliseconds since epoch
//	codec_tag   length-prefixed string naming the payload codec
//	content     length-prefixed bytes, codec-specific
//	edges       length-prefixed list of edge sub-envelopes
//
// Re-persisting a vertex appends a new revision under a new id; the
// preamble links that revision back to the id it superseded, so readers
// can always resolve a stale reference to the latest revision (spec §3).
//
// Encode/Decode round-trip byte-exactly: Encode(Decode(b)) == b for every b
// this package produces.
type Envelope struct {
	PriorID   uint64 // 0 means this is the first revision ever written for its id chain
	Timestamp uint64
	CodecTag  string
	Content   []byte
	Edges     []Edge
}

// Encode serializes e to its canonical byte form.
func Encode(e Envelope) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, e.PriorID)
	writeUvarint(&buf, e.Timestamp)
	writeString(&buf, e.CodecTag)
	writeBytes(&buf, e.Content)
	writeUvarint(&buf, uint64(len(e.Edges)))
	for _, edge := range e.Edges {
		encodeEdge(&buf, edge)
	}
	return buf.Bytes()
}

// Decode parses a byte-exact Envelope produced by Encode.
func Decode(b []byte) (Envelope, error) {
	r := &cursor{b: b}
	priorID, err := r.uvarint()
	if err != nil {
		return Envelope{}, fmt.Errorf("vertex: decoding prior id: %w", err)
	}
	ts, err := r.uvarint()
	if err != nil {
		return Envelope{}, fmt.Errorf("vertex: decoding timestamp: %w", err)
	}
	tag, err := r.string()
	if err != nil {
		return Envelope{}, fmt.Errorf("vertex: decoding codec tag: %w", err)
	}
	content, err := r.bytes()
	if err != nil {
		return Envelope{}, fmt.Errorf("vertex: decoding content: %w", err)
	}
	n, err := r.uvarint()
	if err != nil {
		return Envelope{}, fmt.Errorf("vertex: decoding edge count: %w", err)
	}
	edges := make([]Edge, 0, n)
	for i := uint64(0); i < n; i++ {
		edge, err := decodeEdge(r)
		if err != nil {
			return Envelope{}, fmt.Errorf("vertex: decoding edge %d: %w", i, err)
		}
		edges = append(edges, edge)
	}
	if r.remaining() != 0 {
		return Envelope{}, fmt.Errorf("vertex: %d trailing bytes after envelope", r.remaining())
	}
	return Envelope{PriorID: priorID, Timestamp: ts, CodecTag: tag, Content: content, Edges: edges}, nil
}

func encodeEdge(buf *bytes.Buffer, e Edge) {
	writeString(buf, e.Label)
	writeUvarint(buf, uint64(e.Ref))
	writeBytes(buf, []byte(e.Feed))
	writeString(buf, e.View)

	writeUvarint(buf, uint64(len(e.Metadata)))
	for _, k := range sortedKeys(e.Metadata) {
		writeString(buf, k)
		writeBytes(buf, e.Metadata[k])
	}

	writeUvarint(buf, uint64(len(e.Restrictions)))
	for _, r := range e.Restrictions {
		writeString(buf, r.Pattern)
		if r.Exclude {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}

	if e.Version != nil {
		buf.WriteByte(1)
		writeUvarint(buf, *e.Version)
	} else {
		buf.WriteByte(0)
	}
}

func decodeEdge(r *cursor) (Edge, error) {
	label, err := r.string()
	if err != nil {
		return Edge{}, err
	}
	ref, err := r.uvarint()
	if err != nil {
		return Edge{}, err
	}
	feed, err := r.bytes()
	if err != nil {
		return Edge{}, err
	}
	view, err := r.string()
	if err != nil {
		return Edge{}, err
	}

	metaCount, err := r.uvarint()
	if err != nil {
		return Edge{}, err
	}
	var metadata map[string][]byte
	if metaCount > 0 {
		metadata = make(map[string][]byte, metaCount)
		for i := uint64(0); i < metaCount; i++ {
			k, err := r.string()
			if err != nil {
				return Edge{}, err
			}
			v, err := r.bytes()
			if err != nil {
				return Edge{}, err
			}
			metadata[k] = v
		}
	}

	restrictionCount, err := r.uvarint()
	if err != nil {
		return Edge{}, err
	}
	var restrictions []Restriction
	if restrictionCount > 0 {
		restrictions = make([]Restriction, 0, restrictionCount)
		for i := uint64(0); i < restrictionCount; i++ {
			pattern, err := r.string()
			if err != nil {
				return Edge{}, err
			}
			excludeByte, err := r.byte()
			if err != nil {
				return Edge{}, err
			}
			restrictions = append(restrictions, Restriction{Pattern: pattern, Exclude: excludeByte != 0})
		}
	}

	hasVersion, err := r.byte()
	if err != nil {
		return Edge{}, err
	}
	var version *uint64
	if hasVersion != 0 {
		v, err := r.uvarint()
		if err != nil {
			return Edge{}, err
		}
		version = &v
	}

	var feedVal Feed
	if len(feed) > 0 {
		feedVal = Feed(feed)
	}

	return Edge{
		Label:        label,
		Ref:          ID(ref),
		Feed:         feedVal,
		View:         view,
		Metadata:     metadata,
		Restrictions: restrictions,
		Version:      version,
	}, nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

// cursor reads the varint/length-prefixed primitives off a fixed byte slice.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.b) - c.pos }

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.b) {
		return 0, fmt.Errorf("unexpected end of envelope")
	}
	b := c.b[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.b[c.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("malformed varint at offset %d", c.pos)
	}
	c.pos += n
	return v, nil
}

func (c *cursor) bytes() ([]byte, error) {
	n, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	if uint64(c.remaining()) < n {
		return nil, fmt.Errorf("length-prefixed field (%d bytes) exceeds remaining envelope (%d bytes)", n, c.remaining())
	}
	out := c.b[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return out, nil
}

func (c *cursor) string() (string, error) {
	b, err := c.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
