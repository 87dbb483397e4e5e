package vertex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Run("minimal_envelope", func(t *testing.T) {
		env := Envelope{Timestamp: 1690000000000, CodecTag: "raw", Content: []byte("hello")}
		b := Encode(env)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, env.Timestamp, got.Timestamp)
		assert.Equal(t, env.CodecTag, got.CodecTag)
		assert.Equal(t, env.Content, got.Content)
		assert.Empty(t, got.Edges)
	})

	t.Run("edges_with_all_optional_fields", func(t *testing.T) {
		version := uint64(42)
		env := Envelope{
			Timestamp: 7,
			CodecTag:  "json",
			Content:   []byte(`{"a":1}`),
			Edges: []Edge{
				{
					Label:    "child",
					Ref:      3,
					Feed:     Feed{0xde, 0xad, 0xbe, 0xef},
					View:     "static",
					Metadata: map[string][]byte{"z": []byte("1"), "a": []byte("2")},
					Restrictions: []Restriction{
						{Pattern: "a/*", Exclude: false},
						{Pattern: "a/b/**", Exclude: true},
					},
					Version: &version,
				},
				{Label: "sibling", Ref: 9},
			},
		}
		b := Encode(env)
		got, err := Decode(b)
		require.NoError(t, err)
		require.Len(t, got.Edges, 2)
		assert.Equal(t, env.Edges[0].Label, got.Edges[0].Label)
		assert.Equal(t, env.Edges[0].Ref, got.Edges[0].Ref)
		assert.Equal(t, env.Edges[0].Feed, got.Edges[0].Feed)
		assert.Equal(t, env.Edges[0].View, got.Edges[0].View)
		assert.Equal(t, env.Edges[0].Metadata, got.Edges[0].Metadata)
		assert.Equal(t, env.Edges[0].Restrictions, got.Edges[0].Restrictions)
		require.NotNil(t, got.Edges[0].Version)
		assert.Equal(t, version, *got.Edges[0].Version)

		assert.Nil(t, got.Edges[1].Feed)
		assert.Nil(t, got.Edges[1].Version)
	})

	t.Run("encode_is_canonical", func(t *testing.T) {
		env := Envelope{
			Timestamp: 1,
			CodecTag:  "raw",
			Content:   []byte("x"),
			Edges: []Edge{
				{Label: "a", Ref: 1, Metadata: map[string][]byte{"k2": {2}, "k1": {1}, "k3": {3}}},
			},
		}
		b1 := Encode(env)
		decoded, err := Decode(b1)
		require.NoError(t, err)
		b2 := Encode(decoded)
		assert.Equal(t, b1, b2, "encode(decode(b)) must equal b")
	})

	t.Run("rejects_trailing_bytes", func(t *testing.T) {
		env := Envelope{Timestamp: 1, CodecTag: "raw", Content: []byte("x")}
		b := append(Encode(env), 0xff)
		_, err := Decode(b)
		assert.Error(t, err)
	})

	t.Run("rejects_truncated_envelope", func(t *testing.T) {
		env := Envelope{Timestamp: 1, CodecTag: "raw", Content: []byte("hello world")}
		b := Encode(env)
		_, err := Decode(b[:len(b)-3])
		assert.Error(t, err)
	})

	t.Run("prior_id_round_trips", func(t *testing.T) {
		env := Envelope{PriorID: 7, Timestamp: 1, CodecTag: "raw", Content: []byte("x")}
		b := Encode(env)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), got.PriorID)
	})

	t.Run("zero_prior_id_means_first_revision", func(t *testing.T) {
		env := Envelope{Timestamp: 1, CodecTag: "raw", Content: []byte("x")}
		b := Encode(env)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.Zero(t, got.PriorID)
	})
}
