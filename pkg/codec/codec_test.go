package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCodecRoundTrip(t *testing.T) {
	r := NewRegistry()

	t.Run("map_round_trips", func(t *testing.T) {
		in := map[string]any{"name": "foo", "n": float64(3)}
		b, err := r.Encode(DefaultTag, in)
		require.NoError(t, err)
		out, err := r.Decode(DefaultTag, b)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("deterministic_for_equal_input", func(t *testing.T) {
		in := map[string]any{"a": 1.0}
		b1, err := r.Encode(DefaultTag, in)
		require.NoError(t, err)
		b2, err := r.Encode(DefaultTag, in)
		require.NoError(t, err)
		assert.Equal(t, b1, b2)
	})
}

func TestUnknownTagFallsBackToRawCodec(t *testing.T) {
	r := NewRegistry()

	c, known := r.Lookup("proprietary")
	assert.False(t, known)
	assert.Equal(t, "proprietary", c.Tag())

	out, err := r.Decode("proprietary", []byte{0xDE, 0xAD})
	require.NoError(t, err)
	raw, ok := out.(RawValue)
	require.True(t, ok)
	assert.Equal(t, "proprietary", raw.Tag)
	assert.Equal(t, []byte{0xDE, 0xAD}, raw.Body)
}

func TestRegisteredCustomCodecHandlesItsTag(t *testing.T) {
	r := NewRegistry()
	r.Register(customCodec{})

	b, err := r.Encode("custom", "payload")
	require.NoError(t, err)
	out, err := r.Decode("custom", b)
	require.NoError(t, err)
	assert.Equal(t, "PAYLOAD", out)
}

type customCodec struct{}

func (customCodec) Tag() string { return "custom" }
func (customCodec) Encode(v any) ([]byte, error) {
	return []byte(v.(string)), nil
}
func (customCodec) Decode(b []byte) (any, error) {
	up := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 32
		}
		up[i] = c
	}
	return string(up), nil
}
