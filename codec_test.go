package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodecIsEmpty(t *testing.T) {
	c := NewCodec()
	assert.Equal(t, CodecSchemaURI, c.SchemaURI)
	assert.Empty(t, c.Transforms)
	assert.Empty(t, c.DroppedConstraints)
}

func TestCodecMarshalUnmarshalRoundTrip(t *testing.T) {
	c := NewCodec()
	c.record(Transform{Op: OpDropFormat, At: "#/properties/x", Format: "ipv4"})
	c.drop("#/properties/y", "pattern", "^a+$", "target does not support pattern")

	data, err := c.MarshalJSON()
	require.NoError(t, err)

	parsed, err := ParseCodec(data)
	require.NoError(t, err)
	assert.Equal(t, c.SchemaURI, parsed.SchemaURI)
	require.Len(t, parsed.Transforms, 1)
	assert.Equal(t, OpDropFormat, parsed.Transforms[0].Op)
	require.Len(t, parsed.DroppedConstraints, 1)
	assert.Equal(t, "pattern", parsed.DroppedConstraints[0].Keyword)
}

func TestParseCodecRejectsVersionMismatch(t *testing.T) {
	_, err := ParseCodec([]byte(`{"$schema":"https://example.com/other","transforms":[],"droppedConstraints":[]}`))
	assert.ErrorIs(t, err, ErrCodecVersionMismatch)
}

func TestParseCodecRejectsMalformed(t *testing.T) {
	_, err := ParseCodec([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedCodec)
}
