package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRehydrateInvalidUTF8(t *testing.T) {
	codec, err := NewCodec().MarshalJSON()
	require.NoError(t, err)

	_, eerr := Rehydrate([]byte{'{', 0xff, '}'}, codec, []byte(`{}`))
	require.NotNil(t, eerr)
	assert.Equal(t, "invalid_utf8", eerr.Code)
}

func TestRehydrateRejectsCodecVersionMismatch(t *testing.T) {
	_, eerr := Rehydrate([]byte(`{}`), []byte(`{"$schema":"https://example.com/other","transforms":[],"droppedConstraints":[]}`), []byte(`{}`))
	require.NotNil(t, eerr)
	assert.Equal(t, "rehydration_error", eerr.Code)
}

// Rehydrating a provider document against the codec produced while
// converting an openai-strict schema removes the synthetic null that
// promote_optional_to_required_with_null introduced, restoring the
// pre-conversion shape.
func TestRehydrateRoundTripsPromotedOptional(t *testing.T) {
	converted := convert(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		},
		"required": ["name"]
	}`, "")

	codecJSON, err := converted.Codec.MarshalJSON()
	require.NoError(t, err)

	providerResponse := []byte(`{"name": "Ada", "age": null}`)

	result, eerr := Rehydrate(providerResponse, codecJSON, []byte(`{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		},
		"required": ["name"]
	}`))
	require.Nil(t, eerr)

	obj, ok := result.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", obj["name"])
	_, stillPresent := obj["age"]
	assert.False(t, stillPresent, "age should have been dropped since the provider emitted null for a promoted-optional field")
}

// A truncate_recursion transform cannot be losslessly undone, since the
// original subtree shape was discarded at conversion time; rehydration
// must surface that as a warning rather than fail outright.
func TestRehydrateWarnsOnTruncatedRecursion(t *testing.T) {
	converted := convert(t, `{
		"$ref": "#/$defs/Node",
		"$defs": {
			"Node": {
				"type": "object",
				"properties": {
					"value": {"type": "string"},
					"child": {"$ref": "#/$defs/Node"}
				}
			}
		}
	}`, `{"recursion-limit": 2}`)

	codecJSON, err := converted.Codec.MarshalJSON()
	require.NoError(t, err)

	result, eerr := Rehydrate([]byte(`{"value": "x"}`), codecJSON, []byte(`{"type":"object"}`))
	require.Nil(t, eerr)
	assert.NotEmpty(t, result.Warnings)
}
