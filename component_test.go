package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const componentSchema = `{
	"type": "object",
	"properties": {"user": {"$ref": "#/$defs/User"}},
	"$defs": {
		"User": {
			"type": "object",
			"properties": {
				"address": {"$ref": "#/$defs/Address"}
			}
		},
		"Address": {"type": "string"},
		"Unused": {"type": "boolean"}
	}
}`

func TestListComponents(t *testing.T) {
	result, eerr := ListComponents([]byte(componentSchema))
	require.Nil(t, eerr)

	var names []string
	for _, c := range result.Components {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "root")
	assert.Contains(t, names, "User")
	assert.Contains(t, names, "Address")
	assert.Contains(t, names, "Unused")
}

func TestListComponentsInvalidUTF8(t *testing.T) {
	_, eerr := ListComponents([]byte{0xff})
	require.NotNil(t, eerr)
	assert.Equal(t, "invalid_utf8", eerr.Code)
}

// Extracting User pulls in its transitive dependency Address by default.
func TestExtractComponentIncludesDependencyClosure(t *testing.T) {
	result, eerr := ExtractComponent([]byte(componentSchema), "#/$defs/User", nil)
	require.Nil(t, eerr)

	assert.Equal(t, 1, result.DependencyCount)
	assert.Empty(t, result.MissingRefs)
	assert.NotNil(t, result.Schema.Defs["Address"])
}

// include-dependencies: false skips the closure walk entirely.
func TestExtractComponentSkipsDependenciesWhenDisabled(t *testing.T) {
	result, eerr := ExtractComponent([]byte(componentSchema), "#/$defs/User", []byte(`{"include-dependencies": false}`))
	require.Nil(t, eerr)

	assert.Equal(t, 0, result.DependencyCount)
	assert.Nil(t, result.Schema.Defs)
}

func TestExtractComponentMissingRefDefaultsToIgnore(t *testing.T) {
	schema := `{"type": "object", "properties": {"x": {"$ref": "#/$defs/Gone"}}}`
	result, eerr := ExtractComponent([]byte(schema), "#", nil)
	require.Nil(t, eerr)
	assert.Contains(t, result.MissingRefs, "#/$defs/Gone")
}

func TestExtractComponentMissingRefCanBeFatal(t *testing.T) {
	schema := `{"type": "object", "properties": {"x": {"$ref": "#/$defs/Gone"}}}`
	_, eerr := ExtractComponent([]byte(schema), "#", []byte(`{"on-missing-ref": "error"}`))
	require.NotNil(t, eerr)
	assert.Equal(t, "unresolvable_ref", eerr.Code)
}

func TestExtractComponentUnknownPointer(t *testing.T) {
	_, eerr := ExtractComponent([]byte(componentSchema), "#/$defs/DoesNotExist", nil)
	require.NotNil(t, eerr)
	assert.Equal(t, "invalid_pointer", eerr.Code)
}

func TestConvertAllComponents(t *testing.T) {
	result, eerr := ConvertAllComponents([]byte(componentSchema), nil, nil)
	require.Nil(t, eerr)

	assert.NotNil(t, result.Full.Schema)
	assert.NotEmpty(t, result.Components)
	assert.Empty(t, result.ComponentErrors)
}
