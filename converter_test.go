package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, schema, opts string) *ConvertResult {
	t.Helper()
	var optsBytes []byte
	if opts != "" {
		optsBytes = []byte(opts)
	}
	result, eerr := Convert([]byte(schema), optsBytes)
	require.Nil(t, eerr, "unexpected engine error: %v", eerr)
	require.NotNil(t, result)
	return result
}

// openai-strict promotes every optional property into required (type
// widened with null) and synthesizes additionalProperties: false.
func TestConvertOpenAIStrictNormalizesObject(t *testing.T) {
	result := convert(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		},
		"required": ["name"]
	}`, "")

	schema := result.Schema
	require.NotNil(t, schema.AdditionalProperties)
	require.NotNil(t, schema.AdditionalProperties.Boolean)
	assert.False(t, *schema.AdditionalProperties.Boolean)

	assert.ElementsMatch(t, []string{"name", "age"}, schema.Required)

	age := (*schema.Properties)["age"]
	require.NotNil(t, age)
	assert.Contains(t, age.Type, "null")
	assert.Contains(t, age.Type, "integer")

	var sawSynthesize, sawPromote bool
	for _, tr := range result.Codec.Transforms {
		if tr.Op == OpSynthesizeAdditionalPropertiesFalse {
			sawSynthesize = true
		}
		if tr.Op == OpPromoteOptionalToRequiredWithNull && tr.Key == "age" {
			sawPromote = true
		}
	}
	assert.True(t, sawSynthesize)
	assert.True(t, sawPromote)
}

// A recursive $ref inlines up to recursion-limit times, then the deepest
// occurrence is replaced with a permissive schema and recorded as a
// truncate_recursion transform, guaranteeing termination on cyclic input.
func TestConvertTruncatesRecursiveRef(t *testing.T) {
	schema := `{
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
	}`
	result := convert(t, schema, `{"recursion-limit": 3}`)

	var truncated []Transform
	for _, tr := range result.Codec.Transforms {
		if tr.Op == OpTruncateRecursion {
			truncated = append(truncated, tr)
		}
	}
	assert.NotEmpty(t, truncated, "expected at least one truncate_recursion transform")
}

// format is a supported openai-strict keyword and survives conversion;
// contentEncoding has no structured-output equivalent for any target and
// is always recorded as a dropped constraint.
func TestConvertKeepsFormatDropsContentEncoding(t *testing.T) {
	result := convert(t, `{
		"type": "string",
		"format": "email",
		"contentEncoding": "base64"
	}`, "")

	require.NotNil(t, result.Schema.Format)
	assert.Equal(t, "email", *result.Schema.Format)

	var dropped bool
	for _, d := range result.Codec.DroppedConstraints {
		if d.Keyword == "contentEncoding" {
			dropped = true
		}
	}
	assert.True(t, dropped)
}

func TestConvertInvalidUTF8(t *testing.T) {
	_, eerr := Convert([]byte{'{', 0xff, '}'}, nil)
	require.NotNil(t, eerr)
	assert.Equal(t, "invalid_utf8", eerr.Code)
}

func TestConvertUnknownTarget(t *testing.T) {
	_, eerr := Convert([]byte(`{"type":"string"}`), []byte(`{"target":"not-a-target"}`))
	require.NotNil(t, eerr)
	assert.Equal(t, "invalid_input", eerr.Code)
}

// A schema already shaped the way a target wants it produces no rewrites
// at all: the codec is the empty record, not a no-op transform log.
func TestConvertCodecMinimality(t *testing.T) {
	result := convert(t, `{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"],
		"additionalProperties": false
	}`, `{"target": "claude"}`)

	assert.Empty(t, result.Codec.Transforms)
	assert.Empty(t, result.Codec.DroppedConstraints)
}

// Converting the same schema and options twice must yield byte-identical
// output, since a host may cache or compare conversions structurally.
func TestConvertIsDeterministic(t *testing.T) {
	schema := `{
		"type": "object",
		"properties": {
			"a": {"type": "string"},
			"b": {"type": "number"},
			"c": {"type": "boolean"}
		},
		"required": ["a"]
	}`
	first := convert(t, schema, "")
	second := convert(t, schema, "")

	firstJSON, err := first.Schema.MarshalJSON()
	require.NoError(t, err)
	secondJSON, err := second.Schema.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

// mode: lenient suppresses provider-compat observations without touching
// the converted schema or codec.
func TestConvertLenientModeSuppressesCompatErrors(t *testing.T) {
	schema := `{"type": "object", "required": ["missing"]}`

	strict := convert(t, schema, `{"mode": "strict"}`)
	lenient := convert(t, schema, `{"mode": "lenient"}`)

	assert.NotEmpty(t, strict.ProviderCompatErrors)
	assert.Empty(t, lenient.ProviderCompatErrors)

	strictJSON, err := strict.Schema.MarshalJSON()
	require.NoError(t, err)
	lenientJSON, err := lenient.Schema.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(strictJSON), string(lenientJSON))
}

// A $ref that doesn't resolve anywhere in the document is a reachable
// reference that fails outright, not a constraint to quietly drop.
func TestConvertUnresolvableRefReportsStructuredError(t *testing.T) {
	_, eerr := Convert([]byte(`{"$ref":"#/$defs/Missing"}`), nil)
	require.NotNil(t, eerr)
	assert.Equal(t, "unresolvable_ref", eerr.Code)
	assert.Equal(t, "/$ref", eerr.Path)
}

// claude allows $ref in output, so a schema that already references a
// $defs entry acceptably should come out with that $ref preserved, not
// inlined — an empty codec, matching the codec-minimality property for
// a no-op conversion.
func TestConvertAllowRefTargetPreservesRefForCodecMinimality(t *testing.T) {
	schema := `{
		"$ref": "#/$defs/Name",
		"$defs": {
			"Name": {"type": "string"}
		}
	}`
	result := convert(t, schema, `{"target": "claude"}`)

	assert.Equal(t, "#/$defs/Name", result.Schema.Ref)
	require.NotNil(t, result.Schema.Defs)
	require.NotNil(t, result.Schema.Defs["Name"])
	assert.Equal(t, SchemaType{"string"}, result.Schema.Defs["Name"].Type)

	assert.Empty(t, result.Codec.Transforms)
	assert.Empty(t, result.Codec.DroppedConstraints)
}

// A cyclic $ref is still inlined-then-truncated regardless of AllowRef,
// since a genuine cycle has no finite preserved $ref/$defs form.
func TestConvertAllowRefTargetStillTruncatesCycles(t *testing.T) {
	schema := `{
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
	}`
	result := convert(t, schema, `{"target": "claude", "recursion-limit": 3}`)

	var inlineCount int
	var truncated bool
	for _, tr := range result.Codec.Transforms {
		switch tr.Op {
		case OpInlineRef:
			inlineCount++
		case OpTruncateRecursion:
			if tr.Ref != "" {
				truncated = true
			}
		}
	}
	assert.Equal(t, 3, inlineCount)
	assert.True(t, truncated, "expected the cyclic ref to truncate after recursion-limit inlines")
}

// A caller-supplied polymorphism option overrides the target profile's
// own any-of/one-of preference.
func TestConvertPolymorphismOptionOverridesProfile(t *testing.T) {
	schema := `{"oneOf": [{"type": "string"}, {"type": "integer"}]}`

	withoutOverride := convert(t, schema, "")
	assert.NotEmpty(t, withoutOverride.Schema.AnyOf)
	assert.Empty(t, withoutOverride.Schema.OneOf)

	withOverride := convert(t, schema, `{"polymorphism": "one-of"}`)
	assert.NotEmpty(t, withOverride.Schema.OneOf)
	assert.Empty(t, withOverride.Schema.AnyOf)
}

func TestConvertUnknownPolymorphismOptionRejected(t *testing.T) {
	_, eerr := Convert([]byte(`{"type":"string"}`), []byte(`{"polymorphism":"not-a-strategy"}`))
	require.NotNil(t, eerr)
	assert.Equal(t, "invalid_input", eerr.Code)
}
