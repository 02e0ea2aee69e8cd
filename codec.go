package jsonschema

import (
	"github.com/go-json-experiment/json"
)

// CodecSchemaURI identifies the codec wire format version. Rehydration
// refuses to replay a codec carrying any other URI.
const CodecSchemaURI = "https://jsonschema-llm.dev/codec/v1"

// Transform op names. Each names one reversible rewrite the converter may
// apply to a schema node; the rehydrator knows the inverse of every one.
const (
	OpInlineRef                        = "inline_ref"
	OpWrapScalarAsString                = "wrap_scalar_as_string"
	OpDropFormat                        = "drop_format"
	OpExpandAnyOfToOneOf                = "expand_any_of_to_one_of"
	OpTruncateRecursion                 = "truncate_recursion"
	OpSynthesizeAdditionalPropertiesFalse = "synthesize_additional_properties_false"
	OpPromoteOptionalToRequiredWithNull  = "promote_optional_to_required_with_null"
)

// Transform records one reversible rewrite performed at a JSON Pointer
// location. Fields beyond Op/At are op-specific and left unset (empty
// string / zero) when not meaningful for a given op, matching the
// tagged-union wire shape described for the codec format.
type Transform struct {
	Op           string `json:"op"`
	At           string `json:"at"`
	Ref          string `json:"ref,omitempty"`
	OriginalType string `json:"original_type,omitempty"`
	Format       string `json:"format,omitempty"`
	Depth        int    `json:"depth,omitempty"`
	Key          string `json:"key,omitempty"`
}

// DroppedEntry records an irreversibly lost constraint: a keyword the
// target profile cannot express, demoted out of the converted schema
// rather than silently discarded.
type DroppedEntry struct {
	At      string `json:"at"`
	Keyword string `json:"keyword"`
	Value   any    `json:"value,omitempty"`
	Reason  string `json:"reason"`
}

// Codec is the self-describing record of every lossy transform a
// conversion performed. It is sufficient on its own to rehydrate a
// conforming provider document; the original schema is consulted only for
// type-coercion hints on primitive values.
type Codec struct {
	SchemaURI          string         `json:"$schema"`
	Transforms         []Transform    `json:"transforms"`
	DroppedConstraints []DroppedEntry `json:"droppedConstraints"`
}

// NewCodec returns an empty codec stamped with the current wire version.
func NewCodec() *Codec {
	return &Codec{
		SchemaURI:          CodecSchemaURI,
		Transforms:         []Transform{},
		DroppedConstraints: []DroppedEntry{},
	}
}

func (c *Codec) record(t Transform) {
	c.Transforms = append(c.Transforms, t)
}

func (c *Codec) drop(at, keyword string, value any, reason string) {
	c.DroppedConstraints = append(c.DroppedConstraints, DroppedEntry{
		At:      at,
		Keyword: keyword,
		Value:   value,
		Reason:  reason,
	})
}

// MarshalJSON produces deterministic, byte-stable codec output so that
// repeated conversions of the same schema with the same options yield
// byte-identical envelopes.
func (c *Codec) MarshalJSON() ([]byte, error) {
	type alias Codec
	return json.Marshal((*alias)(c), json.Deterministic(true))
}

// ParseCodec decodes a codec document and checks its version tag.
func ParseCodec(data []byte) (*Codec, error) {
	var c Codec
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, ErrMalformedCodec
	}
	if c.SchemaURI != CodecSchemaURI {
		return nil, ErrCodecVersionMismatch
	}
	return &c, nil
}
