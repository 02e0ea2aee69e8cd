package jsonschema

import (
	"fmt"
	"strconv"

	"github.com/go-json-experiment/json"
)

// Rehydrate replays a codec's transform log in reverse against a provider
// document, restoring it to the shape the original (pre-conversion)
// schema described. It never fails outright on a single value mismatch;
// every recoverable issue becomes a warning and the provider's value is
// left in place.
func Rehydrate(dataBytes, codecBytes, schemaBytes []byte) (*RehydrateResult, *EngineError) {
	if off := validateUTF8(dataBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 at byte offset %d", off), "")
	}
	if off := validateUTF8(codecBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 at byte offset %d", off), "")
	}

	var data any
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return nil, newEngineError("rehydration_error", "malformed_codec: "+err.Error(), "")
	}

	codec, err := ParseCodec(codecBytes)
	if err != nil {
		code := "malformed_codec"
		if err == ErrCodecVersionMismatch {
			code = "codec_version_mismatch"
		}
		return nil, newEngineError("rehydration_error", code, "")
	}

	// The original schema is optional and consulted only as a fallback
	// type-coercion hint (spec: "the original schema is consulted only
	// for type coercion hints on primitives"); a codec transform already
	// carrying its own original_type never needs it.
	var schemaResolver *Resolver
	if len(schemaBytes) > 0 {
		if off := validateUTF8(schemaBytes); off >= 0 {
			return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 at byte offset %d", off), "")
		}
		original, serr := newSchema(schemaBytes)
		if serr != nil {
			return nil, newEngineError("rehydration_error", "malformed_codec: original schema is not parseable JSON", "")
		}
		schemaResolver = NewResolver(original)
	}

	rh := &rehydrator{codec: codec, schemaResolver: schemaResolver}

	for i := len(codec.Transforms) - 1; i >= 0; i-- {
		data = rh.applyInverse(codec.Transforms[i], data)
	}

	return &RehydrateResult{
		ApiVersion: ApiVersion,
		Data:       data,
		Warnings:   rh.warnings,
	}, nil
}

type rehydrator struct {
	codec          *Codec
	schemaResolver *Resolver
	warnings       []Warning
}

// schemaTypeHint looks up the original schema node at a transform's
// pointer and returns its primary declared type, or "" if no original
// schema was supplied, the pointer doesn't resolve, or the node declares
// no type. Used only when a transform's own recorded type is missing.
func (rh *rehydrator) schemaTypeHint(pointer string) string {
	if rh.schemaResolver == nil {
		return ""
	}
	node, err := rh.schemaResolver.Resolve(pointer)
	if err != nil || node == nil || node.Boolean != nil || len(node.Type) == 0 {
		return ""
	}
	return node.Type[0]
}

func (rh *rehydrator) warn(at, message string) {
	rh.warnings = append(rh.warnings, Warning{At: at, Message: message})
}

// applyInverse undoes one transform against the value located at its
// pointer within data, returning the (possibly unchanged) document.
// Unrecognized ops are treated as data-side no-ops, per the documented
// default for any op without an explicit inverse.
func (rh *rehydrator) applyInverse(t Transform, data any) any {
	switch t.Op {
	case OpWrapScalarAsString:
		return mutateAtPointer(data, t.At, func(v any) any {
			s, ok := v.(string)
			if !ok {
				rh.warn(t.At, "expected string value for wrap_scalar_as_string inverse")
				return v
			}
			originalType := t.OriginalType
			if originalType == "" {
				originalType = rh.schemaTypeHint(t.At)
			}
			coerced, err := coerceScalar(s, originalType)
			if err != nil {
				rh.warn(t.At, fmt.Sprintf("could not coerce %q back to %s: %v", s, originalType, err))
				return v
			}
			if got := getDataType(coerced); originalType != "" && got != originalType &&
				!(originalType == "integer" && got == "number") {
				rh.warn(t.At, fmt.Sprintf("coerced value at %s is %s, expected %s", t.At, got, originalType))
			}
			return coerced
		})
	case OpPromoteOptionalToRequiredWithNull:
		return dropKeyIfNull(data, t.At, t.Key)
	case OpTruncateRecursion:
		rh.warn(t.At, fmt.Sprintf("subtree was truncated at recursion depth %d; original shape could not be restored", t.Depth))
		return data
	case OpInlineRef, OpExpandAnyOfToOneOf, OpSynthesizeAdditionalPropertiesFalse, OpDropFormat:
		return data
	default:
		rh.warn(t.At, "unknown transform op "+t.Op+"; left as no-op")
		return data
	}
}

// coerceScalar parses a string back into the scalar type it was wrapped
// from. The table is intentionally small: only the primitive JSON Schema
// types a wrap_scalar_as_string transform can have originated from.
func coerceScalar(s, originalType string) (any, error) {
	switch originalType {
	case "integer":
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	case "number":
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "boolean":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "null":
		if s == "" || s == "null" {
			return nil, nil
		}
		return nil, fmt.Errorf("non-empty string for null original type")
	default:
		return s, nil
	}
}

// mutateAtPointer walks data to the node named by a root-relative JSON
// Pointer (e.g. "#/properties/age" is resolved against the document
// itself using the same path shape the converter stamped transforms
// with) and replaces it with fn's result. Pointers that no longer
// resolve against the provider document (e.g. the field was omitted)
// are left untouched; there is nothing to rehydrate.
func mutateAtPointer(data any, pointer string, fn func(any) any) any {
	segments := dataSegmentsFromSchemaPointer(pointer)
	if len(segments) == 0 {
		return fn(data)
	}
	return mutateSegments(data, segments, fn)
}

// dataSegmentsFromSchemaPointer strips the schema-shaped scaffolding
// (properties/N, items, prefixItems/N, anyOf/N, ...) out of a converter-
// stamped pointer, leaving only the segments that correspond to actual
// data-document navigation (object keys and array indices).
func dataSegmentsFromSchemaPointer(pointer string) []string {
	raw := splitPointer(pointer)
	var out []string
	for i := 0; i < len(raw); i++ {
		seg := raw[i]
		switch seg {
		case "properties", "patternProperties":
			if i+1 < len(raw) {
				out = append(out, raw[i+1])
				i++
			}
		case "items", "additionalProperties", "prefixItems", "anyOf", "oneOf", "allOf",
			"not", "if", "then", "else", "contains", "propertyNames":
			// structural scaffolding only; array-valued ones carry an
			// index in the next segment that has no data-side analogue
			// for a single value replacement, so it is dropped.
			if i+1 < len(raw) {
				if _, err := strconv.Atoi(raw[i+1]); err == nil {
					i++
				}
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}

func splitPointer(pointer string) []string {
	if pointer == "" || pointer == "#" {
		return nil
	}
	trimmed := pointer
	if len(trimmed) > 0 && trimmed[0] == '#' {
		trimmed = trimmed[1:]
	}
	if len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	if trimmed == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i <= len(trimmed); i++ {
		if i == len(trimmed) || trimmed[i] == '/' {
			segs = append(segs, unescapePointerSegment(trimmed[start:i]))
			start = i + 1
		}
	}
	return segs
}

func unescapePointerSegment(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && i+1 < len(s) {
			switch s[i+1] {
			case '1':
				out = append(out, '/')
				i++
				continue
			case '0':
				out = append(out, '~')
				i++
				continue
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

func mutateSegments(data any, segments []string, fn func(any) any) any {
	if len(segments) == 0 {
		return fn(data)
	}
	switch v := data.(type) {
	case map[string]any:
		key := segments[0]
		child, ok := v[key]
		if !ok {
			return data
		}
		v[key] = mutateSegments(child, segments[1:], fn)
		return v
	case []any:
		idx, err := strconv.Atoi(segments[0])
		if err != nil || idx < 0 || idx >= len(v) {
			return data
		}
		v[idx] = mutateSegments(v[idx], segments[1:], fn)
		return v
	default:
		return data
	}
}

// dropKeyIfNull inverts promote_optional_to_required_with_null: a key
// synthesized into required only so a strict target would accept its
// absence is removed from the document again when the provider actually
// emitted null for it.
func dropKeyIfNull(data any, pointer, key string) any {
	parentSegments := dataSegmentsFromSchemaPointer(parentPointer(pointer))
	return mutateSegments(data, parentSegments, func(v any) any {
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		if val, present := obj[key]; present && val == nil {
			delete(obj, key)
		}
		return obj
	})
}

func parentPointer(pointer string) string {
	segs := splitPointer(pointer)
	if len(segs) <= 1 {
		return "#"
	}
	out := "#"
	for _, s := range segs[:len(segs)-1] {
		out += "/" + s
	}
	return out
}
