package jsonschema

import "errors"

// === Input and Encoding Related Errors ===
var (
	// ErrJSONUnmarshal is returned when a schema document cannot be unmarshalled.
	ErrJSONUnmarshal = errors.New("json unmarshal failed")

	// ErrJSONMarshal is returned when a value cannot be marshalled back to JSON.
	ErrJSONMarshal = errors.New("json marshal failed")

	// ErrInvalidUTF8 is returned when an input byte sequence is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8 input")

	// ErrInvalidInput is returned when a request payload does not match the
	// shape the engine expects (wrong type, missing required field).
	ErrInvalidInput = errors.New("invalid input")
)

// === Schema and Reference Resolution Related Errors ===
var (
	// ErrSchemaIsNil is returned when a nil schema is passed where one is required.
	ErrSchemaIsNil = errors.New("schema is nil")

	// ErrInvalidSchemaType is returned when a schema node has an unrecognized shape.
	ErrInvalidSchemaType = errors.New("invalid schema type")

	// ErrInvalidPointer is returned when a JSON Pointer is malformed or cannot
	// be resolved against a document.
	ErrInvalidPointer = errors.New("invalid json pointer")

	// ErrUnresolvableRef is returned when a $ref cannot be resolved within the
	// schema's own $defs/components, including across $id-based base URIs.
	ErrUnresolvableRef = errors.New("unresolvable reference")

	// ErrCircularRef names a reference cycle. Nothing in the engine returns
	// it: the resolver reports cycles through Enter's refInProgress state,
	// and the converter turns them into a truncate_recursion transform.
	ErrCircularRef = errors.New("circular reference")
)

// === Conversion Related Errors ===
var (
	// ErrUnknownTarget is returned when options name a target profile the
	// engine does not recognize.
	ErrUnknownTarget = errors.New("unknown target profile")

	// ErrUnknownPolymorphismStrategy is returned when options name a
	// polymorphism strategy the converter does not implement.
	ErrUnknownPolymorphismStrategy = errors.New("unknown polymorphism strategy")

	// ErrRecursionDepthExceeded is returned when a schema's reference graph
	// exceeds the configured max-depth/recursion-limit bound.
	ErrRecursionDepthExceeded = errors.New("recursion depth exceeded")

	// ErrMergeConflict names directly contradictory allOf constraints (e.g.
	// two incompatible const values). The allOf merge does not return it; it
	// records such conflicts as dropped constraints in the codec.
	ErrMergeConflict = errors.New("schema merge conflict")
)

// === Codec and Rehydration Related Errors ===
var (
	// ErrCodecVersionMismatch is returned when a codec's format version is
	// newer or incompatible with the engine attempting to replay it.
	ErrCodecVersionMismatch = errors.New("codec version mismatch")

	// ErrMalformedCodec is returned when a codec document cannot be decoded.
	// An unknown transform op is not an error here; rehydration treats it as
	// a no-op and records a warning.
	ErrMalformedCodec = errors.New("malformed codec")

	// ErrRehydrationFailed is returned when replaying a codec's transforms
	// against a document cannot produce a value conforming to the original
	// schema shape.
	ErrRehydrationFailed = errors.New("rehydration failed")

	// ErrTypeCoercionFailed is returned when rehydration's type coercion
	// table has no applicable entry for an observed value/target pair.
	ErrTypeCoercionFailed = errors.New("type coercion failed")
)

// === Numeric Literal Related Errors ===
var (
	// ErrUnsupportedTypeForRat is returned when a numeric constraint value is
	// neither a JSON number nor a numeric string.
	ErrUnsupportedTypeForRat = errors.New("unsupported type for rational number")

	// ErrFailedToConvertToRat is returned when a numeric constraint's literal
	// text cannot be parsed as an exact rational.
	ErrFailedToConvertToRat = errors.New("failed to convert value to rational number")
)

// === Component Extraction Related Errors ===
var (
	// ErrComponentNotFound is returned when a requested JSON Pointer does not
	// name an existing component within the schema.
	ErrComponentNotFound = errors.New("component not found")
)

// === ABI and Internal Errors ===
var (
	// ErrInternal is returned when an internal invariant is violated; it is
	// the only error code permitted to cross the ABI boundary for conditions
	// the engine could not anticipate and recover from locally.
	ErrInternal = errors.New("internal error")

	// ErrBufferOutOfRange is returned when a host-supplied pointer/length
	// pair falls outside the arena's allocated region.
	ErrBufferOutOfRange = errors.New("buffer out of range")

	// ErrABIVersionMismatch is returned when a host calls into the engine
	// expecting an ABI version the engine does not implement.
	ErrABIVersionMismatch = errors.New("abi version mismatch")
)
