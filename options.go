package jsonschema

import (
	"strings"

	"github.com/go-json-experiment/json"
)

// ApiVersion tags every envelope the engine returns. Breaking wire-shape
// changes increment the major component.
const ApiVersion = "1.0"

const (
	ModeStrict  = "strict"
	ModeLenient = "lenient"

	defaultMaxDepth       = 50
	defaultRecursionLimit = 3

	OnMissingRefIgnore = "ignore"
	OnMissingRefError  = "error"
)

// ConvertOptions configures one convert() call. Every field is optional;
// a key omitted on the wire falls back to the documented default, while an
// explicit value (including 0) is kept as given. Wire keys are kebab-case
// ("max-depth", "recursion-limit") while the Go struct uses idiomatic
// field names — canonicalizeOptionKeys below bridges the two, and also
// accepts the snake_case spelling older callers send.
type ConvertOptions struct {
	Target         string
	Mode           string
	MaxDepth       int
	RecursionLimit int
	// Polymorphism overrides the target profile's own any-of/one-of/inline
	// preference when non-empty; left empty (the default), the profile's
	// preference applies unchanged.
	Polymorphism string
}

type convertOptionsWire struct {
	Target         *string `json:"target,omitempty"`
	Mode           *string `json:"mode,omitempty"`
	MaxDepth       *int    `json:"max-depth,omitempty"`
	RecursionLimit *int    `json:"recursion-limit,omitempty"`
	Polymorphism   *string `json:"polymorphism,omitempty"`
}

var convertOptionKeys = map[string]struct{}{
	"target": {}, "mode": {}, "max-depth": {}, "recursion-limit": {}, "polymorphism": {},
}

var extractOptionKeys = map[string]struct{}{
	"include-dependencies": {}, "on-missing-ref": {},
}

// canonicalizeOptionKeys rewrites a JSON options object's top-level keys
// from snake_case to kebab-case (the canonical wire form) and rejects any
// key outside allowed — per the boundary-parsing design note, unknown
// keys are an invalid_input error rather than silently ignored.
func canonicalizeOptionKeys(data []byte, allowed map[string]struct{}) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrInvalidInput
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		canon := strings.ReplaceAll(k, "_", "-")
		if _, ok := allowed[canon]; !ok {
			return nil, ErrInvalidInput
		}
		out[canon] = v
	}
	return json.Marshal(out)
}

// ParseConvertOptions decodes a (possibly empty) JSON options payload. A
// nil or empty buffer yields all-default options, matching the ABI
// contract that an opts pointer of (0,0) means "defaults".
func ParseConvertOptions(data []byte) (ConvertOptions, error) {
	opts := ConvertOptions{
		Target:         TargetOpenAIStrict,
		Mode:           ModeStrict,
		MaxDepth:       defaultMaxDepth,
		RecursionLimit: defaultRecursionLimit,
		// Left empty rather than defaulted to any-of: the converter falls
		// back to the target profile's own polymorphism policy when the
		// caller doesn't name one explicitly, and an empty string is how
		// it tells "not set" apart from an explicit any-of override.
		Polymorphism: "",
	}
	if len(data) == 0 {
		return opts, nil
	}

	canon, err := canonicalizeOptionKeys(data, convertOptionKeys)
	if err != nil {
		return ConvertOptions{}, err
	}

	var wire convertOptionsWire
	if err := json.Unmarshal(canon, &wire); err != nil {
		return ConvertOptions{}, ErrInvalidInput
	}

	if wire.Target != nil {
		opts.Target = *wire.Target
	}
	if wire.Mode != nil {
		opts.Mode = *wire.Mode
	}
	if wire.MaxDepth != nil {
		opts.MaxDepth = *wire.MaxDepth
	}
	if wire.RecursionLimit != nil {
		opts.RecursionLimit = *wire.RecursionLimit
	}
	if wire.Polymorphism != nil {
		opts.Polymorphism = *wire.Polymorphism
	}
	return opts, nil
}

// ExtractOptions configures a component-extraction call: whether the
// transitive dependency closure is included in the projected schema, and
// whether an unresolved $ref within that closure aborts the extraction
// outright or is merely reported in MissingRefs.
type ExtractOptions struct {
	IncludeDependencies bool
	OnMissingRef        string
}

type extractOptionsWire struct {
	IncludeDependencies *bool   `json:"include-dependencies,omitempty"`
	OnMissingRef        *string `json:"on-missing-ref,omitempty"`
}

// ParseExtractOptions decodes a (possibly empty) JSON options payload for
// extract-component and convert-all-components calls.
func ParseExtractOptions(data []byte) (ExtractOptions, error) {
	opts := ExtractOptions{
		IncludeDependencies: true,
		OnMissingRef:        OnMissingRefIgnore,
	}
	if len(data) == 0 {
		return opts, nil
	}

	canon, err := canonicalizeOptionKeys(data, extractOptionKeys)
	if err != nil {
		return ExtractOptions{}, err
	}

	var wire extractOptionsWire
	if err := json.Unmarshal(canon, &wire); err != nil {
		return ExtractOptions{}, ErrInvalidInput
	}

	if wire.IncludeDependencies != nil {
		opts.IncludeDependencies = *wire.IncludeDependencies
	}
	if wire.OnMissingRef != nil {
		opts.OnMissingRef = *wire.OnMissingRef
	}
	return opts, nil
}
