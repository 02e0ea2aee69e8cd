package jsonschema

// PolymorphismPolicy names how a target wants oneOf/anyOf branches shaped.
type PolymorphismPolicy string

const (
	PolymorphismAnyOf  PolymorphismPolicy = "any-of"
	PolymorphismOneOf  PolymorphismPolicy = "one-of"
	PolymorphismInline PolymorphismPolicy = "inline"
)

// TargetProfile is a pure data record of what one LLM backend's structured-
// output mode accepts. The converter reads only this table; adding a target
// is a matter of adding a row, never a code change to the walker.
type TargetProfile struct {
	Name string

	AllowRef                        bool
	RequireAdditionalPropertiesFalse bool
	RequireAllPropertiesInRequired  bool
	SupportedConstraints            map[string]struct{}
	Polymorphism                    PolymorphismPolicy
	MaxDepth                        int
	StringFormatPolicy              map[string]struct{}
}

// Supports reports whether keyword is in the target's supported-constraint set.
func (p *TargetProfile) Supports(keyword string) bool {
	_, ok := p.SupportedConstraints[keyword]
	return ok
}

// KeepsFormat reports whether a string "format" value survives conversion
// for this target.
func (p *TargetProfile) KeepsFormat(format string) bool {
	if len(p.StringFormatPolicy) == 0 {
		return true
	}
	_, ok := p.StringFormatPolicy[format]
	return ok
}

const (
	TargetOpenAIStrict = "openai-strict"
	TargetGemini       = "gemini"
	TargetClaude       = "claude"
)

func constraintSet(keywords ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		set[k] = struct{}{}
	}
	return set
}

// openAIStrictConstraints lists the value-constraint keywords OpenAI's
// strict structured-output mode is documented to honor; everything else is
// dropped during conversion.
var openAIStrictConstraints = constraintSet(
	"type", "enum", "const",
	"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf",
	"minLength", "maxLength", "pattern", "format",
	"minItems", "maxItems",
	"minProperties", "maxProperties",
)

// geminiConstraints mirrors the Gemini Schema field set accepted by the
// backend's response-schema mode: type, enum, format, and the length/size
// bounds, but no multipleOf, no pattern-aware content keywords beyond
// pattern itself, and no $ref (everything must be inlined).
var geminiConstraints = constraintSet(
	"type", "enum", "format",
	"minimum", "maximum",
	"minLength", "maxLength", "pattern",
	"minItems", "maxItems",
	"minProperties", "maxProperties",
)

// claudeConstraints follows Claude's tool-input-schema support, which
// tracks plain JSON Schema validation keywords closely but still excludes
// multi-document $ref and a handful of exotic content keywords.
var claudeConstraints = constraintSet(
	"type", "enum", "const",
	"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf",
	"minLength", "maxLength", "pattern", "format",
	"minItems", "maxItems", "uniqueItems",
	"minProperties", "maxProperties",
)

var targetProfiles = map[string]*TargetProfile{
	TargetOpenAIStrict: {
		Name:                              TargetOpenAIStrict,
		AllowRef:                          true,
		RequireAdditionalPropertiesFalse:  true,
		RequireAllPropertiesInRequired:    true,
		SupportedConstraints:              openAIStrictConstraints,
		Polymorphism:                      PolymorphismAnyOf,
		MaxDepth:                          16,
		StringFormatPolicy:                constraintSet("date-time", "date", "time", "email", "uuid", "uri"),
	},
	TargetGemini: {
		Name:                              TargetGemini,
		AllowRef:                          false,
		RequireAdditionalPropertiesFalse:  false,
		RequireAllPropertiesInRequired:    false,
		SupportedConstraints:              geminiConstraints,
		Polymorphism:                      PolymorphismAnyOf,
		MaxDepth:                          10,
		StringFormatPolicy:                constraintSet("date-time", "enum"),
	},
	TargetClaude: {
		Name:                              TargetClaude,
		AllowRef:                          true,
		RequireAdditionalPropertiesFalse:  false,
		RequireAllPropertiesInRequired:    false,
		SupportedConstraints:              claudeConstraints,
		Polymorphism:                      PolymorphismOneOf,
		MaxDepth:                          16,
		StringFormatPolicy:                nil, // nil means "keep every format", per KeepsFormat
	},
}

// LookupTarget returns the profile for a target tag, or ErrUnknownTarget.
func LookupTarget(name string) (*TargetProfile, error) {
	profile, ok := targetProfiles[name]
	if !ok {
		return nil, ErrUnknownTarget
	}
	return profile, nil
}
