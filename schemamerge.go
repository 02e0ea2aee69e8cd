package jsonschema

import (
	"fmt"
	"reflect"
)

// mergeAllOfBranches flattens a node's own keywords together with its
// raw (not yet converted) allOf branches into one schema, per the
// converter's allOf-flatten pass. Unlike a superset/union merge, allOf is
// conjunctive: every branch's constraints must all hold, so numeric bounds
// tighten, required lists union, and enum/const sets intersect. Where two
// branches assert genuinely incompatible format, const or pattern values,
// the earlier branch's value is kept and the later one is dropped and
// recorded on codec (for multipleOf, the smaller value is the one dropped)
// rather than silently picked.
func mergeAllOfBranches(pointer string, branches []*Schema, codec *Codec) *Schema {
	if len(branches) == 0 {
		return &Schema{}
	}
	merged := branches[0]
	for _, next := range branches[1:] {
		merged = mergeAllOfPair(pointer, merged, next, codec)
	}
	return merged
}

func mergeAllOfPair(pointer string, a, b *Schema, codec *Codec) *Schema {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	if a.Boolean != nil || b.Boolean != nil {
		return mergeBooleanBranch(a, b)
	}

	out := &Schema{}

	out.Title = preferNonNil(a.Title, b.Title)
	out.Description = preferNonNil(a.Description, b.Description)
	out.Default = preferNonNilAny(a.Default, b.Default)
	out.Deprecated = orBool(a.Deprecated, b.Deprecated)
	out.ReadOnly = orBool(a.ReadOnly, b.ReadOnly)
	out.WriteOnly = orBool(a.WriteOnly, b.WriteOnly)
	out.Examples = append(append([]any{}, a.Examples...), b.Examples...)

	out.Format = mergeFormat(pointer, a.Format, b.Format, codec)

	out.Type = intersectTypes(a.Type, b.Type)
	if len(a.Type) > 0 && len(b.Type) > 0 && len(out.Type) == 0 {
		f := false
		return &Schema{Boolean: &f}
	}

	out.Enum = intersectEnums(a.Enum, b.Enum)
	out.Const = mergeConstTighten(pointer, a.Const, b.Const, codec)

	out.Minimum = tightenLowerBound(a.Minimum, b.Minimum)
	out.ExclusiveMinimum = tightenLowerBound(a.ExclusiveMinimum, b.ExclusiveMinimum)
	out.Maximum = tightenUpperBound(a.Maximum, b.Maximum)
	out.ExclusiveMaximum = tightenUpperBound(a.ExclusiveMaximum, b.ExclusiveMaximum)
	out.MultipleOf = mergeMultipleOfTighten(pointer, a.MultipleOf, b.MultipleOf, codec)

	out.MinLength = tightenMin(a.MinLength, b.MinLength)
	out.MaxLength = tightenMax(a.MaxLength, b.MaxLength)
	out.Pattern = mergePattern(pointer, a.Pattern, b.Pattern, codec)

	out.MinItems = tightenMin(a.MinItems, b.MinItems)
	out.MaxItems = tightenMax(a.MaxItems, b.MaxItems)
	out.UniqueItems = orBool(a.UniqueItems, b.UniqueItems)
	out.MinContains = tightenMin(a.MinContains, b.MinContains)
	out.MaxContains = tightenMax(a.MaxContains, b.MaxContains)

	out.MinProperties = tightenMin(a.MinProperties, b.MinProperties)
	out.MaxProperties = tightenMax(a.MaxProperties, b.MaxProperties)

	out.Required = unionStringsStable(a.Required, b.Required)
	out.DependentRequired = unionDependentRequired(a.DependentRequired, b.DependentRequired)

	out.Properties = mergePropertiesIntersective(pointer, a.Properties, b.Properties, codec)
	out.PatternProperties = mergePropertiesIntersective(pointer, a.PatternProperties, b.PatternProperties, codec)
	out.AdditionalProperties = mergeAdditionalPropertiesRestrictive(a.AdditionalProperties, b.AdditionalProperties)
	out.PropertyNames = mergeSubschemaConjunctive(pointer, a.PropertyNames, b.PropertyNames, codec)

	out.Items = mergeSubschemaConjunctive(pointer, a.Items, b.Items, codec)
	out.PrefixItems = mergePrefixItemsConjunctive(pointer, a.PrefixItems, b.PrefixItems, codec)
	out.Contains = mergeSubschemaConjunctive(pointer, a.Contains, b.Contains, codec)

	out.Not = preferNonNilSchema(a.Not, b.Not)
	out.If, out.Then, out.Else = preferConditional(a, b)
	out.DependentSchemas = mergeSchemaMapUnion(a.DependentSchemas, b.DependentSchemas)
	out.UnevaluatedItems = preferNonNilSchema(a.UnevaluatedItems, b.UnevaluatedItems)
	out.UnevaluatedProperties = preferNonNilSchema(a.UnevaluatedProperties, b.UnevaluatedProperties)
	out.ContentEncoding = preferNonNil(a.ContentEncoding, b.ContentEncoding)
	out.ContentMediaType = preferNonNil(a.ContentMediaType, b.ContentMediaType)
	out.ContentSchema = preferNonNilSchema(a.ContentSchema, b.ContentSchema)

	return out
}

func mergeBooleanBranch(a, b *Schema) *Schema {
	// allOf with a literal `false` anywhere rejects everything; `true`
	// contributes no constraint.
	if a.Boolean != nil && !*a.Boolean {
		return a
	}
	if b.Boolean != nil && !*b.Boolean {
		return b
	}
	if a.Boolean != nil {
		return b
	}
	return a
}

func preferNonNil[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

func preferNonNilAny(a, b any) any {
	if a != nil {
		return a
	}
	return b
}

func preferNonNilSchema(a, b *Schema) *Schema {
	if a != nil {
		return a
	}
	return b
}

func orBool(a, b *bool) *bool {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	v := *a || *b
	return &v
}

func mergeFormat(pointer string, a, b *string, codec *Codec) *string {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a == *b {
		return a
	}
	codec.drop(pointer, "format", *b, "conflicting format constraints in allOf branches")
	return a
}

// intersectTypes keeps only types allowed by every branch. An empty
// result (disjoint type sets) is an unsatisfiable schema; mergeAllOfPair
// replaces the merged node with the false schema in that case, so it
// accepts nothing further down the pipeline.
func intersectTypes(a, b SchemaType) SchemaType {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	bSet := make(map[string]struct{}, len(b))
	for _, t := range b {
		bSet[t] = struct{}{}
	}
	var out SchemaType
	for _, t := range a {
		if _, ok := bSet[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func intersectEnums(a, b []any) []any {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	bSet := make(map[string]any, len(b))
	for _, v := range b {
		bSet[fmt.Sprintf("%v", v)] = v
	}
	var out []any
	for _, v := range a {
		if _, ok := bSet[fmt.Sprintf("%v", v)]; ok {
			out = append(out, v)
		}
	}
	return out
}

func mergeConstTighten(pointer string, a, b *ConstValue, codec *Codec) *ConstValue {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if reflect.DeepEqual(a.Value, b.Value) {
		return a
	}
	codec.drop(pointer, "const", b.Value, "conflicting const constraints in allOf branches")
	return a
}

func tightenLowerBound(a, b *Rat) *Rat {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Rat.Cmp(b.Rat) >= 0 {
		return a
	}
	return b
}

func tightenUpperBound(a, b *Rat) *Rat {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Rat.Cmp(b.Rat) <= 0 {
		return a
	}
	return b
}

func mergeMultipleOfTighten(pointer string, a, b *Rat, codec *Codec) *Rat {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Rat.Cmp(b.Rat) == 0 {
		return a
	}
	// Finding the LCM of two arbitrary rationals isn't always representable
	// exactly as a single multipleOf; keep the larger (stricter whenever one
	// divides the other) and record the loss.
	kept, lost := a, b
	if a.Rat.Cmp(b.Rat) < 0 {
		kept, lost = b, a
	}
	codec.drop(pointer, "multipleOf", lost.Rat.RatString(), "conflicting multipleOf constraints in allOf branches")
	return kept
}

func tightenMin(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a >= *b {
		return a
	}
	return b
}

func tightenMax(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a <= *b {
		return a
	}
	return b
}

func mergePattern(pointer string, a, b *string, codec *Codec) *string {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a == *b {
		return a
	}
	// Two distinct regexes can't be losslessly AND-ed into one pattern
	// keyword; keep the first and record the second as dropped.
	codec.drop(pointer, "pattern", *b, "conflicting pattern constraints in allOf branches")
	return a
}

func unionStringsStable(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func unionDependentRequired(a, b map[string][]string) map[string][]string {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string][]string, len(a)+len(b))
	for k, v := range a {
		out[k] = append([]string{}, v...)
	}
	for k, v := range b {
		out[k] = unionStringsStable(out[k], v)
	}
	return out
}

func mergePropertiesIntersective(pointer string, a, b *SchemaMap, codec *Codec) *SchemaMap {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := make(SchemaMap, len(*a)+len(*b))
	for k, v := range *a {
		out[k] = v
	}
	for k, v := range *b {
		if existing, ok := out[k]; ok {
			out[k] = mergeAllOfPair(pointer+"/properties/"+k, existing, v, codec)
		} else {
			out[k] = v
		}
	}
	return &out
}

func mergeAdditionalPropertiesRestrictive(a, b *Schema) *Schema {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Boolean != nil && !*a.Boolean {
		return a
	}
	if b.Boolean != nil && !*b.Boolean {
		return b
	}
	return a
}

func mergeSubschemaConjunctive(pointer string, a, b *Schema, codec *Codec) *Schema {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return mergeAllOfPair(pointer, a, b, codec)
}

func preferConditional(a, b *Schema) (*Schema, *Schema, *Schema) {
	if a.If != nil {
		return a.If, a.Then, a.Else
	}
	return b.If, b.Then, b.Else
}

func mergeSchemaMapUnion(a, b map[string]*Schema) map[string]*Schema {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]*Schema, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func mergePrefixItemsConjunctive(pointer string, a, b []*Schema, codec *Codec) []*Schema {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]*Schema, n)
	for i := 0; i < n; i++ {
		out[i] = mergeAllOfPair(fmt.Sprintf("%s/prefixItems/%d", pointer, i), a[i], b[i], codec)
	}
	return out
}
