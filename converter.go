package jsonschema

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

// convertCtx carries the per-call state the recursive walker needs:
// the resolver over the original document, the target profile and
// options, the codec being built, and bookkeeping for ref-inlining and
// max-depth enforcement. It is created once per Convert call and never
// shared across calls, matching the engine's no-process-wide-state rule.
type convertCtx struct {
	resolver *Resolver
	profile  *TargetProfile
	opts     ConvertOptions
	codec    *Codec

	refInline map[string]int
	compat    []ProviderCompatError

	// err is set the first time a reachable, non-cyclic $ref fails to
	// resolve; every convert call checks it first thing and short-circuits
	// once set, so the walk unwinds without doing further conversion work.
	err *EngineError

	// defs accumulates the converted bodies of $ref targets that are
	// preserved (rather than inlined) because the target profile allows
	// $ref in output. defNames/defNameUsed give each distinct ref string a
	// stable, collision-free $defs key across the whole request.
	defs        map[string]*Schema
	defNames    map[string]string
	defNameUsed map[string]bool
}

// Convert is the engine's primary entry point: it parses a JSON Schema
// document and an options record, rewrites the schema into the target's
// restricted dialect, and returns the converted schema together with the
// codec describing every lossy rewrite performed.
func Convert(schemaBytes, optsBytes []byte) (*ConvertResult, *EngineError) {
	if off := validateUTF8(schemaBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 at byte offset %d", off), "")
	}

	if off := validateUTF8(optsBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 in options at byte offset %d", off), "")
	}

	opts, err := ParseConvertOptions(optsBytes)
	if err != nil {
		return nil, newEngineError("invalid_input", "malformed convert options", "")
	}
	if err := validatePolymorphismOption(opts.Polymorphism); err != nil {
		return nil, newEngineError("invalid_input", err.Error(), "")
	}

	profile, err := LookupTarget(opts.Target)
	if err != nil {
		return nil, newEngineError("invalid_input", "unknown target profile: "+opts.Target, "")
	}

	root, err := newSchema(schemaBytes)
	if err != nil {
		return nil, newEngineError("json_parse_error", err.Error(), "")
	}

	ctx := &convertCtx{
		resolver:    NewResolver(root),
		profile:     profile,
		opts:        opts,
		codec:       NewCodec(),
		refInline:   make(map[string]int),
		defs:        make(map[string]*Schema),
		defNames:    make(map[string]string),
		defNameUsed: make(map[string]bool),
	}

	converted := ctx.convert(root, "#", 0)
	if ctx.err != nil {
		return nil, ctx.err
	}

	if len(ctx.defs) > 0 {
		converted.Defs = ctx.defs
	}

	return &ConvertResult{
		ApiVersion:           ApiVersion,
		Schema:               converted,
		Codec:                ctx.codec,
		ProviderCompatErrors: ctx.compat,
	}, nil
}

// convert applies the fixed seven-pass restriction pipeline to one node
// and returns its rewritten form. pointer is this node's root-relative
// JSON Pointer, used to stamp every transform/drop record with a
// location. depth counts structural descent (not ref-inline count) and
// drives max-depth enforcement.
func (c *convertCtx) convert(node *Schema, pointer string, depth int) *Schema {
	if node == nil {
		return nil
	}
	if c.err != nil {
		return permissiveSchema()
	}
	if node.Boolean != nil {
		return node
	}

	// Pass 7 (checked early, applied as a short-circuit): at the depth
	// limit, replace the subtree outright rather than recursing further.
	// The effective bound is the tighter of the request's max-depth option
	// and the target profile's own structural ceiling.
	if depth >= min(c.opts.MaxDepth, c.profile.MaxDepth) {
		c.codec.record(Transform{Op: OpTruncateRecursion, At: pointer, Depth: depth})
		return permissiveSchema()
	}

	// Pass 1: resolve and classify $ref. cleanup is deferred here, not
	// inside resolveRef, so an inlined ref stays counted for the whole
	// time its body is being descended into below (pass 4), not just for
	// resolveRef's own brief, non-recursive call.
	var cleanup func()
	node, cleanup = c.resolveRef(node, pointer, depth)
	defer cleanup()
	if c.err != nil {
		return permissiveSchema()
	}
	if node == nil {
		return permissiveSchema()
	}

	// Pass 2: flatten allOf using raw (unconverted) branch content so the
	// descend pass below is the only place recursive conversion happens.
	if len(node.AllOf) > 0 {
		node = c.flattenAllOf(node, pointer)
	}

	// Pass 3: rewrite polymorphism to match the target's preference.
	node = c.rewritePolymorphism(node, pointer)

	// Pass 4: descend into children, recursively converting each.
	node = c.descend(node, pointer, depth)

	// Pass 5: normalize object constraints for strict targets.
	node = c.normalizeObject(node, pointer)

	// Pass 6: filter value constraints the target doesn't support.
	node = c.filterConstraints(node, pointer)

	c.checkCompat(node, pointer)

	return node
}

// resolveRef handles pass 1. A node carrying $ref is either preserved as a
// reference into the converted schema's own $defs (first encounter of a
// ref the target profile allows in output), inlined (targets that forbid
// $ref, or a ref already on the resolution stack), or — if it doesn't
// resolve at all — reported as an unresolvable_ref error. The resolution
// stack (Enter/Exit) is what tells a genuine first encounter apart from a
// back-edge revisit of a ref already being expanded.
//
// It returns the resolved node together with a cleanup func the caller
// must defer; for an inlined ref, cleanup un-counts it from refInline once
// the caller is done descending into the returned subtree, not merely
// once resolveRef itself returns.
func (c *convertCtx) resolveRef(node *Schema, pointer string, depth int) (*Schema, func()) {
	noop := func() {}
	if node.Ref == "" {
		return node, noop
	}

	target, err := c.resolver.Resolve(node.Ref)
	if err != nil {
		c.err = newEngineError("unresolvable_ref", "cannot resolve "+node.Ref, refErrorPath(pointer))
		return permissiveSchema(), noop
	}

	// Exit only pairs with the Enter call that actually pushed ref onto the
	// stack (state == refUnresolved): a nested refInProgress encounter
	// didn't push, so it must not pop its ancestor's entry either. This
	// bracket only needs to span resolveRef's own frame, since preserveRef
	// converts the ref's body synchronously before returning.
	state := c.resolver.Enter(node.Ref)
	if state == refUnresolved {
		defer c.resolver.Exit(node.Ref)
	}

	if state == refUnresolved && c.profile.AllowRef {
		return c.preserveRef(node, node.Ref, target, pointer), noop
	}

	count := c.refInline[node.Ref]
	if count >= c.opts.RecursionLimit {
		// Depth here is the resolver's own ref-resolution stack depth, not
		// the structural depth param: it is how many distinct refs are
		// currently entered on the resolution stack (each ref is pushed at
		// most once), as opposed to plain structural nesting.
		c.codec.record(Transform{Op: OpTruncateRecursion, At: pointer, Ref: node.Ref, Depth: c.resolver.Depth()})
		return permissiveSchema(), noop
	}

	c.refInline[node.Ref] = count + 1
	cleanup := func() { c.refInline[node.Ref] = count }

	c.codec.record(Transform{Op: OpInlineRef, At: pointer, Ref: node.Ref})

	return c.mergeSiblingsWithRef(node, target, pointer), cleanup
}

// refErrorPath turns a node pointer into the JSON Pointer naming its
// unresolved $ref keyword (e.g. a root-level $ref reports path "/$ref").
// Error paths are plain JSON Pointers, unlike the "#/..."-prefixed
// pointers transforms use for document-fragment bookkeeping elsewhere.
func refErrorPath(pointer string) string {
	return strings.TrimPrefix(pointer+"/$ref", "#")
}

// preserveRef keeps $ref in the converted output pointing at a synthesized
// $defs entry instead of inlining, for a target profile that allows $ref
// in output. The referenced body is converted exactly once per ref string
// across the whole request; later occurrences of the same ref reuse the
// cached $defs entry.
func (c *convertCtx) preserveRef(refNode *Schema, ref string, target *Schema, pointer string) *Schema {
	name := c.defNameFor(ref)
	if _, ok := c.defs[name]; !ok {
		c.defs[name] = c.convert(target, "#/$defs/"+name, 0)
	}
	refOnly := &Schema{Ref: "#/$defs/" + name}

	siblingOnly := *refNode
	siblingOnly.Ref = ""
	siblingOnly.Defs = nil
	if isEmptySchema(&siblingOnly) {
		return refOnly
	}
	// 2020-12 allows keywords to sit beside $ref, but this engine's
	// restricted targets only need to render the two combined: wrap them
	// in an allOf rather than merging, since merging would drop the $ref
	// itself (allOf-merge has no "$ref" field to carry).
	return &Schema{AllOf: []*Schema{refOnly, c.convert(&siblingOnly, pointer, 0)}}
}

// defNameFor returns a stable, collision-free $defs key for ref, reusing
// the same key on every later call for an identical ref string.
func (c *convertCtx) defNameFor(ref string) string {
	if name, ok := c.defNames[ref]; ok {
		return name
	}
	base := defNameFromRef(ref)
	if base == "" {
		base = "ref"
	}
	name := base
	for i := 2; c.defNameUsed[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	c.defNameUsed[name] = true
	c.defNames[ref] = name
	return name
}

// mergeSiblingsWithRef folds an inlined $ref node's sibling keywords (if
// any) on top of the resolved target, giving the inline ref-node's own
// constraints priority — matching 2020-12 semantics where $ref is just
// another applicator.
func (c *convertCtx) mergeSiblingsWithRef(refNode, target *Schema, pointer string) *Schema {
	siblingOnly := *refNode
	siblingOnly.Ref = ""
	siblingOnly.Defs = nil
	if isEmptySchema(&siblingOnly) {
		copy := *target
		return &copy
	}
	return mergeAllOfPair(pointer, &siblingOnly, target, c.codec)
}

func isEmptySchema(s *Schema) bool {
	data, err := json.Marshal(s)
	if err != nil {
		return false
	}
	return string(data) == "{}"
}

// flattenAllOf merges a node's own keywords with every allOf branch
// using AND/conjunction semantics, then drops the allOf keyword itself
// since its effect has been folded in.
func (c *convertCtx) flattenAllOf(node *Schema, pointer string) *Schema {
	own := *node
	own.AllOf = nil

	branches := append([]*Schema{&own}, node.AllOf...)
	merged := mergeAllOfBranches(pointer, branches, c.codec)
	return merged
}

// rewritePolymorphism handles pass 3: oneOf and anyOf are interchangeable
// from the schema model's point of view (both describe "matches one of
// these branches" for structured-output purposes, since the engine does
// not validate exclusivity), so a target that prefers one form over the
// other gets branches relocated accordingly. A caller-supplied
// polymorphism option overrides the target profile's own preference.
func (c *convertCtx) rewritePolymorphism(node *Schema, pointer string) *Schema {
	policy := c.profile.Polymorphism
	if c.opts.Polymorphism != "" {
		policy = PolymorphismPolicy(c.opts.Polymorphism)
	}
	switch policy {
	case PolymorphismOneOf:
		if len(node.AnyOf) > 0 && len(node.OneOf) == 0 {
			out := *node
			out.OneOf = node.AnyOf
			out.AnyOf = nil
			c.codec.record(Transform{Op: OpExpandAnyOfToOneOf, At: pointer})
			return &out
		}
	case PolymorphismAnyOf, PolymorphismInline:
		if len(node.OneOf) > 0 && len(node.AnyOf) == 0 {
			out := *node
			out.AnyOf = node.OneOf
			out.OneOf = nil
			c.codec.record(Transform{Op: OpExpandAnyOfToOneOf, At: pointer})
			return &out
		}
	}
	return node
}

// descend handles pass 4: recursively convert every child structural
// keyword. This is the only place the walker recurses, so allOf
// flattening above must operate on raw branch content to avoid
// converting the same subtree twice.
func (c *convertCtx) descend(node *Schema, pointer string, depth int) *Schema {
	out := *node
	// Raw $defs content is never itself walked by the pipeline; it only
	// ever reaches the output through resolveRef (inlined at each use site,
	// or preserved into ctx.defs), so any leftover map here would just be
	// stale, unconverted baggage.
	out.Defs = nil

	if node.Properties != nil {
		props := make(SchemaMap, len(*node.Properties))
		for k, v := range *node.Properties {
			props[k] = c.convert(v, pointer+"/properties/"+k, depth+1)
		}
		out.Properties = &props
	}
	if node.PatternProperties != nil {
		props := make(SchemaMap, len(*node.PatternProperties))
		for k, v := range *node.PatternProperties {
			props[k] = c.convert(v, pointer+"/patternProperties/"+k, depth+1)
		}
		out.PatternProperties = &props
	}
	if node.AdditionalProperties != nil {
		out.AdditionalProperties = c.convert(node.AdditionalProperties, pointer+"/additionalProperties", depth+1)
	}
	if node.PropertyNames != nil {
		out.PropertyNames = c.convert(node.PropertyNames, pointer+"/propertyNames", depth+1)
	}
	if node.Items != nil {
		out.Items = c.convert(node.Items, pointer+"/items", depth+1)
	}
	if len(node.PrefixItems) > 0 {
		items := make([]*Schema, len(node.PrefixItems))
		for i, v := range node.PrefixItems {
			items[i] = c.convert(v, fmt.Sprintf("%s/prefixItems/%d", pointer, i), depth+1)
		}
		out.PrefixItems = items
	}
	if node.Contains != nil {
		out.Contains = c.convert(node.Contains, pointer+"/contains", depth+1)
	}
	if len(node.AnyOf) > 0 {
		branches := make([]*Schema, len(node.AnyOf))
		for i, v := range node.AnyOf {
			branches[i] = c.convert(v, fmt.Sprintf("%s/anyOf/%d", pointer, i), depth+1)
		}
		out.AnyOf = branches
	}
	if len(node.OneOf) > 0 {
		branches := make([]*Schema, len(node.OneOf))
		for i, v := range node.OneOf {
			branches[i] = c.convert(v, fmt.Sprintf("%s/oneOf/%d", pointer, i), depth+1)
		}
		out.OneOf = branches
	}
	if node.Not != nil {
		out.Not = c.convert(node.Not, pointer+"/not", depth+1)
	}
	if node.If != nil {
		out.If = c.convert(node.If, pointer+"/if", depth+1)
	}
	if node.Then != nil {
		out.Then = c.convert(node.Then, pointer+"/then", depth+1)
	}
	if node.Else != nil {
		out.Else = c.convert(node.Else, pointer+"/else", depth+1)
	}

	return &out
}

// normalizeObject handles pass 5: strict targets require every property
// to be listed in required (optional fields get their type widened with
// null) and additionalProperties pinned to false.
func (c *convertCtx) normalizeObject(node *Schema, pointer string) *Schema {
	if !isObjectSchema(node) {
		return node
	}
	out := *node

	if c.profile.RequireAllPropertiesInRequired && out.Properties != nil {
		required := make(map[string]struct{}, len(out.Required))
		for _, r := range out.Required {
			required[r] = struct{}{}
		}
		props := make(SchemaMap, len(*out.Properties))
		newRequired := append([]string{}, out.Required...)
		for name, prop := range *out.Properties {
			if _, ok := required[name]; !ok {
				props[name] = widenWithNull(prop)
				newRequired = append(newRequired, name)
				c.codec.record(Transform{
					Op:  OpPromoteOptionalToRequiredWithNull,
					At:  pointer + "/properties/" + name,
					Key: name,
				})
			} else {
				props[name] = prop
			}
		}
		out.Properties = &props
		out.Required = newRequired
	}

	if c.profile.RequireAdditionalPropertiesFalse && out.AdditionalProperties == nil {
		f := false
		out.AdditionalProperties = &Schema{Boolean: &f}
		c.codec.record(Transform{Op: OpSynthesizeAdditionalPropertiesFalse, At: pointer})
	}

	return &out
}

func isObjectSchema(node *Schema) bool {
	if len(node.Type) == 0 {
		return node.Properties != nil
	}
	for _, t := range node.Type {
		if t == "object" {
			return true
		}
	}
	return false
}

// widenWithNull adds "null" to a property's type set so a strict target
// can accept the field's absence-as-null without the field itself being
// declared optional. A property with no type keyword gets null as an
// extra anyOf alternative instead.
func widenWithNull(prop *Schema) *Schema {
	if prop == nil || prop.Boolean != nil {
		return prop
	}
	out := *prop
	if len(out.Type) == 0 {
		return &Schema{AnyOf: []*Schema{prop, {Type: SchemaType{"null"}}}}
	}
	for _, t := range out.Type {
		if t == "null" {
			return &out
		}
	}
	out.Type = append(append(SchemaType{}, out.Type...), "null")
	return &out
}

// filterConstraints handles pass 6: drop value-constraint keywords the
// target profile does not list in SupportedConstraints, recording each in
// droppedConstraints (format as a drop_format transform). No keyword is
// rewritten into a permissive form.
func (c *convertCtx) filterConstraints(node *Schema, pointer string) *Schema {
	out := *node

	if out.Format != nil {
		if !c.profile.Supports("format") || !c.profile.KeepsFormat(*out.Format) {
			c.codec.record(Transform{Op: OpDropFormat, At: pointer, Format: *out.Format})
			out.Format = nil
		}
	}
	if out.Const != nil && !c.profile.Supports("const") {
		c.codec.drop(pointer, "const", out.Const.Value, "target does not support const")
		out.Const = nil
	}
	if out.MultipleOf != nil && !c.profile.Supports("multipleOf") {
		c.codec.drop(pointer, "multipleOf", out.MultipleOf.Rat.RatString(), "target does not support multipleOf")
		out.MultipleOf = nil
	}
	if out.ExclusiveMinimum != nil && !c.profile.Supports("exclusiveMinimum") {
		c.codec.drop(pointer, "exclusiveMinimum", out.ExclusiveMinimum.Rat.RatString(), "target does not support exclusiveMinimum")
		out.ExclusiveMinimum = nil
	}
	if out.ExclusiveMaximum != nil && !c.profile.Supports("exclusiveMaximum") {
		c.codec.drop(pointer, "exclusiveMaximum", out.ExclusiveMaximum.Rat.RatString(), "target does not support exclusiveMaximum")
		out.ExclusiveMaximum = nil
	}
	if out.Pattern != nil && !c.profile.Supports("pattern") {
		c.codec.drop(pointer, "pattern", *out.Pattern, "target does not support pattern")
		out.Pattern = nil
	}
	if out.UniqueItems != nil && !c.profile.Supports("uniqueItems") {
		c.codec.drop(pointer, "uniqueItems", *out.UniqueItems, "target does not support uniqueItems")
		out.UniqueItems = nil
	}
	if out.MinContains != nil && !c.profile.Supports("minContains") {
		c.codec.drop(pointer, "minContains", *out.MinContains, "target does not support minContains")
		out.MinContains = nil
	}
	if out.MaxContains != nil && !c.profile.Supports("maxContains") {
		c.codec.drop(pointer, "maxContains", *out.MaxContains, "target does not support maxContains")
		out.MaxContains = nil
	}
	if out.ContentEncoding != nil {
		c.codec.drop(pointer, "contentEncoding", *out.ContentEncoding, "content keywords unsupported on structured-output targets")
		out.ContentEncoding = nil
	}
	if out.ContentMediaType != nil {
		c.codec.drop(pointer, "contentMediaType", *out.ContentMediaType, "content keywords unsupported on structured-output targets")
		out.ContentMediaType = nil
	}
	if out.ContentSchema != nil {
		c.codec.drop(pointer, "contentSchema", nil, "content keywords unsupported on structured-output targets")
		out.ContentSchema = nil
	}
	if out.DependentSchemas != nil {
		c.codec.drop(pointer, "dependentSchemas", nil, "dependentSchemas has no structured-output equivalent")
		out.DependentSchemas = nil
	}
	if out.DependentRequired != nil {
		c.codec.drop(pointer, "dependentRequired", nil, "dependentRequired has no structured-output equivalent")
		out.DependentRequired = nil
	}
	if out.If != nil {
		c.codec.drop(pointer, "if", nil, "conditional schemas have no structured-output equivalent")
		out.If, out.Then, out.Else = nil, nil, nil
	}
	if out.UnevaluatedItems != nil {
		c.codec.drop(pointer, "unevaluatedItems", nil, "unevaluatedItems has no structured-output equivalent")
		out.UnevaluatedItems = nil
	}
	if out.UnevaluatedProperties != nil {
		c.codec.drop(pointer, "unevaluatedProperties", nil, "unevaluatedProperties has no structured-output equivalent")
		out.UnevaluatedProperties = nil
	}
	return &out
}

// checkCompat records a non-fatal provider-compat observation when a
// converted node would still be rejected by the active target, e.g. a
// target requiring every property in required, on an object node whose
// required list names properties it never declares. Lenient
// mode suppresses these observations entirely without altering the
// converted schema or codec — mode only gates this reporting channel.
func (c *convertCtx) checkCompat(node *Schema, pointer string) {
	if c.opts.Mode == ModeLenient {
		return
	}
	if c.profile.RequireAllPropertiesInRequired && isObjectSchema(node) && node.Properties == nil && len(node.Required) > 0 {
		c.compat = append(c.compat, ProviderCompatError{
			Target:  c.profile.Name,
			Keyword: "required",
			Reason:  fmt.Sprintf("required lists properties not declared under properties at %s", pointer),
		})
	}
}

// validatePolymorphismOption rejects a polymorphism override the converter
// doesn't implement; an empty string (profile default, see rewritePolymorphism)
// always passes.
func validatePolymorphismOption(value string) error {
	switch PolymorphismPolicy(value) {
	case "", PolymorphismAnyOf, PolymorphismOneOf, PolymorphismInline:
		return nil
	default:
		return ErrUnknownPolymorphismStrategy
	}
}

// permissiveSchema is the fallback node substituted wherever a $ref
// cannot be resolved, a recursion limit is hit, or max-depth is reached:
// an empty schema accepts anything, which is the safest placeholder for
// a structured-output target that must still emit valid JSON Schema.
func permissiveSchema() *Schema {
	return &Schema{}
}
