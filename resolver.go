package jsonschema

import (
	"strings"

	"github.com/kaptinlin/jsonpointer"
)

// refState classifies where a reference sits in the resolver's traversal
// relative to the schema currently being walked.
type refState int

const (
	refUnresolved refState = iota
	refInProgress
	refResolved
)

// Resolver indexes a schema tree once per request and answers $ref lookups
// against that index. It owns the resolution stack used for cycle
// detection; neither the index nor the stack outlives the request that
// created the Resolver.
type Resolver struct {
	root *Schema

	byPointer map[string]*Schema // "#/$defs/Foo" style root-relative pointers
	byAnchor  map[string]*Schema // "$anchor" names, flat across the document
	byID      map[string]*Schema // absolute/relative $id URIs

	stack []string
	onStack map[string]int // ref -> depth at which it entered the stack
}

// NewResolver builds the flat reference table for root by walking every
// structural keyword that can hold a subschema, recording each node's root-
// relative JSON Pointer, $anchor (if any), and $id (if any).
func NewResolver(root *Schema) *Resolver {
	r := &Resolver{
		root:      root,
		byPointer: make(map[string]*Schema),
		byAnchor:  make(map[string]*Schema),
		byID:      make(map[string]*Schema),
		onStack:   make(map[string]int),
	}
	r.index(root, nil, "")
	return r
}

func (r *Resolver) index(node *Schema, pointerTokens []string, baseURI string) {
	if node == nil || node.Boolean != nil {
		return
	}

	r.byPointer["#"+jsonpointer.Format(pointerTokens...)] = node

	nodeBase := baseURI
	if node.ID != "" {
		if isAbsoluteURI(node.ID) {
			nodeBase = node.ID
		} else if baseURI != "" {
			nodeBase = resolveRelativeURI(baseURI, node.ID)
		} else {
			nodeBase = node.ID
		}
		r.byID[nodeBase] = node
	}

	if node.Anchor != "" {
		r.byAnchor[node.Anchor] = node
	}

	child := func(c *Schema, segs ...string) {
		r.index(c, append(append([]string{}, pointerTokens...), segs...), nodeBase)
	}
	childSlice := func(cs []*Schema, prefix string) {
		for i, c := range cs {
			child(c, prefix, itoa(i))
		}
	}
	childMap := func(m map[string]*Schema, prefix string) {
		for k, c := range m {
			child(c, prefix, k)
		}
	}

	childMap(node.Defs, "$defs")
	if node.Properties != nil {
		childMap(map[string]*Schema(*node.Properties), "properties")
	}
	if node.PatternProperties != nil {
		childMap(map[string]*Schema(*node.PatternProperties), "patternProperties")
	}
	childMap(node.DependentSchemas, "dependentSchemas")

	childSlice(node.AllOf, "allOf")
	childSlice(node.AnyOf, "anyOf")
	childSlice(node.OneOf, "oneOf")
	childSlice(node.PrefixItems, "prefixItems")

	child(node.Not, "not")
	child(node.If, "if")
	child(node.Then, "then")
	child(node.Else, "else")
	child(node.Items, "items")
	child(node.Contains, "contains")
	child(node.AdditionalProperties, "additionalProperties")
	child(node.PropertyNames, "propertyNames")
	child(node.UnevaluatedItems, "unevaluatedItems")
	child(node.UnevaluatedProperties, "unevaluatedProperties")
	child(node.ContentSchema, "contentSchema")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// Resolve looks up a $ref or $dynamicRef string against the index built by
// NewResolver. It never fetches over the network: a reference naming a
// document outside this request's schema is unresolvable by construction.
func (r *Resolver) Resolve(ref string) (*Schema, error) {
	if ref == "" || ref == "#" {
		return r.root, nil
	}

	if strings.HasPrefix(ref, "#/") {
		if schema, ok := r.byPointer[ref]; ok {
			return schema, nil
		}
		return nil, ErrUnresolvableRef
	}

	if strings.HasPrefix(ref, "#") {
		if schema, ok := r.byAnchor[ref[1:]]; ok {
			return schema, nil
		}
		return nil, ErrUnresolvableRef
	}

	baseURI, anchor := splitRef(ref)
	schema, ok := r.byID[baseURI]
	if !ok {
		return nil, ErrUnresolvableRef
	}
	if anchor == "" {
		return schema, nil
	}
	if isJSONPointer(anchor) {
		// Anchors qualified by a pointer fragment resolve relative to the
		// root document; the $id scope only narrows which document, and
		// this engine only ever indexes one.
		if resolved, ok := r.byPointer["#"+anchor]; ok {
			return resolved, nil
		}
		return nil, ErrUnresolvableRef
	}
	if resolved, ok := r.byAnchor[anchor]; ok {
		return resolved, nil
	}
	return nil, ErrUnresolvableRef
}

// Enter pushes ref onto the resolution stack and reports its state before
// the push: refInProgress means ref is already an ancestor in this walk
// (a cycle), refResolved is never returned by Enter.
func (r *Resolver) Enter(ref string) refState {
	if _, onStack := r.onStack[ref]; onStack {
		return refInProgress
	}
	r.onStack[ref] = len(r.stack)
	r.stack = append(r.stack, ref)
	return refUnresolved
}

// Exit pops the most recently entered ref. Callers must pair every Enter
// with an Exit once the subtree reached through ref has been fully walked.
func (r *Resolver) Exit(ref string) {
	if len(r.stack) == 0 {
		return
	}
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.onStack, ref)
}

// Depth reports how many references are currently on the resolution stack.
// The converter stamps it on truncate_recursion transforms; recursion-limit
// itself is enforced with the converter's own per-ref inline counts.
func (r *Resolver) Depth() int {
	return len(r.stack)
}
