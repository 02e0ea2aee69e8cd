package jsonschema

import (
	"fmt"
	"sort"
	"strings"
)

// ListComponents enumerates every extractable pointer within a schema:
// every entry under $defs/definitions plus the document root itself.
func ListComponents(schemaBytes []byte) (*ListComponentsResult, *EngineError) {
	if off := validateUTF8(schemaBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 at byte offset %d", off), "")
	}

	root, err := newSchema(schemaBytes)
	if err != nil {
		return nil, newEngineError("json_parse_error", err.Error(), "")
	}

	var components []ComponentDescriptor
	components = append(components, ComponentDescriptor{Pointer: "#", Name: "root"})
	for name := range root.Defs {
		components = append(components, ComponentDescriptor{
			Pointer: "#/$defs/" + name,
			Name:    name,
		})
	}
	sort.Slice(components[1:], func(i, j int) bool {
		return components[i+1].Name < components[j+1].Name
	})

	return &ListComponentsResult{ApiVersion: ApiVersion, Components: components}, nil
}

// ExtractComponent projects the sub-schema rooted at pointer together
// with every $defs entry transitively reachable from it, so the result
// is self-contained. References that cannot be resolved are reported in
// MissingRefs rather than failing the whole extraction, unless opts asks
// on-missing-ref to be treated as fatal.
func ExtractComponent(schemaBytes []byte, pointer string, optsBytes []byte) (*ExtractComponentResult, *EngineError) {
	if off := validateUTF8(schemaBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 at byte offset %d", off), "")
	}
	if off := validateUTF8([]byte(pointer)); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 in pointer at byte offset %d", off), "")
	}
	if off := validateUTF8(optsBytes); off >= 0 {
		return nil, newEngineError("invalid_utf8", fmt.Sprintf("invalid UTF-8 in options at byte offset %d", off), "")
	}

	opts, oerr := ParseExtractOptions(optsBytes)
	if oerr != nil {
		return nil, newEngineError("invalid_input", "malformed extract options", "")
	}

	root, err := newSchema(schemaBytes)
	if err != nil {
		return nil, newEngineError("json_parse_error", err.Error(), "")
	}

	resolver := NewResolver(root)
	node, rerr := resolver.Resolve(pointerToRef(pointer))
	if rerr != nil {
		return nil, newEngineError("invalid_pointer", "no schema at pointer "+pointer, pointer)
	}

	var defs map[string]*Schema
	var missing []string
	if opts.IncludeDependencies {
		visited := make(map[string]*Schema)
		collectDependencyClosure(node, resolver, visited, &missing)
		if len(missing) > 0 && opts.OnMissingRef == OnMissingRefError {
			return nil, newEngineError("unresolvable_ref", "component has unresolved references: "+strings.Join(missing, ", "), pointer)
		}
		defs = make(map[string]*Schema, len(visited))
		for ref, schema := range visited {
			name := defNameFromRef(ref)
			if name != "" {
				defs[name] = schema
			}
		}
	}

	extracted := *node
	if len(defs) > 0 {
		extracted.Defs = defs
	}

	return &ExtractComponentResult{
		ApiVersion:      ApiVersion,
		Schema:          &extracted,
		Pointer:         pointer,
		DependencyCount: len(defs),
		MissingRefs:     missing,
	}, nil
}

// ConvertAllComponents lists every candidate component, extracts and
// converts each independently, and collects per-component failures
// without aborting the batch — alongside converting the document as a
// whole the same way a direct Convert call would.
func ConvertAllComponents(schemaBytes, convertOptsBytes, extractOptsBytes []byte) (*ConvertAllComponentsResult, *EngineError) {
	full, cerr := Convert(schemaBytes, convertOptsBytes)
	if cerr != nil {
		return nil, cerr
	}

	listing, lerr := ListComponents(schemaBytes)
	if lerr != nil {
		return nil, lerr
	}

	var conversions []ComponentConversion
	var componentErrors []ComponentError

	for _, component := range listing.Components {
		if component.Pointer == "#" {
			continue
		}
		extracted, eerr := ExtractComponent(schemaBytes, component.Pointer, extractOptsBytes)
		if eerr != nil {
			componentErrors = append(componentErrors, ComponentError{Pointer: component.Pointer, Error: *eerr})
			continue
		}

		schemaJSON, merr := extracted.Schema.MarshalJSON()
		if merr != nil {
			componentErrors = append(componentErrors, ComponentError{
				Pointer: component.Pointer,
				Error:   *newEngineError("internal_error", merr.Error(), component.Pointer),
			})
			continue
		}

		result, cerr := Convert(schemaJSON, convertOptsBytes)
		if cerr != nil {
			componentErrors = append(componentErrors, ComponentError{Pointer: component.Pointer, Error: *cerr})
			continue
		}
		conversions = append(conversions, ComponentConversion{Pointer: component.Pointer, Result: *result})
	}

	return &ConvertAllComponentsResult{
		ApiVersion:      ApiVersion,
		Full:            *full,
		Components:      conversions,
		ComponentErrors: componentErrors,
	}, nil
}

// collectDependencyClosure walks every $ref reachable from node,
// recording each resolved target by its ref string and noting any ref
// that fails to resolve rather than aborting the walk.
func collectDependencyClosure(node *Schema, resolver *Resolver, visited map[string]*Schema, missing *[]string) {
	if node == nil || node.Boolean != nil {
		return
	}

	if node.Ref != "" {
		if _, seen := visited[node.Ref]; !seen {
			target, err := resolver.Resolve(node.Ref)
			if err != nil {
				*missing = append(*missing, node.Ref)
				return
			}
			visited[node.Ref] = target
			collectDependencyClosure(target, resolver, visited, missing)
		}
	}

	for _, child := range node.AllOf {
		collectDependencyClosure(child, resolver, visited, missing)
	}
	for _, child := range node.AnyOf {
		collectDependencyClosure(child, resolver, visited, missing)
	}
	for _, child := range node.OneOf {
		collectDependencyClosure(child, resolver, visited, missing)
	}
	for _, child := range node.PrefixItems {
		collectDependencyClosure(child, resolver, visited, missing)
	}
	if node.Properties != nil {
		for _, child := range *node.Properties {
			collectDependencyClosure(child, resolver, visited, missing)
		}
	}
	if node.PatternProperties != nil {
		for _, child := range *node.PatternProperties {
			collectDependencyClosure(child, resolver, visited, missing)
		}
	}
	for _, child := range node.DependentSchemas {
		collectDependencyClosure(child, resolver, visited, missing)
	}
	collectDependencyClosure(node.Not, resolver, visited, missing)
	collectDependencyClosure(node.If, resolver, visited, missing)
	collectDependencyClosure(node.Then, resolver, visited, missing)
	collectDependencyClosure(node.Else, resolver, visited, missing)
	collectDependencyClosure(node.Items, resolver, visited, missing)
	collectDependencyClosure(node.Contains, resolver, visited, missing)
	collectDependencyClosure(node.AdditionalProperties, resolver, visited, missing)
	collectDependencyClosure(node.PropertyNames, resolver, visited, missing)
	collectDependencyClosure(node.UnevaluatedItems, resolver, visited, missing)
	collectDependencyClosure(node.UnevaluatedProperties, resolver, visited, missing)
	collectDependencyClosure(node.ContentSchema, resolver, visited, missing)
}

// pointerToRef turns a root-relative JSON Pointer ("#/$defs/Foo") into a
// ref string acceptable to Resolver.Resolve, which already understands
// the "#/..." shape directly; this exists purely to document the
// boundary between pointer-space (component API) and ref-space
// (resolver).
func pointerToRef(pointer string) string {
	return pointer
}

// defNameFromRef extracts a usable $defs key from a ref string of the
// shape "#/$defs/Name"; refs pointing elsewhere in the document (e.g.
// "#/properties/foo") get a synthesized name derived from their pointer
// so the extracted component's $defs map has no collisions.
func defNameFromRef(ref string) string {
	const prefix = "#/$defs/"
	if strings.HasPrefix(ref, prefix) {
		rest := ref[len(prefix):]
		if idx := strings.Index(rest, "/"); idx >= 0 {
			return rest[:idx]
		}
		return rest
	}
	trimmed := strings.TrimPrefix(ref, "#/")
	return strings.ReplaceAll(trimmed, "/", "_")
}
