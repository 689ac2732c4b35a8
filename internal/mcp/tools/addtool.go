package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool with the server and validates that the output type's
// zero value passes the SDK's inferred JSON schema. This catches nil-slice bugs
// at startup rather than at runtime.
//
// Panics if the zero value of Out fails schema validation.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	CheckOutputSchema[Out](t.Name)
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema validates that the zero value of T passes the JSON schema
// the MCP SDK would infer from it.
//
// Go's json.Marshal serializes nil slices as null, but the SDK infers
// "type": "array" from the Go type, so null fails schema validation. Adding
// omitzero to slice fields or initializing them to empty slices fixes this.
//
// It also rejects fields whose JSON form is decided by a custom marshaler
// (json.RawMessage, query conditions and selects): the schema generator
// infers their Go structure, which is not what ends up on the wire.
//
// Panics if validation fails. No-ops for the untyped "any" output or if schema
// inference itself fails (the SDK will report those separately).
func CheckOutputSchema[T any](toolName string) {
	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[any]() {
		return
	}
	elem := rt
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}

	if paths := findMarshalerFields(elem, nil, make(map[reflect.Type]bool)); len(paths) > 0 {
		panic(fmt.Sprintf(
			"AddTool %q: output type %s has custom JSON encoding at %s\n"+
				"  the schema generator infers the Go structure, not the encoded form\n"+
				"  Fix: change the field type to any (or []any), then convert with ToAny:\n"+
				"    v, err := ToAny(typedValue)\n"+
				"    output.Field = v",
			toolName, elem, strings.Join(paths, ", "),
		))
	}

	schema, err := jsonschema.ForType(elem, &jsonschema.ForOptions{})
	if err != nil {
		return
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return
	}

	zero := reflect.Zero(elem).Interface()
	data, err := json.Marshal(zero)
	if err != nil {
		return
	}

	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return
	}

	if err := resolved.Validate(&v); err != nil {
		panic(fmt.Sprintf(
			"AddTool %q: zero value of output type %s fails schema validation: %v\n"+
				"  JSON: %s\n"+
				"  Fix: add `omitzero` to nil-defaulting slice fields, or initialize them to empty slices",
			toolName, elem, err, data,
		))
	}
}

var marshalerType = reflect.TypeFor[json.Marshaler]()

// encodesItself reports whether t (or *t) controls its own JSON encoding.
func encodesItself(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

// findMarshalerFields walks t and returns the paths of values that encode
// themselves. json.RawMessage is one of them.
func findMarshalerFields(t reflect.Type, path []string, visited map[reflect.Type]bool) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if encodesItself(t) {
		if len(path) == 0 {
			return []string{"(root)"}
		}
		return []string{strings.Join(path, ".")}
	}

	if visited[t] {
		return nil
	}
	visited[t] = true
	defer delete(visited, t)

	var found []string

	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fieldPath := append(slices.Clone(path), f.Name)
			found = append(found, findMarshalerFields(f.Type, fieldPath, visited)...)
		}

	case reflect.Slice, reflect.Array:
		found = append(found, findMarshalerFields(t.Elem(), append(slices.Clone(path), "[]"), visited)...)

	case reflect.Map:
		found = append(found, findMarshalerFields(t.Elem(), append(slices.Clone(path), "[value]"), visited)...)
	}

	return found
}
