// Package tools contains MCP tool implementations for the netquery search view.
package tools

import (
	"encoding/json"
)

// MIME type constant.
const MimeJSON = "application/json"

// ToAny round-trips a typed value through JSON to produce an untyped any.
// Use this when a tool output field must be any because the value's JSON
// form differs from its Go structure (custom marshalers).
func ToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
