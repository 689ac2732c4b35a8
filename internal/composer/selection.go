package composer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Selection is a snapshot of the search view's session state: the values
// selected per field, the free-text term and the active group/order fields.
type Selection struct {
	Values     map[string][]any   `json:"values,omitempty" yaml:"values,omitempty" jsonschema:"description=Selected values per field"`
	TextSearch string             `json:"text_search,omitempty" yaml:"text_search,omitempty" jsonschema:"description=Free-text term matched against domain/as_owner/path"`
	GroupBy    []string           `json:"group_by,omitempty" yaml:"group_by,omitempty" jsonschema:"description=Fields to group results by"`
	OrderBy    []netquery.OrderBy `json:"order_by,omitempty" yaml:"order_by,omitempty" jsonschema:"description=Result ordering"`
}

// Clone returns a deep copy of s.
func (s Selection) Clone() Selection {
	out := Selection{
		TextSearch: s.TextSearch,
		GroupBy:    slices.Clone(s.GroupBy),
		OrderBy:    slices.Clone(s.OrderBy),
	}
	if s.Values != nil {
		out.Values = make(map[string][]any, len(s.Values))
		for field, values := range s.Values {
			out.Values[field] = slices.Clone(values)
		}
	}
	return out
}

// Selected returns the values selected for field.
func (s Selection) Selected(field string) []any {
	return s.Values[field]
}

// Grouped reports whether any group-by field is active.
func (s Selection) Grouped() bool {
	return len(s.GroupBy) > 0
}

// FieldError reports a field the composer has no rule for.
type FieldError struct {
	Role  string // "filter", "group_by" or "order_by"
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("unsupported %s field %q", e.Role, e.Field)
}

// Validate checks that every field referenced by s is one the composer
// knows how to handle.
func Validate(s Selection) error {
	for _, field := range slices.Sorted(maps.Keys(s.Values)) {
		if !IsConnectionField(field) {
			return &FieldError{Role: "filter", Field: field}
		}
	}
	for _, field := range s.GroupBy {
		if !slices.Contains(GroupByFields, field) {
			return &FieldError{Role: "group_by", Field: field}
		}
	}
	for _, o := range s.OrderBy {
		if slices.Contains(OrderByFields, o.Field) {
			continue
		}
		if s.Grouped() && (o.Field == TotalCountAlias || o.Field == AllowedCountAlias) {
			continue
		}
		return &FieldError{Role: "order_by", Field: o.Field}
	}
	return nil
}
