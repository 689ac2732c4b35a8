package composer

import "slices"

// Result aliases projected by grouped queries.
const (
	TotalCountAlias   = "totalCount"
	AllowedCountAlias = "countAllowed"
)

// FilterFields are the fields that carry a per-field value selection.
var FilterFields = []string{"domain", "path", "as_owner", "country"}

// FreeTextFields are matched against the free-text term.
var FreeTextFields = []string{"domain", "as_owner", "path"}

// GroupByFields are the fields results may be grouped by.
var GroupByFields = []string{"domain", "as_owner", "country", "direction", "path"}

// OrderByFields are the fields results may be ordered by.
var OrderByFields = []string{"domain", "as_owner", "country", "direction", "path", "started", "ended"}

// ConnectionFields are all columns of a connection record.
var ConnectionFields = []string{
	"id", "allowed", "profile", "path", "type", "external",
	"ip_version", "ip_protocol", "local_ip", "local_port",
	"remote_ip", "remote_port", "domain", "country", "asn", "as_owner",
	"latitude", "longitude", "scope", "verdict", "started", "ended",
	"tunneled", "encrypted", "internal", "direction", "exit_node",
	"extra_data", "profile_name", "profile_revision", "active",
}

var displayNames = map[string]string{
	"domain":    "Domain",
	"path":      "Application",
	"as_owner":  "Organization",
	"country":   "Country",
	"direction": "Direction",
	"started":   "Started",
	"ended":     "Ended",
}

// DisplayName returns the human-readable name of a field.
func DisplayName(field string) string {
	if name, ok := displayNames[field]; ok {
		return name
	}
	return field
}

// IsConnectionField reports whether field is a connection column.
func IsConnectionField(field string) bool {
	return slices.Contains(ConnectionFields, field)
}

// FieldInfo describes how the search view can use a field.
type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Filter      bool   `json:"filter"`
	FreeText    bool   `json:"free_text"`
	GroupBy     bool   `json:"group_by"`
	OrderBy     bool   `json:"order_by"`
}

// Fields returns the catalogue of fields the view exposes, filterable
// fields first.
func Fields() []FieldInfo {
	names := slices.Clone(FilterFields)
	for _, f := range OrderByFields {
		if !slices.Contains(names, f) {
			names = append(names, f)
		}
	}

	out := make([]FieldInfo, len(names))
	for i, name := range names {
		out[i] = FieldInfo{
			Name:        name,
			DisplayName: DisplayName(name),
			Filter:      slices.Contains(FilterFields, name),
			FreeText:    slices.Contains(FreeTextFields, name),
			GroupBy:     slices.Contains(GroupByFields, name),
			OrderBy:     slices.Contains(OrderByFields, name),
		}
	}
	return out
}
