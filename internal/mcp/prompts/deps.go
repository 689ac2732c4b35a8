// Package prompts contains MCP prompt implementations for the netquery
// search view.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	DebounceMs  int64
	ResultLimit int
	Fields      []string // filterable fields, in display order
}
