// Package query projects connection search results with JQ expressions.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Engine executes JQ expressions against search results.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Result contains the values a JQ expression produced.
type Result struct {
	Values      []any    `json:"values"`                 // Extracted values
	Errors      []string `json:"errors,omitempty"`       // Per-row errors (e.g., type mismatch)
	RawCount    int      `json:"raw_count"`              // Count before deduplication
	MatchedRows []int    `json:"matched_rows,omitempty"` // Indices of rows that produced values
}

// Query executes a JQ expression against a JSON document, such as an
// encoded search snapshot.
func (e *Engine) Query(data []byte, expression string, deduplicate bool, maxResults int) (*Result, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}

	result := &Result{Values: make([]any, 0)}
	c := newCollector(result, deduplicate, maxResults)
	c.run(code, input, "result", -1)
	return result, nil
}

// ProjectRows executes a JQ expression against every row. Rows that fail
// contribute an error labelled with their index instead of values.
func (e *Engine) ProjectRows(rows []netquery.Row, expression string, deduplicate bool, maxResults int) (*Result, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	result := &Result{Values: make([]any, 0)}
	c := newCollector(result, deduplicate, maxResults)
	for i, row := range rows {
		if c.full() {
			break
		}
		c.run(code, normalizeRow(row), fmt.Sprintf("row[%d]", i), i)
	}
	return result, nil
}

// ValidateExpression checks if a JQ expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

type collector struct {
	result      *Result
	deduplicate bool
	maxResults  int
	seen        map[string]bool
	seenErrors  map[string]bool
}

func newCollector(result *Result, deduplicate bool, maxResults int) *collector {
	return &collector{
		result:      result,
		deduplicate: deduplicate,
		maxResults:  maxResults,
		seen:        make(map[string]bool),
		seenErrors:  make(map[string]bool),
	}
}

func (c *collector) full() bool {
	return c.maxResults > 0 && len(c.result.Values) >= c.maxResults
}

// run feeds input through code. index is the row index, or -1 for a
// whole document.
func (c *collector) run(code *gojq.Code, input any, label string, index int) {
	matched := false
	iter := code.Run(input)
	for !c.full() {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := v.(error); isErr {
			msg := formatJQError(label, err)
			if !c.seenErrors[msg] {
				c.seenErrors[msg] = true
				c.result.Errors = append(c.result.Errors, msg)
			}
			continue
		}

		// Skip nil values
		if v == nil {
			continue
		}

		c.result.RawCount++
		matched = true

		if c.deduplicate {
			key := valueKey(v)
			if c.seen[key] {
				continue
			}
			c.seen[key] = true
		}
		c.result.Values = append(c.result.Values, v)
	}

	if matched && index >= 0 {
		c.result.MatchedRows = append(c.result.MatchedRows, index)
	}
}

// normalizeRow converts row values into the types gojq operates on.
func normalizeRow(row netquery.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, float64:
		return val
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case int64:
		return int(val)
	case int32:
		return int(val)
	case float32:
		return float64(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return string(b)
		}
		return decoded
	}
}

// formatJQError creates a helpful error message for JQ execution errors.
// Runtime errors from gojq are plain errors, so hints are picked by
// matching the message text.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the field may be missing from this row)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case int:
		return fmt.Sprintf("n:%d", val)
	case float64:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
