package netquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Select is a requested output column: a plain field or an aggregate.
// Exactly one of Field, Count or Sum is set.
type Select struct {
	Field string
	Count *Count
	Sum   *Sum
}

// Count counts rows (Field "*") or non-null values of Field.
type Count struct {
	Field    string `json:"field"`
	As       string `json:"as"`
	Distinct bool   `json:"distinct,omitempty"`
}

// Sum counts the rows matching Condition.
type Sum struct {
	Condition Condition `json:"condition"`
	As        string    `json:"as"`
}

// Field selects a field as is.
func Field(name string) Select {
	return Select{Field: name}
}

// CountAll counts all rows, aliased as.
func CountAll(as string) Select {
	return Select{Count: &Count{Field: "*", As: as}}
}

// SumWhere counts the rows matching cond, aliased as.
func SumWhere(cond Condition, as string) Select {
	return Select{Sum: &Sum{Condition: cond, As: as}}
}

// Name returns the column name the select produces in result rows.
func (s Select) Name() string {
	switch {
	case s.Count != nil:
		return s.Count.As
	case s.Sum != nil:
		return s.Sum.As
	default:
		return s.Field
	}
}

// MarshalJSON encodes a field select as a bare string and aggregates as
// {"$count": {...}} or {"$sum": {...}}.
func (s Select) MarshalJSON() ([]byte, error) {
	switch {
	case s.Count != nil:
		return json.Marshal(map[string]*Count{"$count": s.Count})
	case s.Sum != nil:
		sum := *s.Sum
		if sum.Condition == nil {
			sum.Condition = Condition{}
		}
		return json.Marshal(map[string]Sum{"$sum": sum})
	default:
		return json.Marshal(s.Field)
	}
}

// OrderBy sorts results by Field.
type OrderBy struct {
	Field string `json:"field" yaml:"field"`
	Desc  bool   `json:"desc" yaml:"desc"`
}

// Query is a request to the record store.
// Select is nil for a full row projection.
type Query struct {
	Select  []Select  `json:"select,omitempty"`
	Query   Condition `json:"query"`
	GroupBy []string  `json:"groupBy"`
	OrderBy []OrderBy `json:"orderBy"`
}

// MarshalJSON always emits query, groupBy and orderBy, even when empty.
func (q Query) MarshalJSON() ([]byte, error) {
	type wire Query
	w := wire(q)
	if w.Query == nil {
		w.Query = Condition{}
	}
	if w.GroupBy == nil {
		w.GroupBy = []string{}
	}
	if w.OrderBy == nil {
		w.OrderBy = []OrderBy{}
	}
	return json.Marshal(w)
}

// Row is one result row (or group) keyed by field or alias name.
type Row map[string]any

// Int returns the value of key as an int. Missing and non-numeric values
// report ok=false.
func (r Row) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// String returns the value of key formatted for display.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprint(v)
}

// ChartResult is one time bucket of the active connection chart.
// The store reports the bucket count as "value".
type ChartResult struct {
	Timestamp int64 `json:"timestamp"`
	Count     int   `json:"value"`
}

// Store executes queries against the connection record store.
type Store interface {
	Query(ctx context.Context, q *Query) ([]Row, error)
	ActiveConnectionChart(ctx context.Context, cond Condition) ([]ChartResult, error)
}
