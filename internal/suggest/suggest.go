// Package suggest ranks candidate values for a field of the search view.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/metrics"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// CountAlias is the alias of the per-value row count.
const CountAlias = "count"

// Suggestion is a candidate value for a field.
type Suggestion struct {
	Name        string `json:"name"`
	Value       any    `json:"value"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Selected    bool   `json:"selected,omitempty"`
}

// Ranker loads and orders suggestions.
type Ranker struct {
	store netquery.Store
}

// New creates a Ranker backed by store.
func New(store netquery.Store) *Ranker {
	return &Ranker{store: store}
}

// Query returns the grouped count query used to load suggestions for field.
// The field's own selected values do not constrain the candidates.
func Query(sel composer.Selection, field string) netquery.Query {
	return netquery.Query{
		Select: []netquery.Select{
			netquery.Field(field),
			netquery.CountAll(CountAlias),
		},
		Query:   composer.ComposeCondition(sel, field),
		GroupBy: []string{field},
		OrderBy: []netquery.OrderBy{{Field: CountAlias, Desc: true}},
	}
}

// Rank returns the candidate values for field. Values currently selected
// for field come first, then the rest; each part is ordered by count,
// highest first. An empty candidate set yields an empty slice.
func (r *Ranker) Rank(ctx context.Context, sel composer.Selection, field string) ([]Suggestion, error) {
	start := time.Now()
	q := Query(sel, field)

	rows, err := r.store.Query(ctx, &q)
	metrics.ObserveStore(metrics.OpSuggest, start, err)
	if err != nil {
		return nil, fmt.Errorf("loading suggestions for %q: %w", field, err)
	}

	suggestions := make([]Suggestion, 0, len(rows))
	for _, row := range rows {
		count, _ := row.Int(CountAlias)
		suggestions = append(suggestions, Suggestion{
			Name:  row.String(field),
			Value: row[field],
			Count: count,
		})
	}
	Sort(suggestions, sel.Selected(field))

	slog.Debug("suggestions loaded",
		slog.String("field", field),
		slog.Int("count", len(suggestions)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return suggestions, nil
}

// Sort orders suggestions in place: selected values before unselected
// ones, higher counts first within each part. The sort is stable, so
// equal counts keep the store's order. Selected is set on every pinned
// suggestion.
func Sort(suggestions []Suggestion, selected []any) {
	pinned := make(map[string]bool, len(selected))
	for _, v := range selected {
		pinned[valueKey(v)] = true
	}
	for i := range suggestions {
		suggestions[i].Selected = pinned[valueKey(suggestions[i].Value)]
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Selected != b.Selected {
			return a.Selected
		}
		return a.Count > b.Count
	})
}

// valueKey makes values comparable across decoders: a selected 443 and a
// store 443 match whether they arrive as int, float64 or json.Number.
func valueKey(v any) string {
	if s, ok := v.(string); ok {
		return "s:" + s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(b)
}
