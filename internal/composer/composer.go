// Package composer builds netquery queries from a search view selection.
package composer

import (
	"maps"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Compose builds the query for sel. Fields listed in exclude do not
// constrain the condition with their own selected values; this keeps a
// field's suggestion list from being filtered by itself.
//
// Compose is deterministic: identical selections yield structurally equal
// queries. It never mutates sel.
func Compose(sel Selection, exclude ...string) netquery.Query {
	return netquery.Query{
		Select:  composeSelect(sel.GroupBy),
		Query:   ComposeCondition(sel, exclude...),
		GroupBy: append([]string{}, sel.GroupBy...),
		OrderBy: append([]netquery.OrderBy{}, sel.OrderBy...),
	}
}

// ComposeCondition builds only the condition part of Compose.
func ComposeCondition(sel Selection, exclude ...string) netquery.Condition {
	cond := netquery.Condition{}

	for _, field := range slices.Sorted(maps.Keys(sel.Values)) {
		if slices.Contains(exclude, field) {
			continue
		}
		values := sel.Values[field]
		if len(values) == 0 {
			continue
		}
		cond.Merge(field, netquery.In(slices.Clone(values)))
	}

	if term := norm.NFC.String(sel.TextSearch); term != "" {
		for _, field := range FreeTextFields {
			cond.Merge(field, netquery.Contains(term))
		}
	}

	return cond
}

// composeSelect returns the grouped projection: the per-group total, the
// per-group allowed count, then the grouped fields. Ungrouped queries
// project full rows (nil).
func composeSelect(groupBy []string) []netquery.Select {
	if len(groupBy) == 0 {
		return nil
	}

	sel := []netquery.Select{
		netquery.CountAll(TotalCountAlias),
		netquery.SumWhere(AllowedCondition(), AllowedCountAlias),
	}
	for _, field := range groupBy {
		sel = append(sel, netquery.Field(field))
	}
	return sel
}

// AllowedCondition matches connections whose traffic was let through.
func AllowedCondition() netquery.Condition {
	return netquery.Condition{"verdict": netquery.AllowedSet()}
}

// CountQuery returns the count-only query for cond.
func CountQuery(cond netquery.Condition) netquery.Query {
	return netquery.Query{
		Select:  []netquery.Select{netquery.CountAll(TotalCountAlias)},
		Query:   cond,
		GroupBy: []string{},
		OrderBy: []netquery.OrderBy{},
	}
}

// GroupCondition returns the condition selecting exactly the members of the
// group row belongs to: a clone of primary with the row's value for every
// group-by field merged in.
func GroupCondition(primary netquery.Condition, groupBy []string, row netquery.Row) netquery.Condition {
	cond := primary.Clone()
	for _, field := range groupBy {
		cond.Merge(field, row[field])
	}
	return cond
}
