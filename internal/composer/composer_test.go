package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

func TestCompose_SingleFieldNoGrouping(t *testing.T) {
	sel := Selection{Values: map[string][]any{"domain": {"example.com"}}}

	q := Compose(sel)

	assert.Nil(t, q.Select)
	assert.Equal(t, netquery.Condition{"domain": netquery.In{"example.com"}}, q.Query)
	assert.Equal(t, []string{}, q.GroupBy)
	assert.Equal(t, []netquery.OrderBy{}, q.OrderBy)
}

func TestCompose_EmptySelection(t *testing.T) {
	q := Compose(Selection{})

	assert.Nil(t, q.Select)
	assert.Equal(t, netquery.Condition{}, q.Query)
}

func TestCompose_EmptyValueListIgnored(t *testing.T) {
	q := Compose(Selection{Values: map[string][]any{"country": {}}})
	assert.NotContains(t, q.Query, "country")
}

func TestCompose_FreeTextOnly(t *testing.T) {
	q := Compose(Selection{TextSearch: "foo"})

	for _, field := range []string{"domain", "as_owner", "path"} {
		assert.Equal(t, netquery.Like("%foo%"), q.Query[field], field)
	}
	assert.Len(t, q.Query, 3)
}

func TestCompose_FreeTextWithSelectedValues(t *testing.T) {
	sel := Selection{
		Values:     map[string][]any{"domain": {"a.com", "b.com"}, "country": {"AT"}},
		TextSearch: "foo",
	}

	q := Compose(sel)

	assert.Equal(t, []any{netquery.In{"a.com", "b.com"}, netquery.Like("%foo%")}, q.Query["domain"])
	assert.Equal(t, netquery.Like("%foo%"), q.Query["as_owner"])
	assert.Equal(t, netquery.Like("%foo%"), q.Query["path"])
	assert.Equal(t, netquery.In{"AT"}, q.Query["country"])
}

func TestCompose_FreeTextNormalized(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	q := Compose(Selection{TextSearch: "cafe\u0301"})
	assert.Equal(t, netquery.Like("%caf\u00e9%"), q.Query["domain"])
}

func TestCompose_Grouped(t *testing.T) {
	sel := Selection{
		GroupBy: []string{"country", "direction"},
		OrderBy: []netquery.OrderBy{{Field: TotalCountAlias, Desc: true}},
	}

	q := Compose(sel)

	require.Len(t, q.Select, 4)
	assert.Equal(t, netquery.CountAll(TotalCountAlias), q.Select[0])
	assert.Equal(t, netquery.SumWhere(netquery.Condition{
		"verdict": netquery.In{netquery.VerdictAccept, netquery.VerdictRerouteToNameserver, netquery.VerdictRerouteToTunnel},
	}, AllowedCountAlias), q.Select[1])
	assert.Equal(t, netquery.Field("country"), q.Select[2])
	assert.Equal(t, netquery.Field("direction"), q.Select[3])
	assert.Equal(t, []string{"country", "direction"}, q.GroupBy)
	assert.Equal(t, sel.OrderBy, q.OrderBy)
}

func TestCompose_ExcludeField(t *testing.T) {
	sel := Selection{
		Values:     map[string][]any{"domain": {"a.com"}, "country": {"AT"}},
		TextSearch: "foo",
	}

	cond := ComposeCondition(sel, "domain")

	// The free-text predicate still applies; only the field's own selection is dropped.
	assert.Equal(t, netquery.Like("%foo%"), cond["domain"])
	assert.Equal(t, netquery.In{"AT"}, cond["country"])
}

func TestCompose_Deterministic(t *testing.T) {
	sel := Selection{
		Values: map[string][]any{
			"domain":   {"a.com", "b.com"},
			"country":  {"AT"},
			"as_owner": {"ACME"},
			"path":     {"/usr/bin/curl"},
		},
		TextSearch: "x",
		GroupBy:    []string{"domain"},
		OrderBy:    []netquery.OrderBy{{Field: "domain"}},
	}

	first := Compose(sel)
	for range 20 {
		again := Compose(sel)
		assert.Equal(t, first, again)
		assert.Equal(t, first.Query.Key(), again.Query.Key())
	}
}

func TestCompose_DoesNotAliasSelection(t *testing.T) {
	sel := Selection{
		Values:  map[string][]any{"domain": {"a.com"}},
		GroupBy: []string{"domain"},
	}

	q := Compose(sel)
	q.Query["domain"].(netquery.In)[0] = "changed"
	q.GroupBy[0] = "country"

	assert.Equal(t, []any{"a.com"}, sel.Values["domain"])
	assert.Equal(t, []string{"domain"}, sel.GroupBy)
}

func TestCountQuery(t *testing.T) {
	cond := netquery.Condition{"country": netquery.In{"AT"}}
	q := CountQuery(cond)

	assert.Equal(t, []netquery.Select{netquery.CountAll(TotalCountAlias)}, q.Select)
	assert.Equal(t, cond, q.Query)
	assert.Empty(t, q.GroupBy)
}

func TestGroupCondition(t *testing.T) {
	primary := netquery.Condition{"country": netquery.In{"AT", "DE"}}
	row := netquery.Row{"country": "AT", "direction": "outbound", TotalCountAlias: 3}

	cond := GroupCondition(primary, []string{"country", "direction"}, row)

	assert.Equal(t, []any{netquery.In{"AT", "DE"}, "AT"}, cond["country"])
	assert.Equal(t, "outbound", cond["direction"])
	assert.NotContains(t, cond, TotalCountAlias)
	// primary is untouched
	assert.Equal(t, netquery.In{"AT", "DE"}, primary["country"])
	assert.NotContains(t, primary, "direction")
}

func TestAllowedCondition(t *testing.T) {
	assert.Equal(t, netquery.Condition{"verdict": netquery.AllowedSet()}, AllowedCondition())
}
