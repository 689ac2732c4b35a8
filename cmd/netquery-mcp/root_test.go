package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadSelection(t *testing.T) {
	path := writeFile(t, "selection.yaml", `
values:
  country: [DE, AT]
text_search: github
group_by: [domain]
order_by:
  - field: totalCount
    desc: true
`)

	sel, err := loadSelection(path)
	require.NoError(t, err)
	assert.Equal(t, composer.Selection{
		Values:     map[string][]any{"country": {"DE", "AT"}},
		TextSearch: "github",
		GroupBy:    []string{"domain"},
		OrderBy:    []netquery.OrderBy{{Field: "totalCount", Desc: true}},
	}, sel)
}

func TestLoadSelection_Empty(t *testing.T) {
	sel, err := loadSelection("")
	require.NoError(t, err)
	assert.Empty(t, sel.Values)
	assert.NotNil(t, sel.Values)
}

func TestLoadSelection_RejectsUnknownField(t *testing.T) {
	path := writeFile(t, "selection.yaml", "group_by: [remote_ip]\n")

	_, err := loadSelection(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote_ip")
}

func TestSearchCmd(t *testing.T) {
	path := writeFile(t, "selection.yaml", "values:\n  country: [AT]\n")

	out, err := run(t, "--demo", "--log-level", "error", "search", "-s", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ORGANIZATION")
	assert.Contains(t, out, "TELEKOM-AT")
	assert.Contains(t, out, "2 connections")
}

func TestSearchCmd_Grouped(t *testing.T) {
	path := writeFile(t, "selection.yaml", "group_by: [country]\n")

	out, err := run(t, "--demo", "--log-level", "error", "search", "-s", path)
	require.NoError(t, err)
	assert.Contains(t, out, "TOTALCOUNT")
	assert.Contains(t, out, "3 groups")
}

func TestSearchCmd_JQ(t *testing.T) {
	path := writeFile(t, "selection.yaml", "values:\n  country: [AT]\n")

	out, err := run(t, "--demo", "--log-level", "error", "search", "-s", path, "--jq", ".id")
	require.NoError(t, err)
	lines := strings.Fields(out)
	assert.ElementsMatch(t, []string{`"c6"`, `"c7"`}, lines)
}

func TestSearchCmd_InvalidJQ(t *testing.T) {
	_, err := run(t, "--demo", "search", "--jq", ".[")
	assert.Error(t, err)
}

func TestSuggestCmd(t *testing.T) {
	out, err := run(t, "--demo", "--log-level", "error", "suggest", "country")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"US", "4"}, strings.Fields(lines[0]))
}

func TestSuggestCmd_UnknownField(t *testing.T) {
	_, err := run(t, "--demo", "suggest", "nope")
	assert.Error(t, err)
}

func TestFieldsCmd(t *testing.T) {
	out, err := run(t, "fields")
	require.NoError(t, err)
	assert.Contains(t, out, "Organization")
	assert.Contains(t, out, "as_owner")
}
