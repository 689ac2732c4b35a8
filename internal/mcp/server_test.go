package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/memstore"
	"github.com/usestring/netquery-mcp/internal/mcp/tools"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/internal/query"
	"github.com/usestring/netquery-mcp/internal/viewer"
)

func connect(t *testing.T, opts ...ServerOption) *sdkmcp.ClientSession {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	store.Add(memstore.SampleConnections(now)...)

	notices := notify.NewRecorder(10, nil)
	v := viewer.New(store, notices, viewer.Config{Debounce: 20 * time.Millisecond})
	t.Cleanup(v.Close)

	srv, err := NewServer(&tools.Deps{
		Viewer:  v,
		Notices: notices,
		Query:   query.NewEngine(),
		Config:  &config.Config{DefaultResultLimit: 50, SearchDebounce: time.Second},
	}, opts...)
	require.NoError(t, err)

	ctx := context.Background()
	serverT, clientT := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)

	_, err = NewServer(&tools.Deps{})
	assert.Error(t, err)
}

func TestServer_ListsBuiltins(t *testing.T) {
	session := connect(t, WithBuiltinTools(), WithBuiltinPrompts())
	ctx := context.Background()

	toolList, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tool := range toolList.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"netquery_fields", "netquery_filter", "netquery_results",
		"netquery_suggest", "netquery_group_chart",
	}, names)

	promptList, err := session.ListPrompts(ctx, &sdkmcp.ListPromptsParams{})
	require.NoError(t, err)
	assert.Len(t, promptList.Prompts, 2)
}

func TestServer_FilterThenReadQueryResource(t *testing.T) {
	session := connect(t, WithBuiltinTools())
	ctx := context.Background()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "netquery_filter",
		Arguments: map[string]any{"values": map[string]any{"country": []any{"AT"}}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	read, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: uriCurrentQuery})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(read.Contents[0].Text), &q))
	assert.Equal(t, map[string]any{"country": map[string]any{"$in": []any{"AT"}}}, q["query"])
}

func TestServer_SelectionSchemaResource(t *testing.T) {
	session := connect(t, WithBuiltinTools())

	read, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: uriSelectionSchema})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(read.Contents[0].Text), &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "values")
	assert.Contains(t, props, "text_search")
	assert.Contains(t, props, "group_by")
	assert.Contains(t, props, "order_by")
}

func TestServer_CustomRegistration(t *testing.T) {
	called := false
	connect(t, WithCustomRegistration(func(*sdkmcp.Server) { called = true }))
	assert.True(t, called)
}
