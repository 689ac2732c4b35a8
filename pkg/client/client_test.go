package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
}

func TestQuery_SendsWireFormat(t *testing.T) {
	var got map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/netquery/query", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"domain": "example.com", "count": 3}]`))
	})

	rows, err := c.Query(context.Background(), &netquery.Query{
		Select:  []netquery.Select{netquery.Field("domain"), netquery.CountAll("count")},
		Query:   netquery.Condition{"country": netquery.In{"AT"}},
		GroupBy: []string{"domain"},
		OrderBy: []netquery.OrderBy{{Field: "count", Desc: true}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "example.com", rows[0].String("domain"))
	count, ok := rows[0].Int("count")
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	assert.Equal(t, map[string]any{
		"select": []any{
			"domain",
			map[string]any{"$count": map[string]any{"field": "*", "as": "count"}},
		},
		"query":   map[string]any{"country": map[string]any{"$in": []any{"AT"}}},
		"groupBy": []any{"domain"},
		"orderBy": []any{map[string]any{"field": "count", "desc": true}},
	}, got)
}

func TestQuery_NullResponseIsEmpty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	rows, err := c.Query(context.Background(), &netquery.Query{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestQuery_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "unknown column \"foo\""}`))
	})

	_, err := c.Query(context.Background(), &netquery.Query{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, `unknown column "foo"`, apiErr.Message)
}

func TestQuery_PlainTextError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database locked", http.StatusInternalServerError)
	})

	_, err := c.Query(context.Background(), &netquery.Query{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "database locked", apiErr.Message)
}

func TestQuery_ValidationBlocksMalformedQuery(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithQueryValidation(true))

	_, err := c.Query(context.Background(), &netquery.Query{
		Select: []netquery.Select{netquery.Field("")},
	})
	require.Error(t, err)

	var shapeErr *netquery.QueryShapeError
	assert.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, int32(0), calls.Load())

	_, err = c.Query(context.Background(), &netquery.Query{Query: netquery.Condition{"domain": "a.com"}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestActiveConnectionChart(t *testing.T) {
	var got map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/netquery/charts/connection-active", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"timestamp": 1700000000, "value": 4}, {"timestamp": 1700000010, "value": 2}]`))
	})

	chart, err := c.ActiveConnectionChart(context.Background(), netquery.Condition{"domain": "a.com"})
	require.NoError(t, err)
	assert.Equal(t, []netquery.ChartResult{
		{Timestamp: 1700000000, Count: 4},
		{Timestamp: 1700000010, Count: 2},
	}, chart)
	assert.Equal(t, map[string]any{"query": map[string]any{"domain": "a.com"}}, got)
}

func TestActiveConnectionChart_NilCondition(t *testing.T) {
	var got map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[]`))
	})

	chart, err := c.ActiveConnectionChart(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, chart)
	assert.Equal(t, map[string]any{"query": map[string]any{}}, got)
}

func TestQuery_ContextCancelled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Query(ctx, &netquery.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}
