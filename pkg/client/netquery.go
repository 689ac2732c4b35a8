package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Query executes q against the connection store and returns the matching
// rows (one per group when q groups).
func (c *Client) Query(ctx context.Context, q *netquery.Query) ([]netquery.Row, error) {
	if c.validateQueries {
		if err := netquery.ValidateQuery(q); err != nil {
			slog.Error("refusing to send malformed query",
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("validating query: %w", err)
		}
	}

	var rows []netquery.Row
	if err := c.post(ctx, "/netquery/query", q, &rows); err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	if rows == nil {
		rows = []netquery.Row{}
	}
	return rows, nil
}

// activeChartRequest is the request body of the active connection chart.
type activeChartRequest struct {
	Query netquery.Condition `json:"query"`
}

// ActiveConnectionChart returns the number of active connections matching
// cond per time bucket.
func (c *Client) ActiveConnectionChart(ctx context.Context, cond netquery.Condition) ([]netquery.ChartResult, error) {
	if cond == nil {
		cond = netquery.Condition{}
	}

	var chart []netquery.ChartResult
	if err := c.post(ctx, "/netquery/charts/connection-active", activeChartRequest{Query: cond}, &chart); err != nil {
		return nil, fmt.Errorf("loading active connection chart: %w", err)
	}
	if chart == nil {
		chart = []netquery.ChartResult{}
	}
	return chart, nil
}

var _ netquery.Store = (*Client)(nil)
