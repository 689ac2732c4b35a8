package tools

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/aggregate"
	"github.com/usestring/netquery-mcp/internal/query"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// ResultsInput is the input for netquery_results.
type ResultsInput struct {
	Limit        int    `json:"limit,omitempty" jsonschema:"Max rows to return (default: 50, max: 500)"`
	Offset       int    `json:"offset,omitempty" jsonschema:"Pagination offset into the result rows"`
	JQ           string `json:"jq,omitempty" jsonschema:"JQ expression applied to each returned row, e.g. '.domain' or 'select(.totalCount > 10) | .country'"`
	Deduplicate  bool   `json:"deduplicate,omitempty" jsonschema:"Remove duplicate JQ values (default: false)"`
	IncludeChart bool   `json:"include_chart,omitempty" jsonschema:"Include the active-connection chart of the whole result (default: false)"`
	Refresh      bool   `json:"refresh,omitempty" jsonschema:"Run the search again before reading (default: false)"`
	Wait         bool   `json:"wait,omitempty" jsonschema:"Wait for a pending search to finish before reading (default: false)"`
}

// ResultsOutput is the output for netquery_results.
type ResultsOutput struct {
	Seq        uint64                 `json:"seq"`
	Status     string                 `json:"status"`
	TotalCount int                    `json:"total_count"`
	Returned   int                    `json:"returned"`
	Rows       []ResultRow            `json:"rows,omitzero"`
	Chart      []netquery.ChartResult `json:"chart,omitzero"`
	Projection *query.Result          `json:"projection,omitempty"`
	Failures   []aggregate.Failure    `json:"failures,omitzero"`
	Notices    []NoticeInfo           `json:"notices,omitzero"`
	Query      any                    `json:"query,omitempty"`
	UpdatedAt  int64                  `json:"updated_at_ms,omitempty"`
	Hint       string                 `json:"hint,omitempty"`
}

// ResultRow is one row of the search result.
type ResultRow struct {
	Values         map[string]any `json:"values"`
	GroupKey       string         `json:"group_key,omitempty"`
	GroupCondition any            `json:"group_condition,omitempty"`
}

// NoticeInfo is a failure notification shown to the user.
type NoticeInfo struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	AgeMs   int64  `json:"age_ms"`
}

// ToolResults reads the published result of the search view.
func ToolResults(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ResultsInput) (*sdkmcp.CallToolResult, ResultsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ResultsInput) (*sdkmcp.CallToolResult, ResultsOutput, error) {
		if input.Offset < 0 {
			return nil, ResultsOutput{}, ErrInvalidInput("offset must not be negative")
		}
		if input.JQ != "" {
			if err := d.Query.ValidateExpression(input.JQ); err != nil {
				return nil, ResultsOutput{}, ErrInvalidInput(err.Error())
			}
		}

		if input.Refresh {
			d.Viewer.SearchNow()
		}
		if input.Refresh || input.Wait {
			if err := d.Viewer.Wait(ctx); err != nil {
				return nil, ResultsOutput{}, WrapNetqueryError(err)
			}
		}

		snap := d.Viewer.Snapshot()
		limit := d.resultLimit(input.Limit)
		start := min(input.Offset, len(snap.Rows))
		end := min(start+limit, len(snap.Rows))
		page := snap.Rows[start:end]

		output := ResultsOutput{
			Seq:        snap.Seq,
			Status:     string(snap.Status),
			TotalCount: snap.TotalCount,
			Returned:   len(page),
			Rows:       make([]ResultRow, len(page)),
			Failures:   snap.Failures,
		}
		if !snap.UpdatedAt.IsZero() {
			output.UpdatedAt = snap.UpdatedAt.UnixMilli()
		}
		if snap.Query != nil {
			q, err := ToAny(snap.Query)
			if err != nil {
				return nil, ResultsOutput{}, err
			}
			output.Query = q
		}
		if input.IncludeChart {
			output.Chart = snap.Chart
		}

		values := make([]netquery.Row, len(page))
		for i, row := range page {
			values[i] = row.Values
			r := ResultRow{Values: row.Values, GroupKey: row.GroupKey}
			if row.GroupCondition != nil {
				cond, err := ToAny(row.GroupCondition)
				if err != nil {
					return nil, ResultsOutput{}, err
				}
				r.GroupCondition = cond
			}
			output.Rows[i] = r
		}

		if input.JQ != "" {
			projection, err := d.Query.ProjectRows(values, input.JQ, input.Deduplicate, 0)
			if err != nil {
				return nil, ResultsOutput{}, ErrInvalidInput(err.Error())
			}
			output.Projection = projection
		}

		if d.Notices != nil && !snap.UpdatedAt.IsZero() {
			now := time.Now()
			for _, n := range d.Notices.Since(snap.UpdatedAt) {
				output.Notices = append(output.Notices, NoticeInfo{
					Title:   n.Title,
					Message: n.Message,
					AgeMs:   now.Sub(n.Time).Milliseconds(),
				})
			}
		}

		output.Hint = resultsHint(snap.Status, snap.TotalCount, end, len(snap.Rows))
		return nil, output, nil
	}
}

func resultsHint(status aggregate.Status, total, end, rows int) string {
	switch status {
	case aggregate.StatusIdle:
		return "No search has run yet. Call netquery_filter first."
	case aggregate.StatusLoading:
		return "A search is pending; set wait=true to read its result."
	case aggregate.StatusPartialFailure:
		return "Some queries failed and fell back to empty values; see failures."
	}
	if end < rows {
		return "More rows available; increase offset to page through them."
	}
	if total > rows {
		return "Store holds more matching connections than rows were returned; narrow the selection or group the results."
	}
	return ""
}
