package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/viewer"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Search modes of netquery_filter.
const (
	SearchNow       = "now"
	SearchDebounced = "debounced"
)

// FilterInput is the input for netquery_filter.
type FilterInput struct {
	Values     map[string][]any   `json:"values,omitempty" jsonschema:"Selected values per field, replacing the field's current selection. An empty list clears the field. Example: {\"country\": [\"DE\", \"AT\"]}"`
	Clear      []string           `json:"clear,omitempty" jsonschema:"Fields whose selected values are dropped"`
	ClearAll   bool               `json:"clear_all,omitempty" jsonschema:"Drop every selected value before applying values"`
	TextSearch *string            `json:"text_search,omitempty" jsonschema:"Free-text term matched against domain, as_owner and path. Empty string clears it"`
	GroupBy    []string           `json:"group_by,omitempty" jsonschema:"Fields to group results by, replacing the current grouping"`
	Ungroup    bool               `json:"ungroup,omitempty" jsonschema:"Remove the grouping"`
	OrderBy    []netquery.OrderBy `json:"order_by,omitempty" jsonschema:"Result ordering, replacing the current ordering. Grouped results may also order by totalCount or countAllowed"`
	Search     string             `json:"search,omitempty" jsonschema:"now (default): run the search and wait for it. debounced: schedule it after the quiet period and return at once"`
}

// FilterOutput is the output for netquery_filter.
type FilterOutput struct {
	Seq        uint64 `json:"seq"`
	Status     string `json:"status"`
	TotalCount int    `json:"total_count"`
	RowCount   int    `json:"row_count"`
	Selection  any    `json:"selection"`
	Query      any    `json:"query"`
	Hint       string `json:"hint,omitempty"`
}

// ToolFilter updates the search view's selection and runs the search.
func ToolFilter(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FilterInput) (*sdkmcp.CallToolResult, FilterOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FilterInput) (*sdkmcp.CallToolResult, FilterOutput, error) {
		mode := input.Search
		if mode == "" {
			mode = SearchNow
		}
		if mode != SearchNow && mode != SearchDebounced {
			return nil, FilterOutput{}, ErrInvalidInput("search must be 'now' or 'debounced'")
		}
		if input.Ungroup && len(input.GroupBy) > 0 {
			return nil, FilterOutput{}, ErrInvalidInput("group_by and ungroup are mutually exclusive")
		}

		sel := d.Viewer.Selection()
		if sel.Values == nil || input.ClearAll {
			sel.Values = map[string][]any{}
		}
		for _, field := range input.Clear {
			delete(sel.Values, field)
		}
		for field, values := range input.Values {
			if len(values) == 0 {
				delete(sel.Values, field)
				continue
			}
			sel.Values[field] = values
		}
		if input.TextSearch != nil {
			sel.TextSearch = *input.TextSearch
		}
		switch {
		case input.Ungroup:
			sel.GroupBy = nil
		case input.GroupBy != nil:
			sel.GroupBy = input.GroupBy
		}
		if input.OrderBy != nil {
			sel.OrderBy = input.OrderBy
		}

		if err := d.Viewer.SetSelection(sel); err != nil {
			return nil, FilterOutput{}, WrapNetqueryError(err)
		}

		if mode == SearchNow {
			d.Viewer.SearchNow()
			if err := d.Viewer.Wait(ctx); err != nil {
				return nil, FilterOutput{}, WrapNetqueryError(err)
			}
		}

		output, err := filterOutput(d.Viewer)
		if err != nil {
			return nil, FilterOutput{}, err
		}
		if mode == SearchDebounced {
			output.Hint = "Search scheduled. Call netquery_results to read the result once status is no longer loading."
		} else if output.Status != "success" {
			output.Hint = "Some queries failed; see netquery_results for failures."
		}
		return nil, output, nil
	}
}

func filterOutput(v *viewer.Viewer) (FilterOutput, error) {
	snap := v.Snapshot()

	selection, err := ToAny(v.Selection())
	if err != nil {
		return FilterOutput{}, err
	}
	query, err := ToAny(v.Query())
	if err != nil {
		return FilterOutput{}, err
	}

	return FilterOutput{
		Seq:        snap.Seq,
		Status:     string(snap.Status),
		TotalCount: snap.TotalCount,
		RowCount:   len(snap.Rows),
		Selection:  selection,
		Query:      query,
	}, nil
}
