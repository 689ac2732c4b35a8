package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/netquery-mcp/internal/aggregate"
	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/internal/query"
	"github.com/usestring/netquery-mcp/internal/viewer"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

var printer = message.NewPrinter(language.English)

// ungroupedColumns are printed for ungrouped rows.
var ungroupedColumns = []string{"id", "domain", "as_owner", "country", "direction", "path"}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		selectionPath string
		jqExpr        string
		limit         int
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the result",
		Long: `Runs one search cycle for a selection and prints the rows.

The selection file is YAML:

  values:
    country: [DE, AT]
  text_search: github
  group_by: [domain]
  order_by:
    - field: totalCount
      desc: true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cleanup, err := setupLogging(flags, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			sel, err := loadSelection(selectionPath)
			if err != nil {
				return err
			}
			if jqExpr != "" {
				if err := query.NewEngine().ValidateExpression(jqExpr); err != nil {
					return err
				}
			}

			store, err := openStore(flags, cfg)
			if err != nil {
				return err
			}

			v := viewer.New(store, notify.Log{}, viewer.Config{
				RequestTimeout: cfg.StoreRequestTimeout,
			})
			defer v.Close()

			if err := v.SetSelection(sel); err != nil {
				return err
			}
			v.SearchNow()
			if err := v.Wait(cmd.Context()); err != nil {
				return err
			}
			snap := v.Snapshot()

			out := cmd.OutOrStdout()
			rows := snap.Rows
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			if jqExpr != "" {
				values := make([]netquery.Row, len(rows))
				for i, r := range rows {
					values[i] = r.Values
				}
				res, err := query.NewEngine().ProjectRows(values, jqExpr, false, 0)
				if err != nil {
					return err
				}
				for _, e := range res.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return writeJSONLines(out, res.Values)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			writeRows(out, sel, rows)
			unit := "connections"
			if sel.Grouped() {
				unit = "groups"
			}
			printer.Fprintf(out, "\n%d %s", snap.TotalCount, unit)
			if len(rows) < len(snap.Rows) {
				printer.Fprintf(out, " (showing %d of %d rows)", len(rows), len(snap.Rows))
			}
			fmt.Fprintln(out)
			if snap.Status == aggregate.StatusPartialFailure {
				for _, f := range snap.Failures {
					fmt.Fprintf(out, "warning: %s\n", f.Notice())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&selectionPath, "selection", "s", "", "YAML selection file")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "JQ expression applied to each row; prints one JSON value per line")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max rows to print (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the whole result as JSON")
	return cmd
}

// writeRows prints rows as an aligned table.
func writeRows(w io.Writer, sel composer.Selection, rows []aggregate.Row) {
	columns := ungroupedColumns
	if sel.Grouped() {
		columns = append(slices.Clone(sel.GroupBy), composer.TotalCountAlias, composer.AllowedCountAlias)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(composer.DisplayName(c))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = row.Values.String(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func writeJSONLines(w io.Writer, values []any) error {
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
