package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/suggest"
)

func newSuggestCmd(flags *globalFlags) *cobra.Command {
	var selectionPath string

	cmd := &cobra.Command{
		Use:   "suggest FIELD",
		Short: "List candidate values of a field with their counts",
		Long: `Lists the values of FIELD under the selection, most frequent first.
Values the selection already picks for FIELD are listed first and marked *.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := args[0]
			if !composer.IsConnectionField(field) {
				return &composer.FieldError{Role: "filter", Field: field}
			}

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
			store, err := openStore(flags, cfg)
			if err != nil {
				return err
			}

			suggestions, err := suggest.New(store).Rank(cmd.Context(), sel, field)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, s := range suggestions {
				mark := " "
				if s.Selected {
					mark = "*"
				}
				name := s.Name
				if name == "" {
					name = "(empty)"
				}
				printer.Fprintf(tw, "%s %s\t%d\n", mark, name, s.Count)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&selectionPath, "selection", "s", "", "YAML selection file")
	return cmd
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the fields the search view can filter, group and order by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tNAME\tFILTER\tFREE TEXT\tGROUP BY\tORDER BY")
			for _, f := range composer.Fields() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					f.Name, f.DisplayName, yesNo(f.Filter), yesNo(f.FreeText), yesNo(f.GroupBy), yesNo(f.OrderBy))
			}
			return tw.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
