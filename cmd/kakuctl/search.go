package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kaku/application/queries"
	querybus "kaku/application/queries/bus"
)

var (
	searchQuery queries.SearchPoIsQuery
	minSim      float64
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search PROJECT_ID",
	Short: "Search the PoIs of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runSearch(cmd, args[0], false)
		if err != nil {
			return err
		}
		if searchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tVARIANT\tSCORE\tCONTENT")
		for _, v := range result.Items {
			score := "-"
			if v.Score != nil {
				score = fmt.Sprintf("%.2f", *v.Score)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Variant, score, preview(v.Content))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(result.Items), result.Total)
		return nil
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain PROJECT_ID",
	Short: "Print the plan a search would run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runSearch(cmd, args[0], true)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), result.Plan)
		if !strings.HasSuffix(result.Plan, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

func runSearch(cmd *cobra.Command, projectID string, explain bool) (*queries.SearchResult, error) {
	ctx := cmd.Context()
	c, cleanup, err := openContainer(ctx, true)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	q := searchQuery
	q.ProjectID = projectID
	q.Explain = explain
	if cmd.Flags().Changed("min-similarity") {
		q.MinSimilarity = &minSim
	}
	return querybus.Ask[*queries.SearchResult](ctx, c.QueryBus, q)
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, explainCmd} {
		f := c.Flags()
		f.StringVarP(&searchQuery.Text, "query", "q", "", "text to match by trigram similarity")
		f.Float64Var(&minSim, "min-similarity", 0, "minimum similarity in [0,1]; defaults to the configured value")
		f.StringVar(&searchQuery.Category, "category", "", "category path; matches the whole subtree")
		f.StringVar(&searchQuery.CategoryGlob, "category-glob", "", "category glob such as biology.*.cephalopods")
		f.StringVar(&searchQuery.Tag, "tag", "", "tag")
		f.StringVar(&searchQuery.LinkedTo, "linked-to", "", "only PoIs linking to this id")
		f.StringVar(&searchQuery.LinkedFrom, "linked-from", "", "only PoIs linked from this id")
		f.StringVar(&searchQuery.Variation, "variation", "", "note, thought or question")
		f.BoolVar(&searchQuery.IncludeScratched, "include-scratched", false, "include scratched PoIs")
		f.IntVar(&searchQuery.Limit, "limit", 0, "page size")
		f.IntVar(&searchQuery.Offset, "offset", 0, "page offset")
	}
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(searchCmd, explainCmd)
}
