package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kaku/domain/index"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild every project index from the store and verify it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, cleanup, err := openContainer(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		projects, err := c.Stores.Projects.List(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROJECT\tNAME\tPOIS\tSCRATCHED\tTAGS\tCATEGORIES\tLINKS\tTRIGRAMS")
		var failed int
		for _, p := range projects {
			pi, err := c.Graph.ProjectIndex(ctx, p.ID())
			if err != nil {
				return err
			}
			err = pi.Read(func(v index.View) error {
				s := v.Stats()
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
					p.ID(), p.Name(), s.PoIs, s.Scratched, s.Tags, s.Categories, s.Links, s.Trigrams)
				return v.Verify()
			})
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "project %s: %v\n", p.ID(), err)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d project indices failed verification", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
