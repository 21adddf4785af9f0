package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored reviews, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := rt.app.ResumeService.List(cmd.Context(), rt.owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rt.asJSON {
				return rt.printJSON(out, records)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSCORE\tJOB")
			for _, rec := range records {
				score := "-"
				if rec.Feedback != nil {
					score = fmt.Sprint(rec.Feedback.Score)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.Status(), score, rec.JobTitle)
			}
			return tw.Flush()
		},
	}
}
