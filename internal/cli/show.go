package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resulenz-backend/internal/resumes"
	"resulenz-backend/internal/scoring"
)

func newShowCmd(rt *runtime) *cobra.Command {
	var imageOut string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := rt.app.ResumeService.Open(cmd.Context(), rt.owner, args[0])
			defer view.Close()
			if !view.Found {
				return fmt.Errorf("resume %s: %w", args[0], resumes.ErrNotFound)
			}
			if imageOut != "" {
				if view.Image == nil {
					return errors.New("preview image is unavailable")
				}
				data, _, ok := rt.app.Refs.Resolve(view.Image.Token)
				if !ok {
					return errors.New("preview image expired")
				}
				if err := os.WriteFile(imageOut, data, 0o644); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if rt.asJSON {
				return rt.printJSON(out, view.Record)
			}
			rec := view.Record
			fmt.Fprintf(out, "id: %s\nstatus: %s\n", rec.ID, rec.Status())
			if rec.CompanyName != "" || rec.JobTitle != "" {
				fmt.Fprintf(out, "job: %s at %s\n", rec.JobTitle, rec.CompanyName)
			}
			printFeedback(out, rec.Feedback)
			return nil
		},
	}
	cmd.Flags().StringVar(&imageOut, "image-out", "", "write the first-page preview PNG to this path")
	return cmd
}

func printFeedback(w io.Writer, fb *resumes.Feedback) {
	if fb == nil {
		fmt.Fprintln(w, "feedback: pending")
		return
	}
	summary := scoring.Summarize(fb.Score, fb.Lists())
	fmt.Fprintf(w, "score: %d (%s)\nats: %s\n", summary.Overall.Score, summary.Overall.Tier, summary.ATS.Tier)
	if fb.Summary != "" {
		fmt.Fprintf(w, "summary: %s\n", fb.Summary)
	}
	for _, tip := range summary.Tips {
		mark := "-"
		if tip.Type == scoring.TipGood {
			mark = "+"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, strings.TrimSpace(tip.Tip))
	}
}
