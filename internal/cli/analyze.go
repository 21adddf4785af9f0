package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resulenz-backend/internal/resumes"
)

func newAnalyzeCmd(rt *runtime) *cobra.Command {
	var company, title, description, descriptionFile string
	cmd := &cobra.Command{
		Use:   "analyze <resume.pdf>",
		Short: "Upload a résumé and store AI feedback for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if descriptionFile != "" {
				raw, err := os.ReadFile(descriptionFile)
				if err != nil {
					return err
				}
				description = string(raw)
			}
			out := cmd.OutOrStdout()
			res, err := rt.app.ResumeService.Ingest(cmd.Context(), resumes.IngestInput{
				Owner:          rt.owner,
				FileName:       filepath.Base(args[0]),
				Document:       doc,
				CompanyName:    company,
				JobTitle:       title,
				JobDescription: description,
				Progress: func(stage resumes.Stage) {
					if !rt.asJSON {
						fmt.Fprintln(cmd.ErrOrStderr(), stage.StatusText())
					}
				},
			})
			if err != nil {
				if stage, id, ok := resumes.FailedStage(err); ok && id != "" {
					return fmt.Errorf("%s failed for %s: %w", stage, id, err)
				}
				return err
			}
			if rt.asJSON {
				return rt.printJSON(out, res.Record)
			}
			fmt.Fprintf(out, "id: %s\nroute: %s\n", res.Record.ID, res.Route)
			printFeedback(out, res.Record.Feedback)
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&description, "description", "", "job description text")
	cmd.Flags().StringVar(&descriptionFile, "description-file", "", "read the job description from a file")
	return cmd
}
