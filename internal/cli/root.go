// Package cli is the resulenz command line: it drives the same ingestion
// and presentation pipelines as the API, acting as a named principal.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"resulenz-backend/internal/bootstrap"
)

// Builder constructs the application for one command run.
type Builder func(ctx context.Context) (*bootstrap.App, error)

type runtime struct {
	build  Builder
	app    *bootstrap.App
	owner  string
	asJSON bool
}

// NewRootCommand returns the resulenz command tree. The built app is
// closed by Execute.
func NewRootCommand(build Builder) *cobra.Command {
	root, _ := newRoot(build)
	return root
}

func newRoot(build Builder) (*cobra.Command, *runtime) {
	rt := &runtime{build: build}
	root := &cobra.Command{
		Use:           "resulenz",
		Short:         "Review résumés against a job with AI feedback",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(rt.owner) == "" {
				return errors.New("--owner must not be empty")
			}
			app, err := rt.build(cmd.Context())
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			rt.app = app
			return nil
		},
	}
	root.PersistentFlags().StringVar(&rt.owner, "owner", "cli:local", "principal that owns the records")
	root.PersistentFlags().BoolVar(&rt.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newAnalyzeCmd(rt),
		newShowCmd(rt),
		newListCmd(rt),
		newWipeCmd(rt),
	)
	return root, rt
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, build Builder, args []string, out io.Writer) error {
	root, rt := newRoot(build)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	err := root.ExecuteContext(ctx)
	if rt.app != nil {
		rt.app.Close()
	}
	return err
}

func (rt *runtime) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
