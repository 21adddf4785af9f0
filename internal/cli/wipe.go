package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newWipeCmd(rt *runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every file and review of the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to wipe without --yes")
			}
			res, err := rt.app.AccountService.Wipe(cmd.Context(), rt.owner, nil)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d files, %d records\n", res.DeletedFiles, res.FlushedKeys)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
