package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/cmd/util"
)

// NewCleanCommand returns the command that removes orphaned module directories.
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove stored data of modules no longer in the pipeline",
		Args:  cobra.NoArgs,
		RunE:  clean,
	}
}

func clean(cmd *cobra.Command, _ []string) error {
	ws, err := util.OpenWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	removed, err := ws.Tracker.Clean()
	if err == nil {
		for _, name := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
		}
		if len(removed) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
		}
	}
	return errors.Join(err, ws.Close())
}
