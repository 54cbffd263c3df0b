package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/pkg/loader"
)

// NewCheckCommand returns the command that validates the pipeline definition.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the pipeline definition",
		Long:  "Load the pipeline, check it has no cycles and typecheck every module's inputs.",
		Args:  cobra.NoArgs,
		RunE:  check,
	}
}

func check(cmd *cobra.Command, _ []string) error {
	ws, err := util.OpenWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	err = ws.Pipeline.TypecheckAll()
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "pipeline '%s' (variant '%s') is valid: %d modules\n",
			ws.Pipeline.Name, ws.Pipeline.Variant, len(ws.Pipeline.Modules()))
	}
	return errors.Join(err, ws.Close())
}

// NewVariantsCommand returns the command that lists the variants a pipeline
// definition declares.
func NewVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the pipeline's variants",
		Args:  cobra.NoArgs,
		RunE:  variants,
	}
}

func variants(cmd *cobra.Command, _ []string) error {
	cfg, err := util.ReadConfig()
	if err != nil {
		return err
	}
	def, err := loader.ParseFile(cfg.Pipeline.File)
	if err != nil {
		return err
	}
	for _, name := range def.VariantNames() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
