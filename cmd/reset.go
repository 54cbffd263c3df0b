package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/pkg/status"
)

const (
	noDepsFlag = "no-deps"
	yesFlag    = "yes"
)

var errResetAborted = errors.New("reset aborted")

// NewResetCommand returns the command that resets module executions.
func NewResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <module>",
		Short: "Reset a module's execution",
		Long: `Delete a module's outputs and execution state so it can be run again.

Every module downstream of it that has been executed is reset too, unless --no-deps is
given. The modules to be reset are listed and confirmation is asked for unless --yes is
given.`,
		Args: cobra.ExactArgs(1),
		RunE: reset,
	}

	flags := cmd.Flags()
	flags.Bool(noDepsFlag, false, "only reset the named module, leaving its dependents as they are")
	flags.BoolP(yesFlag, "y", false, "do not ask for confirmation")
	return cmd
}

func reset(cmd *cobra.Command, args []string) error {
	noDeps, err := cmd.Flags().GetBool(noDepsFlag)
	if err != nil {
		return err
	}
	yes, err := cmd.Flags().GetBool(yesFlag)
	if err != nil {
		return err
	}

	ws, err := util.OpenWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	err = resetModule(cmd.InOrStdin(), cmd.OutOrStdout(), ws.Tracker, args[0], noDeps, yes)
	return errors.Join(err, ws.Close())
}

func resetModule(in io.Reader, out io.Writer, tracker *status.Tracker, module string, noDeps, yes bool) error {
	plan, err := tracker.ResetPlan(module, noDeps)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "modules to reset: %s\n", strings.Join(plan, ", "))
	if !yes && !confirm(in, out) {
		return errResetAborted
	}

	reset, err := tracker.Reset(module, noDeps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reset %d modules\n", len(reset))
	return nil
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "continue? [y/N] ")
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
