// Package run contains the command to run pipeline modules.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/pkg/runner"
)

const (
	allDepsFlag = "all-deps"
	forceFlag   = "force"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [modules...]",
		Short: "Run pipeline modules",
		Long: `Run pipeline modules in schedule order.

With no modules named, every executable module of the pipeline is run. Modules that are
already complete are skipped unless --force is given. The run stops at the first module
that fails.`,
		RunE: run,
	}

	bindRunFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	allDeps, err := cmd.Flags().GetBool(allDepsFlag)
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool(forceFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := util.OpenWorkspace(ctx)
	if err != nil {
		return err
	}

	results, runErr := RunModules(ctx, ws, args, runner.RunOptions{AllDeps: allDeps, Force: force})
	for _, res := range results {
		state := string(res.Status)
		if res.Skipped {
			state = "SKIPPED"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %s\n", res.Module, state, res.Duration.Round(time.Millisecond))
	}
	return errors.Join(runErr, ws.Close())
}

// RunModules runs the named modules of the workspace pipeline.
func RunModules(ctx context.Context, ws *util.Workspace, modules []string, opts runner.RunOptions) ([]runner.Result, error) {
	ws.Logger.Info("running pipeline",
		zap.String("pipeline", ws.Pipeline.Name),
		zap.String("variant", ws.Pipeline.Variant),
		zap.Strings("modules", modules),
		zap.Bool("all_deps", opts.AllDeps),
		zap.Bool("force", opts.Force),
	)
	return ws.Runner().Run(ctx, modules, opts)
}
