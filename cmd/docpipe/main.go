package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/docpipe/docpipe/cmd"
	"github.com/docpipe/docpipe/cmd/run"
)

func main() {
	// an optional .env in the working directory supplies DOCPIPE_* settings
	_ = godotenv.Load()

	rootCmd := cmd.NewRootCommand()

	runCmd := run.NewRunCommand()
	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(
		cmd.NewCheckCommand(),
		cmd.NewScheduleCommand(),
		cmd.NewStatusCommand(),
		cmd.NewResetCommand(),
		cmd.NewCleanCommand(),
		cmd.NewVariantsCommand(),
		cmd.NewVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
