package run

import (
	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/internal/config"
)

// bindRunFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlags(command *cobra.Command) {
	defaultConfig := config.DefaultConfig()
	flags := command.Flags()

	flags.Bool(allDepsFlag, false, "also run every unexecuted module the requested modules depend on")
	flags.Bool(forceFlag, false, "rerun modules that are already complete")

	flags.Int("processes", defaultConfig.Execution.Processes, "the number of workers modules process documents with")
	util.MustBindPFlag("execution.processes", flags.Lookup("processes"))
	util.MustBindEnv("execution.processes", "DOCPIPE_EXECUTION_PROCESSES")

	flags.Duration("shutdown-timeout", defaultConfig.Execution.ShutdownTimeout, "how long a failing module waits for its workers to stop")
	util.MustBindPFlag("execution.shutdownTimeout", flags.Lookup("shutdown-timeout"))
	util.MustBindEnv("execution.shutdownTimeout", "DOCPIPE_EXECUTION_SHUTDOWN_TIMEOUT")

	flags.Int("archive-size", defaultConfig.Storage.ArchiveSize, "the number of documents per output archive")
	util.MustBindPFlag("storage.archiveSize", flags.Lookup("archive-size"))
	util.MustBindEnv("storage.archiveSize", "DOCPIPE_STORAGE_ARCHIVE_SIZE")

	flags.Bool("gzip", defaultConfig.Storage.Gzip, "compress stored documents")
	util.MustBindPFlag("storage.gzip", flags.Lookup("gzip"))
	util.MustBindEnv("storage.gzip", "DOCPIPE_STORAGE_GZIP")

	flags.Int("reader-cache-size", defaultConfig.Storage.ReaderCacheSize, "the number of archives each input reader keeps open")
	util.MustBindPFlag("storage.readerCacheSize", flags.Lookup("reader-cache-size"))
	util.MustBindEnv("storage.readerCacheSize", "DOCPIPE_STORAGE_READER_CACHE_SIZE")
}
