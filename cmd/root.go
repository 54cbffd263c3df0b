// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/internal/config"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with DOCPIPE, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("DOCPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/docpipe", "$HOME/.docpipe", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	cmd := &cobra.Command{
		Use:   "docpipe",
		Short: "A document processing pipeline runner",
		Long: `A document processing pipeline runner.

docpipe loads a pipeline of modules from a YAML definition, works out the order they must
run in, checks that every module receives the kind of data it needs and runs modules over
large grouped corpora, keeping each module's outputs and execution state on disk.`,
		SilenceUsage: true,
	}
	bindRootFlags(cmd)
	return cmd
}

// bindRootFlags binds the persistent flags shared by every command to the equivalent config
// value being managed by viper.
func bindRootFlags(command *cobra.Command) {
	defaultConfig := config.DefaultConfig()
	flags := command.PersistentFlags()

	flags.StringP("pipeline", "p", defaultConfig.Pipeline.File, "the pipeline definition file")
	util.MustBindPFlag("pipeline.file", flags.Lookup("pipeline"))
	util.MustBindEnv("pipeline.file", "DOCPIPE_PIPELINE_FILE")

	flags.String("variant", defaultConfig.Pipeline.Variant, "the pipeline variant to load")
	util.MustBindPFlag("pipeline.variant", flags.Lookup("variant"))
	util.MustBindEnv("pipeline.variant", "DOCPIPE_PIPELINE_VARIANT")

	flags.String("storage-root", defaultConfig.Storage.Root, "the directory module outputs are stored under")
	util.MustBindPFlag("storage.root", flags.Lookup("storage-root"))
	util.MustBindEnv("storage.root", "DOCPIPE_STORAGE_ROOT")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")
	util.MustBindPFlag("log.format", flags.Lookup("log-format"))
	util.MustBindEnv("log.format", "DOCPIPE_LOG_FORMAT")

	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")
	util.MustBindPFlag("log.level", flags.Lookup("log-level"))
	util.MustBindEnv("log.level", "DOCPIPE_LOG_LEVEL")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	util.MustBindPFlag("trace.enabled", flags.Lookup("trace-enabled"))
	util.MustBindEnv("trace.enabled", "DOCPIPE_TRACE_ENABLED")

	flags.String("trace-endpoint", defaultConfig.Trace.Endpoint, "the OTLP gRPC endpoint to send traces to")
	util.MustBindPFlag("trace.endpoint", flags.Lookup("trace-endpoint"))
	util.MustBindEnv("trace.endpoint", "DOCPIPE_TRACE_ENDPOINT")

	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none")
	util.MustBindPFlag("trace.sampleRatio", flags.Lookup("trace-sample-ratio"))
	util.MustBindEnv("trace.sampleRatio", "DOCPIPE_TRACE_SAMPLE_RATIO")

	flags.Bool("metrics-enabled", defaultConfig.Metrics.Enabled, "write Prometheus metrics to a textfile when the command ends")
	util.MustBindPFlag("metrics.enabled", flags.Lookup("metrics-enabled"))
	util.MustBindEnv("metrics.enabled", "DOCPIPE_METRICS_ENABLED")

	flags.String("metrics-textfile", defaultConfig.Metrics.Textfile, "the file metrics are written to")
	util.MustBindPFlag("metrics.textfile", flags.Lookup("metrics-textfile"))
	util.MustBindEnv("metrics.textfile", "DOCPIPE_METRICS_TEXTFILE")
}
