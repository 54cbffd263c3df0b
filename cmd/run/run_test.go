package run

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/docpipe/docpipe/cmd"
	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/pkg/corpus"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefaultConfig(t *testing.T) {
	resetViper(t)
	util.PrepareTempConfigDir(t)
	cfg, err := util.ReadConfig()
	require.NoError(t, err)

	_, basepath, _, _ := runtime.Caller(0)
	jsonSchema, err := os.ReadFile(path.Join(filepath.Dir(basepath), "..", "..", ".config-schema.json"))
	require.NoError(t, err)

	res := gjson.ParseBytes(jsonSchema)

	val := res.Get("properties.storage.properties.root.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Storage.Root)

	val = res.Get("properties.storage.properties.archiveSize.default")
	require.True(t, val.Exists())
	require.EqualValues(t, val.Int(), cfg.Storage.ArchiveSize)

	val = res.Get("properties.storage.properties.gzip.default")
	require.True(t, val.Exists())
	require.Equal(t, val.Bool(), cfg.Storage.Gzip)

	val = res.Get("properties.storage.properties.readerCacheSize.default")
	require.True(t, val.Exists())
	require.EqualValues(t, val.Int(), cfg.Storage.ReaderCacheSize)

	val = res.Get("properties.execution.properties.shutdownTimeout.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Execution.ShutdownTimeout.String())

	val = res.Get("properties.pipeline.properties.file.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Pipeline.File)

	val = res.Get("properties.pipeline.properties.variant.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Pipeline.Variant)

	val = res.Get("properties.log.properties.format.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Log.Format)

	val = res.Get("properties.log.properties.level.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Log.Level)

	val = res.Get("properties.trace.properties.enabled.default")
	require.True(t, val.Exists())
	require.Equal(t, val.Bool(), cfg.Trace.Enabled)

	val = res.Get("properties.trace.properties.endpoint.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Trace.Endpoint)

	val = res.Get("properties.trace.properties.sampleRatio.default")
	require.True(t, val.Exists())
	require.InDelta(t, val.Float(), cfg.Trace.SampleRatio, 0.0001)

	val = res.Get("properties.trace.properties.serviceName.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Trace.ServiceName)

	val = res.Get("properties.metrics.properties.enabled.default")
	require.True(t, val.Exists())
	require.Equal(t, val.Bool(), cfg.Metrics.Enabled)

	val = res.Get("properties.metrics.properties.textfile.default")
	require.True(t, val.Exists())
	require.Equal(t, val.String(), cfg.Metrics.Textfile)
}

func TestRunCommandNoConfigDefaultValues(t *testing.T) {
	resetViper(t)
	util.PrepareTempConfigDir(t)
	runCmd := NewRunCommand()
	runCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		require.Equal(t, "pipeline.yaml", viper.GetString("pipeline.file"))
		require.Equal(t, "main", viper.GetString("pipeline.variant"))
		require.Equal(t, "docpipe-data", viper.GetString("storage.root"))
		require.Equal(t, 1000, viper.GetInt("storage.archiveSize"))
		require.False(t, viper.GetBool("storage.gzip"))
		require.Equal(t, 30*time.Second, viper.GetDuration("execution.shutdownTimeout"))
		return nil
	}

	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(runCmd)
	rootCmd.SetArgs([]string{"run"})
	require.NoError(t, rootCmd.Execute())
}

func TestParseConfig(t *testing.T) {
	resetViper(t)
	config := `storage:
    root: /data/docpipe
    archiveSize: 50
    gzip: true
execution:
    processes: 3
    shutdownTimeout: 5s
pipeline:
    variant: small
log:
    format: json
`
	util.PrepareTempConfigFile(t, config)

	runCmd := NewRunCommand()
	runCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return nil
	}
	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(runCmd)
	rootCmd.SetArgs([]string{"run"})
	require.NoError(t, rootCmd.Execute())

	cfg, err := util.ReadConfig()
	require.NoError(t, err)
	require.Equal(t, "/data/docpipe", cfg.Storage.Root)
	require.Equal(t, 50, cfg.Storage.ArchiveSize)
	require.True(t, cfg.Storage.Gzip)
	require.Equal(t, 3, cfg.Execution.Processes)
	require.Equal(t, 5*time.Second, cfg.Execution.ShutdownTimeout)
	require.Equal(t, "small", cfg.Pipeline.Variant)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestRunCommandFlagsOverrideConfig(t *testing.T) {
	resetViper(t)
	util.PrepareTempConfigFile(t, "storage:\n    archiveSize: 50\n")
	t.Setenv("DOCPIPE_PIPELINE_VARIANT", "from-env")

	runCmd := NewRunCommand()
	runCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return nil
	}
	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(runCmd)
	rootCmd.SetArgs([]string{"run", "--archive-size", "7", "--processes", "2"})
	require.NoError(t, rootCmd.Execute())

	cfg, err := util.ReadConfig()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Storage.ArchiveSize)
	require.Equal(t, 2, cfg.Execution.Processes)
	require.Equal(t, "from-env", cfg.Pipeline.Variant)
}

const pipelineDefinition = `name: words
modules:
  - name: input
    type: input_text
    options:
      files: %s
  - name: tokens
    type: tokenize
    options:
      lowercase: true
    inputs:
      text: input
  - name: vocab
    type: vocab_counter
    inputs:
      tokens: tokens
`

func TestRunCommand(t *testing.T) {
	resetViper(t)
	util.PrepareTempConfigDir(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.txt"), []byte("One fish. Two fish."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.txt"), []byte("Red fish"), 0o644))
	pipelineFile := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(pipelineFile, fmt.Appendf(nil, pipelineDefinition, filepath.Join(dir, "*.txt")), 0o644))
	storage := filepath.Join(dir, "store")

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd := cmd.NewRootCommand()
		rootCmd.AddCommand(NewRunCommand())
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append(args, "--pipeline", pipelineFile, "--storage-root", storage, "--log-level", "none"))
		err := rootCmd.Execute()
		return out.String(), err
	}

	_, err := execute("run", "vocab")
	require.ErrorContains(t, err, "input data not ready")

	out, err := execute("run", "vocab", "--all-deps", "--processes", "2")
	require.NoError(t, err)
	require.Regexp(t, `tokens\s+COMPLETE`, out)
	require.Regexp(t, `vocab\s+COMPLETE`, out)

	r, err := corpus.Open(filepath.Join(storage, "main", "tokens", "tokens"))
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	require.NoError(t, r.Close())

	out, err = execute("run")
	require.NoError(t, err)
	require.Regexp(t, `tokens\s+SKIPPED`, out)

	_, err = execute("run", "input")
	require.ErrorContains(t, err, "module is not executable")
}
