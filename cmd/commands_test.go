package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/internal/build"
	"github.com/docpipe/docpipe/pkg/loader"
	"github.com/docpipe/docpipe/pkg/modules"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/runner"
	"github.com/docpipe/docpipe/pkg/status"
)

const definition = `name: words
modules:
  - name: input
    type: input_text
    options:
      files: %s
  - name: lower
    type: lowercase
    inputs:
      text: input
  - name: tokens
    type: tokenize
    inputs:
      text: lower
  - name: vocab
    type: vocab_counter
    inputs:
      tokens: tokens
variants:
  cased:
    tokens:
      lowercase: false
`

type workspace struct {
	dir          string
	pipelineFile string
	storage      string
	pipeline     *pipeline.Pipeline
	tracker      *status.Tracker
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Some text. More text"), 0o644))

	w := &workspace{
		dir:          dir,
		pipelineFile: filepath.Join(dir, "pipeline.yaml"),
		storage:      filepath.Join(dir, "store"),
	}
	require.NoError(t, os.WriteFile(w.pipelineFile, fmt.Appendf(nil, definition, filepath.Join(dir, "*.txt")), 0o644))

	var err error
	w.pipeline, err = loader.Load(w.pipelineFile, modules.NewRegistry(), "")
	require.NoError(t, err)
	w.tracker = status.NewTracker(w.storage, w.pipeline)
	return w
}

func (w *workspace) run(t *testing.T, modules ...string) {
	t.Helper()
	_, err := runner.New(w.pipeline, w.tracker, runner.WithProcesses(2)).Run(context.Background(), modules, runner.RunOptions{AllDeps: true})
	require.NoError(t, err)
}

// execute runs a command of a fresh root command against the workspace.
func (w *workspace) execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	util.PrepareTempConfigDir(t)

	var out bytes.Buffer
	rootCmd := NewRootCommand()
	rootCmd.AddCommand(
		NewCheckCommand(),
		NewScheduleCommand(),
		NewStatusCommand(),
		NewResetCommand(),
		NewCleanCommand(),
		NewVariantsCommand(),
		NewVersionCommand(),
	)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--pipeline", w.pipelineFile, "--storage-root", w.storage, "--log-level", "none"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScheduleAndStatus(t *testing.T) {
	w := newWorkspace(t)
	w.run(t, "tokens")

	var out bytes.Buffer
	require.NoError(t, writeSchedule(&out, w.pipeline, w.tracker))
	var order []string
	for _, line := range strings.Split(out.String(), "\n") {
		cells := strings.Split(line, "│")
		if len(cells) < 3 || strings.TrimSpace(cells[1]) == "#" {
			continue
		}
		order = append(order, strings.TrimSpace(cells[2]))
	}
	require.Equal(t, []string{"input", "lower", "tokens", "vocab"}, order)
	require.Regexp(t, `tokens\s+│ tokenize\s+│ true\s+│ lower\s+│ COMPLETE`, out.String())

	out.Reset()
	require.NoError(t, writeStatus(&out, w.pipeline, w.tracker))
	require.Regexp(t, `lower\s+│ COMPLETE`, out.String())
	require.Regexp(t, `vocab\s+│ UNEXECUTED\s+│\s+0 │ yes`, out.String())
	require.NotContains(t, out.String(), "input")

	out.Reset()
	require.NoError(t, writeModuleStatus(&out, w.pipeline, w.tracker, "tokens"))
	require.Contains(t, out.String(), "Status:   COMPLETE")
	require.Contains(t, out.String(), "tokenized_corpus")
	require.Contains(t, out.String(), "STARTED")

	out.Reset()
	require.NoError(t, writeModuleStatus(&out, w.pipeline, w.tracker, "vocab"))
	require.NotContains(t, out.String(), "Waiting for")

	require.ErrorIs(t, writeModuleStatus(&out, w.pipeline, w.tracker, "ghost"), pipeline.ErrUnknownModule)
}

func TestResetModule(t *testing.T) {
	w := newWorkspace(t)
	w.run(t, "vocab")

	var out bytes.Buffer
	err := resetModule(strings.NewReader("n\n"), &out, w.tracker, "lower", false, false)
	require.ErrorIs(t, err, errResetAborted)
	require.Contains(t, out.String(), "modules to reset: lower, tokens, vocab")
	st, err := w.tracker.Status("vocab")
	require.NoError(t, err)
	require.Equal(t, status.Complete, st)

	out.Reset()
	require.NoError(t, resetModule(strings.NewReader("yes\n"), &out, w.tracker, "tokens", false, false))
	require.Contains(t, out.String(), "reset 2 modules")

	out.Reset()
	require.NoError(t, resetModule(strings.NewReader(""), &out, w.tracker, "lower", true, true))
	require.Contains(t, out.String(), "modules to reset: lower\n")

	for _, name := range []string{"lower", "tokens", "vocab"} {
		st, err := w.tracker.Status(name)
		require.NoError(t, err)
		require.Equal(t, status.Unexecuted, st, name)
	}
}

func TestCommands(t *testing.T) {
	w := newWorkspace(t)
	w.run(t, "tokens")

	out, err := w.execute(t, "", "check")
	require.NoError(t, err)
	require.Contains(t, out, "pipeline 'words' (variant 'main') is valid: 4 modules")

	out, err = w.execute(t, "", "variants")
	require.NoError(t, err)
	require.Equal(t, "cased\nmain\n", out)

	out, err = w.execute(t, "", "status", "lower")
	require.NoError(t, err)
	require.Contains(t, out, "Module:   lower (lowercase)")

	out, err = w.execute(t, "", "schedule")
	require.NoError(t, err)
	require.Contains(t, out, "vocab_counter")

	out, err = w.execute(t, "y\n", "reset", "tokens")
	require.NoError(t, err)
	require.Contains(t, out, "reset 1 modules")

	_, err = w.execute(t, "", "reset", "ghost", "--yes")
	require.ErrorIs(t, err, pipeline.ErrUnknownModule)

	orphan := filepath.Join(w.storage, "main", "old_module")
	require.NoError(t, os.MkdirAll(orphan, 0o755))
	out, err = w.execute(t, "", "clean")
	require.NoError(t, err)
	require.Contains(t, out, "removed old_module")
	require.NoDirExists(t, orphan)

	out, err = w.execute(t, "", "clean")
	require.NoError(t, err)
	require.Contains(t, out, "nothing to clean")

	out, err = w.execute(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "docpipe version "+build.Version)
}

func TestCommandsRejectInvalidConfig(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.execute(t, "", "check", "--log-format", "xml")
	require.ErrorContains(t, err, "config 'log.format' must be one of")

	_, err = w.execute(t, "", "check", "--variant", "huge")
	require.ErrorIs(t, err, loader.ErrUnknownVariant)
}
