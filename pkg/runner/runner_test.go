package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/docpipe/docpipe/internal/mocks"
	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/datatype"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/status"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var textIn = pipeline.InputSlot{Name: "in", Requirement: datatype.Require(datatype.Text)}

func textOut(name string) pipeline.OutputSlot {
	return pipeline.OutputSlot{Name: name, Datatype: datatype.TextCorpus}
}

func expectSlots(impl *mocks.MockModuleType, executable bool, inputs []pipeline.InputSlot, outputs ...pipeline.OutputSlot) {
	impl.EXPECT().Inputs().Return(inputs).AnyTimes()
	impl.EXPECT().Outputs().Return(outputs).AnyTimes()
	impl.EXPECT().Options().Return(nil).AnyTimes()
	impl.EXPECT().Executable().Return(executable).AnyTimes()
}

func addModule(t *testing.T, p *pipeline.Pipeline, name string, impl pipeline.ModuleType) {
	t.Helper()
	require.NoError(t, p.AddModule(&pipeline.Module{Name: name, Type: "mock", Impl: impl}))
}

// writeDocs returns an Execute implementation writing n documents to the
// output slot.
func writeDocs(slot string, n int) func(context.Context, pipeline.ExecEnv) error {
	return func(_ context.Context, env pipeline.ExecEnv) error {
		w, err := env.Output(slot)
		if err != nil {
			return err
		}
		for i := range n {
			if err := w.Add(fmt.Sprintf("doc%d", i), document.New([]byte(fmt.Sprintf("text %d", i)))); err != nil {
				return err
			}
		}
		return nil
	}
}

// copyInput returns an Execute implementation copying every document of the
// "in" slot to the "out" slot.
func copyInput(seen *int) func(context.Context, pipeline.ExecEnv) error {
	return func(ctx context.Context, env pipeline.ExecEnv) error {
		inputs, err := env.Inputs(ctx, "in")
		if err != nil {
			return err
		}
		w, err := env.Output("out")
		if err != nil {
			return err
		}
		for _, src := range inputs {
			for item, err := range src.Iter(ctx, corpus.IterOptions{}) {
				if err != nil {
					return err
				}
				*seen++
				if err := w.AddToArchive(item.Archive, item.Name, item.Doc); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

type fixture struct {
	pipeline *pipeline.Pipeline
	tracker  *status.Tracker
	runner   *Runner
	mods     map[string]*mocks.MockModuleType
}

// newChain builds source -> middle -> sink, each a mock module with one text
// output "out".
func newChain(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{pipeline: pipeline.New("chain"), mods: map[string]*mocks.MockModuleType{}}
	for _, name := range []string{"source", "middle", "sink"} {
		impl := mocks.NewMockModuleType(ctrl)
		var inputs []pipeline.InputSlot
		if name != "source" {
			inputs = []pipeline.InputSlot{textIn}
		}
		expectSlots(impl, true, inputs, textOut("out"))
		addModule(t, f.pipeline, name, impl)
		f.mods[name] = impl
	}
	require.NoError(t, f.pipeline.Connect("source", "out", "middle", "in"))
	require.NoError(t, f.pipeline.Connect("middle", "", "sink", "in"))

	f.tracker = status.NewTracker(t.TempDir(), f.pipeline)
	f.runner = New(f.pipeline, f.tracker, WithProcesses(2), WithArchiveSize(4))
	return f
}

func requireStatus(t *testing.T, tr *status.Tracker, module string, expected status.Status) {
	t.Helper()
	st, err := tr.Status(module)
	require.NoError(t, err)
	require.Equal(t, expected, st, module)
}

func TestRunModuleCompletes(t *testing.T) {
	f := newChain(t)
	f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writeDocs("out", 10)).Times(1)

	res := f.runner.RunModule(context.Background(), "source", false)
	require.NoError(t, res.Err)
	require.Equal(t, status.Complete, res.Status)
	require.False(t, res.Skipped)

	meta, err := f.tracker.Metadata("source")
	require.NoError(t, err)
	require.Equal(t, status.Complete, meta.Status)
	require.NotEmpty(t, meta.RunID)
	require.Equal(t, status.OutputInfo{Datatype: "text_corpus", Length: 10, Archives: 3}, meta.Outputs["out"])
	require.False(t, f.tracker.Running("source"))

	r, err := corpus.Open(f.tracker.OutputDir("source", "out"))
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, 10, r.Len())
	require.Equal(t, "text_corpus", r.Metadata().Datatype)

	// already complete
	res = f.runner.RunModule(context.Background(), "source", false)
	require.NoError(t, res.Err)
	require.True(t, res.Skipped)
}

func TestRunModuleForceReruns(t *testing.T) {
	f := newChain(t)
	gomock.InOrder(
		f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writeDocs("out", 5)),
		f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writeDocs("out", 2)),
	)

	require.NoError(t, f.runner.RunModule(context.Background(), "source", false).Err)
	require.NoError(t, f.runner.RunModule(context.Background(), "source", true).Err)

	meta, err := f.tracker.Metadata("source")
	require.NoError(t, err)
	require.Equal(t, 2, meta.Outputs["out"].Length)
}

func TestRunModuleFailure(t *testing.T) {
	tests := map[string]struct {
		execute func(context.Context, pipeline.ExecEnv) error
		errMsg  string
		opened  bool
	}{
		"error": {
			execute: func(_ context.Context, env pipeline.ExecEnv) error {
				if err := writeDocs("out", 3)(context.Background(), env); err != nil {
					return err
				}
				return errors.New("disk on fire")
			},
			errMsg: "disk on fire",
			opened: true,
		},
		"panic": {
			execute: func(context.Context, pipeline.ExecEnv) error {
				panic("nil map")
			},
			errMsg: "nil map",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := newChain(t)
			f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(test.execute)

			res := f.runner.RunModule(context.Background(), "source", false)
			require.Error(t, res.Err)
			require.Equal(t, status.Failed, res.Status)
			require.ErrorIs(t, res.Err, pipeline.ErrExecution)
			require.Contains(t, res.Err.Error(), test.errMsg)

			var execErr *pipeline.ModuleExecutionError
			require.ErrorAs(t, res.Err, &execErr)
			require.Equal(t, "source", execErr.Module)

			meta, err := f.tracker.Metadata("source")
			require.NoError(t, err)
			require.Equal(t, status.Failed, meta.Status)
			require.Contains(t, meta.Error, test.errMsg)
			require.False(t, f.tracker.Running("source"))

			require.False(t, corpus.Exists(f.tracker.OutputDir("source", "out")))
			if test.opened {
				_, err = corpus.Open(f.tracker.OutputDir("source", "out"))
				require.ErrorIs(t, err, corpus.ErrIncomplete)
			}

			ready, err := f.tracker.Ready("middle")
			require.NoError(t, err)
			require.False(t, ready)
		})
	}
}

func TestRunModuleChecks(t *testing.T) {
	t.Run("missing_data", func(t *testing.T) {
		f := newChain(t)
		f.mods["middle"].EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)

		res := f.runner.RunModule(context.Background(), "middle", false)
		require.ErrorIs(t, res.Err, ErrMissingData)

		var missing *MissingDataError
		require.ErrorAs(t, res.Err, &missing)
		require.Equal(t, []string{"source.out"}, missing.Missing)
		requireStatus(t, f.tracker, "middle", status.Unexecuted)
	})

	t.Run("already_running", func(t *testing.T) {
		f := newChain(t)
		f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
		require.NoError(t, f.tracker.Begin("source", "other-run"))

		res := f.runner.RunModule(context.Background(), "source", false)
		require.ErrorIs(t, res.Err, status.ErrAlreadyRunning)
		requireStatus(t, f.tracker, "source", status.Started)
	})

	t.Run("unknown_module", func(t *testing.T) {
		f := newChain(t)
		res := f.runner.RunModule(context.Background(), "ghost", false)
		require.ErrorIs(t, res.Err, pipeline.ErrUnknownModule)
	})

	t.Run("type_mismatch", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := pipeline.New("typed")

		source := mocks.NewMockModuleType(ctrl)
		expectSlots(source, true, nil, textOut("out"))
		addModule(t, p, "source", source)

		counter := mocks.NewMockModuleType(ctrl)
		expectSlots(counter, true, []pipeline.InputSlot{
			{Name: "in", Requirement: datatype.Require(datatype.Tokenized)},
		}, pipeline.OutputSlot{Name: "vocab", Datatype: datatype.VocabCounts})
		counter.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
		addModule(t, p, "counter", counter)
		require.NoError(t, p.Connect("source", "", "counter", "in"))

		r := New(p, status.NewTracker(t.TempDir(), p))
		res := r.RunModule(context.Background(), "counter", false)
		require.ErrorIs(t, res.Err, pipeline.ErrTypeCheck)
	})
}

func TestUnopenedOutputsAreWrittenEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := pipeline.New("outputs")
	impl := mocks.NewMockModuleType(ctrl)
	expectSlots(impl, true, nil, textOut("kept"), textOut("rejected"))
	impl.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writeDocs("kept", 3))
	addModule(t, p, "split", impl)

	tracker := status.NewTracker(t.TempDir(), p)
	res := New(p, tracker).RunModule(context.Background(), "split", false)
	require.NoError(t, res.Err)

	meta, err := tracker.Metadata("split")
	require.NoError(t, err)
	require.Equal(t, 3, meta.Outputs["kept"].Length)
	require.Equal(t, 0, meta.Outputs["rejected"].Length)

	r, err := corpus.Open(tracker.OutputDir("split", "rejected"))
	require.NoError(t, err)
	defer r.Close()
	require.Zero(t, r.Len())
}

func TestRun(t *testing.T) {
	t.Run("all_deps_in_schedule_order", func(t *testing.T) {
		f := newChain(t)
		var middleSeen, sinkSeen int
		gomock.InOrder(
			f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writeDocs("out", 6)),
			f.mods["middle"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(copyInput(&middleSeen)),
			f.mods["sink"].EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(copyInput(&sinkSeen)),
		)

		results, err := f.runner.Run(context.Background(), []string{"sink"}, RunOptions{AllDeps: true})
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i, name := range []string{"source", "middle", "sink"} {
			require.Equal(t, name, results[i].Module)
			require.Equal(t, status.Complete, results[i].Status)
		}
		require.Equal(t, 6, middleSeen)
		require.Equal(t, 6, sinkSeen)
	})

	t.Run("without_deps", func(t *testing.T) {
		f := newChain(t)
		_, err := f.runner.Run(context.Background(), []string{"sink"}, RunOptions{})
		require.ErrorIs(t, err, ErrMissingData)
	})

	t.Run("stops_at_first_failure", func(t *testing.T) {
		f := newChain(t)
		f.mods["source"].EXPECT().Execute(gomock.Any(), gomock.Any()).Return(errors.New("no input files"))
		f.mods["middle"].EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)

		results, err := f.runner.Run(context.Background(), nil, RunOptions{})
		require.ErrorIs(t, err, pipeline.ErrExecution)
		require.Len(t, results, 1)
		requireStatus(t, f.tracker, "middle", status.Unexecuted)
	})
}

type filterModule struct {
	*mocks.MockModuleType
	*mocks.MockFilter
}

func TestFilterInputs(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := pipeline.New("filtered")

	source := mocks.NewMockModuleType(ctrl)
	expectSlots(source, true, nil, textOut("out"))
	source.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(writeDocs("out", 4))
	addModule(t, p, "source", source)

	filterType := mocks.NewMockModuleType(ctrl)
	expectSlots(filterType, false, []pipeline.InputSlot{textIn}, textOut("out"))
	filter := mocks.NewMockFilter(ctrl)
	filter.EXPECT().Stream(gomock.Any(), gomock.Any(), "out").DoAndReturn(
		func(ctx context.Context, env pipeline.ExecEnv, _ string) (corpus.Source, error) {
			inputs, err := env.Inputs(ctx, "in")
			if err != nil {
				return nil, err
			}
			upstream := inputs[0]
			return &corpus.Stream{
				Meta: upstream.Metadata(),
				Generate: func(ctx context.Context) iter.Seq2[corpus.Item, error] {
					return func(yield func(corpus.Item, error) bool) {
						for item, err := range upstream.Iter(ctx, corpus.IterOptions{}) {
							if err == nil {
								item.Doc = document.New(append([]byte("filtered "), item.Doc.Data...))
							}
							if !yield(item, err) {
								return
							}
						}
					}
				},
			}, nil
		})
	addModule(t, p, "filter", filterModule{filterType, filter})
	require.NoError(t, p.Connect("source", "", "filter", "in"))

	var seen int
	sink := mocks.NewMockModuleType(ctrl)
	expectSlots(sink, true, []pipeline.InputSlot{textIn}, textOut("out"))
	sink.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(copyInput(&seen))
	addModule(t, p, "sink", sink)
	require.NoError(t, p.Connect("filter", "", "sink", "in"))

	tracker := status.NewTracker(t.TempDir(), p)
	results, err := New(p, tracker).Run(context.Background(), nil, RunOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 4, seen)

	r, err := corpus.Open(tracker.OutputDir("sink", "out"))
	require.NoError(t, err)
	defer r.Close()
	doc, ok, err := r.Get("archive0000", "doc2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "filtered text 2", string(doc.Data))
}
