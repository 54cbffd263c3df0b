package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/logger"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/status"
)

// execEnv is the pipeline.ExecEnv handed to a running module. It owns the
// module's output writers and the readers opened for its inputs.
type execEnv struct {
	runner *Runner
	module *pipeline.Module
	logger logger.Logger

	writers     map[string]*corpus.Writer
	writerOrder []string
	// inputs is shared with the envs of upstream filters, which may open
	// readers lazily while being iterated.
	inputs *inputReaders
}

type inputReaders struct {
	mu      sync.Mutex
	readers []*corpus.Reader
}

func (in *inputReaders) add(r *corpus.Reader) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.readers = append(in.readers, r)
}

var _ pipeline.ExecEnv = (*execEnv)(nil)

func newExecEnv(r *Runner, m *pipeline.Module, l logger.Logger, inputs *inputReaders) *execEnv {
	return &execEnv{
		runner:  r,
		module:  m,
		logger:  l,
		writers: map[string]*corpus.Writer{},
		inputs:  inputs,
	}
}

func (e *execEnv) Module() *pipeline.Module {
	return e.module
}

func (e *execEnv) Option(name string) string {
	return e.module.Option(name)
}

func (e *execEnv) Processes() int {
	return e.runner.processes
}

func (e *execEnv) ShutdownTimeout() time.Duration {
	return e.runner.shutdownTimeout
}

func (e *execEnv) Logger() logger.Logger {
	return e.logger
}

func (e *execEnv) RecordProgress(docsCompleted int, last corpus.Key) error {
	return e.runner.tracker.Progress(e.module.Name, docsCompleted, last)
}

// Inputs opens the sources connected to slot. Stored outputs are read from
// disk; outputs of non-executable producers are streamed through their
// Filter.
func (e *execEnv) Inputs(ctx context.Context, slot string) ([]corpus.Source, error) {
	if _, ok := e.module.Input(slot); !ok {
		return nil, &pipeline.UnknownSlotError{Module: e.module.Name, Slot: slot, Kind: pipeline.InputSlotKind}
	}

	conns := e.runner.pipeline.InputConnections(e.module.Name, slot)
	sources := make([]corpus.Source, 0, len(conns))
	for _, c := range conns {
		src, err := e.openOutput(ctx, c.Producer)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (e *execEnv) openOutput(ctx context.Context, ref pipeline.OutputRef) (corpus.Source, error) {
	producer, ok := e.runner.pipeline.Module(ref.Module)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, ref.Module)
	}

	if producer.Executable() {
		r, err := corpus.Open(
			e.runner.tracker.OutputDir(ref.Module, ref.Output),
			corpus.WithCacheSize(e.runner.readerCacheSize),
		)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", ref, err)
		}
		e.inputs.add(r)
		return r, nil
	}

	filter, ok := producer.Impl.(pipeline.Filter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFilter, ref.Module)
	}
	upstream := newExecEnv(e.runner, producer, e.logger.With(logger.Module(producer.Name)), e.inputs)
	src, err := filter.Stream(ctx, upstream, ref.Output)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", ref, err)
	}
	return src, nil
}

// Output returns the writer for slot, creating it on first use. The
// writer's datatype comes from the slot declaration.
func (e *execEnv) Output(slot string, opts ...corpus.WriterOption) (*corpus.Writer, error) {
	out, ok := e.module.Output(slot)
	if !ok {
		return nil, &pipeline.UnknownSlotError{Module: e.module.Name, Slot: slot, Kind: pipeline.OutputSlotKind}
	}
	if w, ok := e.writers[out.Name]; ok {
		return w, nil
	}

	writerOpts := []corpus.WriterOption{
		corpus.WithArchiveSize(e.runner.archiveSize),
		corpus.WithGzip(e.runner.gzip),
		corpus.WithDatatype(out.Datatype.Name),
		corpus.WithWriterLogger(e.logger),
	}
	w, err := corpus.NewWriter(e.runner.tracker.OutputDir(e.module.Name, out.Name), append(writerOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	e.writers[out.Name] = w
	e.writerOrder = append(e.writerOrder, out.Name)
	return w, nil
}

func (e *execEnv) closeOutputs() (map[string]status.OutputInfo, error) {
	infos := make(map[string]status.OutputInfo, len(e.writers))
	for _, name := range e.writerOrder {
		w := e.writers[name]
		if err := w.Close(); err != nil {
			return nil, errors.Join(fmt.Errorf("close output %s: %w", name, err), e.abortOutputs())
		}
		meta := w.Metadata()
		infos[name] = status.OutputInfo{
			Datatype: meta.Datatype,
			Length:   meta.Length,
			Archives: len(meta.Archives),
		}
	}
	return infos, nil
}

// abortOutputs closes every writer leaving its corpus incomplete. Writers
// already closed are left as they are.
func (e *execEnv) abortOutputs() error {
	var errs []error
	for _, name := range slices.Backward(e.writerOrder) {
		errs = append(errs, e.writers[name].Abort())
	}
	return errors.Join(errs...)
}

func (e *execEnv) closeInputs() {
	e.inputs.mu.Lock()
	defer e.inputs.mu.Unlock()
	for _, r := range e.inputs.readers {
		if err := r.Close(); err != nil {
			e.logger.Warn("failed to close input reader", zap.String("dir", r.Dir()), zap.Error(err))
		}
	}
	e.inputs.readers = nil
}
