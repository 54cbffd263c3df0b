// Package docmap applies a per-document transform across one or more aligned
// input corpora with a fixed pool of workers. Results are written to the
// outputs in input order whatever order the workers finish in.
package docmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docpipe/docpipe/internal/concurrency"
	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/logger"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/telemetry"
)

var tracer = otel.Tracer("pkg/docmap")

const (
	queueFactor             = 2
	defaultProgressInterval = 100
	defaultShutdownTimeout  = 30 * time.Second
)

var (
	documentsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docmap_documents_total",
		Help: "The total number of documents written by document maps.",
	}, []string{"module"})

	invalidDocumentsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docmap_invalid_documents_total",
		Help: "The total number of invalid documents written by document maps.",
	}, []string{"module"})
)

var (
	ErrNoInputs        = errors.New("document map has no inputs")
	ErrNoTransform     = errors.New("document map has no transform")
	ErrOutputCount     = errors.New("transform returned the wrong number of documents")
	ErrShutdownTimeout = errors.New("workers did not stop within the shutdown timeout")
)

// Unit is one position of the aligned inputs.
type Unit struct {
	Archive string
	Name    string
	// Docs holds one document per input, in input order.
	Docs []document.Document
}

// Doc returns the document of the first input.
func (u Unit) Doc() document.Document {
	return u.Docs[0]
}

func (u Unit) Key() corpus.Key {
	return corpus.Key{Archive: u.Archive, Name: u.Name}
}

// TransformFunc computes one document per output from a unit. A single
// invalid document may be returned in place of the full set and is written to
// every output. W is the worker state returned by the worker setup hook.
type TransformFunc[W any] func(ctx context.Context, worker W, u Unit) ([]document.Document, error)

// Sink receives output documents under the identity of their input.
// *corpus.Writer implements it.
type Sink interface {
	AddToArchive(archive, name string, doc document.Document) error
}

// Spec describes one document map.
type Spec[W any] struct {
	// Module names the module being executed, for errors and metrics.
	Module  string
	Inputs  []corpus.Source
	Outputs []Sink
	// IterOptions restricts which input documents are processed.
	IterOptions corpus.IterOptions

	// Processes is the number of workers. Values below one mean one.
	Processes int
	Transform TransformFunc[W]

	// WorkerSetup runs once in each worker before it takes any unit.
	WorkerSetup func(ctx context.Context, worker int) (W, error)
	// WorkerTeardown runs once in each worker after its last unit.
	WorkerTeardown func(state W) error

	// Preprocess runs once before any unit is dispatched.
	Preprocess func(ctx context.Context) error
	// Postprocess runs once after the map ends, successfully or not, with the
	// map's error.
	Postprocess func(ctx context.Context, err error) error

	// Progress is called with the number of documents written so far and the
	// last written key, every ProgressInterval documents and once at the end.
	Progress         func(docsCompleted int, last corpus.Key) error
	ProgressInterval int

	ShutdownTimeout time.Duration
	Logger          logger.Logger
}

// Stats summarises a finished map.
type Stats struct {
	Documents int
	Invalid   int
}

type job struct {
	seq  int
	unit Unit
}

type result struct {
	seq  int
	unit Unit
	docs []document.Document
}

// Map runs the document map described by spec. Any failure that the
// transform does not downgrade to an invalid document stops the whole map and
// is returned as a single *pipeline.ModuleExecutionError.
func Map[W any](ctx context.Context, spec Spec[W]) (stats Stats, err error) {
	spec = spec.withDefaults()

	ctx, span := tracer.Start(ctx, "docmap.Map", trace.WithAttributes(
		attribute.String("module", spec.Module),
		attribute.Int("processes", spec.Processes),
	))
	defer span.End()

	defer func() {
		if err != nil {
			telemetry.TraceError(span, err)
		}
	}()

	if len(spec.Inputs) == 0 {
		return Stats{}, executionError(spec.Module, ErrNoInputs)
	}
	if spec.Transform == nil {
		return Stats{}, executionError(spec.Module, ErrNoTransform)
	}

	if spec.Preprocess != nil {
		if err := spec.Preprocess(ctx); err != nil {
			return Stats{}, executionError(spec.Module, fmt.Errorf("preprocess: %w", err))
		}
	}
	defer func() {
		if spec.Postprocess == nil {
			return
		}
		if perr := spec.Postprocess(ctx, err); perr != nil && err == nil {
			err = executionError(spec.Module, fmt.Errorf("postprocess: %w", perr))
		}
	}()

	stats, err = run(ctx, spec)
	if err != nil {
		spec.Logger.ErrorWithContext(ctx, "document map failed", logger.Module(spec.Module), zap.Error(err))
		return stats, err
	}
	spec.Logger.InfoWithContext(ctx, "document map finished",
		logger.Module(spec.Module),
		zap.Int("documents", stats.Documents),
		zap.Int("invalid", stats.Invalid),
	)
	return stats, nil
}

func (s Spec[W]) withDefaults() Spec[W] {
	if s.Processes < 1 {
		s.Processes = 1
	}
	if s.ProgressInterval < 1 {
		s.ProgressInterval = defaultProgressInterval
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
	if s.Logger == nil {
		s.Logger = logger.NewNoopLogger()
	}
	return s
}

func run[W any](ctx context.Context, spec Spec[W]) (Stats, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, spec.Processes*queueFactor)

	g.Go(func() error {
		defer close(jobs)
		seq := 0
		for item, err := range corpus.Aligned(gctx, spec.Inputs, spec.IterOptions) {
			if err != nil {
				return err
			}
			unit := Unit{Archive: item.Archive, Name: item.Name, Docs: item.Docs}
			if !concurrency.TrySendThroughChannel(gctx, job{seq: seq, unit: unit}, jobs) {
				return gctx.Err()
			}
			seq++
		}
		return nil
	})

	workerResults := make([]<-chan result, spec.Processes)
	workers := concurrency.NewPool(gctx, spec.Processes, cancel)
	for w := range spec.Processes {
		out := make(chan result, queueFactor)
		workerResults[w] = out
		workers.Go(func(ctx context.Context) error {
			defer close(out)
			return work(ctx, spec, w, jobs, out)
		})
	}
	g.Go(workers.Wait)

	results := concurrency.FanInChannels(gctx, workerResults, nil)

	var stats Stats
	collected := make(chan struct{})
	g.Go(func() error {
		defer close(collected)
		var err error
		stats, err = collect(gctx, spec, results)
		return err
	})

	err := wait(gctx, g, spec.ShutdownTimeout)
	// the collector owns the outputs until it returns
	<-collected
	if err == nil {
		return stats, nil
	}

	// a failed worker cancels ctx with its error before the other stages
	// notice the cancellation
	var cause *pipeline.ModuleExecutionError
	if errors.As(context.Cause(ctx), &cause) {
		if errors.Is(err, ErrShutdownTimeout) {
			timedOut := *cause
			timedOut.Err = fmt.Errorf("%w: %w", cause.Err, ErrShutdownTimeout)
			return Stats{}, &timedOut
		}
		return stats, cause
	}
	if errors.Is(err, ErrShutdownTimeout) {
		return Stats{}, executionError(spec.Module, err)
	}

	var execErr *pipeline.ModuleExecutionError
	if !errors.As(err, &execErr) {
		err = executionError(spec.Module, err)
	}
	return stats, err
}

// wait joins the group, giving up ShutdownTimeout after the group's context
// is cancelled.
func wait(ctx context.Context, g *errgroup.Group, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrShutdownTimeout
	}
}

func work[W any](ctx context.Context, spec Spec[W], id int, jobs <-chan job, out chan<- result) (err error) {
	var state W
	if spec.WorkerSetup != nil {
		if r := panics.Try(func() { state, err = spec.WorkerSetup(ctx, id) }); r != nil {
			err = r.AsError()
		}
		if err != nil {
			return executionError(spec.Module, fmt.Errorf("worker %d setup: %w", id, err))
		}
	}
	if spec.WorkerTeardown != nil {
		defer func() {
			if terr := spec.WorkerTeardown(state); terr != nil && err == nil {
				err = executionError(spec.Module, fmt.Errorf("worker %d teardown: %w", id, terr))
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			docs, err := apply(ctx, spec, state, j.unit)
			if err != nil {
				return &pipeline.ModuleExecutionError{
					Module:  spec.Module,
					Archive: j.unit.Archive,
					Doc:     j.unit.Name,
					Err:     err,
				}
			}
			if !concurrency.TrySendThroughChannel(ctx, result{seq: j.seq, unit: j.unit, docs: docs}, out) {
				return ctx.Err()
			}
		}
	}
}

func apply[W any](ctx context.Context, spec Spec[W], state W, u Unit) (docs []document.Document, err error) {
	if r := panics.Try(func() { docs, err = spec.Transform(ctx, state, u) }); r != nil {
		return nil, r.AsError()
	}
	if err != nil {
		return nil, err
	}
	return fitOutputs(docs, len(spec.Outputs))
}

// fitOutputs checks the transform produced one document per output, fanning
// a lone invalid document out to all of them.
func fitOutputs(docs []document.Document, outputs int) ([]document.Document, error) {
	if len(docs) == outputs {
		return docs, nil
	}
	if len(docs) == 1 && docs[0].IsInvalid() {
		fanned := make([]document.Document, outputs)
		for i := range fanned {
			fanned[i] = docs[0]
		}
		return fanned, nil
	}
	return nil, fmt.Errorf("%w: got %d for %d outputs", ErrOutputCount, len(docs), outputs)
}

// collect buffers results until every earlier position has arrived and writes
// them in input order.
func collect[W any](ctx context.Context, spec Spec[W], results <-chan result) (Stats, error) {
	var (
		stats   Stats
		last    corpus.Key
		next    int
		pending = map[int]result{}
	)

	for {
		var (
			r  result
			ok bool
		)
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case r, ok = <-results:
		}
		if !ok {
			break
		}

		pending[r.seq] = r
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)

			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := write(ctx, spec, r, &stats); err != nil {
				return stats, err
			}
			last = r.unit.Key()
			next++

			if spec.Progress != nil && next%spec.ProgressInterval == 0 {
				if err := spec.Progress(next, last); err != nil {
					return stats, fmt.Errorf("record progress: %w", err)
				}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if spec.Progress != nil && next > 0 && next%spec.ProgressInterval != 0 {
		if err := spec.Progress(next, last); err != nil {
			return stats, fmt.Errorf("record progress: %w", err)
		}
	}
	return stats, nil
}

func write[W any](ctx context.Context, spec Spec[W], r result, stats *Stats) error {
	invalid := false
	for i, out := range spec.Outputs {
		doc := r.docs[i]
		if err := out.AddToArchive(r.unit.Archive, r.unit.Name, doc); err != nil {
			return &pipeline.ModuleExecutionError{
				Module:  spec.Module,
				Archive: r.unit.Archive,
				Doc:     r.unit.Name,
				Err:     fmt.Errorf("write output %d: %w", i, err),
			}
		}
		invalid = invalid || doc.IsInvalid()
	}

	stats.Documents++
	documentsCounter.WithLabelValues(spec.Module).Inc()
	if invalid {
		stats.Invalid++
		invalidDocumentsCounter.WithLabelValues(spec.Module).Inc()
		spec.Logger.WarnWithContext(ctx, "invalid document",
			logger.Module(spec.Module),
			zap.String("archive", r.unit.Archive),
			zap.String("doc", r.unit.Name),
		)
	}
	return nil
}

func executionError(module string, err error) error {
	return &pipeline.ModuleExecutionError{Module: module, Err: err}
}
