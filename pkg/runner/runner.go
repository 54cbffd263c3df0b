// Package runner drives module executions: it checks a module can run,
// moves it through its execution states and owns the writers of its
// outputs, so that a module is only ever marked COMPLETE once every output has
// been finalised.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/id"
	"github.com/docpipe/docpipe/pkg/logger"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/status"
	"github.com/docpipe/docpipe/pkg/telemetry"
)

var tracer = otel.Tracer("pkg/runner")

var (
	moduleRunsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "module_runs_total",
		Help: "The total number of module runs by final status.",
	}, []string{"module", "status"})

	moduleRunDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "module_run_duration_seconds",
		Help:    "The duration of module runs.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"module", "status"})
)

var (
	ErrNotExecutable = errors.New("module is not executable")
	ErrMissingData   = errors.New("module input data is not ready")
	ErrNotFilter     = errors.New("non-executable module does not implement Filter")
)

// MissingDataError lists the producer outputs a module is waiting for.
type MissingDataError struct {
	Module  string
	Missing []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("module '%s' cannot run, input data not ready: %s", e.Module, strings.Join(e.Missing, ", "))
}

func (e *MissingDataError) Unwrap() error {
	return ErrMissingData
}

type Option func(*Runner)

func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithProcesses sets the number of workers offered to each module.
func WithProcesses(n int) Option {
	return func(r *Runner) {
		r.processes = n
	}
}

// WithShutdownTimeout bounds how long a failing module waits for its workers.
func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.shutdownTimeout = d
	}
}

// WithArchiveSize sets the default number of documents per output archive.
func WithArchiveSize(n int) Option {
	return func(r *Runner) {
		r.archiveSize = n
	}
}

// WithGzip compresses stored output documents.
func WithGzip(gzip bool) Option {
	return func(r *Runner) {
		r.gzip = gzip
	}
}

// WithReaderCacheSize sets how many archives each input reader keeps open.
func WithReaderCacheSize(n int) Option {
	return func(r *Runner) {
		r.readerCacheSize = n
	}
}

// Runner executes modules of one pipeline variant.
type Runner struct {
	pipeline *pipeline.Pipeline
	tracker  *status.Tracker
	logger   logger.Logger

	processes       int
	shutdownTimeout time.Duration
	archiveSize     int
	gzip            bool
	readerCacheSize int

	now func() time.Time
}

func New(p *pipeline.Pipeline, tracker *status.Tracker, opts ...Option) *Runner {
	r := &Runner{
		pipeline:    p,
		tracker:     tracker,
		logger:      logger.NewNoopLogger(),
		processes:   runtime.NumCPU(),
		archiveSize: corpus.DefaultArchiveSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOptions control a multi-module run.
type RunOptions struct {
	// AllDeps also runs every unexecuted module the requested ones depend on.
	AllDeps bool
	// Force reruns modules that are already COMPLETE.
	Force bool
}

// Result reports what happened to one module.
type Result struct {
	Module   string
	Status   status.Status
	Skipped  bool
	Duration time.Duration
	Err      error
}

// Run executes modules in schedule order. With no modules named, every
// executable module of the pipeline is run. The first failure stops the run
// and is returned along with the results so far.
func (r *Runner) Run(ctx context.Context, modules []string, opts RunOptions) ([]Result, error) {
	if err := r.pipeline.CheckForCycles(); err != nil {
		return nil, err
	}
	schedule, err := r.pipeline.ExecutableSchedule()
	if err != nil {
		return nil, err
	}

	if len(modules) == 0 {
		modules = schedule
	}
	for _, name := range modules {
		m, ok := r.pipeline.Module(name)
		if !ok {
			return nil, fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, name)
		}
		if !m.Executable() {
			return nil, fmt.Errorf("%w: %s", ErrNotExecutable, name)
		}
	}

	selected := slices.Clone(modules)
	if opts.AllDeps {
		deps, err := r.tracker.CollectUnexecutedDependencies(modules)
		if err != nil {
			return nil, err
		}
		selected = append(selected, deps...)
	}
	order := make([]string, 0, len(selected))
	for _, name := range schedule {
		if slices.Contains(selected, name) {
			order = append(order, name)
		}
	}

	results := make([]Result, 0, len(order))
	for _, name := range order {
		res := r.RunModule(ctx, name, opts.Force)
		results = append(results, res)
		if res.Err != nil {
			return results, res.Err
		}
	}
	return results, nil
}

// RunModule executes one module. A module that is already COMPLETE is
// skipped unless force is set.
func (r *Runner) RunModule(ctx context.Context, name string, force bool) (res Result) {
	res.Module = name
	start := r.now()

	ctx, span := tracer.Start(ctx, "runner.RunModule", trace.WithAttributes(attribute.String("module", name)))
	defer span.End()

	defer func() {
		res.Duration = r.now().Sub(start)
		if res.Skipped {
			return
		}
		label := string(res.Status)
		if res.Err != nil {
			telemetry.TraceError(span, res.Err)
			if label == "" {
				label = "error"
			}
		}
		moduleRunsCounter.WithLabelValues(name, label).Inc()
		moduleRunDurationHistogram.WithLabelValues(name, label).Observe(res.Duration.Seconds())
	}()

	m, err := r.prepare(name, force, &res)
	if err != nil || res.Skipped {
		res.Err = err
		return res
	}

	runID, err := id.NewRunID(start)
	if err != nil {
		res.Err = err
		return res
	}
	if err := r.tracker.Begin(name, runID); err != nil {
		res.Err = err
		return res
	}
	res.Status = status.Started

	log := r.logger.With(logger.Module(name), zap.String("run_id", runID))
	log.InfoWithContext(ctx, "module started")

	env := newExecEnv(r, m, log, &inputReaders{})
	defer env.closeInputs()

	outputs, err := r.execute(ctx, m, env)
	if err != nil {
		res.Err = r.fail(name, err)
		res.Status = status.Failed
		log.ErrorWithContext(ctx, "module failed", zap.Error(err))
		return res
	}

	if err := r.tracker.Complete(name, outputs); err != nil {
		res.Err = r.fail(name, err)
		res.Status = status.Failed
		return res
	}
	res.Status = status.Complete
	log.InfoWithContext(ctx, "module complete", zap.Duration("duration", r.now().Sub(start)))
	return res
}

// prepare runs the checks made before a module starts. It sets res.Skipped
// when the module is already complete.
func (r *Runner) prepare(name string, force bool, res *Result) (*pipeline.Module, error) {
	m, ok := r.pipeline.Module(name)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, name)
	}
	if !m.Executable() {
		return nil, fmt.Errorf("%w: %s", ErrNotExecutable, name)
	}
	if err := r.pipeline.TypecheckInputs(name); err != nil {
		return nil, err
	}

	st, err := r.tracker.Status(name)
	if err != nil {
		return nil, err
	}
	if st == status.Complete && !force {
		r.logger.Info("module already complete, skipping", logger.Module(name))
		res.Status, res.Skipped = st, true
		return m, nil
	}
	if r.tracker.Running(name) {
		return nil, fmt.Errorf("%w: %s", status.ErrAlreadyRunning, name)
	}
	if st != status.Unexecuted {
		if err := r.tracker.ResetExecution(name); err != nil {
			return nil, err
		}
	}

	missing, err := r.tracker.MissingData(name, nil)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &MissingDataError{Module: name, Missing: missing}
	}
	return m, nil
}

// execute runs the module and finalises its outputs. Outputs the module
// never opened are written empty. On failure every writer is aborted.
func (r *Runner) execute(ctx context.Context, m *pipeline.Module, env *execEnv) (outputs map[string]status.OutputInfo, err error) {
	if rec := panics.Try(func() { err = m.Impl.Execute(ctx, env) }); rec != nil {
		err = rec.AsError()
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, errors.Join(wrapExecution(m.Name, err), env.abortOutputs())
	}

	for _, out := range m.Impl.Outputs() {
		if _, err := env.Output(out.Name); err != nil {
			return nil, errors.Join(wrapExecution(m.Name, err), env.abortOutputs())
		}
	}
	return env.closeOutputs()
}

func (r *Runner) fail(module string, cause error) error {
	if err := r.tracker.Fail(module, cause); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func wrapExecution(module string, err error) error {
	var execErr *pipeline.ModuleExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return &pipeline.ModuleExecutionError{Module: module, Err: err}
}
