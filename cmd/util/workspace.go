package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/docpipe/docpipe/internal/config"
	"github.com/docpipe/docpipe/pkg/loader"
	"github.com/docpipe/docpipe/pkg/logger"
	"github.com/docpipe/docpipe/pkg/modules"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/runner"
	"github.com/docpipe/docpipe/pkg/status"
	"github.com/docpipe/docpipe/pkg/telemetry"
)

// Workspace is everything a command needs to act on one pipeline variant.
type Workspace struct {
	Config   *config.Config
	Logger   logger.Logger
	Pipeline *pipeline.Pipeline
	Tracker  *status.Tracker

	shutdownTracing func(context.Context) error
}

// OpenWorkspace reads and verifies the configuration, then loads the
// configured pipeline variant.
func OpenWorkspace(ctx context.Context) (*Workspace, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	w := &Workspace{Config: cfg, Logger: log}
	if err := w.setupTracing(ctx); err != nil {
		return nil, err
	}

	w.Pipeline, err = loader.Load(cfg.Pipeline.File, modules.NewRegistry(), cfg.Pipeline.Variant)
	if err != nil {
		return nil, errors.Join(err, w.Close())
	}
	w.Tracker = status.NewTracker(cfg.Storage.Root, w.Pipeline, status.WithLogger(log))
	return w, nil
}

func (w *Workspace) setupTracing(ctx context.Context) error {
	if !w.Config.Trace.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		w.shutdownTracing = func(context.Context) error { return nil }
		return nil
	}

	w.Logger.Info(fmt.Sprintf("tracing enabled: sampling ratio is %v and sending traces to '%s'", w.Config.Trace.SampleRatio, w.Config.Trace.Endpoint))
	tp, err := telemetry.NewTracerProvider(ctx,
		telemetry.WithOTLPEndpoint(w.Config.Trace.Endpoint),
		telemetry.WithServiceName(w.Config.Trace.ServiceName),
		telemetry.WithSamplingRatio(w.Config.Trace.SampleRatio),
	)
	if err != nil {
		return err
	}
	w.shutdownTracing = func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}
	return nil
}

// Runner returns a runner configured from the workspace settings.
func (w *Workspace) Runner(opts ...runner.Option) *runner.Runner {
	cfg := w.Config
	defaults := []runner.Option{
		runner.WithLogger(w.Logger),
		runner.WithProcesses(cfg.Execution.Processes),
		runner.WithShutdownTimeout(cfg.Execution.ShutdownTimeout),
		runner.WithArchiveSize(cfg.Storage.ArchiveSize),
		runner.WithGzip(cfg.Storage.Gzip),
		runner.WithReaderCacheSize(cfg.Storage.ReaderCacheSize),
	}
	return runner.New(w.Pipeline, w.Tracker, append(defaults, opts...)...)
}

// Close flushes traces and writes the metrics textfile if enabled.
func (w *Workspace) Close() error {
	// can take up to 5 seconds for the batch span processor to export
	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	var errs []error
	if w.shutdownTracing != nil {
		errs = append(errs, w.shutdownTracing(ctx))
	}
	if w.Config.Metrics.Enabled {
		if err := telemetry.WriteMetrics(w.Config.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		} else {
			w.Logger.Debug("metrics written", zap.String("path", w.Config.Metrics.Textfile))
		}
	}
	return errors.Join(errs...)
}
