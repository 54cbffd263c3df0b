// Package config contains all knobs and defaults used to configure a
// docpipe run.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

const (
	DefaultStorageRoot     = "docpipe-data"
	DefaultArchiveSize     = corpus.DefaultArchiveSize
	DefaultReaderCacheSize = 8
	DefaultShutdownTimeout = 30 * time.Second
	DefaultPipelineFile    = "pipeline.yaml"
)

// StorageConfig defines where module outputs live and how they are stored.
type StorageConfig struct {
	// Root is the directory holding one subdirectory per pipeline variant.
	Root string

	// ArchiveSize is the default number of documents per output archive.
	ArchiveSize int

	// Gzip compresses stored documents.
	Gzip bool

	// ReaderCacheSize is the number of archives each input reader keeps open.
	ReaderCacheSize int
}

type ExecutionConfig struct {
	// Processes is the number of workers document maps run with.
	Processes int

	// ShutdownTimeout bounds how long a failed document map waits for its
	// workers to stop.
	ShutdownTimeout time.Duration
}

// PipelineConfig selects the pipeline definition and the variant to load.
type PipelineConfig struct {
	File    string
	Variant string
}

type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

type TraceConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
	ServiceName string
}

// MetricConfig configures the Prometheus textfile written after each command.
type MetricConfig struct {
	Enabled  bool
	Textfile string
}

type Config struct {
	Storage   StorageConfig
	Execution ExecutionConfig
	Pipeline  PipelineConfig
	Log       LogConfig
	Trace     TraceConfig
	Metrics   MetricConfig
}

// Verify returns an error describing the first invalid setting.
func (cfg *Config) Verify() error {
	if cfg.Storage.Root == "" {
		return errors.New("config 'storage.root' must be set")
	}
	if cfg.Storage.ArchiveSize <= 0 {
		return fmt.Errorf("config 'storage.archiveSize' (%d) must be greater than zero", cfg.Storage.ArchiveSize)
	}
	if cfg.Storage.ReaderCacheSize <= 0 {
		return fmt.Errorf("config 'storage.readerCacheSize' (%d) must be greater than zero", cfg.Storage.ReaderCacheSize)
	}
	if cfg.Execution.Processes <= 0 {
		return fmt.Errorf("config 'execution.processes' (%d) must be greater than zero", cfg.Execution.Processes)
	}
	if cfg.Execution.ShutdownTimeout <= 0 {
		return fmt.Errorf("config 'execution.shutdownTimeout' (%s) must be greater than zero", cfg.Execution.ShutdownTimeout)
	}
	if cfg.Pipeline.File == "" {
		return errors.New("config 'pipeline.file' must be set")
	}
	if cfg.Pipeline.Variant == "" {
		return errors.New("config 'pipeline.variant' must be set")
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json'], got '%s'", cfg.Log.Format)
	}

	if cfg.Trace.Enabled {
		if cfg.Trace.Endpoint == "" {
			return errors.New("config 'trace.endpoint' must be set when tracing is enabled")
		}
		if cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1 {
			return fmt.Errorf("config 'trace.sampleRatio' (%v) must be between 0 and 1", cfg.Trace.SampleRatio)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		return errors.New("config 'metrics.textfile' must be set when metrics are enabled")
	}
	return nil
}

// DefaultConfig is the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Root:            DefaultStorageRoot,
			ArchiveSize:     DefaultArchiveSize,
			Gzip:            false,
			ReaderCacheSize: DefaultReaderCacheSize,
		},
		Execution: ExecutionConfig{
			Processes:       runtime.NumCPU(),
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Pipeline: PipelineConfig{
			File:    DefaultPipelineFile,
			Variant: pipeline.DefaultVariant,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Trace: TraceConfig{
			Enabled:     false,
			Endpoint:    "0.0.0.0:4317",
			SampleRatio: 0.2,
			ServiceName: "docpipe",
		},
		Metrics: MetricConfig{
			Enabled:  false,
			Textfile: "docpipe.prom",
		},
	}
}
