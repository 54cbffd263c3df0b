package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/logger"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

const removeMaxElapsed = 5 * time.Second

type TrackerOption func(*Tracker)

func WithLogger(l logger.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker persists module execution state under
// <storage root>/<variant>/<module>.
type Tracker struct {
	root     string
	pipeline *pipeline.Pipeline
	logger   logger.Logger
	now      func() time.Time

	// mu serialises metadata read-modify-write cycles.
	mu sync.Mutex
}

func NewTracker(storageRoot string, p *pipeline.Pipeline, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		root:     filepath.Join(storageRoot, p.Variant),
		pipeline: p,
		logger:   logger.NewNoopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Root returns the directory holding the module directories of the
// pipeline's variant.
func (t *Tracker) Root() string {
	return t.root
}

func (t *Tracker) ModuleDir(module string) string {
	return filepath.Join(t.root, module)
}

func (t *Tracker) OutputDir(module, output string) string {
	return filepath.Join(t.root, module, output)
}

// Metadata returns the module's persisted metadata. A module that has never
// run reports UNEXECUTED.
func (t *Tracker) Metadata(module string) (Metadata, error) {
	return readMetadata(t.ModuleDir(module))
}

func (t *Tracker) Status(module string) (Status, error) {
	meta, err := t.Metadata(module)
	if err != nil {
		return "", err
	}
	return meta.Status, nil
}

// Running reports whether the module carries a run marker.
func (t *Tracker) Running(module string) bool {
	_, err := os.Stat(filepath.Join(t.ModuleDir(module), RunMarker))
	return err == nil
}

// Begin marks the module STARTED under the given run ID. It fails with
// ErrAlreadyRunning when another run's marker is present.
func (t *Tracker) Begin(module, runID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := t.ModuleDir(module)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, RunMarker), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, module)
		}
		return err
	}
	now := t.now()
	err = json.NewEncoder(f).Encode(marker{RunID: runID, PID: os.Getpid(), Started: now})
	if err = errors.Join(err, f.Close()); err != nil {
		return err
	}

	meta := Metadata{Status: Started, RunID: runID, StartTime: &now}
	if err := writeMetadata(dir, meta); err != nil {
		return err
	}
	t.logger.Debug("module started", logger.Module(module), zap.String("run_id", runID))
	return appendHistory(dir, HistoryEntry{Time: now, Event: string(Started), Detail: runID})
}

// Progress records how many documents a running module has completed.
func (t *Tracker) Progress(module string, docsCompleted int, last corpus.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := t.ModuleDir(module)
	meta, err := readMetadata(dir)
	if err != nil {
		return err
	}
	if meta.Status != Started {
		return fmt.Errorf("%w: %s is %s", ErrNotStarted, module, meta.Status)
	}
	meta.DocsCompleted = docsCompleted
	meta.LastDocCompleted = &last
	return writeMetadata(dir, meta)
}

// Complete marks a started module COMPLETE and removes its run marker.
func (t *Tracker) Complete(module string, outputs map[string]OutputInfo) error {
	return t.finish(module, func(meta *Metadata) {
		meta.Status = Complete
		meta.Outputs = outputs
		meta.Error = ""
	}, "")
}

// Fail marks a started module FAILED and removes its run marker.
func (t *Tracker) Fail(module string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return t.finish(module, func(meta *Metadata) {
		meta.Status = Failed
		meta.Error = detail
	}, detail)
}

func (t *Tracker) finish(module string, update func(*Metadata), detail string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := t.ModuleDir(module)
	meta, err := readMetadata(dir)
	if err != nil {
		return err
	}
	if meta.Status != Started {
		return fmt.Errorf("%w: %s is %s", ErrNotStarted, module, meta.Status)
	}

	now := t.now()
	meta.EndTime = &now
	update(&meta)
	if err := writeMetadata(dir, meta); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, RunMarker)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	t.logger.Debug("module finished", logger.Module(module), zap.String("status", string(meta.Status)))
	return appendHistory(dir, HistoryEntry{Time: now, Event: string(meta.Status), Detail: detail})
}

// History returns the module's recorded status transitions, oldest first.
func (t *Tracker) History(module string) ([]HistoryEntry, error) {
	return readHistory(t.ModuleDir(module))
}

// ResetExecution returns the module to UNEXECUTED, deleting its outputs,
// metadata and run marker. The history is kept.
func (t *Tracker) ResetExecution(module string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := t.ModuleDir(module)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.Name() == HistoryFile {
			continue
		}
		if err := removeAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	t.logger.Info("module reset", logger.Module(module))
	return appendHistory(dir, HistoryEntry{Time: t.now(), Event: "RESET"})
}

// ResetAll resets every module of the pipeline.
func (t *Tracker) ResetAll() error {
	for _, m := range t.pipeline.Modules() {
		if err := t.ResetExecution(m.Name); err != nil {
			return err
		}
	}
	return nil
}

// ResetPlan returns the modules Reset would reset: the module itself and,
// unless noDeps is set, every module downstream of it that is not already
// UNEXECUTED. The result is in declaration order with module first.
func (t *Tracker) ResetPlan(module string, noDeps bool) ([]string, error) {
	if _, ok := t.pipeline.Module(module); !ok {
		return nil, fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, module)
	}
	plan := []string{module}
	if noDeps {
		return plan, nil
	}

	dependents, err := t.pipeline.DependentModules(module, true)
	if err != nil {
		return nil, err
	}
	for _, dep := range dependents {
		st, err := t.Status(dep)
		if err != nil {
			return nil, err
		}
		if st != Unexecuted || t.Running(dep) {
			plan = append(plan, dep)
		}
	}
	return plan, nil
}

// Reset resets the modules given by ResetPlan and returns them.
func (t *Tracker) Reset(module string, noDeps bool) ([]string, error) {
	plan, err := t.ResetPlan(module, noDeps)
	if err != nil {
		return nil, err
	}
	for _, m := range plan {
		if err := t.ResetExecution(m); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Orphans returns the directories under the variant root that belong to no
// module of the pipeline.
func (t *Tracker) Orphans() ([]string, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var orphans []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := t.pipeline.Module(e.Name()); !ok {
			orphans = append(orphans, e.Name())
		}
	}
	slices.Sort(orphans)
	return orphans, nil
}

// Clean removes orphaned module directories and returns their names.
func (t *Tracker) Clean() ([]string, error) {
	orphans, err := t.Orphans()
	if err != nil {
		return nil, err
	}
	for _, name := range orphans {
		if err := removeAll(filepath.Join(t.root, name)); err != nil {
			return nil, err
		}
		t.logger.Info("removed orphaned module directory", logger.Module(name))
	}
	return orphans, nil
}

// removeAll removes path, retrying with exponential backoff.
func removeAll(path string) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = removeMaxElapsed
	return backoff.Retry(
		func() error {
			return os.RemoveAll(path)
		},
		policy,
	)
}
