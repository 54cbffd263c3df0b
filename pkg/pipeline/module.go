//go:generate mockgen -source module.go -destination ../../internal/mocks/mock_module.go -package mocks

package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/datatype"
	"github.com/docpipe/docpipe/pkg/logger"
)

// InputSlot is a named module input and the capabilities it requires.
type InputSlot struct {
	Name        string
	Requirement datatype.Requirement
	// Multiple allows more than one producer to feed the slot.
	Multiple bool
	Optional bool
}

// OutputSlot is a named module output and the datatype it produces.
type OutputSlot struct {
	Name     string
	Datatype datatype.Datatype
}

// OptionSpec declares an option a module type accepts.
type OptionSpec struct {
	Name     string
	Help     string
	Default  string
	Required bool
	// Validate, if set, checks a supplied or defaulted value.
	Validate func(string) error
}

// ModuleType is implemented by every kind of processing module.
type ModuleType interface {
	Inputs() []InputSlot
	// Outputs lists the outputs; the first is the default output.
	Outputs() []OutputSlot
	Options() []OptionSpec
	// Executable reports whether the module stores its outputs. Modules that
	// are not executable must implement Filter and produce their outputs on
	// demand.
	Executable() bool
	Execute(ctx context.Context, env ExecEnv) error
}

// Filter is implemented by non-executable modules whose outputs are computed
// while being read.
type Filter interface {
	Stream(ctx context.Context, env ExecEnv, output string) (corpus.Source, error)
}

// ExecEnv is what a module sees of the run driving it.
type ExecEnv interface {
	Module() *Module
	Option(name string) string
	// Inputs returns the sources connected to an input slot, in connection
	// order.
	Inputs(ctx context.Context, slot string) ([]corpus.Source, error)
	// Output opens the writer for an output slot. The writer is owned by the
	// run and must not be closed by the module.
	Output(slot string, opts ...corpus.WriterOption) (*corpus.Writer, error)
	Processes() int
	// ShutdownTimeout bounds how long a failing execution waits for its
	// workers to stop.
	ShutdownTimeout() time.Duration
	Logger() logger.Logger
	// RecordProgress persists how far a long-running execution has got.
	RecordProgress(docsCompleted int, last corpus.Key) error
}

// Module is a named instance of a module type within a pipeline.
type Module struct {
	Name    string
	Type    string
	Options map[string]string
	Impl    ModuleType
}

func (m *Module) Executable() bool {
	return m.Impl.Executable()
}

func (m *Module) Input(name string) (InputSlot, bool) {
	for _, in := range m.Impl.Inputs() {
		if in.Name == name {
			return in, true
		}
	}
	return InputSlot{}, false
}

// Output returns the named output, or the default output when name is empty.
func (m *Module) Output(name string) (OutputSlot, bool) {
	outputs := m.Impl.Outputs()
	if name == "" {
		if len(outputs) == 0 {
			return OutputSlot{}, false
		}
		return outputs[0], true
	}
	for _, out := range outputs {
		if out.Name == name {
			return out, true
		}
	}
	return OutputSlot{}, false
}

func (m *Module) Option(name string) string {
	return m.Options[name]
}

func (m *Module) IntOption(name string) (int, error) {
	v, err := strconv.Atoi(m.Options[name])
	if err != nil {
		return 0, fmt.Errorf("%w: %s.%s: %w", ErrInvalidOption, m.Name, name, err)
	}
	return v, nil
}

func (m *Module) BoolOption(name string) (bool, error) {
	v, err := strconv.ParseBool(m.Options[name])
	if err != nil {
		return false, fmt.Errorf("%w: %s.%s: %w", ErrInvalidOption, m.Name, name, err)
	}
	return v, nil
}

// resolveOptions checks supplied options against specs and fills defaults.
func resolveOptions(module string, specs []OptionSpec, supplied map[string]string) (map[string]string, error) {
	known := make(map[string]OptionSpec, len(specs))
	for _, spec := range specs {
		known[spec.Name] = spec
	}
	for name := range supplied {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: module '%s' has no option '%s'", ErrInvalidOption, module, name)
		}
	}

	resolved := make(map[string]string, len(specs))
	for _, spec := range specs {
		v, ok := supplied[spec.Name]
		if !ok {
			if spec.Required {
				return nil, fmt.Errorf("%w: module '%s' requires option '%s'", ErrInvalidOption, module, spec.Name)
			}
			v = spec.Default
		}
		if spec.Validate != nil {
			if err := spec.Validate(v); err != nil {
				return nil, fmt.Errorf("%w: %s.%s=%q: %w", ErrInvalidOption, module, spec.Name, v, err)
			}
		}
		resolved[spec.Name] = v
	}
	return resolved, nil
}
