// Package modules provides the built-in module types.
package modules

import (
	"context"
	"fmt"
	"strconv"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/docmap"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

const (
	InputTextType    = "input_text"
	LowercaseType    = "lowercase"
	TokenizeType     = "tokenize"
	VocabCounterType = "vocab_counter"
)

// Register adds the built-in module types to r.
func Register(r *pipeline.Registry) error {
	factories := map[string]pipeline.Factory{
		InputTextType:    func() pipeline.ModuleType { return &InputText{} },
		LowercaseType:    func() pipeline.ModuleType { return &Lowercase{} },
		TokenizeType:     func() pipeline.ModuleType { return &Tokenize{} },
		VocabCounterType: func() pipeline.ModuleType { return &VocabCounter{} },
	}
	for _, typeID := range []string{InputTextType, LowercaseType, TokenizeType, VocabCounterType} {
		if err := r.Register(typeID, factories[typeID]); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in module types.
func NewRegistry() *pipeline.Registry {
	r := pipeline.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}

func validateInt(minimum int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n < minimum {
			return fmt.Errorf("must be at least %d", minimum)
		}
		return nil
	}
}

func validateBool(v string) error {
	_, err := strconv.ParseBool(v)
	return err
}

// mapDocuments runs a document map from the input slot to the output slot.
// The output keeps the archive layout of the first input source.
func mapDocuments[W any](ctx context.Context, env pipeline.ExecEnv, input, output string, spec docmap.Spec[W]) error {
	inputs, err := env.Inputs(ctx, input)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: input '%s' is not connected", docmap.ErrNoInputs, input)
	}

	var opts []corpus.WriterOption
	meta := inputs[0].Metadata()
	if meta.ArchiveSize > 0 {
		opts = append(opts, corpus.WithArchiveSize(meta.ArchiveSize))
	}
	if meta.Basename != "" {
		opts = append(opts, corpus.WithBasename(meta.Basename))
	}
	w, err := env.Output(output, opts...)
	if err != nil {
		return err
	}

	spec.Module = env.Module().Name
	spec.Inputs = inputs
	spec.Outputs = []docmap.Sink{w}
	spec.Processes = env.Processes()
	spec.ShutdownTimeout = env.ShutdownTimeout()
	spec.Logger = env.Logger()
	spec.Progress = env.RecordProgress
	_, err = docmap.Map(ctx, spec)
	return err
}
