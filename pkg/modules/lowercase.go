package modules

import (
	"bytes"
	"context"

	"github.com/docpipe/docpipe/pkg/datatype"
	"github.com/docpipe/docpipe/pkg/docmap"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

// Lowercase lowercases every text document.
type Lowercase struct{}

var _ pipeline.ModuleType = (*Lowercase)(nil)

func (*Lowercase) Inputs() []pipeline.InputSlot {
	return []pipeline.InputSlot{{Name: "text", Requirement: datatype.Require(datatype.Grouped, datatype.Text)}}
}

func (*Lowercase) Outputs() []pipeline.OutputSlot {
	return []pipeline.OutputSlot{{Name: "text", Datatype: datatype.TextCorpus}}
}

func (*Lowercase) Options() []pipeline.OptionSpec {
	return nil
}

func (*Lowercase) Executable() bool {
	return true
}

func (*Lowercase) Execute(ctx context.Context, env pipeline.ExecEnv) error {
	return mapDocuments(ctx, env, "text", "text", docmap.Spec[struct{}]{
		Transform: docmap.SkipInvalid(docmap.Func(lower)),
	})
}

func lower(_ context.Context, doc document.Document) (document.Document, error) {
	return document.New(bytes.ToLower(doc.Data)), nil
}
