package modules

import (
	"cmp"
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/datatype"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

const (
	vocabDocName          = "vocab"
	vocabProgressInterval = 1000
)

// TermCount is one vocabulary entry.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Vocab is the single document written by VocabCounter. Terms are ordered by
// descending count, then by term.
type Vocab struct {
	Documents int         `json:"documents"`
	Terms     []TermCount `json:"terms"`
}

// VocabCounter counts token frequencies over one or more tokenized corpora.
// Invalid documents are skipped.
type VocabCounter struct{}

var _ pipeline.ModuleType = (*VocabCounter)(nil)

func (*VocabCounter) Inputs() []pipeline.InputSlot {
	return []pipeline.InputSlot{{
		Name:        "tokens",
		Requirement: datatype.Require(datatype.Tokenized),
		Multiple:    true,
	}}
}

func (*VocabCounter) Outputs() []pipeline.OutputSlot {
	return []pipeline.OutputSlot{{Name: "vocab", Datatype: datatype.VocabCounts}}
}

func (*VocabCounter) Options() []pipeline.OptionSpec {
	return []pipeline.OptionSpec{
		{
			Name:     "min_count",
			Help:     "Drop terms seen fewer times than this",
			Default:  "1",
			Validate: validateInt(1),
		},
	}
}

func (*VocabCounter) Executable() bool {
	return true
}

func (*VocabCounter) Execute(ctx context.Context, env pipeline.ExecEnv) error {
	minCount, err := env.Module().IntOption("min_count")
	if err != nil {
		return err
	}
	inputs, err := env.Inputs(ctx, "tokens")
	if err != nil {
		return err
	}

	counts := map[string]int{}
	docs, skipped := 0, 0
	for _, src := range inputs {
		for item, err := range corpus.Values(ctx, src, document.Tokens{}, corpus.IterOptions{}) {
			if err != nil {
				return err
			}
			if item.Invalid {
				skipped++
				continue
			}
			for _, sentence := range item.Value {
				for _, token := range sentence {
					counts[token]++
				}
			}

			docs++
			if docs%vocabProgressInterval == 0 {
				if err := env.RecordProgress(docs, corpus.Key{Archive: item.Archive, Name: item.Name}); err != nil {
					return err
				}
			}
		}
	}

	vocab := Vocab{Documents: docs, Terms: []TermCount{}}
	for term, count := range counts {
		if count >= minCount {
			vocab.Terms = append(vocab.Terms, TermCount{Term: term, Count: count})
		}
	}
	slices.SortFunc(vocab.Terms, func(a, b TermCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Term, b.Term))
	})

	w, err := env.Output("vocab")
	if err != nil {
		return err
	}
	env.Logger().Info("vocabulary counted",
		zap.Int("documents", docs),
		zap.Int("skipped", skipped),
		zap.Int("terms", len(vocab.Terms)),
		zap.Int("min_count", minCount),
	)
	return corpus.NewTypedWriter(w, document.JSON[Vocab]{}).AddValue(vocabDocName, vocab)
}
