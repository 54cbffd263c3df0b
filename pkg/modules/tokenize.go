package modules

import (
	"context"
	"strings"
	"unicode"

	"github.com/docpipe/docpipe/pkg/datatype"
	"github.com/docpipe/docpipe/pkg/docmap"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

// Tokenize splits text documents into sentences of whitespace- and
// punctuation-separated tokens.
type Tokenize struct{}

var _ pipeline.ModuleType = (*Tokenize)(nil)

func (*Tokenize) Inputs() []pipeline.InputSlot {
	return []pipeline.InputSlot{{Name: "text", Requirement: datatype.Require(datatype.Grouped, datatype.Text)}}
}

func (*Tokenize) Outputs() []pipeline.OutputSlot {
	return []pipeline.OutputSlot{{Name: "tokens", Datatype: datatype.TokenizedCorpus}}
}

func (*Tokenize) Options() []pipeline.OptionSpec {
	return []pipeline.OptionSpec{
		{
			Name:     "lowercase",
			Help:     "Lowercase tokens",
			Default:  "false",
			Validate: validateBool,
		},
	}
}

func (*Tokenize) Executable() bool {
	return true
}

func (*Tokenize) Execute(ctx context.Context, env pipeline.ExecEnv) error {
	lowercase, err := env.Module().BoolOption("lowercase")
	if err != nil {
		return err
	}

	split := func(_ context.Context, _ struct{}, _ string, text string) ([][]string, error) {
		return tokenize(text, lowercase), nil
	}
	transform := docmap.Typed(document.Text{}, document.Tokens{}, split)

	return mapDocuments(ctx, env, "text", "tokens", docmap.Spec[struct{}]{
		Transform: docmap.SkipInvalid(docmap.InvalidOnError(env.Module().Name, transform)),
	})
}

// tokenize splits text into sentences at line breaks and after tokens ending
// in '.', '!' or '?'. Leading and trailing punctuation is stripped from
// tokens.
func tokenize(text string, lowercase bool) [][]string {
	sentences := [][]string{}
	var current []string
	flush := func() {
		if len(current) > 0 {
			sentences = append(sentences, current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for _, field := range strings.Fields(line) {
			token := strings.TrimFunc(field, unicode.IsPunct)
			if lowercase {
				token = strings.ToLower(token)
			}
			if token != "" {
				current = append(current, token)
			}
			if strings.ContainsAny(field[len(field)-1:], ".!?") {
				flush()
			}
		}
		flush()
	}
	return sentences
}
