package modules

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/datatype"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

// InputText reads a set of text files as a corpus, one document per file.
// It stores nothing: the files are read whenever a consumer iterates.
type InputText struct{}

var (
	_ pipeline.ModuleType = (*InputText)(nil)
	_ pipeline.Filter     = (*InputText)(nil)
)

func (*InputText) Inputs() []pipeline.InputSlot {
	return nil
}

func (*InputText) Outputs() []pipeline.OutputSlot {
	return []pipeline.OutputSlot{{Name: "corpus", Datatype: datatype.TextCorpus}}
}

func (*InputText) Options() []pipeline.OptionSpec {
	return []pipeline.OptionSpec{
		{
			Name:     "files",
			Help:     "Comma-separated glob patterns of the files to read",
			Required: true,
		},
		{
			Name:     "archive_size",
			Help:     "Number of documents per archive",
			Default:  strconv.Itoa(corpus.DefaultArchiveSize),
			Validate: validateInt(1),
		},
	}
}

func (*InputText) Executable() bool {
	return false
}

func (*InputText) Execute(context.Context, pipeline.ExecEnv) error {
	return errors.New("input_text is read on demand and cannot be executed")
}

// Stream lists the matching files. A file that cannot be read becomes an
// invalid document.
func (t *InputText) Stream(_ context.Context, env pipeline.ExecEnv, _ string) (corpus.Source, error) {
	m := env.Module()
	archiveSize, err := m.IntOption("archive_size")
	if err != nil {
		return nil, err
	}
	files, err := t.files(m.Option("files"))
	if err != nil {
		return nil, err
	}

	archiveName := func(i int) string {
		return fmt.Sprintf("%s%04d", corpus.DefaultBasename, i/archiveSize)
	}
	meta := corpus.Metadata{
		Datatype:    datatype.TextCorpus.Name,
		Length:      len(files),
		Archives:    []string{},
		ArchiveSize: archiveSize,
		Basename:    corpus.DefaultBasename,
		Complete:    true,
	}
	for i := 0; i < len(files); i += archiveSize {
		meta.Archives = append(meta.Archives, archiveName(i))
	}

	return &corpus.Stream{
		Meta: meta,
		Generate: func(context.Context) iter.Seq2[corpus.Item, error] {
			return func(yield func(corpus.Item, error) bool) {
				for i, path := range files {
					doc := document.New(nil)
					data, err := os.ReadFile(path)
					if err != nil {
						doc = document.NewInvalid(m.Name, err.Error())
					} else {
						doc.Data = data
					}
					item := corpus.Item{Archive: archiveName(i), Name: filepath.Base(path), Doc: doc}
					if !yield(item, nil) {
						return
					}
				}
			}
		},
	}, nil
}

// files expands the comma-separated patterns into a sorted list of files with
// unique base names.
func (*InputText) files(patterns string) ([]string, error) {
	var files []string
	for _, pattern := range strings.Split(patterns, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && !info.IsDir() {
				files = append(files, match)
			}
		}
	}
	slices.Sort(files)
	files = slices.Compact(files)

	seen := make(map[string]string, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		if other, ok := seen[base]; ok {
			return nil, fmt.Errorf("files %s and %s have the same name", other, f)
		}
		seen[base] = f
	}
	return files, nil
}
