package modules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

type moduleEnv struct {
	pipeline.ExecEnv
	module *pipeline.Module
}

func (e moduleEnv) Module() *pipeline.Module {
	return e.module
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func inputModule(t *testing.T, options map[string]string) *pipeline.Module {
	t.Helper()
	m, err := NewRegistry().NewModule("input", InputTextType, options)
	require.NoError(t, err)
	return m
}

func TestInputTextStream(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":     "alpha",
		"b.txt":     "beta",
		"c.txt":     "gamma",
		"notes.md":  "ignored",
		"sub/d.txt": "delta",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.txt"), 0o755))

	m := inputModule(t, map[string]string{
		"files":        filepath.Join(dir, "*.txt") + ", " + filepath.Join(dir, "sub", "*.txt"),
		"archive_size": "2",
	})
	src, err := (&InputText{}).Stream(context.Background(), moduleEnv{module: m}, "corpus")
	require.NoError(t, err)

	meta := src.Metadata()
	require.Equal(t, "text_corpus", meta.Datatype)
	require.Equal(t, 4, src.Len())
	require.Equal(t, []string{"archive0000", "archive0001"}, src.Archives())
	require.True(t, meta.Complete)

	// read on demand
	require.NoError(t, os.Remove(filepath.Join(dir, "c.txt")))

	var keys []corpus.Key
	var texts []string
	for item, err := range src.Iter(context.Background(), corpus.IterOptions{}) {
		require.NoError(t, err)
		keys = append(keys, item.Key())
		if item.Doc.IsInvalid() {
			info, _ := item.Doc.Invalid()
			require.Equal(t, "input", info.Module)
			texts = append(texts, "<invalid>")
			continue
		}
		texts = append(texts, string(item.Doc.Data))
	}
	require.Equal(t, []corpus.Key{
		{Archive: "archive0000", Name: "a.txt"},
		{Archive: "archive0000", Name: "b.txt"},
		{Archive: "archive0001", Name: "c.txt"},
		{Archive: "archive0001", Name: "d.txt"},
	}, keys)
	require.Equal(t, []string{"alpha", "beta", "<invalid>", "delta"}, texts)

	var skipped []string
	for item, err := range src.Iter(context.Background(), corpus.IterOptions{StartAfter: &corpus.Key{Archive: "archive0000", Name: "b.txt"}}) {
		require.NoError(t, err)
		skipped = append(skipped, item.Name)
	}
	require.Equal(t, []string{"c.txt", "d.txt"}, skipped)
}

func TestInputTextDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"one/a.txt": "first",
		"two/a.txt": "second",
	})

	m := inputModule(t, map[string]string{"files": filepath.Join(dir, "*", "a.txt")})
	_, err := (&InputText{}).Stream(context.Background(), moduleEnv{module: m}, "corpus")
	require.ErrorContains(t, err, "have the same name")
}

func TestInputTextNotExecutable(t *testing.T) {
	m := inputModule(t, map[string]string{"files": "*.txt"})
	require.False(t, m.Executable())
	require.Error(t, m.Impl.Execute(context.Background(), moduleEnv{module: m}))
}
