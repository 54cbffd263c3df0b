package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/pkg/document"
)

func docName(i int) string {
	return fmt.Sprintf("doc%05d", i)
}

func writeCorpus(t *testing.T, dir string, n int, opts ...WriterOption) {
	t.Helper()

	w, err := NewWriter(dir, opts...)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Add(docName(i), document.New([]byte(fmt.Sprintf("text %d", i)))))
	}
	require.Equal(t, n, w.Len())
	require.NoError(t, w.Close())
}

func collect(t *testing.T, src Source, opts IterOptions) []Item {
	t.Helper()

	var items []Item
	for item, err := range src.Iter(context.Background(), opts) {
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestArchiveRotation(t *testing.T) {
	tests := map[string]struct {
		n        int
		archives int
	}{
		`empty`:        {n: 0, archives: 0},
		`single`:       {n: 1, archives: 1},
		`one_short`:    {n: 999, archives: 1},
		`exactly_full`: {n: 1000, archives: 1},
		`several`:      {n: 2500, archives: 3},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			writeCorpus(t, dir, test.n, WithArchiveSize(1000))

			r, err := Open(dir)
			require.NoError(t, err)
			t.Cleanup(func() { _ = r.Close() })

			require.Len(t, r.Archives(), test.archives)
			require.Equal(t, test.n, r.Len())

			items := collect(t, r, IterOptions{})
			require.Len(t, items, test.n)
			for i, item := range items {
				require.Equal(t, docName(i), item.Name)
				require.Equal(t, fmt.Sprintf("archive%04d", i/1000), item.Archive)
				require.Equal(t, fmt.Sprintf("text %d", i), string(item.Doc.Data))
			}
		})
	}
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, 25, WithArchiveSize(10), WithGzip(true))

	r, err := Open(dir, WithCacheSize(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	for _, i := range []int{17, 3, 24, 9, 10} {
		doc, ok, err := r.Get(fmt.Sprintf("archive%04d", i/10), docName(i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("text %d", i), string(doc.Data))
	}

	_, ok, err := r.Get("archive0000", docName(15))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = r.Get("nope", docName(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidDocumentsPreserved(t *testing.T) {
	dir := t.TempDir()
	invalid := document.NewInvalid("tokenize", "boom")

	w, err := NewWriter(dir, WithGzip(true))
	require.NoError(t, err)
	require.NoError(t, w.Add("good", document.New([]byte("fine"))))
	require.NoError(t, w.Add("bad", invalid))
	require.NoError(t, w.Close())

	r, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	doc, ok, err := r.Get("archive0000", "bad")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, doc.Equal(invalid))
}

func TestIterOptions(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, 30, WithArchiveSize(10))

	r, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	t.Run("start_after", func(t *testing.T) {
		items := collect(t, r, IterOptions{StartAfter: &Key{Archive: "archive0001", Name: docName(14)}})
		require.Len(t, items, 15)
		require.Equal(t, docName(15), items[0].Name)
	})

	t.Run("start_after_last_in_archive", func(t *testing.T) {
		items := collect(t, r, IterOptions{StartAfter: &Key{Archive: "archive0000", Name: docName(9)}})
		require.Len(t, items, 20)
		require.Equal(t, "archive0001", items[0].Archive)
	})

	t.Run("skip_across_archives", func(t *testing.T) {
		items := collect(t, r, IterOptions{Skip: 12})
		require.Len(t, items, 18)
		require.Equal(t, docName(12), items[0].Name)
	})

	t.Run("filter", func(t *testing.T) {
		items := collect(t, r, IterOptions{Filter: func(archive, name string) bool {
			return archive == "archive0002"
		}})
		require.Len(t, items, 10)
	})

	t.Run("unknown_start", func(t *testing.T) {
		var iterErr error
		for _, err := range r.Iter(context.Background(), IterOptions{StartAfter: &Key{Archive: "archive0009", Name: "x"}}) {
			iterErr = err
		}
		require.ErrorIs(t, iterErr, ErrNotFound)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var iterErr error
		for _, err := range r.Iter(ctx, IterOptions{}) {
			iterErr = err
		}
		require.ErrorIs(t, iterErr, context.Canceled)
	})
}

func TestAddToArchive(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WithArchiveSize(2))
	require.NoError(t, err)

	require.NoError(t, w.AddToArchive("a", "1", document.New(nil)))
	require.NoError(t, w.AddToArchive("b", "2", document.New(nil)))
	require.NoError(t, w.AddToArchive("a", "3", document.New(nil)))
	require.ErrorIs(t, w.AddToArchive("a", "4", document.New(nil)), ErrArchiveFull)
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Add("5", document.New(nil)), ErrWriterClosed)

	r, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.Equal(t, []string{"a", "b"}, r.Archives())
	names, err := r.Names("a")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, names)
}

func TestAbortLeavesCorpusIncomplete(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.Add("1", document.New([]byte("x"))))
	require.NoError(t, w.Abort())

	require.False(t, Exists(dir))
	_, err = Open(dir)
	require.ErrorIs(t, err, ErrIncomplete)

	_, err = Open(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAligned(t *testing.T) {
	root := t.TempDir()
	a, b, c := filepath.Join(root, "a"), filepath.Join(root, "b"), filepath.Join(root, "c")
	writeCorpus(t, a, 15, WithArchiveSize(10))
	writeCorpus(t, b, 15, WithArchiveSize(10))
	writeCorpus(t, c, 14, WithArchiveSize(10))

	open := func(dir string) Source {
		r, err := Open(dir)
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		return r
	}

	var n int
	for item, err := range Aligned(context.Background(), []Source{open(a), open(b)}, IterOptions{}) {
		require.NoError(t, err)
		require.Len(t, item.Docs, 2)
		require.True(t, item.Docs[0].Equal(item.Docs[1]))
		n++
	}
	require.Equal(t, 15, n)

	var alignErr error
	for _, err := range Aligned(context.Background(), []Source{open(a), open(c)}, IterOptions{}) {
		if err != nil {
			alignErr = err
		}
	}
	require.ErrorIs(t, alignErr, ErrCorpusAlignment)
}

func TestTypedValues(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	tw := NewTypedWriter[[][]string](w, document.Tokens{})
	require.NoError(t, tw.AddValue("one", [][]string{{"a", "b"}}))
	require.NoError(t, tw.Add("two", document.NewInvalid("m", "e")))
	require.NoError(t, tw.Close())

	r, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	var got []TypedItem[[][]string]
	for item, err := range Values[[][]string](context.Background(), r, document.Tokens{}, IterOptions{}) {
		require.NoError(t, err)
		got = append(got, item)
	}
	require.Len(t, got, 2)
	require.Equal(t, [][]string{{"a", "b"}}, got[0].Value)
	require.True(t, got[1].Invalid)
}
