package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/docpipe/docpipe/pkg/archive"
	"github.com/docpipe/docpipe/pkg/document"
	"github.com/docpipe/docpipe/pkg/logger"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithArchiveSize sets the maximum number of documents per archive.
func WithArchiveSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.meta.ArchiveSize = n
		}
	}
}

// WithBasename sets the prefix of generated archive names.
func WithBasename(basename string) WriterOption {
	return func(w *Writer) {
		if basename != "" {
			w.meta.Basename = basename
		}
	}
}

// WithGzip compresses each stored document.
func WithGzip(gzip bool) WriterOption {
	return func(w *Writer) {
		w.meta.Gzip = gzip
	}
}

// WithDatatype records the datatype name in the corpus metadata.
func WithDatatype(name string) WriterOption {
	return func(w *Writer) {
		w.meta.Datatype = name
	}
}

func WithWriterLogger(l logger.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = l
	}
}

// Writer builds a corpus in a directory. Documents are appended to the
// current archive until it holds ArchiveSize documents, then a new archive
// is started. The corpus is only marked complete by Close.
type Writer struct {
	dir    string
	meta   Metadata
	logger logger.Logger

	current     *archive.Writer
	currentName string
	counts      map[string]int
	closed      bool
}

// NewWriter clears dir and starts writing a new corpus into it.
func NewWriter(dir string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dir: dir,
		meta: Metadata{
			ArchiveSize: DefaultArchiveSize,
			Basename:    DefaultBasename,
			Archives:    []string{},
		},
		logger: logger.NewNoopLogger(),
		counts: map[string]int{},
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := writeMetadata(dir, w.meta); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// Len returns the number of documents written so far.
func (w *Writer) Len() int {
	return w.meta.Length
}

// Metadata returns the metadata as it stands.
func (w *Writer) Metadata() Metadata {
	meta := w.meta
	meta.Archives = append([]string(nil), w.meta.Archives...)
	return meta
}

// Add appends a document to the current archive, starting a new archive
// when the current one is full.
func (w *Writer) Add(name string, doc document.Document) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.current == nil || w.counts[w.currentName] >= w.meta.ArchiveSize {
		if err := w.switchTo(w.nextArchiveName()); err != nil {
			return err
		}
	}
	return w.add(name, doc)
}

// AddToArchive appends a document to the named archive. Archives are
// created in the order they are first named. Returns ErrArchiveFull when the
// archive already holds ArchiveSize documents.
func (w *Writer) AddToArchive(archiveName, name string, doc document.Document) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.counts[archiveName] >= w.meta.ArchiveSize {
		return fmt.Errorf("%w: %s", ErrArchiveFull, archiveName)
	}
	if w.current == nil || w.currentName != archiveName {
		if err := w.switchTo(archiveName); err != nil {
			return err
		}
	}
	return w.add(name, doc)
}

func (w *Writer) add(name string, doc document.Document) error {
	data := doc.Data
	header := archive.Header{Name: name, Invalid: doc.IsInvalid()}
	if w.meta.Gzip && !doc.IsInvalid() {
		compressed, err := compress(data)
		if err != nil {
			return err
		}
		data = compressed
		header.Gzip = true
	}

	if err := w.current.Add(header, data); err != nil {
		return fmt.Errorf("add %s/%s: %w", w.currentName, name, err)
	}
	w.counts[w.currentName]++
	w.meta.Length++
	return nil
}

func (w *Writer) nextArchiveName() string {
	for i := len(w.meta.Archives); ; i++ {
		name := fmt.Sprintf("%s%04d", w.meta.Basename, i)
		if _, ok := w.counts[name]; !ok {
			return name
		}
	}
}

// switchTo closes the current archive and opens the named one, reopening it
// for append if it was written to before.
func (w *Writer) switchTo(name string) error {
	if err := w.closeCurrent(); err != nil {
		return err
	}

	path := filepath.Join(w.dir, name)
	var (
		aw  *archive.Writer
		err error
	)
	if _, seen := w.counts[name]; seen {
		aw, err = archive.Append(path)
	} else {
		aw, err = archive.Create(path)
		if err == nil {
			w.counts[name] = 0
			w.meta.Archives = append(w.meta.Archives, name)
		}
	}
	if err != nil {
		return fmt.Errorf("open archive %s: %w", name, err)
	}

	w.logger.Debug("switched archive", zap.String("dir", w.dir), zap.String("archive", name))
	w.current = aw
	w.currentName = name
	return nil
}

func (w *Writer) closeCurrent() error {
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	w.currentName = ""
	return err
}

// Close finalises the corpus and marks it complete. Closing twice is a
// no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.closeCurrent(); err != nil {
		return err
	}
	w.meta.Complete = true
	return writeMetadata(w.dir, w.meta)
}

// Abort closes the corpus leaving it marked incomplete.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.meta.Complete = false
	return errors.Join(w.closeCurrent(), writeMetadata(w.dir, w.meta))
}
