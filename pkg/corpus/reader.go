package corpus

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docpipe/docpipe/pkg/archive"
	"github.com/docpipe/docpipe/pkg/document"
)

const defaultReaderCacheSize = 8

// Key identifies a document within a corpus.
type Key struct {
	Archive string
	Name    string
}

// Item is a document yielded by corpus iteration.
type Item struct {
	Archive string
	Name    string
	Doc     document.Document
}

func (i Item) Key() Key {
	return Key{Archive: i.Archive, Name: i.Name}
}

// IterOptions restrict which documents an iteration yields.
type IterOptions struct {
	// StartAfter begins iteration with the document following this one.
	StartAfter *Key
	// Skip drops this many documents from the start. Ignored when StartAfter
	// is set.
	Skip int
	// Filter, if set, drops documents for which it returns false. It is
	// applied after StartAfter and Skip.
	Filter func(archive, name string) bool
}

// Source is an ordered, grouped stream of documents. Stored corpora and
// streaming filters both implement it.
type Source interface {
	Metadata() Metadata
	Archives() []string
	Len() int
	Iter(ctx context.Context, opts IterOptions) iter.Seq2[Item, error]
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithCacheSize sets how many archives Get keeps open.
func WithCacheSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// Reader reads a completely written corpus.
type Reader struct {
	dir  string
	meta Metadata

	cacheSize int
	// mu serialises Get so a cached archive is never evicted mid-read.
	mu    sync.Mutex
	cache *lru.Cache[string, *archive.Reader]
}

var _ Source = (*Reader)(nil)

// Open opens the corpus in dir. Corpora that were not closed successfully
// are refused with ErrIncomplete.
func Open(dir string, opts ...ReaderOption) (*Reader, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if !meta.Complete {
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, dir)
	}

	r := &Reader{dir: dir, meta: meta, cacheSize: defaultReaderCacheSize}
	for _, opt := range opts {
		opt(r)
	}

	r.cache, err = lru.NewWithEvict(r.cacheSize, func(_ string, ar *archive.Reader) {
		_ = ar.Close()
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) Dir() string {
	return r.dir
}

func (r *Reader) Metadata() Metadata {
	meta := r.meta
	meta.Archives = append([]string(nil), r.meta.Archives...)
	return meta
}

func (r *Reader) Archives() []string {
	return append([]string(nil), r.meta.Archives...)
}

func (r *Reader) Len() int {
	return r.meta.Length
}

// Get fetches a single document. The boolean is false when the corpus has no
// such document.
func (r *Reader) Get(archiveName, name string) (document.Document, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ar, ok := r.cache.Get(archiveName)
	if !ok {
		if !r.hasArchive(archiveName) {
			return document.Document{}, false, nil
		}
		var err error
		ar, err = archive.Open(filepath.Join(r.dir, archiveName))
		if err != nil {
			return document.Document{}, false, err
		}
		r.cache.Add(archiveName, ar)
	}

	rec, found, err := ar.Get(name)
	if err != nil || !found {
		return document.Document{}, found, err
	}
	doc, err := toDocument(rec)
	if err != nil {
		return document.Document{}, true, err
	}
	return doc, true, nil
}

// Names returns the document names of one archive in storage order.
func (r *Reader) Names(archiveName string) ([]string, error) {
	if !r.hasArchive(archiveName) {
		return nil, fmt.Errorf("%w: archive %s in %s", ErrNotFound, archiveName, r.dir)
	}
	ar, err := archive.Open(filepath.Join(r.dir, archiveName))
	if err != nil {
		return nil, err
	}
	defer ar.Close()
	return ar.Names(), nil
}

// Iter yields documents in storage order. Each iteration opens its own
// archive handles, so iterations may run concurrently.
func (r *Reader) Iter(ctx context.Context, opts IterOptions) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		startAfter := opts.StartAfter
		skip := opts.Skip
		if startAfter != nil {
			skip = 0
		}

		for _, archiveName := range r.meta.Archives {
			if startAfter != nil && startAfter.Archive != archiveName {
				continue
			}

			ar, err := archive.Open(filepath.Join(r.dir, archiveName))
			if err != nil {
				yield(Item{}, err)
				return
			}

			start := 0
			if startAfter != nil {
				_, pos, ok := ar.Lookup(startAfter.Name)
				if !ok {
					_ = ar.Close()
					yield(Item{}, fmt.Errorf("%w: start document %s/%s", ErrNotFound, startAfter.Archive, startAfter.Name))
					return
				}
				start = pos + 1
				startAfter = nil
			}
			if skip > 0 {
				n := min(skip, ar.Len()-start)
				start += n
				skip -= n
			}

			cont := r.yieldArchive(ctx, archiveName, ar, start, opts.Filter, yield)
			_ = ar.Close()
			if !cont {
				return
			}
		}
		if startAfter != nil {
			yield(Item{}, fmt.Errorf("%w: start archive %s", ErrNotFound, startAfter.Archive))
		}
	}
}

func (r *Reader) yieldArchive(
	ctx context.Context,
	archiveName string,
	ar *archive.Reader,
	start int,
	filter func(archive, name string) bool,
	yield func(Item, error) bool,
) bool {
	for rec, err := range ar.From(start) {
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			yield(Item{}, fmt.Errorf("read %s in %s: %w", archiveName, r.dir, err))
			return false
		}
		if filter != nil && !filter(archiveName, rec.Name) {
			continue
		}

		doc, err := toDocument(rec)
		if err != nil {
			yield(Item{}, fmt.Errorf("decode %s/%s: %w", archiveName, rec.Name, err))
			return false
		}
		if !yield(Item{Archive: archiveName, Name: rec.Name, Doc: doc}, nil) {
			return false
		}
	}
	return true
}

// Close releases the archives held open by Get.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
	return nil
}

func (r *Reader) hasArchive(name string) bool {
	return slices.Contains(r.meta.Archives, name)
}

func toDocument(rec archive.Record) (document.Document, error) {
	data := rec.Data
	if rec.Gzip {
		var err error
		if data, err = decompress(data); err != nil {
			return document.Document{}, err
		}
	}
	return document.FromRecord(data, rec.Invalid), nil
}
