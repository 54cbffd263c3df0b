package corpus

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/docpipe/docpipe/pkg/document"
)

// AlignedItem holds the documents sharing one key across several corpora.
type AlignedItem struct {
	Archive string
	Name    string
	// Docs holds one document per source, in source order.
	Docs []document.Document
}

// Aligned iterates over several sources in lock-step. The sources must have
// the same archives holding the same document names in the same order;
// otherwise iteration yields an error wrapping ErrCorpusAlignment.
func Aligned(ctx context.Context, sources []Source, opts IterOptions) iter.Seq2[AlignedItem, error] {
	return func(yield func(AlignedItem, error) bool) {
		if len(sources) == 0 {
			return
		}
		for i, src := range sources[1:] {
			if !slices.Equal(sources[0].Archives(), src.Archives()) {
				yield(AlignedItem{}, fmt.Errorf("%w: source %d has different archives", ErrCorpusAlignment, i+1))
				return
			}
		}

		type pulled struct {
			next func() (Item, error, bool)
			stop func()
		}
		iters := make([]pulled, len(sources))
		for i, src := range sources {
			next, stop := iter.Pull2(src.Iter(ctx, opts))
			iters[i] = pulled{next: next, stop: stop}
		}
		defer func() {
			for _, it := range iters {
				it.stop()
			}
		}()

		for {
			item := AlignedItem{Docs: make([]document.Document, len(sources))}
			ended, keyed := 0, false
			for i, it := range iters {
				next, err, ok := it.next()
				if !ok {
					ended++
					continue
				}
				if err != nil {
					yield(AlignedItem{}, err)
					return
				}
				if !keyed {
					item.Archive, item.Name, keyed = next.Archive, next.Name, true
				} else if next.Archive != item.Archive || next.Name != item.Name {
					yield(AlignedItem{}, fmt.Errorf("%w: expected %s/%s, found %s/%s in source %d",
						ErrCorpusAlignment, item.Archive, item.Name, next.Archive, next.Name, i))
					return
				}
				item.Docs[i] = next.Doc
			}

			switch ended {
			case 0:
				if !yield(item, nil) {
					return
				}
			case len(iters):
				return
			default:
				yield(AlignedItem{}, fmt.Errorf("%w: sources have different lengths", ErrCorpusAlignment))
				return
			}
		}
	}
}
