package corpus

import (
	"context"
	"fmt"
	"iter"
)

// Stream is a Source whose documents are produced while it is iterated,
// such as the output of a filter module. Generate must yield documents in
// the order described by Meta.
type Stream struct {
	Meta     Metadata
	Generate func(ctx context.Context) iter.Seq2[Item, error]
}

var _ Source = (*Stream)(nil)

func (s *Stream) Metadata() Metadata {
	return s.Meta
}

func (s *Stream) Archives() []string {
	return s.Meta.Archives
}

func (s *Stream) Len() int {
	return s.Meta.Length
}

func (s *Stream) Iter(ctx context.Context, opts IterOptions) iter.Seq2[Item, error] {
	return Restrict(ctx, s.Generate(ctx), opts)
}

// Restrict applies opts to an ordered document sequence, checking ctx
// between documents. It is the linear counterpart of Reader.Iter's
// index-based seeking.
func Restrict(ctx context.Context, seq iter.Seq2[Item, error], opts IterOptions) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		startAfter := opts.StartAfter
		skip := opts.Skip
		if startAfter != nil {
			skip = 0
		}

		for item, err := range seq {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(Item{}, err)
				return
			}

			if startAfter != nil {
				if item.Archive == startAfter.Archive && item.Name == startAfter.Name {
					startAfter = nil
				}
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			if opts.Filter != nil && !opts.Filter(item.Archive, item.Name) {
				continue
			}
			if !yield(item, nil) {
				return
			}
		}
		if startAfter != nil {
			yield(Item{}, fmt.Errorf("%w: start document %s/%s", ErrNotFound, startAfter.Archive, startAfter.Name))
		}
	}
}
