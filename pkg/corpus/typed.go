package corpus

import (
	"context"
	"iter"

	"github.com/docpipe/docpipe/pkg/document"
)

// TypedWriter encodes values with a codec before writing them.
type TypedWriter[T any] struct {
	*Writer
	codec document.Codec[T]
}

func NewTypedWriter[T any](w *Writer, codec document.Codec[T]) *TypedWriter[T] {
	return &TypedWriter[T]{Writer: w, codec: codec}
}

// AddValue encodes v and appends it as the named document.
func (w *TypedWriter[T]) AddValue(name string, v T) error {
	doc, err := document.Encode(w.codec, v)
	if err != nil {
		return err
	}
	return w.Add(name, doc)
}

// TypedItem is a decoded document. Value is the zero value when the stored
// document is Invalid.
type TypedItem[T any] struct {
	Archive string
	Name    string
	Value   T
	Invalid bool
}

// Values iterates over src decoding every valid document with codec. Invalid
// documents are yielded with Invalid set rather than decoded.
func Values[T any](ctx context.Context, src Source, codec document.Codec[T], opts IterOptions) iter.Seq2[TypedItem[T], error] {
	return func(yield func(TypedItem[T], error) bool) {
		for item, err := range src.Iter(ctx, opts) {
			if err != nil {
				yield(TypedItem[T]{}, err)
				return
			}

			typed := TypedItem[T]{Archive: item.Archive, Name: item.Name, Invalid: item.Doc.IsInvalid()}
			if !typed.Invalid {
				if typed.Value, err = codec.Decode(item.Doc.Data); err != nil {
					yield(TypedItem[T]{}, err)
					return
				}
			}
			if !yield(typed, nil) {
				return
			}
		}
	}
}
