package docmap

import (
	"context"

	"github.com/sourcegraph/conc/panics"

	"github.com/docpipe/docpipe/pkg/document"
)

// SkipInvalid wraps fn so that a unit with an invalid input is passed to the
// outputs unchanged and fn is not called for it.
func SkipInvalid[W any](fn TransformFunc[W]) TransformFunc[W] {
	return func(ctx context.Context, worker W, u Unit) ([]document.Document, error) {
		for _, doc := range u.Docs {
			if doc.IsInvalid() {
				return []document.Document{doc}, nil
			}
		}
		return fn(ctx, worker, u)
	}
}

// InvalidOnError wraps fn so that an error or panic becomes an invalid
// document naming module and carrying the error text. Cancellation is never
// downgraded.
func InvalidOnError[W any](module string, fn TransformFunc[W]) TransformFunc[W] {
	return func(ctx context.Context, worker W, u Unit) (docs []document.Document, err error) {
		if r := panics.Try(func() { docs, err = fn(ctx, worker, u) }); r != nil {
			err = r.AsError()
		}
		if err == nil {
			return docs, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return []document.Document{document.NewInvalid(module, err.Error())}, nil
	}
}

// Func adapts a stateless single-input, single-output function.
func Func(fn func(ctx context.Context, doc document.Document) (document.Document, error)) TransformFunc[struct{}] {
	return func(ctx context.Context, _ struct{}, u Unit) ([]document.Document, error) {
		doc, err := fn(ctx, u.Doc())
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}
}

// Typed adapts a function over decoded values of the first input to a
// transform with one output. Invalid inputs fail with
// document.ErrInvalidDocument unless the result is wrapped in SkipInvalid.
func Typed[W, In, Out any](
	in document.Codec[In],
	out document.Codec[Out],
	fn func(ctx context.Context, worker W, name string, v In) (Out, error),
) TransformFunc[W] {
	return func(ctx context.Context, worker W, u Unit) ([]document.Document, error) {
		v, err := document.Decode(in, u.Doc())
		if err != nil {
			return nil, err
		}
		res, err := fn(ctx, worker, u.Name, v)
		if err != nil {
			return nil, err
		}
		doc, err := document.Encode(out, res)
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}
}
