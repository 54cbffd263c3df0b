package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDocument is returned when decoding an Invalid sentinel as if it
// were a payload.
var ErrInvalidDocument = errors.New("document is invalid")

// Codec converts between typed document values and their stored bytes.
type Codec[T any] interface {
	// Name identifies the codec in datatype descriptors.
	Name() string
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

const (
	RawCodecName    = "raw"
	TextCodecName   = "text"
	JSONCodecName   = "json"
	TokensCodecName = "tokens"
)

// Decode decodes a stored document with the given codec. Invalid documents
// are reported with ErrInvalidDocument rather than decoded.
func Decode[T any](c Codec[T], d Document) (T, error) {
	if d.IsInvalid() {
		var zero T
		info, _ := d.Invalid()
		return zero, fmt.Errorf("%w: produced by %s", ErrInvalidDocument, info.Module)
	}
	return c.Decode(d.Data)
}

// Encode encodes v into a valid document.
func Encode[T any](c Codec[T], v T) (Document, error) {
	data, err := c.Encode(v)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s document: %w", c.Name(), err)
	}
	return New(data), nil
}

// Raw passes bytes through unchanged.
type Raw struct{}

func (Raw) Name() string                       { return RawCodecName }
func (Raw) Encode(v []byte) ([]byte, error)    { return v, nil }
func (Raw) Decode(data []byte) ([]byte, error) { return data, nil }

// Text stores UTF-8 text.
type Text struct{}

func (Text) Name() string                       { return TextCodecName }
func (Text) Encode(v string) ([]byte, error)    { return []byte(v), nil }
func (Text) Decode(data []byte) (string, error) { return string(data), nil }

// JSON stores any JSON-serialisable value.
type JSON[T any] struct{}

func (JSON[T]) Name() string { return JSONCodecName }

func (JSON[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Tokens stores tokenised text: one sentence per line, tokens separated by
// single spaces. Tokens must not contain whitespace.
type Tokens struct{}

func (Tokens) Name() string { return TokensCodecName }

func (Tokens) Encode(sentences [][]string) ([]byte, error) {
	var b strings.Builder
	for i, sentence := range sentences {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, tok := range sentence {
			if strings.ContainsAny(tok, " \t\n") {
				return nil, fmt.Errorf("token %q contains whitespace", tok)
			}
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(tok)
		}
	}
	return []byte(b.String()), nil
}

func (Tokens) Decode(data []byte) ([][]string, error) {
	if len(data) == 0 {
		return [][]string{}, nil
	}
	lines := strings.Split(string(data), "\n")
	sentences := make([][]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			sentences = append(sentences, []string{})
			continue
		}
		sentences = append(sentences, strings.Split(line, " "))
	}
	return sentences, nil
}
