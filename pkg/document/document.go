// Package document defines the unit of data stored in a corpus: a document
// payload or an Invalid sentinel standing in for a document that some module
// failed to produce.
package document

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	invalidMarker       = "***** EMPTY DOCUMENT *****"
	invalidModulePrefix = "Empty document due to error in module: "
	invalidErrorHeader  = "Error output:"
)

// Document is a single stored document. The zero value is a valid, empty
// document.
type Document struct {
	// Data is the encoded payload. For an Invalid document it holds the
	// encoded sentinel, which is carried through untouched.
	Data []byte

	invalid bool
}

// InvalidInfo describes why a document is Invalid.
type InvalidInfo struct {
	Module string
	Cause  string
}

// New returns a valid document with the given payload.
func New(data []byte) Document {
	return Document{Data: data}
}

// NewInvalid returns an Invalid sentinel recording the module that failed and
// the cause of the failure.
func NewInvalid(module, cause string) Document {
	var b strings.Builder
	b.WriteString(invalidMarker)
	b.WriteByte('\n')
	b.WriteString(invalidModulePrefix)
	b.WriteString(module)
	b.WriteString("\n\n")
	b.WriteString(invalidErrorHeader)
	b.WriteByte('\n')
	b.WriteString(cause)
	return Document{Data: []byte(b.String()), invalid: true}
}

// FromRecord rebuilds a document read back from storage, where the invalid
// flag is kept next to the payload rather than inside it.
func FromRecord(data []byte, invalid bool) Document {
	return Document{Data: data, invalid: invalid}
}

// IsInvalid reports whether d is an Invalid sentinel.
func (d Document) IsInvalid() bool {
	return d.invalid
}

// Invalid returns the module and cause recorded in an Invalid sentinel. The
// second return value is false for valid documents.
func (d Document) Invalid() (InvalidInfo, bool) {
	if !d.invalid {
		return InvalidInfo{}, false
	}
	return parseInvalid(d.Data), true
}

// Equal reports whether two documents have the same validity and payload.
func (d Document) Equal(other Document) bool {
	return d.invalid == other.invalid && bytes.Equal(d.Data, other.Data)
}

func (d Document) String() string {
	if info, ok := d.Invalid(); ok {
		return fmt.Sprintf("Invalid(module=%s)", info.Module)
	}
	return fmt.Sprintf("Document(%d bytes)", len(d.Data))
}

func parseInvalid(data []byte) InvalidInfo {
	text := string(data)
	_, rest, found := strings.Cut(text, "\n")
	if !found {
		return InvalidInfo{}
	}
	moduleLine, rest, _ := strings.Cut(rest, "\n\n")
	info := InvalidInfo{Module: strings.TrimPrefix(moduleLine, invalidModulePrefix)}
	_, cause, _ := strings.Cut(rest, "\n")
	info.Cause = cause
	return info
}
