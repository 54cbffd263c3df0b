package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
)

const readBufferSize = 64 * 1024

// Reader gives ordered and random access to a finished archive. Records
// appended after Open are not visible. A Reader is safe for concurrent use.
type Reader struct {
	path string
	data *os.File
	idx  *index
}

// Open opens the archive at path (without extension).
func Open(path string) (*Reader, error) {
	idx, err := loadIndex(path + IndexExt)
	if err != nil {
		return nil, err
	}
	data, err := os.Open(path + DataExt)
	if err != nil {
		return nil, err
	}

	info, err := data.Stat()
	if err != nil {
		_ = data.Close()
		return nil, err
	}
	if info.Size() < idx.end() {
		_ = data.Close()
		return nil, fmt.Errorf("%w: %s is shorter than its index", ErrCorruptArchive, path+DataExt)
	}

	return &Reader{path: path, data: data, idx: idx}, nil
}

// Path returns the archive path without extension.
func (r *Reader) Path() string {
	return r.path
}

func (r *Reader) Len() int {
	return len(r.idx.entries)
}

// Names returns the document names in storage order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.idx.entries))
	for i, e := range r.idx.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the index.
func (r *Reader) Entries() []IndexEntry {
	return slices.Clone(r.idx.entries)
}

// Lookup returns the index entry and position of the named document.
func (r *Reader) Lookup(name string) (IndexEntry, int, bool) {
	i, ok := r.idx.byName[name]
	if !ok {
		return IndexEntry{}, 0, false
	}
	return r.idx.entries[i], i, true
}

// Get reads the named record with a single read. The boolean is false when
// the archive holds no such document.
func (r *Reader) Get(name string) (Record, bool, error) {
	entry, _, ok := r.Lookup(name)
	if !ok {
		return Record{}, false, nil
	}

	buf := make([]byte, entry.End()-entry.MetaStart)
	if _, err := r.data.ReadAt(buf, entry.MetaStart); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: truncated record %q", ErrCorruptArchive, name)
		}
		return Record{}, true, err
	}

	rec, err := decodeRecord(buf)
	if err != nil {
		return Record{}, true, err
	}
	if err := checkRecord(entry, rec); err != nil {
		return Record{}, true, err
	}
	return rec, true, nil
}

// All iterates over every record in storage order.
func (r *Reader) All() iter.Seq2[Record, error] {
	return r.From(0)
}

// From iterates over records in storage order starting at position start.
// Iteration stops after the first error.
func (r *Reader) From(start int) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if start >= len(r.idx.entries) {
			return
		}
		start = max(start, 0)

		offset := r.idx.entries[start].MetaStart
		section := io.NewSectionReader(r.data, offset, r.idx.end()-offset)
		br := bufio.NewReaderSize(section, readBufferSize)

		for _, entry := range r.idx.entries[start:] {
			rec, err := readRecord(br, entry)
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: truncated record %q", ErrCorruptArchive, entry.Name)
			}
			if err == nil {
				err = checkRecord(entry, rec)
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (r *Reader) Close() error {
	return r.data.Close()
}

func checkRecord(entry IndexEntry, rec Record) error {
	if rec.Name != entry.Name {
		return fmt.Errorf("%w: record %q found where index expects %q", ErrCorruptArchive, rec.Name, entry.Name)
	}
	return entry.verify(rec.Data)
}
