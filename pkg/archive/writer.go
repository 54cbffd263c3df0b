package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Writer appends records to an archive. A Writer is not safe for concurrent
// use.
type Writer struct {
	path  string
	data  *os.File
	index *os.File

	entries   int
	offset    int64
	indexSize int64
	names     map[string]struct{}
	closed    bool
}

// Create creates a new empty archive at path (without extension), replacing
// any existing one.
func Create(path string) (*Writer, error) {
	data, err := os.OpenFile(path+DataExt, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	index, err := os.OpenFile(path+IndexExt, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = data.Close()
		return nil, err
	}

	return &Writer{
		path:  path,
		data:  data,
		index: index,
		names: map[string]struct{}{},
	}, nil
}

// Append reopens an existing archive for writing. Bytes left after the last
// indexed record by an interrupted write are discarded.
func Append(path string) (*Writer, error) {
	idx, err := loadIndex(path + IndexExt)
	if err != nil {
		return nil, err
	}

	data, err := os.OpenFile(path+DataExt, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	index, err := os.OpenFile(path+IndexExt, os.O_RDWR, 0o644)
	if err != nil {
		_ = data.Close()
		return nil, err
	}

	w := &Writer{
		path:      path,
		data:      data,
		index:     index,
		entries:   len(idx.entries),
		offset:    idx.end(),
		indexSize: idx.size,
		names:     make(map[string]struct{}, len(idx.entries)),
	}
	for name := range idx.byName {
		w.names[name] = struct{}{}
	}

	info, err := data.Stat()
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if info.Size() < w.offset {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %s is shorter than its index", ErrCorruptArchive, path+DataExt)
	}
	if err := w.truncate(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the archive path without extension.
func (w *Writer) Path() string {
	return w.path
}

// Len returns the number of records in the archive.
func (w *Writer) Len() int {
	return w.entries
}

// Has reports whether a record with the given name has been written.
func (w *Writer) Has(name string) bool {
	_, ok := w.names[name]
	return ok
}

// Add appends a record. If the write fails part way the archive is truncated
// back to its state before the call.
func (w *Writer) Add(h Header, data []byte) error {
	if w.closed {
		return ErrClosed
	}
	if err := validateName(h.Name); err != nil {
		return err
	}
	if w.Has(h.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, h.Name)
	}

	buf, dataOffset, err := encodeRecord(h, data)
	if err != nil {
		return err
	}

	entry := IndexEntry{
		Name:      h.Name,
		MetaStart: w.offset,
		DataStart: w.offset + dataOffset,
		Length:    int64(len(data)),
		Checksum:  xxhash.Sum64(data),
	}
	line := entry.line()

	if _, err := w.data.WriteAt(buf, w.offset); err != nil {
		return errors.Join(err, w.truncate())
	}
	if _, err := w.index.WriteAt([]byte(line), w.indexSize); err != nil {
		return errors.Join(err, w.truncate())
	}

	w.offset += int64(len(buf))
	w.indexSize += int64(len(line))
	w.entries++
	w.names[h.Name] = struct{}{}
	return nil
}

// Flush commits written records to stable storage.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return errors.Join(w.data.Sync(), w.index.Sync())
}

// Close flushes and closes the archive. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(w.data.Sync(), w.index.Sync(), w.data.Close(), w.index.Close())
}

func (w *Writer) truncate() error {
	return errors.Join(w.data.Truncate(w.offset), w.index.Truncate(w.indexSize))
}
