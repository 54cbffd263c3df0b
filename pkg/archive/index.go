package archive

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IndexEntry locates one record in the payload file.
type IndexEntry struct {
	Name      string
	MetaStart int64
	DataStart int64
	Length    int64
	Checksum  uint64
}

// End is the offset just past the record.
func (e IndexEntry) End() int64 {
	return e.DataStart + e.Length
}

func (e IndexEntry) verify(data []byte) error {
	if int64(len(data)) != e.Length || xxhash.Sum64(data) != e.Checksum {
		return fmt.Errorf("%w: checksum mismatch for %q", ErrCorruptArchive, e.Name)
	}
	return nil
}

func (e IndexEntry) line() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%s\n",
		e.Name, e.MetaStart, e.DataStart, e.Length, strconv.FormatUint(e.Checksum, 16))
}

func parseIndexLine(line string) (IndexEntry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return IndexEntry{}, fmt.Errorf("%w: malformed index line %q", ErrCorruptArchive, line)
	}

	var (
		entry = IndexEntry{Name: fields[0]}
		err   error
	)
	if entry.MetaStart, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return IndexEntry{}, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	if entry.DataStart, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return IndexEntry{}, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	if entry.Length, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
		return IndexEntry{}, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	if entry.Checksum, err = strconv.ParseUint(fields[4], 16, 64); err != nil {
		return IndexEntry{}, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	if entry.DataStart < entry.MetaStart || entry.Length < 0 {
		return IndexEntry{}, fmt.Errorf("%w: bad offsets for %q", ErrCorruptArchive, entry.Name)
	}
	return entry, nil
}

type index struct {
	entries []IndexEntry
	byName  map[string]int
	// size is the length of the complete lines read from the index file.
	size int64
}

// loadIndex reads an index file. A trailing line without a newline is the
// remains of an interrupted append and is ignored.
func loadIndex(path string) (*index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	idx := &index{byName: map[string]int{}}
	var prevEnd int64
	for len(raw) > 0 {
		nl := bytes.IndexByte(raw, '\n')
		if nl < 0 {
			break
		}
		entry, err := parseIndexLine(string(raw[:nl]))
		if err != nil {
			return nil, err
		}
		if entry.MetaStart != prevEnd {
			return nil, fmt.Errorf("%w: index entry %q does not follow previous record", ErrCorruptArchive, entry.Name)
		}
		if _, ok := idx.byName[entry.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, entry.Name)
		}
		idx.byName[entry.Name] = len(idx.entries)
		idx.entries = append(idx.entries, entry)
		idx.size += int64(nl + 1)
		prevEnd = entry.End()
		raw = raw[nl+1:]
	}
	return idx, nil
}

func (i *index) end() int64 {
	if len(i.entries) == 0 {
		return 0
	}
	return i.entries[len(i.entries)-1].End()
}
