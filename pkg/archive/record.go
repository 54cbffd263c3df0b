// Package archive implements the indexed archive file format that stores an
// ordered, append-only sequence of named documents.
//
// An archive is a pair of files. The payload file (<name>.prc) is a sequence
// of records, each a varint-prefixed JSON header followed by the
// varint-prefixed document data. The index file (<name>.prci) holds one line
// per record giving its name, offsets, data length and checksum, so any
// document can be fetched with a single read.
package archive

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	DataExt  = ".prc"
	IndexExt = ".prci"
)

var (
	ErrCorruptArchive = errors.New("corrupt archive")
	ErrDuplicateName  = errors.New("duplicate document name in archive")
	ErrInvalidName    = errors.New("invalid document name")
	ErrClosed         = errors.New("archive is closed")
)

// Header is the per-record metadata stored ahead of the document data.
type Header struct {
	Name    string `json:"name"`
	Invalid bool   `json:"invalid,omitempty"`
	Gzip    bool   `json:"gzip,omitempty"`
}

// Record is a single stored document.
type Record struct {
	Header
	Data []byte
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "\t\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// encodeRecord returns the bytes of a record and the offset of the data
// section relative to the start of the record.
func encodeRecord(h Header, data []byte) ([]byte, int64, error) {
	meta, err := json.Marshal(h)
	if err != nil {
		return nil, 0, err
	}

	buf := make([]byte, 0, len(meta)+len(data)+2*binary.MaxVarintLen64)
	buf = protowire.AppendVarint(buf, uint64(len(meta)))
	buf = append(buf, meta...)
	buf = protowire.AppendVarint(buf, uint64(len(data)))
	dataOffset := int64(len(buf))
	buf = append(buf, data...)

	return buf, dataOffset, nil
}

func decodeHeader(meta []byte) (Header, error) {
	if !gjson.ValidBytes(meta) {
		return Header{}, fmt.Errorf("%w: malformed record header", ErrCorruptArchive)
	}
	res := gjson.GetManyBytes(meta, "name", "invalid", "gzip")
	if !res[0].Exists() {
		return Header{}, fmt.Errorf("%w: record header has no name", ErrCorruptArchive)
	}
	return Header{
		Name:    res[0].String(),
		Invalid: res[1].Bool(),
		Gzip:    res[2].Bool(),
	}, nil
}

// decodeRecord parses a complete record held in buf.
func decodeRecord(buf []byte) (Record, error) {
	metaLen, n := protowire.ConsumeVarint(buf)
	if n < 0 || uint64(len(buf)-n) < metaLen {
		return Record{}, fmt.Errorf("%w: truncated record header", ErrCorruptArchive)
	}
	buf = buf[n:]
	h, err := decodeHeader(buf[:metaLen])
	if err != nil {
		return Record{}, err
	}
	buf = buf[metaLen:]

	dataLen, n := protowire.ConsumeVarint(buf)
	if n < 0 || uint64(len(buf)-n) < dataLen {
		return Record{}, fmt.Errorf("%w: truncated record data", ErrCorruptArchive)
	}
	return Record{Header: h, Data: buf[n : n+int(dataLen)]}, nil
}

func readVarint(br *bufio.Reader) (uint64, error) {
	peek, err := br.Peek(binary.MaxVarintLen64)
	if len(peek) == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	v, n := protowire.ConsumeVarint(peek)
	if n < 0 {
		return 0, fmt.Errorf("%w: bad length prefix", ErrCorruptArchive)
	}
	if _, err := br.Discard(n); err != nil {
		return 0, err
	}
	return v, nil
}

// readRecord reads the record described by entry from a sequential stream.
// Length prefixes are checked against the index before anything is
// allocated. It returns io.EOF only at a clean record boundary.
func readRecord(br *bufio.Reader, entry IndexEntry) (Record, error) {
	metaLen, err := readVarint(br)
	if err != nil {
		return Record{}, err
	}
	if metaLen > uint64(max(entry.DataStart-entry.MetaStart, 0)) {
		return Record{}, fmt.Errorf("%w: header length %d of %q exceeds its index entry", ErrCorruptArchive, metaLen, entry.Name)
	}
	meta := make([]byte, metaLen)
	if _, err := io.ReadFull(br, meta); err != nil {
		return Record{}, fmt.Errorf("%w: truncated record header", ErrCorruptArchive)
	}
	h, err := decodeHeader(meta)
	if err != nil {
		return Record{}, err
	}

	dataLen, err := readVarint(br)
	if err != nil {
		return Record{}, fmt.Errorf("%w: truncated record data", ErrCorruptArchive)
	}
	if dataLen != uint64(max(entry.Length, 0)) {
		return Record{}, fmt.Errorf("%w: data length %d of %q does not match its index entry", ErrCorruptArchive, dataLen, entry.Name)
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(br, data); err != nil {
		return Record{}, fmt.Errorf("%w: truncated record data", ErrCorruptArchive)
	}
	return Record{Header: h, Data: data}, nil
}
