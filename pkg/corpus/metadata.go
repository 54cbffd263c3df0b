// Package corpus stores a dataset of documents as an ordered sequence of
// indexed archives, each holding at most a fixed number of documents.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	MetadataFile = "corpus.json"

	DefaultArchiveSize = 1000
	DefaultBasename    = "archive"
)

var (
	ErrIncomplete       = errors.New("corpus was not completely written")
	ErrArchiveFull      = errors.New("archive is full")
	ErrCorpusAlignment  = errors.New("corpora are not aligned")
	ErrWriterClosed     = errors.New("corpus writer is closed")
	ErrNotFound         = errors.New("corpus not found")
	errMetadataRequired = errors.New("corpus metadata is missing a required field")
)

// Metadata is persisted next to the archives of a corpus.
type Metadata struct {
	// Datatype is the name of the datatype the documents conform to.
	Datatype    string   `json:"datatype"`
	Length      int      `json:"length"`
	Archives    []string `json:"archives"`
	ArchiveSize int      `json:"archive_size"`
	Basename    string   `json:"archive_basename"`
	Gzip        bool     `json:"gzip,omitempty"`
	Complete    bool     `json:"complete"`
}

// ReadMetadata reads the metadata of the corpus stored in dir.
func ReadMetadata(dir string) (Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return Metadata{}, err
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("read corpus metadata in %s: %w", dir, err)
	}
	if meta.ArchiveSize <= 0 || meta.Basename == "" {
		return Metadata{}, fmt.Errorf("%w in %s", errMetadataRequired, dir)
	}
	return meta, nil
}

// Exists reports whether dir holds a completely written corpus.
func Exists(dir string) bool {
	meta, err := ReadMetadata(dir)
	return err == nil && meta.Complete
}

func writeMetadata(dir string, meta Metadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(dir, MetadataFile+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, MetadataFile))
}
