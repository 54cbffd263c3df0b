// Package status tracks the execution state of each module of a pipeline on
// disk and decides which modules are ready to run.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docpipe/docpipe/pkg/corpus"
)

// Status is the execution state of a module.
type Status string

const (
	Unexecuted Status = "UNEXECUTED"
	Started    Status = "STARTED"
	Complete   Status = "COMPLETE"
	Failed     Status = "FAILED"
)

const (
	MetadataFile = "metadata.json"
	HistoryFile  = "history"
	RunMarker    = ".running"
)

var (
	// ErrAlreadyRunning is returned by Begin when a run marker is present.
	ErrAlreadyRunning = errors.New("module is already running or was left inconsistent by an interrupted run; reset it to continue")
	ErrNotStarted     = errors.New("module execution has not been started")
)

// OutputInfo summarises one finished output.
type OutputInfo struct {
	Datatype string `json:"datatype"`
	Length   int    `json:"length"`
	Archives int    `json:"archives"`
}

// Metadata is the persisted record of a module's last execution.
type Metadata struct {
	Status    Status     `json:"status"`
	RunID     string     `json:"run_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`

	DocsCompleted    int         `json:"docs_completed,omitempty"`
	LastDocCompleted *corpus.Key `json:"last_doc_completed,omitempty"`

	Outputs map[string]OutputInfo `json:"outputs,omitempty"`
}

// marker is the content of the run marker file.
type marker struct {
	RunID   string    `json:"run_id"`
	PID     int       `json:"pid"`
	Started time.Time `json:"started"`
}

func readMetadata(dir string) (Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{Status: Unexecuted}, nil
		}
		return Metadata{}, err
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("read %s: %w", filepath.Join(dir, MetadataFile), err)
	}
	if meta.Status == "" {
		meta.Status = Unexecuted
	}
	return meta, nil
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
