package status

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HistoryEntry is one line of a module's execution history.
type HistoryEntry struct {
	Time   time.Time
	Event  string
	Detail string
}

func appendHistory(dir string, entry HistoryEntry) error {
	f, err := os.OpenFile(filepath.Join(dir, HistoryFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	detail := strings.NewReplacer("\n", " ", "\t", " ").Replace(entry.Detail)
	_, err = fmt.Fprintf(f, "%s\t%s\t%s\n", entry.Time.UTC().Format(time.RFC3339Nano), entry.Event, detail)
	return errors.Join(err, f.Close())
}

func readHistory(dir string) ([]HistoryEntry, error) {
	f, err := os.Open(filepath.Join(dir, HistoryFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 3)
		if len(fields) < 2 {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, fields[0])
		if err != nil {
			continue
		}
		entry := HistoryEntry{Time: ts, Event: fields[1]}
		if len(fields) == 3 {
			entry.Detail = fields[2]
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}
